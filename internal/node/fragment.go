package node

import "dronenet-simulation/internal/protocol"

// fragmentData splits encoded message bytes into fixed-size fragments.
// An empty message still produces one empty fragment so the receiver has
// something to acknowledge.
func fragmentData(data []byte) []protocol.Fragment {
	total := uint64(len(data)+protocol.FragmentSize-1) / protocol.FragmentSize
	if total == 0 {
		total = 1
	}
	frags := make([]protocol.Fragment, 0, total)
	for i := uint64(0); i < total; i++ {
		start := int(i) * protocol.FragmentSize
		end := start + protocol.FragmentSize
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, end-start)
		copy(chunk, data[start:end])
		frags = append(frags, protocol.Fragment{Index: i, Total: total, Data: chunk})
	}
	return frags
}

type partialMessage struct {
	total uint64
	got   map[uint64][]byte
}

// assembler rebuilds message byte streams from fragments, keyed by session
// id. Duplicate fragments (retransmissions after a lost ack) overwrite
// harmlessly.
type assembler struct {
	partial map[uint64]*partialMessage
}

func newAssembler() *assembler {
	return &assembler{partial: make(map[uint64]*partialMessage)}
}

// add stores one fragment. Once every index of the session has arrived it
// returns the reassembled bytes and true, and forgets the session.
func (a *assembler) add(session uint64, f protocol.Fragment) ([]byte, bool) {
	pm, ok := a.partial[session]
	if !ok {
		pm = &partialMessage{total: f.Total, got: make(map[uint64][]byte)}
		a.partial[session] = pm
	}
	pm.got[f.Index] = f.Data

	if uint64(len(pm.got)) < pm.total {
		return nil, false
	}

	var data []byte
	for i := uint64(0); i < pm.total; i++ {
		data = append(data, pm.got[i]...)
	}
	delete(a.partial, session)
	return data, true
}
