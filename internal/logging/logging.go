// Package logging provides the node-facing status/error log used for
// diagnostics across the simulator. It is injected into every node at
// construction rather than living in process-wide state; enable/disable and
// file redirection are plain configuration.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"dronenet-simulation/internal/protocol"
)

// Config controls whether diagnostics are emitted and where they go.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	File    string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Logger writes node-scoped status and error lines.
type Logger struct {
	l *logrus.Logger
	f *os.File
}

// New builds a Logger from cfg. With Enabled false every line is discarded.
// With File set, output goes to both stdout and the file.
func New(cfg Config) (*Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})

	lg := &Logger{l: l}
	if !cfg.Enabled {
		l.SetOutput(io.Discard)
		return lg, nil
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		lg.f = f
		l.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return lg, nil
}

// Discard returns a logger that drops everything. Handy default for tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{l: l}
}

// Status logs a node-scoped informational line.
func (lg *Logger) Status(id protocol.NodeID, format string, args ...interface{}) {
	lg.l.WithField("node", id).Infof(format, args...)
}

// Error logs a node-scoped error line.
func (lg *Logger) Error(id protocol.NodeID, format string, args ...interface{}) {
	lg.l.WithField("node", id).Errorf(format, args...)
}

// Infof logs a line not tied to any node (network assembly, runner).
func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}

// Errorf logs an error line not tied to any node.
func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.l.Errorf(format, args...)
}

// Close releases the log file, if any.
func (lg *Logger) Close() error {
	if lg.f != nil {
		return lg.f.Close()
	}
	return nil
}
