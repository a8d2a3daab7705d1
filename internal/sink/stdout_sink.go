package sink

import (
	"context"
	"io"
	"os"
)

// StdoutSink writes every object to the process's standard output.
type StdoutSink struct {
	// Out overrides os.Stdout when set.
	Out io.Writer
}

func NewStdoutSink(_ map[string]interface{}) (Sink, error) {
	return &StdoutSink{}, nil
}

func (s *StdoutSink) Open(ctx context.Context, name string) (SinkWriter, error) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	return &stdoutWriter{Writer: out}, nil
}

type stdoutWriter struct {
	io.Writer
}

func (w *stdoutWriter) Close() error {
	// Don't close os.Stdout!
	return nil
}

func init() {
	Register("stdout", NewStdoutSink)
}
