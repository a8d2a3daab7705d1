package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chtzvt/rekorslurp/internal/compression"
)

type DiskSink struct {
	baseDir     string
	compression string
}

func NewDiskSink(opts map[string]interface{}) (Sink, error) {
	baseDir := stringOpt(opts, "path")
	if baseDir == "" {
		return nil, fmt.Errorf("disk sink requires 'path' option")
	}
	comp := stringOpt(opts, "compression")
	if comp == "" {
		comp = "none"
	}
	if err := compression.Validate(comp); err != nil {
		return nil, fmt.Errorf("disk sink: %w", err)
	}
	return &DiskSink{baseDir: baseDir, compression: comp}, nil
}

// Open creates name under the base directory. The file is written to a
// temporary name and renamed into place on Close.
func (d *DiskSink) Open(ctx context.Context, name string) (SinkWriter, error) {
	fullPath := filepath.Join(d.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return nil, err
	}
	w, err := compression.NewCascadeWriter(f, d.compression)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return &diskSinkWriter{WriteCloser: w, tmp: f.Name(), path: fullPath}, nil
}

type diskSinkWriter struct {
	io.WriteCloser
	tmp  string
	path string
}

func (d *diskSinkWriter) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		os.Remove(d.tmp)
		return err
	}
	return os.Rename(d.tmp, d.path)
}

func init() {
	Register("disk", NewDiskSink)
}
