package compression

import (
	"io"
	"testing"

	"github.com/chtzvt/rekorslurp/internal/testutil"
)

func TestNewWriter_Zstd(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, "zstd")
	if err != nil {
		t.Fatalf("NewWriter zstd: %v", err)
	}
	original := []byte("hello zstd world")
	_, err = w.Write(original)
	if err != nil {
		t.Fatalf("Write zstd: %v", err)
	}
	w.Close()

	// Try to decompress and verify
	r, err := NewReader(&buf, "zstd")
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll zstd: %v", err)
	}
	if string(out) != string(original) {
		t.Errorf("zstd decompress mismatch: got %q, want %q", out, original)
	}
}

func TestNewWriter_Gzip(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, "gzip")
	if err != nil {
		t.Fatalf("NewWriter gzip: %v", err)
	}
	original := []byte("hello gzip world")
	_, err = w.Write(original)
	if err != nil {
		t.Fatalf("Write gzip: %v", err)
	}
	w.Close()

	// Try to decompress and verify
	r, err := NewReader(&buf, "gzip")
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll gzip: %v", err)
	}
	if string(out) != string(original) {
		t.Errorf("gzip decompress mismatch: got %q, want %q", out, original)
	}
}

func TestNewWriter_Bzip2(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, "bzip2")
	if err != nil {
		t.Fatalf("NewWriter bzip2: %v", err)
	}
	original := []byte("hello bzip2 world")
	_, err = w.Write(original)
	if err != nil {
		t.Fatalf("Write bzip2: %v", err)
	}
	w.Close()

	// Try to decompress and verify
	r, err := NewReader(&buf, "bzip2")
	if err != nil {
		t.Fatalf("bzip2.NewReader: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll bzip2: %v", err)
	}
	if string(out) != string(original) {
		t.Errorf("bzip2 decompress mismatch: got %q, want %q", out, original)
	}
}

func TestNewWriter_None(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, "none")
	if err != nil {
		t.Fatalf("NewWriter none: %v", err)
	}
	original := []byte("plain text passthrough")
	_, err = w.Write(original)
	if err != nil {
		t.Fatalf("Write none: %v", err)
	}
	w.Close()

	if buf.String() != string(original) {
		t.Errorf("none passthrough mismatch: got %q, want %q", buf.String(), original)
	}
}

func TestNewWriter_Unsupported(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	_, err := NewWriter(&buf, "lzma")
	if err == nil {
		t.Error("Expected error for unsupported compression, got nil")
	}
}

func TestCascadeWriter_ClosesUnderlying(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewCascadeWriter(&buf, "gzip")
	if err != nil {
		t.Fatalf("NewCascadeWriter: %v", err)
	}
	if _, err := w.Write([]byte("{\"LogIndex\":1}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !buf.Closed {
		t.Error("underlying writer was not closed")
	}

	r, err := NewReader(&buf, "gzip")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	out, _ := io.ReadAll(r)
	if string(out) != "{\"LogIndex\":1}\n" {
		t.Errorf("cascade round trip mismatch: %q", out)
	}
}

func TestValidate(t *testing.T) {
	for _, c := range Supported {
		if err := Validate(c); err != nil {
			t.Errorf("Validate(%q) = %v", c, err)
		}
	}
	if err := Validate("lzma"); err == nil {
		t.Error("Validate should reject lzma")
	}
}
