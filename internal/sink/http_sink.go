package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chtzvt/rekorslurp/internal/compression"
)

// HTTPSink POSTs each object to an endpoint when it is closed.
type HTTPSink struct {
	endpoint    string
	compression string
	contentType string
	maxRetries  int
	headers     map[string]string
	client      *http.Client
}

func NewHTTPSink(opts map[string]interface{}) (Sink, error) {
	endpoint := stringOpt(opts, "endpoint")
	if endpoint == "" {
		return nil, errors.New("http sink requires 'endpoint' option")
	}
	comp := stringOpt(opts, "compression")
	if comp == "" {
		comp = "none"
	}
	if err := compression.Validate(comp); err != nil {
		return nil, fmt.Errorf("http sink: %w", err)
	}
	contentType := stringOpt(opts, "content_type")
	if contentType == "" {
		contentType = "application/x-ndjson"
	}
	maxRetries := 3
	switch v := opts["max_retries"].(type) {
	case float64:
		if v > 0 {
			maxRetries = int(v)
		}
	case int:
		if v > 0 {
			maxRetries = v
		}
	}
	headers := map[string]string{}
	if m, ok := opts["headers"].(map[string]interface{}); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}
	return &HTTPSink{
		endpoint:    endpoint,
		compression: comp,
		contentType: contentType,
		maxRetries:  maxRetries,
		headers:     headers,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type httpSinkWriter struct {
	sink   *HTTPSink
	ctx    context.Context
	name   string
	buf    *bytes.Buffer
	w      io.WriteCloser
	closed bool
}

func (s *HTTPSink) Open(ctx context.Context, name string) (SinkWriter, error) {
	buf := &bytes.Buffer{}
	w, err := compression.NewWriter(buf, s.compression)
	if err != nil {
		return nil, err
	}
	return &httpSinkWriter{
		sink: s,
		ctx:  ctx,
		name: name,
		buf:  buf,
		w:    w,
	}, nil
}

func (w *httpSinkWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("sinkwriter closed")
	}
	return w.w.Write(p)
}

func (w *httpSinkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Close(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= w.sink.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, w.sink.endpoint, bytes.NewReader(w.buf.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", w.sink.contentType)
		req.Header.Set("X-Object-Name", w.name)
		for k, v := range w.sink.headers {
			req.Header.Set(k, v)
		}
		switch w.sink.compression {
		case "gzip":
			req.Header.Set("Content-Encoding", "gzip")
		case "bzip2":
			req.Header.Set("Content-Encoding", "x-bzip2")
		case "zstd":
			req.Header.Set("Content-Encoding", "zstd")
		}
		resp, err := w.sink.client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("http sink: %s", resp.Status)
		} else {
			lastErr = err
		}
		if w.ctx.Err() != nil {
			return w.ctx.Err()
		}
		time.Sleep(time.Duration(attempt*200) * time.Millisecond)
	}
	return fmt.Errorf("all HTTP POST attempts failed: %w", lastErr)
}

func init() {
	Register("http", NewHTTPSink)
}
