package transformer

import (
	"bytes"
	"encoding/json"

	"github.com/chtzvt/rekorslurp/internal/extractor"
)

// JSONLTransformer writes one JSON object per line.
type JSONLTransformer struct{}

func NewJSONLTransformer(_ map[string]interface{}) (Transformer, error) {
	return &JSONLTransformer{}, nil
}

func (j *JSONLTransformer) Transform(rec *extractor.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (j *JSONLTransformer) Header() ([]byte, error) {
	return []byte{}, nil
}

func (j *JSONLTransformer) Footer() ([]byte, error) {
	return []byte{}, nil
}

func (j *JSONLTransformer) Extension() string { return "jsonl" }

func init() {
	Register("jsonl", NewJSONLTransformer)
}
