package transformer

import (
	"github.com/chtzvt/rekorslurp/internal/extractor"
	"github.com/fxamacker/cbor/v2"
)

// CBORTransformer writes a sequence of CBOR maps (RFC 8742).
type CBORTransformer struct{}

func NewCBORTransformer(_ map[string]interface{}) (Transformer, error) {
	return &CBORTransformer{}, nil
}

func (c *CBORTransformer) Transform(rec *extractor.Record) ([]byte, error) {
	return cbor.Marshal(rec)
}

func (c *CBORTransformer) Header() ([]byte, error) {
	return []byte{}, nil
}

func (c *CBORTransformer) Footer() ([]byte, error) {
	return []byte{}, nil
}

func (c *CBORTransformer) Extension() string { return "cbor" }

func init() {
	Register("cbor", NewCBORTransformer)
}
