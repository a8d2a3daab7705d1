package transformer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/chtzvt/rekorslurp/internal/extractor"
)

// CSVTransformer writes one row per record. The "fields" option selects and
// orders the columns; by default every record field is written.
type CSVTransformer struct {
	fields []string
}

func NewCSVTransformer(opts map[string]interface{}) (Transformer, error) {
	fields := extractor.FieldNames
	if raw, ok := opts["fields"]; ok {
		fields = nil
		switch v := raw.(type) {
		case []interface{}:
			for _, f := range v {
				s, ok := f.(string)
				if !ok {
					return nil, fmt.Errorf("csv transformer: field name %v is not a string", f)
				}
				fields = append(fields, s)
			}
		case []string:
			fields = append(fields, v...)
		default:
			return nil, fmt.Errorf("csv transformer: fields must be a list, got %T", raw)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("CSV transformer requires at least one field")
	}
	known := map[string]bool{}
	for _, f := range extractor.FieldNames {
		known[f] = true
	}
	for _, f := range fields {
		if !known[f] {
			return nil, fmt.Errorf("csv transformer: unknown field %q", f)
		}
	}
	return &CSVTransformer{fields: fields}, nil
}

func (c *CSVTransformer) Transform(rec *extractor.Record) ([]byte, error) {
	values := map[string]string{}
	for _, f := range rec.Fields() {
		if f.Present {
			values[f.Name] = fmt.Sprintf("%v", f.Value)
		}
	}
	row := make([]string, len(c.fields))
	for i, f := range c.fields {
		row[i] = values[f]
	}
	return writeRow(row)
}

func (c *CSVTransformer) Header() ([]byte, error) {
	return writeRow(c.fields)
}

func (c *CSVTransformer) Footer() ([]byte, error) {
	return []byte{}, nil
}

func (c *CSVTransformer) Extension() string { return "csv" }

func writeRow(row []string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func init() {
	Register("csv", NewCSVTransformer)
}
