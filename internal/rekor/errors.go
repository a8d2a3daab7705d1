package rekor

import (
	"errors"
	"fmt"

	"github.com/google/certificate-transparency-go/jsonclient"
)

// NetworkError is returned when a request to the log fails in transport or
// comes back with a non-200 status.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SchemaError is returned when the log answered but the payload does not
// have the expected shape.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsSchemaError reports whether err is, or wraps, a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// classify maps a jsonclient failure onto the two fatal error kinds. A
// RspError carrying 200 means the body was received but did not decode.
func classify(op, url string, err error) error {
	var rspErr jsonclient.RspError
	if errors.As(err, &rspErr) {
		if rspErr.StatusCode == 200 {
			return &SchemaError{Op: op, Err: rspErr.Err}
		}
		return &NetworkError{Op: op, URL: url, StatusCode: rspErr.StatusCode, Err: rspErr.Err}
	}
	return &NetworkError{Op: op, URL: url, Err: err}
}
