package etl

import (
	"errors"
	"fmt"
)

// EmitError reports a transform or sink failure. It is fatal to the poller.
type EmitError struct {
	Op   string
	Name string
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s (%s): %v", e.Op, e.Name, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

func IsEmitError(err error) bool {
	var ee *EmitError
	return errors.As(err, &ee)
}
