package js

import (
	"errors"
	"fmt"
)

// ErrHostClosed is returned when an operation is attempted on a Host whose
// interpreter has been torn down.
var ErrHostClosed = errors.New("js: host closed")

// EvalError wraps a failure that occurred while loading or executing a
// compilation unit. Unit is the name the source was evaluated under
// (usually the plugin's entry path).
type EvalError struct {
	Unit  string
	Cause error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("js: evaluating %s: %v", e.Unit, e.Cause)
}

func (e *EvalError) Unwrap() error { return e.Cause }
