package mcpservice

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned by NewRegistry when two bindings in the same
	// category share a name or URI.
	ErrDuplicateName = errors.New("duplicate capability name")
	// ErrEmptyName is returned by NewRegistry for a binding without a name or URI.
	ErrEmptyName = errors.New("capability name is empty")
	// ErrNoHandler is returned by NewRegistry for a binding without a handler.
	ErrNoHandler = errors.New("capability has no handler")
)

// InvalidParamsError reports that a request named a capability or supplied
// arguments the server cannot accept. The engine maps it to the JSON-RPC
// Invalid params code; every other handler error is treated as an internal
// fault.
type InvalidParamsError struct {
	Detail string
}

func (e *InvalidParamsError) Error() string { return e.Detail }

// InvalidParams builds an *InvalidParamsError with a formatted detail.
func InvalidParams(format string, a ...any) error {
	return &InvalidParamsError{Detail: fmt.Sprintf(format, a...)}
}

// IsInvalidParams reports whether err wraps an *InvalidParamsError.
func IsInvalidParams(err error) bool {
	var ipe *InvalidParamsError
	return errors.As(err, &ipe)
}
