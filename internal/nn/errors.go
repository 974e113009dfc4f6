package nn

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrConfiguration reports a block size or shape the layer cannot handle.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedPath reports a call to the non-accelerated path with no host fallback.
	ErrUnsupportedPath = errors.New("operation unsupported")
	// ErrResource reports a device allocation, transfer or dispatch failure.
	ErrResource = errors.New("resource error")
)

// Error describes a failed layer call.
type Error struct {
	Layer string // Layer name
	Op    string // Step that failed (e.g. "negotiate", "index map", "dispatch")
	Kind  error  // One of ErrConfiguration, ErrUnsupportedPath, ErrResource
	Err   error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("layer %s: %s: %v", e.Layer, e.Op, e.Kind)
	}
	return fmt.Sprintf("layer %s: %s: %v: %v", e.Layer, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func configError(layer, op string, format string, args ...any) error {
	return &Error{Layer: layer, Op: op, Kind: ErrConfiguration, Err: fmt.Errorf(format, args...)}
}

func resourceError(layer, op string, err error) error {
	return &Error{Layer: layer, Op: op, Kind: ErrResource, Err: err}
}
