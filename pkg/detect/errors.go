package detect

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable error taxonomy of the service.
type ErrorKind string

const (
	KindServiceUnavailable ErrorKind = "service_unavailable" // model/capability not usable
	KindValidation         ErrorKind = "validation"          // missing required request fields
	KindDecode             ErrorKind = "decode"              // malformed image payload
	KindInternal           ErrorKind = "internal"            // everything else
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Anything that isn't one of
// our taxonomy errors is an internal error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
