package dashboard

import "errors"

// ErrorKind classifies a failed view request.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalid
	KindNotFound
	KindCanceled
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is the user-facing form of a failed view request. Message is safe to
// print; Err keeps the cause for errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
