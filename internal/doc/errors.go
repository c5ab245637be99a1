package doc

import "errors"

var (
	// ErrInvalidDocument is returned by New for a nil or empty root.
	ErrInvalidDocument = errors.New("source cannot be empty")

	// ErrFieldNotFound is returned by Field when the path does not resolve.
	ErrFieldNotFound = errors.New("field not found")

	// ErrWrongKind is returned by FieldAs when the value has another type.
	ErrWrongKind = errors.New("field has unexpected type")
)
