package ais

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is returned when a field required by the instruction format
	// is absent.
	ErrMissing = errors.New("missing value")
	// ErrUnsupported is returned when a field value has no encoding in the
	// target format.
	ErrUnsupported = errors.New("unsupported value")
	// ErrUnknown is returned when a decoded bit pattern has no mapping.
	ErrUnknown = errors.New("unknown value")
	// ErrInvalidRegister is returned for register indexes above 31.
	ErrInvalidRegister = errors.New("invalid register")

	// ErrShortInput is returned by Decode when fewer than InstructionSize
	// bytes are available.
	ErrShortInput = errors.New("short input")
	// ErrBadHeader is returned by Decode when the input does not start with
	// the instruction marker.
	ErrBadHeader = errors.New("bad instruction header")
)

// Field names a field of the instruction model in errors.
type Field uint8

const (
	FieldOpcode Field = iota
	FieldRS
	FieldRT
	FieldRD
	FieldImmediate
	FieldConst
	FieldOffset
	FieldFunction
	FieldRegister
)

var fieldNames = [...]string{
	FieldOpcode:    "opcode",
	FieldRS:        "rs",
	FieldRT:        "rt",
	FieldRD:        "rd",
	FieldImmediate: "immediate",
	FieldConst:     "const",
	FieldOffset:    "offset",
	FieldFunction:  "function",
	FieldRegister:  "register",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// FieldError reports a codec failure on a single field. Err is one of
// ErrMissing, ErrUnsupported, ErrUnknown or ErrInvalidRegister.
type FieldError struct {
	Field Field
	// Value is the offending value or bit pattern. It is zero for ErrMissing.
	Value uint32
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err == ErrMissing {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v %#x", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(f Field) error {
	return &FieldError{Field: f, Err: ErrMissing}
}

func unsupported(f Field, v uint32) error {
	return &FieldError{Field: f, Value: v, Err: ErrUnsupported}
}

func unknown(f Field, v uint32) error {
	return &FieldError{Field: f, Value: v, Err: ErrUnknown}
}
