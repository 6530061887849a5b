package ais

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is one of the 32 architectural AIS registers. Registers 16 to 23
// hold the x86-visible general purpose registers and 8 to 13 the segment
// registers.
type Register uint8

// RegisterCount is the number of architectural registers.
const RegisterCount = 32

const (
	// R0 always reads as zero.
	R0 Register = 0
	R4 Register = 4
	R5 Register = 5
	R6 Register = 6
	R7 Register = 7

	ES Register = 8
	CS Register = 9
	SS Register = 10
	DS Register = 11
	FS Register = 12
	GS Register = 13

	EAX Register = 16
	ECX Register = 17
	EDX Register = 18
	EBX Register = 19
	ESP Register = 20
	EBP Register = 21
	ESI Register = 22
	EDI Register = 23
)

var registerNames = map[Register]string{
	R0: "R0", R4: "R4", R5: "R5", R6: "R6", R7: "R7",
	ES: "ES", CS: "CS", SS: "SS", DS: "DS", FS: "FS", GS: "GS",
	EAX: "EAX", ECX: "ECX", EDX: "EDX", EBX: "EBX",
	ESP: "ESP", EBP: "EBP", ESI: "ESI", EDI: "EDI",
}

// NewRegister returns the register with index i, or an error wrapping
// ErrInvalidRegister when i is above 31.
func NewRegister(i uint8) (Register, error) {
	if i >= RegisterCount {
		return 0, &FieldError{Field: FieldRegister, Value: uint32(i), Err: ErrInvalidRegister}
	}
	return Register(i), nil
}

// RegisterByName resolves an alias such as "EAX" or a numeric "R<n>" name.
// Matching is case-insensitive.
func RegisterByName(name string) (Register, error) {
	upper := strings.ToUpper(name)
	for r, n := range registerNames {
		if n == upper {
			return r, nil
		}
	}
	if strings.HasPrefix(upper, "R") {
		if i, err := strconv.ParseUint(upper[1:], 10, 8); err == nil {
			return NewRegister(uint8(i))
		}
	}
	return 0, fmt.Errorf("%w: unknown name %q", ErrInvalidRegister, name)
}

// String implements fmt.Stringer.
func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return "R" + strconv.Itoa(int(r))
}

// encodeRegister places r at shift, failing for indexes outside 0 to 31.
func encodeRegister(r Register, f Field, shift uint) (uint32, error) {
	if r >= RegisterCount {
		return 0, &FieldError{Field: f, Value: uint32(r), Err: ErrInvalidRegister}
	}
	return uint32(r) << shift, nil
}

func decodeRegister(word uint32, shift uint) Register {
	return Register(bits(word, shift+4, shift))
}
