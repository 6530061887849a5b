package ais

import "fmt"

// Opcode is the 6-bit primary opcode at bits 31:26.
type Opcode uint8

const (
	XJ Opcode = 0o06

	ORIU  Opcode = 0o10
	ADDI  Opcode = 0o11
	ANDIU Opcode = 0o12
	ANDIL Opcode = 0o13
	ANDI  Opcode = 0o14
	ORI   Opcode = 0o15
	XORI  Opcode = 0o16
	XORIU Opcode = 0o17

	XALU   Opcode = 0o40
	XALUI  Opcode = 0o41
	XALUR  Opcode = 0o42
	XALUIR Opcode = 0o43

	XMISC Opcode = 0o50
	XLEAI Opcode = 0o53
	XLEAD Opcode = 0o54

	XL      Opcode = 0o60
	XL2     Opcode = 0o61
	XL3     Opcode = 0o62
	XLBI    Opcode = 0o63
	XLDESC  Opcode = 0o64
	XIOR    Opcode = 0o65
	XPOPBR  Opcode = 0o66
	XPOP    Opcode = 0o67
	XS      Opcode = 0o70
	XS2     Opcode = 0o71
	XPUSHI  Opcode = 0o72
	XSI     Opcode = 0o73
	XPUSHIP Opcode = 0o74
	XIOW    Opcode = 0o75
	XSU     Opcode = 0o76
	XPUSH   Opcode = 0o77
)

// Format is one of the fixed bit layouts of the instruction word.
type Format uint8

const (
	// FormatNone is reported for opcodes without a supported layout.
	FormatNone Format = iota
	FormatI
	FormatXALU
	FormatXALUI
	FormatXJ
	FormatXMISC
	FormatXLS
)

var formatNames = [...]string{
	FormatNone:  "none",
	FormatI:     "I",
	FormatXALU:  "XALU",
	FormatXALUI: "XALUI",
	FormatXJ:    "XJ",
	FormatXMISC: "XMISC",
	FormatXLS:   "XLS",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

type opcodeInfo struct {
	name   string
	format Format
}

var opcodes = map[Opcode]opcodeInfo{
	XJ: {"XJ", FormatXJ},

	ORIU:  {"ORIU", FormatI},
	ADDI:  {"ADDI", FormatI},
	ANDIU: {"ANDIU", FormatI},
	ANDIL: {"ANDIL", FormatI},
	ANDI:  {"ANDI", FormatI},
	ORI:   {"ORI", FormatI},
	XORI:  {"XORI", FormatI},
	XORIU: {"XORIU", FormatI},

	XALU:   {"XALU", FormatXALU},
	XALUR:  {"XALUR", FormatXALU},
	XALUI:  {"XALUI", FormatXALUI},
	XALUIR: {"XALUIR", FormatXALUI},

	XMISC: {"XMISC", FormatXMISC},
	// XLEAI carries an index register in the RD slot which the XLS layout
	// has no room for.
	XLEAI: {"XLEAI", FormatNone},
	XLEAD: {"XLEAD", FormatXLS},

	XL:      {"XL", FormatXLS},
	XL2:     {"XL2", FormatXLS},
	XL3:     {"XL3", FormatXLS},
	XLBI:    {"XLBI", FormatXLS},
	XLDESC:  {"XLDESC", FormatXLS},
	XIOR:    {"XIOR", FormatXLS},
	XPOPBR:  {"XPOPBR", FormatXLS},
	XPOP:    {"XPOP", FormatXLS},
	XS:      {"XS", FormatXLS},
	XS2:     {"XS2", FormatXLS},
	XPUSHI:  {"XPUSHI", FormatXLS},
	XSI:     {"XSI", FormatXLS},
	XPUSHIP: {"XPUSHIP", FormatXLS},
	XIOW:    {"XIOW", FormatXLS},
	XSU:     {"XSU", FormatXLS},
	XPUSH:   {"XPUSH", FormatXLS},
}

// FormatOf returns the layout of op, or FormatNone when op is unknown or has
// no supported layout.
func FormatOf(op Opcode) Format {
	return opcodes[op].format
}

// Known reports whether op is a known opcode, regardless of its format.
func (op Opcode) Known() bool {
	_, ok := opcodes[op]
	return ok
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if info, ok := opcodes[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(%#o)", uint8(op))
}

// checkFormat fails unless op belongs to want.
func checkFormat(op Opcode, want Format) error {
	if op > 0x3f || FormatOf(op) != want {
		return unsupported(FieldOpcode, uint32(op))
	}
	return nil
}
