package ais

import (
	"encoding/binary"
	"fmt"
)

// InstructionSize is the size in bytes of every encoded instruction.
const InstructionSize = 6

// Header is the two byte marker preceding every instruction word.
var Header = [2]byte{0x62, 0x80}

// Encode returns the six byte form of in: the marker followed by the
// little-endian instruction word.
func Encode(in Instruction) ([]byte, error) {
	word, err := EncodeWord(in)
	if err != nil {
		return nil, err
	}
	b := make([]byte, InstructionSize)
	b[0], b[1] = Header[0], Header[1]
	binary.LittleEndian.PutUint32(b[2:], word)
	return b, nil
}

// EncodeWord returns the 32-bit instruction word of in, leftovers included.
func EncodeWord(in Instruction) (uint32, error) {
	if isNil(in) {
		return 0, missing(FieldOpcode)
	}
	w, err := in.word()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in.Opcode(), err)
	}
	return w | in.Leftovers(), nil
}

// isNil reports whether in holds no instruction, including a nil pointer
// of one of the instruction types.
func isNil(in Instruction) bool {
	switch in := in.(type) {
	case nil:
		return true
	case *IType:
		return in == nil
	case *XALUType:
		return in == nil
	case *XALUIType:
		return in == nil
	case *XJType:
		return in == nil
	case *XMiscType:
		return in == nil
	case *XLSType:
		return in == nil
	}
	return false
}

func (in *IType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatI); err != nil {
		return 0, err
	}
	rs, err := encodeRegister(in.Rs, FieldRS, rsShift)
	if err != nil {
		return 0, err
	}
	rt, err := encodeRegister(in.Rt, FieldRT, rtShift)
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | rs | rt | uint32(in.Imm), nil
}

func (in *XALUType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatXALU); err != nil {
		return 0, err
	}
	regs, err := encodeRegisters(
		regSlot{in.Rs, FieldRS, rsShift},
		regSlot{in.Rt, FieldRT, rtShift},
		regSlot{in.Rd, FieldRD, rdShift},
	)
	if err != nil {
		return 0, err
	}
	fn, err := in.Fn.bits()
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | regs | fn, nil
}

func (in *XALUIType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatXALUI); err != nil {
		return 0, err
	}
	regs, err := encodeRegisters(
		regSlot{in.Rs, FieldRS, rsShift},
		regSlot{in.Rd, FieldRD, rdShift},
	)
	if err != nil {
		return 0, err
	}
	c, err := encodeConst(in.Const)
	if err != nil {
		return 0, err
	}
	fn, err := in.Fn.bits()
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | regs | c<<constShift | fn, nil
}

func (in *XJType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatXJ); err != nil {
		return 0, err
	}
	rt, err := encodeRegister(in.Rt, FieldRT, rtShift)
	if err != nil {
		return 0, err
	}
	fn, err := in.Fn.bits()
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | rt | fn, nil
}

func (in *XMiscType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatXMISC); err != nil {
		return 0, err
	}
	regs, err := encodeRegisters(
		regSlot{in.Rt, FieldRT, rtShift},
		regSlot{in.Rd, FieldRD, rdShift},
	)
	if err != nil {
		return 0, err
	}
	fn, err := in.Fn.bits()
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | regs | fn, nil
}

func (in *XLSType) word() (uint32, error) {
	if err := checkFormat(in.Op, FormatXLS); err != nil {
		return 0, err
	}
	regs, err := encodeRegisters(
		regSlot{in.Base, FieldRT, rtShift},
		regSlot{in.Rs, FieldRS, xlsRsShift},
	)
	if err != nil {
		return 0, err
	}
	off, err := encodeOffset(in.Off)
	if err != nil {
		return 0, err
	}
	if in.Fn == nil {
		return 0, missing(FieldFunction)
	}
	if !xlsAccepts(in.Op, in.Fn) {
		return 0, &FieldError{Field: FieldFunction, Err: ErrUnsupported}
	}
	fn, err := in.Fn.bits()
	if err != nil {
		return 0, err
	}
	return uint32(in.Op)<<opcodeShift | off<<xlsOffsetShift | regs | fn, nil
}

// xlsAccepts reports whether fn has the shape owned by op.
func xlsAccepts(op Opcode, fn Function) bool {
	switch fn.(type) {
	case RawFunc:
		return true
	case XioFunc:
		return op == XIOR || op == XIOW
	case LeaFunc:
		return op == XLEAD
	case LSFunc:
		return op != XIOR && op != XIOW && op != XLEAD
	}
	return false
}

type regSlot struct {
	r     Register
	field Field
	shift uint
}

func encodeRegisters(slots ...regSlot) (uint32, error) {
	var w uint32
	for _, s := range slots {
		b, err := encodeRegister(s.r, s.field, s.shift)
		if err != nil {
			return 0, err
		}
		w |= b
	}
	return w, nil
}

func (f XaluFunc) bits() (uint32, error) {
	op, err := encodeEnum(subOpXaluNames, f.Op)
	if err != nil {
		return 0, err
	}
	ctl, err := encodeEnum(dpCntlNames, f.Ctl)
	if err != nil {
		return 0, err
	}
	return op | ctl<<5, nil
}

func (f XioFunc) bits() (uint32, error) {
	return packTransfer(f.Op, f.Addr, f.Size, f.Sel)
}

func (f LSFunc) bits() (uint32, error) {
	if f.Op == nil {
		return 0, missing(FieldFunction)
	}
	return packTransfer(f.Op, f.Addr, f.Size, f.Sel)
}

// packTransfer lays out the function of the I/O and load/store forms:
//
//	10:9 subop | 8 as.1 | 7:6 size.2:1 | 5:2 sel | 1 size.0 | 0 as.0
func packTransfer(op SubOp, addr AddrSize, size Size, sel Sel) (uint32, error) {
	sub, err := op.subOpBits()
	if err != nil {
		return 0, err
	}
	as, err := encodeEnum(addrSizeNames, addr)
	if err != nil {
		return 0, err
	}
	sz, err := encodeEnum(sizeNames, size)
	if err != nil {
		return 0, err
	}
	if sz > 0b111 {
		return 0, unsupported(FieldFunction, sz)
	}
	s, err := encodeEnum(selNames, sel)
	if err != nil {
		return 0, err
	}
	return sub<<9 | (as&2)<<7 | (sz&6)<<5 | s<<2 | (sz&1)<<1 | as&1, nil
}

func (f XjFunc) bits() (uint32, error) {
	size, err := encodeEnum(xjSizeNames, f.Size)
	if err != nil {
		return 0, err
	}
	mode, err := encodeEnum(xjModeNames, f.Mode)
	if err != nil {
		return 0, err
	}
	return size<<6 | mode, nil
}

// bits lays out the effective address function:
//
//	8 as.1 | 7:6 size.2:1 | 2 size.3 | 1 size.0 | 0 as.0
func (f LeaFunc) bits() (uint32, error) {
	as, err := encodeEnum(addrSizeNames, f.Addr)
	if err != nil {
		return 0, err
	}
	sz, err := encodeEnum(sizeNames, f.Size)
	if err != nil {
		return 0, err
	}
	return bit(as, 1)<<8 | bits(sz, 2, 1)<<6 | bit(sz, 3)<<2 | bit(sz, 0)<<1 | bit(as, 0), nil
}

func (f XmiscFunc) bits() (uint32, error) {
	sub, err := encodeEnum(subFuncNames, f.Sub)
	if err != nil {
		return 0, err
	}
	if f.Raw > 0x3f {
		return 0, unsupported(FieldFunction, uint32(f.Raw))
	}
	return sub<<6 | uint32(f.Raw), nil
}

func (f RawFunc) bits() (uint32, error) {
	return uint32(f), nil
}
