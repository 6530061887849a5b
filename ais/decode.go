package ais

import (
	"encoding/binary"
	"fmt"
)

// Decode decodes the instruction at the start of b and returns it together
// with the number of bytes consumed, which is always InstructionSize on
// success.
//
// Bits of the word that the decoded fields do not reproduce are kept in the
// instruction's leftovers, so Encode returns b[:InstructionSize] unchanged.
func Decode(b []byte) (Instruction, int, error) {
	if len(b) < InstructionSize {
		return nil, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortInput, InstructionSize, len(b))
	}
	if b[0] != Header[0] || b[1] != Header[1] {
		return nil, 0, fmt.Errorf("%w: % x", ErrBadHeader, b[:2])
	}
	in, err := DecodeWord(binary.LittleEndian.Uint32(b[2:InstructionSize]))
	if err != nil {
		return nil, 0, err
	}
	return in, InstructionSize, nil
}

// DecodeWord decodes a 32-bit instruction word.
func DecodeWord(word uint32) (Instruction, error) {
	op := Opcode(bits(word, 31, opcodeShift))

	var in Instruction
	var err error
	switch FormatOf(op) {
	case FormatI:
		in = &IType{
			Op:  op,
			Rs:  decodeRegister(word, rsShift),
			Rt:  decodeRegister(word, rtShift),
			Imm: uint16(word & immediateMask),
		}
	case FormatXALU:
		var fn XaluFunc
		if fn, err = decodeXaluFunc(word); err == nil {
			in = &XALUType{
				Op: op,
				Rs: decodeRegister(word, rsShift),
				Rt: decodeRegister(word, rtShift),
				Rd: decodeRegister(word, rdShift),
				Fn: fn,
			}
		}
	case FormatXALUI:
		var fn XaluFunc
		if fn, err = decodeXaluFunc(word); err == nil {
			in = &XALUIType{
				Op:    op,
				Rs:    decodeRegister(word, rsShift),
				Const: decodeConst(uint8(bits(word, constShift+4, constShift))),
				Rd:    decodeRegister(word, rdShift),
				Fn:    fn,
			}
		}
	case FormatXJ:
		var fn XjFunc
		if fn, err = decodeXjFunc(word); err == nil {
			in = &XJType{Op: op, Rt: decodeRegister(word, rtShift), Fn: fn}
		}
	case FormatXMISC:
		var fn XmiscFunc
		if fn, err = decodeXmiscFunc(word); err == nil {
			in = &XMiscType{
				Op: op,
				Rt: decodeRegister(word, rtShift),
				Rd: decodeRegister(word, rdShift),
				Fn: fn,
			}
		}
	case FormatXLS:
		var fn Function
		if fn, err = decodeXlsFunc(op, word); err == nil {
			in = &XLSType{
				Op:   op,
				Rs:   decodeRegister(word, xlsRsShift),
				Base: decodeRegister(word, rtShift),
				Off:  decodeOffset(uint8(bits(word, xlsOffsetShift+4, xlsOffsetShift))),
				Fn:   fn,
			}
		}
	default:
		return nil, unknown(FieldOpcode, uint32(op))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	modeled, err := in.word()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	in.setLeftovers(word &^ modeled)
	return in, nil
}

func decodeXaluFunc(word uint32) (XaluFunc, error) {
	op, err := decodeEnum[SubOpXalu](subOpXaluNames, bits(word, 4, 0))
	if err != nil {
		return XaluFunc{}, err
	}
	ctl, err := decodeEnum[DpCntl](dpCntlNames, bits(word, 7, 5))
	if err != nil {
		return XaluFunc{}, err
	}
	return XaluFunc{Op: op, Ctl: ctl}, nil
}

func decodeXjFunc(word uint32) (XjFunc, error) {
	size, err := decodeEnum[XjSize](xjSizeNames, bits(word, 7, 6))
	if err != nil {
		return XjFunc{}, err
	}
	mode, err := decodeEnum[XjMode](xjModeNames, bits(word, 1, 0))
	if err != nil {
		return XjFunc{}, err
	}
	return XjFunc{Size: size, Mode: mode}, nil
}

func decodeXmiscFunc(word uint32) (XmiscFunc, error) {
	sub, err := decodeEnum[SubFunc](subFuncNames, bits(word, 10, 6))
	if err != nil {
		return XmiscFunc{}, err
	}
	return XmiscFunc{Sub: sub, Raw: uint8(bits(word, 5, 0))}, nil
}

func decodeXlsFunc(op Opcode, word uint32) (Function, error) {
	addrBits := bit(word, 8)<<1 | bit(word, 0)
	switch op {
	case XLEAD:
		addr, err := decodeEnum[AddrSize](addrSizeNames, addrBits)
		if err != nil {
			return nil, err
		}
		size, err := decodeEnum[Size](sizeNames, bit(word, 2)<<3|bits(word, 7, 6)<<1|bit(word, 1))
		if err != nil {
			return nil, err
		}
		return LeaFunc{Addr: addr, Size: size}, nil
	case XIOR, XIOW:
		sub, err := decodeEnum[SubOpXio](subOpXioNames, bits(word, 10, 9))
		if err != nil {
			return nil, err
		}
		addr, size, sel, err := unpackTransfer(word, addrBits)
		if err != nil {
			return nil, err
		}
		return XioFunc{Op: sub, Addr: addr, Size: size, Sel: sel}, nil
	default:
		addr, size, sel, err := unpackTransfer(word, addrBits)
		if err != nil {
			return nil, err
		}
		return LSFunc{Op: RawSubOp(bits(word, 10, 9)), Addr: addr, Size: size, Sel: sel}, nil
	}
}

func unpackTransfer(word, addrBits uint32) (AddrSize, Size, Sel, error) {
	addr, err := decodeEnum[AddrSize](addrSizeNames, addrBits)
	if err != nil {
		return 0, 0, 0, err
	}
	size, err := decodeEnum[Size](sizeNames, bits(word, 7, 6)<<1|bit(word, 1))
	if err != nil {
		return 0, 0, 0, err
	}
	sel, err := decodeEnum[Sel](selNames, bits(word, 5, 2))
	if err != nil {
		return 0, 0, 0, err
	}
	return addr, size, sel, nil
}
