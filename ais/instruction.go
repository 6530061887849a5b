package ais

import (
	"fmt"
	"strings"
)

// Instruction is a symbolic AIS instruction. Each implementation carries
// exactly the fields of one Format:
//
//   - *IType for FormatI
//   - *XALUType for FormatXALU
//   - *XALUIType for FormatXALUI
//   - *XJType for FormatXJ
//   - *XMiscType for FormatXMISC
//   - *XLSType for FormatXLS
type Instruction interface {
	fmt.Stringer

	// Opcode returns the primary opcode.
	Opcode() Opcode

	// Format returns the layout implemented by this value.
	Format() Format

	// Leftovers returns the bits of the word that no modeled field
	// reproduces. They are OR-ed into the word verbatim on encode and must
	// not overlap modeled fields.
	Leftovers() uint32

	// word encodes the modeled fields, without leftovers.
	word() (uint32, error)

	setLeftovers(uint32)
}

// Function is the sub-opcode payload held in the low bits of the word. Its
// shape depends on the opcode:
//
//   - XaluFunc for XALU and XALUI
//   - XioFunc for XIOR and XIOW
//   - LSFunc for the other load/store opcodes
//   - LeaFunc for XLEAD
//   - XjFunc for XJ
//   - XmiscFunc for XMISC
//
// RawFunc is accepted in place of any XLS function shape.
type Function interface {
	fmt.Stringer
	bits() (uint32, error)
}

// XaluFunc is an arithmetic operation with its data path control.
type XaluFunc struct {
	Op  SubOpXalu
	Ctl DpCntl
}

func (f XaluFunc) String() string { return f.Op.String() + "/" + f.Ctl.String() }

// XioFunc is an I/O transfer.
type XioFunc struct {
	Op   SubOpXio
	Addr AddrSize
	Size Size
	Sel  Sel
}

func (f XioFunc) String() string {
	return fmt.Sprintf("%s/as=%s/%s/%s", f.Op, f.Addr, f.Size, f.Sel)
}

// LSFunc is a generic load or store.
type LSFunc struct {
	Op   SubOp
	Addr AddrSize
	Size Size
	Sel  Sel
}

func (f LSFunc) String() string {
	op := "<nil>"
	if f.Op != nil {
		op = f.Op.String()
	}
	return fmt.Sprintf("%s/as=%s/%s/%s", op, f.Addr, f.Size, f.Sel)
}

// XjFunc is the size and mode of an indirect jump.
type XjFunc struct {
	Size XjSize
	Mode XjMode
}

func (f XjFunc) String() string { return f.Size.String() + "/" + f.Mode.String() }

// LeaFunc is an effective address computation.
type LeaFunc struct {
	Addr AddrSize
	Size Size
}

func (f LeaFunc) String() string { return fmt.Sprintf("as=%s/%s", f.Addr, f.Size) }

// XmiscFunc is a miscellaneous sub-function plus six residual bits.
type XmiscFunc struct {
	Sub SubFunc
	Raw uint8
}

func (f XmiscFunc) String() string {
	if f.Raw == 0 {
		return f.Sub.String()
	}
	return fmt.Sprintf("%s/%#x", f.Sub, f.Raw)
}

// RawFunc is an unclassified function field, written verbatim.
type RawFunc uint16

func (f RawFunc) String() string { return fmt.Sprintf("raw(%#x)", uint16(f)) }

// IType is an immediate instruction: Rt = Rs op Imm.
type IType struct {
	Op       Opcode
	Rs, Rt   Register
	Imm      uint16
	Leftover uint32
}

// XALUType is a register to register arithmetic instruction:
// Rd = Rs op Rt.
type XALUType struct {
	Op         Opcode
	Rs, Rt, Rd Register
	Fn         XaluFunc
	Leftover   uint32
}

// XALUIType is an arithmetic instruction with a constant operand:
// Rd = Rs op Const.
type XALUIType struct {
	Op       Opcode
	Rs, Rd   Register
	Const    Const
	Fn       XaluFunc
	Leftover uint32
}

// XJType is an indirect jump to the address held in Rt.
type XJType struct {
	Op       Opcode
	Rt       Register
	Fn       XjFunc
	Leftover uint32
}

// XMiscType is a miscellaneous instruction on Rt and Rd. The RS slot is not
// modeled; bits found there on decode are kept as leftovers.
type XMiscType struct {
	Op       Opcode
	Rt, Rd   Register
	Fn       XmiscFunc
	Leftover uint32
}

// XLSType is a load, store, I/O or effective address instruction addressing
// Base plus Off.
type XLSType struct {
	Op       Opcode
	Rs, Base Register
	Off      Offset
	Fn       Function
	Leftover uint32
}

func (in *IType) Opcode() Opcode     { return in.Op }
func (in *XALUType) Opcode() Opcode  { return in.Op }
func (in *XALUIType) Opcode() Opcode { return in.Op }
func (in *XJType) Opcode() Opcode    { return in.Op }
func (in *XMiscType) Opcode() Opcode { return in.Op }
func (in *XLSType) Opcode() Opcode   { return in.Op }

func (*IType) Format() Format     { return FormatI }
func (*XALUType) Format() Format  { return FormatXALU }
func (*XALUIType) Format() Format { return FormatXALUI }
func (*XJType) Format() Format    { return FormatXJ }
func (*XMiscType) Format() Format { return FormatXMISC }
func (*XLSType) Format() Format   { return FormatXLS }

func (in *IType) Leftovers() uint32     { return in.Leftover }
func (in *XALUType) Leftovers() uint32  { return in.Leftover }
func (in *XALUIType) Leftovers() uint32 { return in.Leftover }
func (in *XJType) Leftovers() uint32    { return in.Leftover }
func (in *XMiscType) Leftovers() uint32 { return in.Leftover }
func (in *XLSType) Leftovers() uint32   { return in.Leftover }

func (in *IType) setLeftovers(l uint32)     { in.Leftover = l }
func (in *XALUType) setLeftovers(l uint32)  { in.Leftover = l }
func (in *XALUIType) setLeftovers(l uint32) { in.Leftover = l }
func (in *XJType) setLeftovers(l uint32)    { in.Leftover = l }
func (in *XMiscType) setLeftovers(l uint32) { in.Leftover = l }
func (in *XLSType) setLeftovers(l uint32)   { in.Leftover = l }

// String implements fmt.Stringer.
func (in *IType) String() string {
	return format(in.Op, in.Leftover, nil, in.Rt, in.Rs, fmt.Sprintf("0x%04x", in.Imm))
}

// String implements fmt.Stringer.
func (in *XALUType) String() string {
	return format(in.Op, in.Leftover, in.Fn, in.Rd, in.Rs, in.Rt)
}

// String implements fmt.Stringer.
func (in *XALUIType) String() string {
	return format(in.Op, in.Leftover, in.Fn, in.Rd, in.Rs, "#"+in.Const.String())
}

// String implements fmt.Stringer.
func (in *XJType) String() string {
	return format(in.Op, in.Leftover, in.Fn, in.Rt)
}

// String implements fmt.Stringer.
func (in *XMiscType) String() string {
	return format(in.Op, in.Leftover, in.Fn, in.Rt, in.Rd)
}

// String implements fmt.Stringer.
func (in *XLSType) String() string {
	return format(in.Op, in.Leftover, in.Fn, in.Rs, "["+in.Base.String()+offsetOperand(in.Off)+"]")
}

func offsetOperand(o Offset) string {
	if n, ok := o.Displacement(); ok && n < 0 {
		return o.String()
	}
	return "+" + o.String()
}

// format renders "OP.fn a, b, c" followed by the leftover bits, if any.
func format(op Opcode, leftover uint32, fn fmt.Stringer, operands ...interface{}) string {
	var sb strings.Builder
	sb.WriteString(op.String())
	if fn != nil {
		sb.WriteByte('.')
		sb.WriteString(fn.String())
	}
	for i, o := range operands {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, o)
	}
	if leftover != 0 {
		fmt.Fprintf(&sb, " {leftover %#x}", leftover)
	}
	return sb.String()
}
