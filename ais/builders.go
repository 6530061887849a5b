package ais

// jumpMagic is an undocumented bit that must be set on every emitted jump.
// It is carried as a leftover since no modeled field covers it.
const jumpMagic = 1 << 2

func iType(op Opcode, dst, src Register, imm uint16) *IType {
	return &IType{Op: op, Rs: src, Rt: dst, Imm: imm}
}

// Ori returns dst = src | imm.
func Ori(dst, src Register, imm uint16) *IType { return iType(ORI, dst, src, imm) }

// Oriu returns dst = src | imm<<16.
func Oriu(dst, src Register, imm uint16) *IType { return iType(ORIU, dst, src, imm) }

// Andil returns dst = src & (0xffff0000 | imm).
func Andil(dst, src Register, imm uint16) *IType { return iType(ANDIL, dst, src, imm) }

// Andiu returns dst = src & (imm<<16 | 0xffff).
func Andiu(dst, src Register, imm uint16) *IType { return iType(ANDIU, dst, src, imm) }

// Xori returns dst = src ^ imm.
func Xori(dst, src Register, imm uint16) *IType { return iType(XORI, dst, src, imm) }

// Addi returns dst = src + sign extended imm.
func Addi(dst, src Register, imm uint16) *IType { return iType(ADDI, dst, src, imm) }

// ALU returns the register form dst = src op extra on the full word.
func ALU(op SubOpXalu, dst, src, extra Register) *XALUType {
	return &XALUType{Op: XALUR, Rs: src, Rt: extra, Rd: dst, Fn: XaluFunc{Op: op, Ctl: DpCntlWord}}
}

func Add(dst, src, extra Register) *XALUType { return ALU(XaluADD, dst, src, extra) }
func Sub(dst, src, extra Register) *XALUType { return ALU(XaluSUB, dst, src, extra) }
func And(dst, src, extra Register) *XALUType { return ALU(XaluAND, dst, src, extra) }
func Or(dst, src, extra Register) *XALUType  { return ALU(XaluOR, dst, src, extra) }
func Shl(dst, src, extra Register) *XALUType { return ALU(XaluSHL, dst, src, extra) }
func Shr(dst, src, extra Register) *XALUType { return ALU(XaluSHR, dst, src, extra) }

// ALUConst returns the constant form dst = src op c on the full word.
func ALUConst(op SubOpXalu, dst, src Register, c Const) *XALUIType {
	return &XALUIType{Op: XALUIR, Rs: src, Rd: dst, Const: c, Fn: XaluFunc{Op: op, Ctl: DpCntlWord}}
}

func AddConst(dst, src Register, c Const) *XALUIType { return ALUConst(XaluADD, dst, src, c) }
func SubConst(dst, src Register, c Const) *XALUIType { return ALUConst(XaluSUB, dst, src, c) }
func AndConst(dst, src Register, c Const) *XALUIType { return ALUConst(XaluAND, dst, src, c) }
func OrConst(dst, src Register, c Const) *XALUIType  { return ALUConst(XaluOR, dst, src, c) }
func ShlConst(dst, src Register, c Const) *XALUIType { return ALUConst(XaluSHL, dst, src, c) }
func ShrConst(dst, src Register, c Const) *XALUIType { return ALUConst(XaluSHR, dst, src, c) }

// CTC2 copies src into the CP2 control register cp2.
func CTC2(cp2, src Register) *XALUType {
	return &XALUType{Op: XALU, Rs: src, Rt: R0, Rd: cp2, Fn: XaluFunc{Op: XaluCTC2, Ctl: DpCntlWord}}
}

// CFC2 copies the CP2 control register cp2 into dst.
func CFC2(dst, cp2 Register) *XMiscType {
	return &XMiscType{Op: XMISC, Rt: dst, Rd: cp2, Fn: XmiscFunc{Sub: SubFuncCFC2}}
}

func ioType(op Opcode, size Size, port, value Register) *XLSType {
	return &XLSType{
		Op:   op,
		Rs:   value,
		Base: port,
		Off:  Disp(0),
		Fn:   XioFunc{Op: SubOpXioNorm, Addr: AddrSizeBits16, Size: size, Sel: SelFLAT},
	}
}

// IOWrite writes value to the I/O port held in port.
func IOWrite(size Size, port, value Register) *XLSType { return ioType(XIOW, size, port, value) }

// IORead reads the I/O port held in port into value.
func IORead(size Size, port, value Register) *XLSType { return ioType(XIOR, size, port, value) }

func lsType(op Opcode, size Size, sel Sel, reg, base Register, off Offset) *XLSType {
	return &XLSType{
		Op:   op,
		Rs:   reg,
		Base: base,
		Off:  off,
		Fn:   LSFunc{Op: RawSubOp(0), Addr: AddrSizeBits32, Size: size, Sel: sel},
	}
}

// Push moves base by off and stores reg at the new address.
func Push(size Size, reg, base Register, off Offset) *XLSType {
	return lsType(XPUSH, size, SelSS, reg, base, off)
}

// PushSP pushes reg on the x86 stack.
func PushSP(size Size, reg Register) *XLSType { return Push(size, reg, ESP, Disp(-4)) }

// Pop loads reg from base and moves base by off.
func Pop(size Size, reg, base Register, off Offset) *XLSType {
	return lsType(XPOP, size, SelSS, reg, base, off)
}

// PopSP pops reg from the x86 stack.
func PopSP(size Size, reg Register) *XLSType { return Pop(size, reg, ESP, Disp(4)) }

// PushIP pushes the address of the following instruction on the x86 stack.
func PushIP(size Size) *XLSType { return lsType(XPUSHIP, size, SelSS, R0, ESP, Disp(-4)) }

// Load loads dst from base plus off in the data segment.
func Load(size Size, dst, base Register, off Offset) *XLSType {
	return lsType(XL, size, SelDS, dst, base, off)
}

// Store stores src at base plus off in the data segment.
func Store(size Size, src, base Register, off Offset) *XLSType {
	return lsType(XS, size, SelDS, src, base, off)
}

// Lead computes dst = base + off.
func Lead(dst, base Register, off Offset, addr AddrSize, size Size) *XLSType {
	return &XLSType{Op: XLEAD, Rs: dst, Base: base, Off: off, Fn: LeaFunc{Addr: addr, Size: size}}
}

// J jumps to the address held in base and stays in AIS mode.
func J(base Register) *XJType {
	return &XJType{Op: XJ, Rt: base, Fn: XjFunc{Size: XjSizeBits32, Mode: XjModeAIS}, Leftover: jumpMagic}
}

// JX86 jumps to the address held in base and leaves AIS mode.
func JX86(base Register) *XJType {
	return &XJType{Op: XJ, Rt: base, Fn: XjFunc{Size: XjSizeBits32, Mode: XjModeX86}, Leftover: jumpMagic}
}
