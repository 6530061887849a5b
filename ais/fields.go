package ais

import (
	"fmt"
	"strconv"
)

// Const is the 5-bit literal operand of the XALUI format. It is either a
// value from the enumerated constant table or a raw bit pattern.
type Const struct {
	raw   bool
	value int8
	bits  uint8
}

// Number returns the enumerated constant n. Only the values present in the
// constant table can be encoded.
func Number(n int8) Const {
	return Const{value: n}
}

// RawConst returns a constant carrying the bit pattern b verbatim. Patterns
// of 32 and above cannot be encoded.
func RawConst(b uint8) Const {
	return Const{raw: true, bits: b}
}

// IsRaw reports whether c is a raw bit pattern.
func (c Const) IsRaw() bool { return c.raw }

// Value returns the numeric value of an enumerated constant.
func (c Const) Value() int8 { return c.value }

// Bits returns the bit pattern of a raw constant.
func (c Const) Bits() uint8 { return c.bits }

// String implements fmt.Stringer.
func (c Const) String() string {
	if c.raw {
		return fmt.Sprintf("raw(%#x)", c.bits)
	}
	return strconv.Itoa(int(c.value))
}

// constTable is the single source of truth for enumerated constants.
//
// The encoding of 6 is only known from a later revision of the tables and is
// not confirmed on hardware.
var constTable = []struct {
	value int8
	bits  uint8
}{
	{value: 0, bits: 0b00000},
	{value: 1, bits: 0b00001},
	{value: 6, bits: 0b01110},
	{value: 5, bits: 0b01111},
}

func encodeConst(c Const) (uint32, error) {
	if c.raw {
		if c.bits >= 32 {
			return 0, unsupported(FieldConst, uint32(c.bits))
		}
		return uint32(c.bits), nil
	}
	for _, e := range constTable {
		if e.value == c.value {
			return uint32(e.bits), nil
		}
	}
	return 0, unsupported(FieldConst, uint32(uint8(c.value)))
}

// decodeConst prefers the enumerated meaning of b and falls back to a raw
// constant.
func decodeConst(b uint8) Const {
	for _, e := range constTable {
		if e.bits == b {
			return Number(e.value)
		}
	}
	return RawConst(b)
}

// OffsetKind discriminates the variants of Offset.
type OffsetKind uint8

const (
	// OffsetKindDisp is a literal displacement.
	OffsetKindDisp OffsetKind = iota
	// OffsetKindRaw is a bit pattern without a known meaning.
	OffsetKindRaw
	OffsetKindOS
	OffsetKindPDOS
	OffsetKindMOS
	OffsetKindMGS
	OffsetKindMDOS
	OffsetKindDF
	OffsetKindDFOS
	OffsetKindDISP
)

var offsetKindNames = map[OffsetKind]string{
	OffsetKindOS:   "OS",
	OffsetKindPDOS: "PDOS",
	OffsetKindMOS:  "MOS",
	OffsetKindMGS:  "MGS",
	OffsetKindMDOS: "MDOS",
	OffsetKindDF:   "DF",
	OffsetKindDFOS: "DFOS",
	OffsetKindDISP: "DISP",
}

// Offset is the 5-bit address offset selector of the XLS format.
type Offset struct {
	Kind OffsetKind
	// N is the displacement of an OffsetKindDisp offset.
	N int8
	// Bits is the pattern of an OffsetKindRaw offset.
	Bits uint8
}

// Disp returns a literal displacement offset.
func Disp(n int8) Offset {
	return Offset{Kind: OffsetKindDisp, N: n}
}

// RawOffset returns an offset carrying the bit pattern b verbatim.
func RawOffset(b uint8) Offset {
	return Offset{Kind: OffsetKindRaw, Bits: b}
}

// PseudoOffset returns one of the named, context relative offsets such as
// OffsetKindOS.
func PseudoOffset(k OffsetKind) Offset {
	return Offset{Kind: k}
}

// Displacement returns the literal displacement and true for OffsetKindDisp.
func (o Offset) Displacement() (int32, bool) {
	if o.Kind != OffsetKindDisp {
		return 0, false
	}
	return int32(o.N), true
}

// String implements fmt.Stringer.
func (o Offset) String() string {
	switch o.Kind {
	case OffsetKindDisp:
		return strconv.Itoa(int(o.N))
	case OffsetKindRaw:
		return fmt.Sprintf("raw(%#x)", o.Bits)
	}
	if n, ok := offsetKindNames[o.Kind]; ok {
		return n
	}
	return fmt.Sprintf("offset(%d)", o.Kind)
}

// offsetTable maps every 5-bit pattern to exactly one Offset.
var offsetTable = func() (t [32]Offset) {
	for i := range t {
		t[i] = RawOffset(uint8(i))
	}
	t[0b00000] = Disp(0)
	t[0b00001] = Disp(1)
	t[0b00010] = Disp(2)
	t[0b00011] = Disp(4)
	t[0b00100] = Disp(8)
	t[0b00101] = Disp(16)
	t[0b00110] = Disp(24)
	t[0b00111] = Disp(32)
	t[0b01000] = Disp(10)
	t[0b01001] = Disp(-1)
	t[0b01010] = Disp(-2)
	t[0b01011] = Disp(-4)
	t[0b01100] = Disp(-8)
	t[0b01111] = Disp(5)
	t[0b10000] = PseudoOffset(OffsetKindOS)
	t[0b10001] = PseudoOffset(OffsetKindPDOS)
	t[0b11000] = PseudoOffset(OffsetKindMOS)
	t[0b11001] = PseudoOffset(OffsetKindMGS)
	t[0b11010] = PseudoOffset(OffsetKindMDOS)
	t[0b11100] = PseudoOffset(OffsetKindDF)
	t[0b11101] = PseudoOffset(OffsetKindDFOS)
	t[0b11111] = PseudoOffset(OffsetKindDISP)
	return
}()

func encodeOffset(o Offset) (uint32, error) {
	if o.Kind == OffsetKindRaw {
		if o.Bits >= 32 {
			return 0, unsupported(FieldOffset, uint32(o.Bits))
		}
		return uint32(o.Bits), nil
	}
	for b, e := range offsetTable {
		if e.Kind == o.Kind && (o.Kind != OffsetKindDisp || e.N == o.N) {
			return uint32(b), nil
		}
	}
	if o.Kind == OffsetKindDisp {
		return 0, unsupported(FieldOffset, uint32(uint8(o.N)))
	}
	return 0, unsupported(FieldOffset, uint32(o.Kind))
}

func decodeOffset(b uint8) Offset {
	return offsetTable[b&0x1f]
}

// Size is the operand size tag.
type Size uint8

const (
	SizeBits16 Size = 0b000
	SizeBits8L Size = 0b001
	SizeBits32 Size = 0b010
	// SizeBits8H is the high byte of a 16-bit register.
	SizeBits8H Size = 0b011
	// SizeAS is the current address size.
	SizeAS     Size = 0b100
	SizeBits64 Size = 0b101
	// SizeOS is the current operand size.
	SizeOS Size = 0b110
	// SizeIND is the gate size.
	SizeIND Size = 0b111
	// SizeSAS is the stack address size. It needs four bits, so only the
	// effective address format can carry it.
	SizeSAS Size = 0b1000
)

var sizeNames = map[Size]string{
	SizeBits16: "Bits16",
	SizeBits8L: "Bits8L",
	SizeBits32: "Bits32",
	SizeBits8H: "Bits8H",
	SizeAS:     "AS",
	SizeBits64: "Bits64",
	SizeOS:     "OS",
	SizeIND:    "IND",
	SizeSAS:    "SAS",
}

func (s Size) String() string { return enumString(sizeNames, s, "size") }

// AddrSize is the address size tag. Its two bits are split across bit 8 and
// bit 0 of the function field.
type AddrSize uint8

const (
	AddrSizeAS     AddrSize = 0b00
	AddrSizeSAS    AddrSize = 0b01
	AddrSizeBits16 AddrSize = 0b10
	AddrSizeBits32 AddrSize = 0b11
)

var addrSizeNames = map[AddrSize]string{
	AddrSizeAS:     "AS",
	AddrSizeSAS:    "SAS",
	AddrSizeBits16: "Bits16",
	AddrSizeBits32: "Bits32",
}

func (a AddrSize) String() string { return enumString(addrSizeNames, a, "addrsize") }

// Sel is the segment or descriptor table selector.
type Sel uint8

const (
	SelES   Sel = 0b0000
	SelCS   Sel = 0b0001
	SelSS   Sel = 0b0010
	SelDS   Sel = 0b0011
	SelFS   Sel = 0b0100
	SelGS   Sel = 0b0101
	SelGDT  Sel = 0b0110
	SelLDT  Sel = 0b0111
	SelIDT  Sel = 0b1000
	SelTSS  Sel = 0b1001
	SelFLAT Sel = 0b1010
	SelT0   Sel = 0b1011
	SelISEL Sel = 0b1111
)

var selNames = map[Sel]string{
	SelES: "ES", SelCS: "CS", SelSS: "SS", SelDS: "DS", SelFS: "FS", SelGS: "GS",
	SelGDT: "GDT", SelLDT: "LDT", SelIDT: "IDT", SelTSS: "TSS",
	SelFLAT: "FLAT", SelT0: "T0", SelISEL: "ISEL",
}

func (s Sel) String() string { return enumString(selNames, s, "sel") }

// SubOpXio is the sub-operation of the I/O forms.
type SubOpXio uint8

const SubOpXioNorm SubOpXio = 0

var subOpXioNames = map[SubOpXio]string{SubOpXioNorm: "Norm"}

func (s SubOpXio) String() string { return enumString(subOpXioNames, s, "subop") }

// SubOp is the sub-operation of the generic load/store forms: either a known
// SubOpXio or a RawSubOp.
type SubOp interface {
	fmt.Stringer
	subOpBits() (uint32, error)
}

func (s SubOpXio) subOpBits() (uint32, error) {
	if _, ok := subOpXioNames[s]; !ok {
		return 0, unsupported(FieldFunction, uint32(s))
	}
	return uint32(s), nil
}

// RawSubOp is a two bit sub-operation without a known meaning.
type RawSubOp uint8

func (s RawSubOp) String() string { return fmt.Sprintf("raw(%d)", uint8(s)) }

func (s RawSubOp) subOpBits() (uint32, error) {
	if s > 0b11 {
		return 0, unsupported(FieldFunction, uint32(s))
	}
	return uint32(s), nil
}

// SubOpXalu is the arithmetic operation of the XALU and XALUI formats.
type SubOpXalu uint8

const (
	XaluSHL   SubOpXalu = 0o00
	XaluSHR   SubOpXalu = 0o02
	XaluSAR   SubOpXalu = 0o03
	XaluROL   SubOpXalu = 0o04
	XaluROR   SubOpXalu = 0o05
	XaluRCL   SubOpXalu = 0o06
	XaluRCR   SubOpXalu = 0o07
	XaluINC   SubOpXalu = 0o10
	XaluCMPS  SubOpXalu = 0o11
	XaluDEC   SubOpXalu = 0o12
	XaluIMUL  SubOpXalu = 0o14
	XaluMUL   SubOpXalu = 0o15
	XaluIDIV  SubOpXalu = 0o16
	XaluADD   SubOpXalu = 0o20
	XaluADC   SubOpXalu = 0o21
	XaluSUB   SubOpXalu = 0o22
	XaluSBB   SubOpXalu = 0o23
	XaluAND   SubOpXalu = 0o24
	XaluOR    SubOpXalu = 0o25
	XaluXOR   SubOpXalu = 0o26
	XaluNOR   SubOpXalu = 0o27
	XaluCTC2  SubOpXalu = 0o31
	XaluSETCC SubOpXalu = 0o35
	XaluMFLOU SubOpXalu = 0o36
	XaluMFLOI SubOpXalu = 0o37
)

var subOpXaluNames = map[SubOpXalu]string{
	XaluSHL: "SHL", XaluSHR: "SHR", XaluSAR: "SAR", XaluROL: "ROL", XaluROR: "ROR",
	XaluRCL: "RCL", XaluRCR: "RCR", XaluINC: "INC", XaluCMPS: "CMPS", XaluDEC: "DEC",
	XaluIMUL: "IMUL", XaluMUL: "MUL", XaluIDIV: "IDIV", XaluADD: "ADD", XaluADC: "ADC",
	XaluSUB: "SUB", XaluSBB: "SBB", XaluAND: "AND", XaluOR: "OR", XaluXOR: "XOR",
	XaluNOR: "NOR", XaluCTC2: "CTC2", XaluSETCC: "SETCC", XaluMFLOU: "MFLOU", XaluMFLOI: "MFLOI",
}

func (s SubOpXalu) String() string { return enumString(subOpXaluNames, s, "xalu") }

// SubFunc is the sub-function of the XMISC format.
type SubFunc uint8

// SubFuncCFC2 copies from a CP2 control register.
const SubFuncCFC2 SubFunc = 0o37

var subFuncNames = map[SubFunc]string{SubFuncCFC2: "CFC2"}

func (s SubFunc) String() string { return enumString(subFuncNames, s, "subfunc") }

// XjSize is the target size of an indirect jump.
type XjSize uint8

const (
	XjSizeBits16 XjSize = 0b00
	XjSizeBits32 XjSize = 0b01
	XjSizeAS     XjSize = 0b10
	XjSizeOS     XjSize = 0b11
)

var xjSizeNames = map[XjSize]string{
	XjSizeBits16: "Bits16",
	XjSizeBits32: "Bits32",
	XjSizeAS:     "AS",
	XjSizeOS:     "OS",
}

func (s XjSize) String() string { return enumString(xjSizeNames, s, "xjsize") }

// XjMode selects whether an indirect jump stays in AIS mode or returns to x86.
type XjMode uint8

const (
	XjModeAIS XjMode = 0b00
	XjModeX86 XjMode = 0b11
)

var xjModeNames = map[XjMode]string{XjModeAIS: "AIS", XjModeX86: "X86"}

func (m XjMode) String() string { return enumString(xjModeNames, m, "xjmode") }

// DpCntl is the data path control of the XALU formats.
type DpCntl uint8

const (
	DpCntlWord  DpCntl = 0b000
	DpCntlShort DpCntl = 0b001
	DpCntlLL    DpCntl = 0b010
	DpCntlHL    DpCntl = 0b011
	DpCntlLH    DpCntl = 0b100
	DpCntlHH    DpCntl = 0b101
)

var dpCntlNames = map[DpCntl]string{
	DpCntlWord:  "Word",
	DpCntlShort: "Short",
	DpCntlLL:    "LL",
	DpCntlHL:    "HL",
	DpCntlLH:    "LH",
	DpCntlHH:    "HH",
}

func (d DpCntl) String() string { return enumString(dpCntlNames, d, "dpcntl") }

func enumString[T ~uint8](names map[T]string, v T, kind string) string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("%s(%d)", kind, uint8(v))
}

// encodeEnum fails with ErrUnsupported for values missing from names.
func encodeEnum[T ~uint8](names map[T]string, v T) (uint32, error) {
	if _, ok := names[v]; !ok {
		return 0, unsupported(FieldFunction, uint32(v))
	}
	return uint32(v), nil
}

// decodeEnum fails with ErrUnknown for patterns missing from names.
func decodeEnum[T ~uint8](names map[T]string, b uint32) (T, error) {
	v := T(b)
	if _, ok := names[v]; !ok || b > 0xff {
		return 0, unknown(FieldFunction, b)
	}
	return v, nil
}
