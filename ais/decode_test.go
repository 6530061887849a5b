package ais

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		exp  Instruction
	}{
		{
			// Entry vector from the datasheet dump.
			name: "CTC2 R1, R31",
			in:   []byte{0x62, 0x80, 0x19, 0x08, 0xe0, 0x83},
			exp:  &XALUType{Op: XALU, Rs: Register(31), Rt: R0, Rd: Register(1), Fn: XaluFunc{Op: XaluCTC2, Ctl: DpCntlWord}},
		},
		{
			// Exit vector from the datasheet dump.
			name: "J.X86 EAX",
			in:   []byte{0x62, 0x80, 0x47, 0x00, 0x10, 0x18},
			exp:  &XJType{Op: XJ, Rt: EAX, Fn: XjFunc{Size: XjSizeBits32, Mode: XjModeX86}, Leftover: 0x4},
		},
		{
			name: "eflags load",
			in:   []byte{0x62, 0x80, 0xc0, 0xff, 0x07, 0xa0},
			exp:  &XMiscType{Op: XMISC, Rt: R7, Rd: Register(31), Fn: XmiscFunc{Sub: SubFuncCFC2}},
		},
		{
			name: "eflags store",
			in:   []byte{0x62, 0x80, 0x19, 0xf8, 0xe0, 0x80},
			exp:  &XALUType{Op: XALU, Rs: R7, Rt: R0, Rd: Register(31), Fn: XaluFunc{Op: XaluCTC2, Ctl: DpCntlWord}},
		},
		{
			name: "ORI EAX, R0, 0x1234",
			in:   []byte{0x62, 0x80, 0x34, 0x12, 0x10, 0x34},
			exp:  Ori(EAX, R0, 0x1234),
		},
		{
			name: "LEAD EAX, [R0+MDOS]",
			in:   []byte{0x62, 0x80, 0x41, 0x81, 0x40, 0xb3},
			exp:  Lead(EAX, R0, PseudoOffset(OffsetKindMDOS), AddrSizeBits32, SizeBits32),
		},
		{
			name: "PUSHIP",
			in:   []byte{0x62, 0x80, 0x49, 0x01, 0x74, 0xf1},
			exp:  PushIP(SizeBits32),
		},
		{
			name: "IOW EDX, ECX",
			in:   []byte{0x62, 0x80, 0x2a, 0x89, 0x12, 0xf4},
			exp:  IOWrite(SizeBits8L, EDX, ECX),
		},
		{
			name: "ADD R4, R4, #6",
			in:   []byte{0x62, 0x80, 0x10, 0x20, 0x8e, 0x8c},
			exp:  AddConst(R4, R4, Number(6)),
		},
		{
			name: "J R4",
			in:   []byte{0x62, 0x80, 0x44, 0x00, 0x04, 0x18},
			exp:  J(R4),
		},
		{
			name: "XMISC with RS bits",
			in:   []byte{0x62, 0x80, 0xc0, 0xff, 0xe7, 0xa0},
			exp:  &XMiscType{Op: XMISC, Rt: R7, Rd: Register(31), Fn: XmiscFunc{Sub: SubFuncCFC2}, Leftover: 7 << rsShift},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			actual, n, err := Decode(tc.in)
			require.NoError(t, err)
			require.Equal(t, InstructionSize, n)
			require.Equal(t, tc.exp, actual)

			b, err := Encode(actual)
			require.NoError(t, err)
			require.Equal(t, tc.in, b)
		})
	}
}

func TestDecode_ConsumesOneInstruction(t *testing.T) {
	first, err := Encode(Ori(EAX, R0, 1))
	require.NoError(t, err)
	second, err := Encode(J(EAX))
	require.NoError(t, err)

	in, n, err := Decode(append(first, second...))
	require.NoError(t, err)
	require.Equal(t, InstructionSize, n)
	require.Equal(t, Ori(EAX, R0, 1), in)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		err   error
		field Field
	}{
		{name: "empty", in: nil, err: ErrShortInput},
		{name: "five bytes", in: []byte{0x62, 0x80, 0, 0, 0}, err: ErrShortInput},
		{name: "bad header", in: []byte{0x62, 0x81, 0, 0, 0, 0x34}, err: ErrBadHeader},
		{name: "x86 bytes", in: []byte{0xe8, 0, 0, 0, 0, 0x58}, err: ErrBadHeader},
		{name: "opcode zero", in: []byte{0x62, 0x80, 0, 0, 0, 0}, err: ErrUnknown, field: FieldOpcode},
		{name: "XLEAI", in: []byte{0x62, 0x80, 0, 0, 0, 0o53 << 2}, err: ErrUnknown, field: FieldOpcode},
		{name: "XALU sub-op 0o01", in: []byte{0x62, 0x80, 0x01, 0, 0, 0x80}, err: ErrUnknown, field: FieldFunction},
		{name: "XALU dpcntl 7", in: []byte{0x62, 0x80, 0xf0, 0, 0, 0x80}, err: ErrUnknown, field: FieldFunction},
		{name: "XJ mode 1", in: []byte{0x62, 0x80, 0x41, 0, 0, 0x18}, err: ErrUnknown, field: FieldFunction},
		{name: "XMISC sub-function 0", in: []byte{0x62, 0x80, 0, 0, 0, 0xa0}, err: ErrUnknown, field: FieldFunction},
		{name: "XIOW sel 12", in: []byte{0x62, 0x80, 0x30, 0, 0, 0xf4}, err: ErrUnknown, field: FieldFunction},
		{name: "XIOW sub-op 1", in: []byte{0x62, 0x80, 0x00, 0x02, 0, 0xf4}, err: ErrUnknown, field: FieldFunction},
		{name: "XLEAD size 9", in: []byte{0x62, 0x80, 0x06, 0, 0, 0xb0}, err: ErrUnknown, field: FieldFunction},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			in, n, err := Decode(tc.in)
			require.Nil(t, in)
			require.Equal(t, 0, n)
			require.ErrorIs(t, err, tc.err)

			if tc.err == ErrUnknown {
				var fe *FieldError
				require.True(t, errors.As(err, &fe))
				require.Equal(t, tc.field, fe.Field)
			}
		})
	}
}

// TestDecode_RoundTrip checks that every decodable word re-encodes to itself,
// whatever its unmodeled bits hold.
func TestDecode_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(0x62))
	for op := Opcode(0); op < 64; op++ {
		decoded := 0
		for i := 0; i < 4096; i++ {
			word := uint32(op)<<opcodeShift | r.Uint32()&(1<<opcodeShift-1)
			in, err := DecodeWord(word)
			if err != nil {
				// Either the opcode or a closed enumeration is unknown.
				require.ErrorIs(t, err, ErrUnknown, "%s %#08x", op, word)
				continue
			}
			decoded++
			actual, err := EncodeWord(in)
			require.NoError(t, err)
			require.Equal(t, word, actual, "%s", in)
			require.Zero(t, in.Leftovers()&^word)
		}
		if FormatOf(op) != FormatNone {
			require.NotZero(t, decoded, op.String())
		}
	}
}
