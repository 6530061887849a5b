package interpreter

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aisre/aisasm/ais"
)

const testBase uint32 = 0x1000

func program(t *testing.T, ins ...ais.Instruction) []byte {
	var code []byte
	for _, in := range ins {
		b, err := ais.Encode(in)
		require.NoError(t, err)
		code = append(code, b...)
	}
	return code
}

func TestMachine_IType(t *testing.T) {
	tests := []struct {
		name     string
		in       ais.Instruction
		src      uint32
		expected uint32
	}{
		{name: "ORI", in: ais.Ori(ais.EAX, ais.ECX, 0x00f0), src: 0x1200000f, expected: 0x120000ff},
		{name: "ORIU", in: ais.Oriu(ais.EAX, ais.ECX, 0x0048), src: 0x1234, expected: 0x00481234},
		{name: "ANDIL", in: ais.Andil(ais.EAX, ais.ECX, 0x00ff), src: 0xabcdabcd, expected: 0xabcd00cd},
		{name: "ANDIU", in: ais.Andiu(ais.EAX, ais.ECX, 0x00ff), src: 0xabcdabcd, expected: 0x00cdabcd},
		{name: "XORI", in: ais.Xori(ais.EAX, ais.ECX, 0xffff), src: 0x1234_0f0f, expected: 0x1234f0f0},
		{name: "ADDI positive", in: ais.Addi(ais.EAX, ais.ECX, 5), src: 10, expected: 15},
		{name: "ADDI negative", in: ais.Addi(ais.EAX, ais.ECX, 0xffff), src: 10, expected: 9},
		{name: "ANDI", in: &ais.IType{Op: ais.ANDI, Rs: ais.ECX, Rt: ais.EAX, Imm: 0x0ff0}, src: 0xffffffff, expected: 0x0ff0},
		{name: "XORIU", in: &ais.IType{Op: ais.XORIU, Rs: ais.ECX, Rt: ais.EAX, Imm: 1}, src: 0x00010001, expected: 1},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(nil, program(t, tc.in), testBase)
			m.SetReg(ais.ECX, tc.src)
			require.NoError(t, m.Run(context.Background(), testBase))
			require.Equal(t, tc.expected, m.Reg(ais.EAX))
			require.Equal(t, 1, m.Steps())
		})
	}
}

func TestMachine_ALU(t *testing.T) {
	tests := []struct {
		name     string
		in       ais.Instruction
		a, b     uint32
		expected uint32
	}{
		{name: "ADD", in: ais.Add(ais.EAX, ais.ECX, ais.EDX), a: 40, b: 2, expected: 42},
		{name: "SUB", in: ais.Sub(ais.EAX, ais.ECX, ais.EDX), a: 0, b: 1, expected: 0xffffffff},
		{name: "AND", in: ais.And(ais.EAX, ais.ECX, ais.EDX), a: 0b1100, b: 0b1010, expected: 0b1000},
		{name: "OR", in: ais.Or(ais.EAX, ais.ECX, ais.EDX), a: 0b1100, b: 0b1010, expected: 0b1110},
		{name: "SHL", in: ais.Shl(ais.EAX, ais.ECX, ais.EDX), a: 1, b: 33, expected: 2},
		{name: "SHR", in: ais.Shr(ais.EAX, ais.ECX, ais.EDX), a: 0x80000000, b: 31, expected: 1},
		{name: "SAR", in: ais.ALU(ais.XaluSAR, ais.EAX, ais.ECX, ais.EDX), a: 0x80000000, b: 31, expected: 0xffffffff},
		{name: "ROL", in: ais.ALU(ais.XaluROL, ais.EAX, ais.ECX, ais.EDX), a: 0x80000001, b: 1, expected: 3},
		{name: "ROR", in: ais.ALU(ais.XaluROR, ais.EAX, ais.ECX, ais.EDX), a: 3, b: 1, expected: 0x80000001},
		{name: "NOR", in: ais.ALU(ais.XaluNOR, ais.EAX, ais.ECX, ais.EDX), a: 0xffff0000, b: 0xff, expected: 0x0000ff00},
		{name: "IMUL", in: ais.ALU(ais.XaluIMUL, ais.EAX, ais.ECX, ais.EDX), a: 0xfffffffe, b: 3, expected: 0xfffffffa},
		{name: "ADD const", in: ais.AddConst(ais.EAX, ais.ECX, ais.Number(6)), a: 36, expected: 42},
		{name: "SUB const", in: ais.SubConst(ais.EAX, ais.ECX, ais.Number(1)), a: 0, expected: 0xffffffff},
		{name: "AND const", in: ais.AndConst(ais.EAX, ais.ECX, ais.Number(1)), a: 3, expected: 1},
		{name: "SHR const", in: ais.ShrConst(ais.EAX, ais.ECX, ais.Number(5)), a: 0x20, expected: 1},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(nil, program(t, tc.in), testBase)
			m.SetReg(ais.ECX, tc.a)
			m.SetReg(ais.EDX, tc.b)
			require.NoError(t, m.Run(context.Background(), testBase))
			require.Equal(t, tc.expected, m.Reg(ais.EAX))
		})
	}
}

func TestMachine_R0(t *testing.T) {
	m := NewMachine(nil, program(t, ais.Ori(ais.R0, ais.R0, 7), ais.Ori(ais.EAX, ais.R0, 1)), testBase)
	require.NoError(t, m.Run(context.Background(), testBase))
	require.Equal(t, uint32(0), m.Reg(ais.R0))
	require.Equal(t, uint32(1), m.Reg(ais.EAX))
}

func TestMachine_CP2(t *testing.T) {
	cfg := NewConfig().WithCP2(ais.Register(31), 0x246)
	m := NewMachine(cfg, program(t,
		ais.CFC2(ais.EAX, ais.Register(31)),
		ais.Ori(ais.ECX, ais.R0, 0x1),
		ais.CTC2(ais.Register(30), ais.ECX),
	), testBase)
	require.NoError(t, m.Run(context.Background(), testBase))
	require.Equal(t, uint32(0x246), m.Reg(ais.EAX))
	require.Equal(t, uint32(1), m.CP2(ais.Register(30)))
}

func TestConfig_Immutable(t *testing.T) {
	cfg := NewConfig()
	withCP2 := cfg.WithCP2(ais.Register(31), 0x246)
	require.Empty(t, cfg.cp2)
	require.Equal(t, uint32(0x246), withCP2.cp2[ais.Register(31)])

	require.Equal(t, DefaultMaxSteps, cfg.WithMaxSteps(0).maxSteps)
	require.Equal(t, 10, cfg.WithMaxSteps(10).maxSteps)
	require.Equal(t, DefaultStackTop, cfg.stackTop)
	require.NotNil(t, cfg.WithOutput(nil).output)
}

func TestMachine_Stack(t *testing.T) {
	cfg := NewConfig().WithStackTop(0x8000)
	m := NewMachine(cfg, program(t,
		ais.Ori(ais.EAX, ais.R0, 0xbeef),
		ais.PushSP(ais.SizeBits32, ais.EAX),
		ais.PushIP(ais.SizeBits32),
		ais.PopSP(ais.SizeBits32, ais.ECX),
		ais.PopSP(ais.SizeBits32, ais.EDX),
	), testBase)
	require.NoError(t, m.Run(context.Background(), testBase))

	// PUSHIP is the third instruction, so it pushes the address of the fourth.
	require.Equal(t, testBase+3*ais.InstructionSize, m.Reg(ais.ECX))
	require.Equal(t, uint32(0xbeef), m.Reg(ais.EDX))
	require.Equal(t, uint32(0x8000), m.Reg(ais.ESP))
	require.Equal(t, uint32(0xbeef), m.Load32(0x8000-4))
}

func TestMachine_LoadStoreLead(t *testing.T) {
	m := NewMachine(nil, program(t,
		ais.Ori(ais.EBX, ais.R0, 0x2000),
		ais.Store(ais.SizeBits32, ais.EAX, ais.EBX, ais.Disp(8)),
		ais.Load(ais.SizeBits16, ais.ECX, ais.EBX, ais.Disp(8)),
		ais.Lead(ais.EDX, ais.EBX, ais.Disp(-4), ais.AddrSizeBits32, ais.SizeBits32),
	), testBase)
	m.SetReg(ais.EAX, 0x11223344)
	require.NoError(t, m.Run(context.Background(), testBase))

	require.Equal(t, uint32(0x11223344), m.Load32(0x2008))
	require.Equal(t, uint32(0x3344), m.Reg(ais.ECX))
	require.Equal(t, uint32(0x1ffc), m.Reg(ais.EDX))
}

func TestMachine_Serial(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(NewConfig().WithOutput(&out), program(t,
		ais.Ori(ais.EDX, ais.R0, uint16(PortSerialLineStatus)),
		ais.IORead(ais.SizeBits8L, ais.EDX, ais.EAX),
		ais.Ori(ais.EDX, ais.R0, uint16(PortSerialData)),
		ais.Ori(ais.ECX, ais.R0, 0x4121),
		ais.IOWrite(ais.SizeBits8L, ais.EDX, ais.ECX),
		ais.IORead(ais.SizeBits8L, ais.EDX, ais.EBX),
	), testBase)
	m.SetReg(ais.EBX, 7)
	require.NoError(t, m.Run(context.Background(), testBase))

	require.Equal(t, uint32(0x20), m.Reg(ais.EAX))
	require.Equal(t, uint32(0), m.Reg(ais.EBX))
	require.Equal(t, "!", out.String())
}

func TestMachine_Jumps(t *testing.T) {
	// Skips the ORI at offset 12 and leaves at the J.X86.
	code := program(t,
		ais.Ori(ais.R4, ais.R0, uint16(testBase+3*ais.InstructionSize)),
		ais.J(ais.R4),
		ais.Ori(ais.EAX, ais.R0, 1),
		ais.Ori(ais.ECX, ais.R0, 0xcafe),
		ais.JX86(ais.ECX),
		ais.Ori(ais.EAX, ais.R0, 2),
	)
	m := NewMachine(nil, code, testBase)
	require.NoError(t, m.Run(context.Background(), testBase))

	require.Equal(t, uint32(0), m.Reg(ais.EAX))
	exit, ok := m.Exit()
	require.True(t, ok)
	require.Equal(t, uint32(0xcafe), exit)
	require.Equal(t, 4, m.Steps())
}

func TestMachine_HaltsOnFooter(t *testing.T) {
	code := append(program(t, ais.Ori(ais.EAX, ais.R0, 1)), 0xc3)
	m := NewMachine(nil, code, testBase)
	require.NoError(t, m.Run(context.Background(), testBase))

	_, ok := m.Exit()
	require.False(t, ok)
	require.Equal(t, testBase+ais.InstructionSize, m.PC())
}

func TestMachine_Errors(t *testing.T) {
	loop := program(t,
		ais.Ori(ais.R4, ais.R0, uint16(testBase)),
		ais.J(ais.R4),
	)

	t.Run("step limit", func(t *testing.T) {
		m := NewMachine(NewConfig().WithMaxSteps(100), loop, testBase)
		err := m.Run(context.Background(), testBase)
		require.ErrorIs(t, err, ErrStepLimit)
		require.Equal(t, 100, m.Steps())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := NewMachine(nil, loop, testBase)
		require.ErrorIs(t, m.Run(ctx, testBase), context.Canceled)
	})

	t.Run("pc out of range", func(t *testing.T) {
		m := NewMachine(nil, program(t, ais.J(ais.R0)), testBase)
		err := m.Run(context.Background(), testBase)
		require.ErrorIs(t, err, ErrPCOutOfRange)
		require.Contains(t, err.Error(), "at 0x000000")
	})

	t.Run("undecodable", func(t *testing.T) {
		m := NewMachine(nil, []byte{0x62, 0x80, 0, 0, 0, 0}, testBase)
		require.ErrorIs(t, m.Run(context.Background(), testBase), ais.ErrUnknown)
	})

	t.Run("raw constant", func(t *testing.T) {
		m := NewMachine(nil, program(t, ais.AddConst(ais.EAX, ais.EAX, ais.RawConst(3))), testBase)
		require.ErrorIs(t, m.Run(context.Background(), testBase), ErrUnsupported)
	})

	t.Run("pseudo offset", func(t *testing.T) {
		m := NewMachine(nil, program(t, ais.Lead(ais.EAX, ais.R0, ais.PseudoOffset(ais.OffsetKindMDOS), ais.AddrSizeBits32, ais.SizeBits32)), testBase)
		require.ErrorIs(t, m.Run(context.Background(), testBase), ErrUnsupported)
	})
}
