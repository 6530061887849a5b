// Package interpreter executes AIS code without the hardware, for testing
// generated programs. It models the register file, the CP2 control
// registers, a sparse byte addressed memory and a serial port. Segmentation,
// flags and x86 code are not modeled.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/aisre/aisasm/ais"
)

var (
	// ErrStepLimit is returned when Run executed the configured number of
	// instructions without halting.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrUnsupported is returned for a valid instruction the machine does
	// not model.
	ErrUnsupported = errors.New("unsupported instruction")
	// ErrPCOutOfRange is returned when the program counter leaves the code.
	ErrPCOutOfRange = errors.New("program counter outside of code")
)

const (
	// PortSerialData is the transmit register of the serial port.
	PortSerialData uint32 = 0x3f8
	// PortSerialLineStatus is the line status register of the serial port.
	PortSerialLineStatus uint32 = 0x3fd

	lineStatusTransmitterEmpty = 0x20

	// checkContextInterval is the number of instructions between checks for
	// a cancelled context.
	checkContextInterval = 1024
)

// Machine is the state of one execution. It is not safe for concurrent use.
type Machine struct {
	cfg  *Config
	code []byte
	base uint32

	regs [ais.RegisterCount]uint32
	cp2  [ais.RegisterCount]uint32
	mem  map[uint32]byte

	// pc is the address of the next instruction, cur the one executing.
	pc, cur uint32
	steps   int
	halted  bool

	// exit is the x86 address jumped to when leaving AIS mode.
	exit   uint32
	exited bool
}

// NewMachine returns a machine with code loaded at base. A nil config means
// NewConfig.
func NewMachine(config *Config, code []byte, base uint32) *Machine {
	if config == nil {
		config = NewConfig()
	}
	m := &Machine{
		cfg:  config.clone(),
		code: code,
		base: base,
		mem:  map[uint32]byte{},
	}
	m.regs[ais.ESP] = m.cfg.stackTop
	for i, v := range m.cfg.cp2 {
		if i < ais.RegisterCount {
			m.cp2[i] = v
		}
	}
	return m
}

// Reg returns the value of r. R0 always reads zero.
func (m *Machine) Reg(r ais.Register) uint32 {
	if r == ais.R0 || r >= ais.RegisterCount {
		return 0
	}
	return m.regs[r]
}

// SetReg sets r to v. Writes to R0 are discarded.
func (m *Machine) SetReg(r ais.Register, v uint32) {
	if r == ais.R0 || r >= ais.RegisterCount {
		return
	}
	m.regs[r] = v
}

// CP2 returns the CP2 control register at index.
func (m *Machine) CP2(index ais.Register) uint32 {
	if index >= ais.RegisterCount {
		return 0
	}
	return m.cp2[index]
}

// PC returns the address of the next instruction.
func (m *Machine) PC() uint32 { return m.pc }

// Steps returns the number of instructions executed.
func (m *Machine) Steps() int { return m.steps }

// Exit returns the x86 address the program jumped to when leaving AIS mode,
// and false if it halted by running out of code.
func (m *Machine) Exit() (uint32, bool) { return m.exit, m.exited }

// Load32 reads a little-endian word from memory. Unwritten bytes read zero.
func (m *Machine) Load32(addr uint32) uint32 {
	return m.load(addr, 4)
}

// Store32 writes a little-endian word to memory.
func (m *Machine) Store32(addr, v uint32) {
	m.store(addr, 4, v)
}

// Run executes from entry until the program leaves AIS mode or fewer than
// ais.InstructionSize bytes are left at the program counter, as is the case
// on reaching the footer.
func (m *Machine) Run(ctx context.Context, entry uint32) (err error) {
	m.pc = entry
	m.halted = false

	defer func() {
		if v := recover(); v != nil {
			e, ok := v.(error)
			if !ok {
				panic(v)
			}
			err = fmt.Errorf("ais runtime error at %#08x: %w", m.cur, e)
		}
	}()

	for !m.halted {
		if m.steps%checkContextInterval == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}
		if m.steps >= m.cfg.maxSteps {
			return fmt.Errorf("%w: %d instructions at %#08x", ErrStepLimit, m.steps, m.pc)
		}
		m.step()
	}
	return nil
}

func (m *Machine) step() {
	m.cur = m.pc
	if m.pc < m.base || uint64(m.pc-m.base) > uint64(len(m.code)) {
		panic(ErrPCOutOfRange)
	}
	rest := m.code[m.pc-m.base:]
	if len(rest) < ais.InstructionSize {
		m.halted = true
		return
	}

	in, n, err := ais.Decode(rest)
	if err != nil {
		panic(err)
	}
	m.steps++
	m.pc += uint32(n)

	switch in := in.(type) {
	case *ais.IType:
		m.execI(in)
	case *ais.XALUType:
		if in.Fn.Op == ais.XaluCTC2 {
			m.cp2[in.Rd] = m.Reg(in.Rs)
			return
		}
		m.SetReg(in.Rd, alu(in.Fn, m.Reg(in.Rs), m.Reg(in.Rt)))
	case *ais.XALUIType:
		if in.Const.IsRaw() {
			panic(fmt.Errorf("%w: %s: constant %s", ErrUnsupported, in, in.Const))
		}
		m.SetReg(in.Rd, alu(in.Fn, m.Reg(in.Rs), uint32(int32(in.Const.Value()))))
	case *ais.XJType:
		target := m.Reg(in.Rt)
		switch in.Fn.Mode {
		case ais.XjModeAIS:
			m.pc = target
		case ais.XjModeX86:
			m.pc = target
			m.exit, m.exited = target, true
			m.halted = true
		}
	case *ais.XMiscType:
		if in.Fn.Sub != ais.SubFuncCFC2 {
			panic(fmt.Errorf("%w: %s", ErrUnsupported, in))
		}
		m.SetReg(in.Rt, m.cp2[in.Rd])
	case *ais.XLSType:
		m.execXLS(in)
	}
}

func (m *Machine) execI(in *ais.IType) {
	rs, imm := m.Reg(in.Rs), uint32(in.Imm)
	var v uint32
	switch in.Op {
	case ais.ORI:
		v = rs | imm
	case ais.ORIU:
		v = rs | imm<<16
	case ais.XORI:
		v = rs ^ imm
	case ais.XORIU:
		v = rs ^ imm<<16
	case ais.ANDI:
		v = rs & imm
	case ais.ANDIL:
		v = rs & (0xffff0000 | imm)
	case ais.ANDIU:
		v = rs & (imm<<16 | 0xffff)
	case ais.ADDI:
		v = rs + uint32(int32(int16(in.Imm)))
	default:
		panic(fmt.Errorf("%w: %s", ErrUnsupported, in))
	}
	m.SetReg(in.Rt, v)
}

func alu(fn ais.XaluFunc, a, b uint32) uint32 {
	if fn.Ctl != ais.DpCntlWord {
		panic(fmt.Errorf("%w: data path %s", ErrUnsupported, fn.Ctl))
	}
	switch fn.Op {
	case ais.XaluADD:
		return a + b
	case ais.XaluSUB:
		return a - b
	case ais.XaluAND:
		return a & b
	case ais.XaluOR:
		return a | b
	case ais.XaluXOR:
		return a ^ b
	case ais.XaluNOR:
		return ^(a | b)
	case ais.XaluSHL:
		return a << (b & 31)
	case ais.XaluSHR:
		return a >> (b & 31)
	case ais.XaluSAR:
		return uint32(int32(a) >> (b & 31))
	case ais.XaluROL:
		return bits.RotateLeft32(a, int(b&31))
	case ais.XaluROR:
		return bits.RotateLeft32(a, -int(b&31))
	case ais.XaluINC:
		return a + 1
	case ais.XaluDEC:
		return a - 1
	case ais.XaluMUL:
		return a * b
	case ais.XaluIMUL:
		return uint32(int32(a) * int32(b))
	default:
		panic(fmt.Errorf("%w: alu operation %s", ErrUnsupported, fn.Op))
	}
}

func (m *Machine) execXLS(in *ais.XLSType) {
	d, ok := in.Off.Displacement()
	if !ok {
		panic(fmt.Errorf("%w: %s: offset %s", ErrUnsupported, in, in.Off))
	}
	disp := uint32(d)

	if in.Op == ais.XLEAD {
		m.SetReg(in.Rs, m.Reg(in.Base)+disp)
		return
	}

	var size ais.Size
	switch fn := in.Fn.(type) {
	case ais.XioFunc:
		size = fn.Size
	case ais.LSFunc:
		size = fn.Size
	default:
		panic(fmt.Errorf("%w: %s: function %s", ErrUnsupported, in, in.Fn))
	}
	width := widthOf(size)

	base := m.Reg(in.Base)
	switch in.Op {
	case ais.XIOW:
		if base+disp == PortSerialData {
			if _, err := m.cfg.output.Write([]byte{byte(m.Reg(in.Rs))}); err != nil {
				panic(err)
			}
		}
	case ais.XIOR:
		var v uint32
		if base+disp == PortSerialLineStatus {
			v = lineStatusTransmitterEmpty
		}
		m.SetReg(in.Rs, v)
	case ais.XPUSH, ais.XPUSHIP:
		v := m.Reg(in.Rs)
		if in.Op == ais.XPUSHIP {
			v = m.pc
		}
		m.SetReg(in.Base, base+disp)
		m.store(base+disp, width, v)
	case ais.XPOP:
		v := m.load(base, width)
		m.SetReg(in.Base, base+disp)
		m.SetReg(in.Rs, v)
	case ais.XL:
		m.SetReg(in.Rs, m.load(base+disp, width))
	case ais.XS:
		m.store(base+disp, width, m.Reg(in.Rs))
	default:
		panic(fmt.Errorf("%w: %s", ErrUnsupported, in))
	}
}

func widthOf(s ais.Size) int {
	switch s {
	case ais.SizeBits8L:
		return 1
	case ais.SizeBits16:
		return 2
	case ais.SizeBits32:
		return 4
	default:
		panic(fmt.Errorf("%w: operand size %s", ErrUnsupported, s))
	}
}

func (m *Machine) load(addr uint32, width int) (v uint32) {
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint32(m.mem[addr+uint32(i)])
	}
	return
}

func (m *Machine) store(addr uint32, width int, v uint32) {
	for i := 0; i < width; i++ {
		m.mem[addr+uint32(i)] = byte(v >> (8 * i))
	}
}
