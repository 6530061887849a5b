// Package aisasm generates AIS machine code at run time.
//
// An Assembler appends encoded instructions to a growing buffer. Addresses of
// code not generated yet are expressed with symbols: loading an unresolved
// Sym emits a placeholder immediate which is patched in place once the symbol
// is bound with Assembler.SetSymHere.
//
// The result is meant to be loaded at a fixed address (see
// AssemblerConfig.WithBase) and entered from x86 code, which is what the
// stubs written by GenHeader and GenFooter are for.
package aisasm

import (
	"fmt"

	"github.com/aisre/aisasm/ais"
	"github.com/aisre/aisasm/internal/asm"
	"github.com/aisre/aisasm/internal/logging"
)

// Sym is a handle to a code address which may not be known yet. It is only
// valid for the Assembler that created it.
type Sym int

// symRefKind is the half of an address patched into a pending reference.
type symRefKind uint8

const (
	symRefLow symRefKind = iota
	symRefHigh
)

func (k symRefKind) String() string {
	if k == symRefHigh {
		return "high"
	}
	return "low"
}

// symRef is an immediate instruction at offset waiting for the address of a
// symbol.
type symRef struct {
	kind   symRefKind
	offset int
}

type symbol struct {
	resolved bool
	addr     uint32
	// refs are patched in recording order on resolution, then dropped.
	refs []symRef
}

// Assembler is an append-only AIS code generator. It is not safe for
// concurrent use.
type Assembler struct {
	cfg  *AssemblerConfig
	buf  *asm.Buffer
	syms []symbol
	log  *logging.Logger
}

// NewAssembler returns an empty Assembler. A nil config means
// NewAssemblerConfig.
func NewAssembler(config *AssemblerConfig) *Assembler {
	if config == nil {
		config = NewAssemblerConfig()
	}
	return &Assembler{
		cfg: config.clone(),
		buf: asm.NewBuffer(256),
		log: logging.NewLogger(config.logWriter, config.logScopes),
	}
}

// Here returns the address the next instruction is written to.
func (a *Assembler) Here() uint32 {
	return a.cfg.base + uint32(a.buf.Len())
}

// Bytes returns the generated program. The slice is only valid until the
// next call that writes to the Assembler.
func (a *Assembler) Bytes() []byte {
	return a.buf.Bytes()
}

// NewSym returns a new unresolved symbol.
func (a *Assembler) NewSym() Sym {
	a.syms = append(a.syms, symbol{})
	s := Sym(len(a.syms) - 1)
	a.log.Logf(logging.LogScopeSymbol, "sym %d: new", s)
	return s
}

// NewSymHere returns a new symbol resolved to the current address.
func (a *Assembler) NewSymHere() Sym {
	a.syms = append(a.syms, symbol{resolved: true, addr: a.Here()})
	s := Sym(len(a.syms) - 1)
	a.log.Logf(logging.LogScopeSymbol, "sym %d: new at %#08x", s, a.Here())
	return s
}

// SymAddr returns the address of s and whether it is resolved yet.
func (a *Assembler) SymAddr(s Sym) (uint32, bool, error) {
	sym, err := a.sym(s)
	if err != nil {
		return 0, false, err
	}
	return sym.addr, sym.resolved, nil
}

// SetSymHere binds s to the current address and patches every reference
// recorded while s was unresolved. When a reference cannot be patched
// nothing changes: s stays unresolved and no byte is rewritten.
func (a *Assembler) SetSymHere(s Sym) error {
	sym, err := a.sym(s)
	if err != nil {
		return err
	}
	if sym.resolved {
		return fmt.Errorf("sym %d: %w at %#08x", s, ErrSymbolRedefined, sym.addr)
	}

	addr := a.Here()
	patches := make([]patch, len(sym.refs))
	for i, ref := range sym.refs {
		if patches[i], err = a.fixup(ref, addr); err != nil {
			return fmt.Errorf("sym %d: %w", s, err)
		}
	}

	sym.resolved = true
	sym.addr = addr
	a.log.Logf(logging.LogScopeSymbol, "sym %d: resolved to %#08x with %d pending refs", s, sym.addr, len(sym.refs))
	for i, ref := range sym.refs {
		// fixup already checked the range.
		_ = a.buf.Patch(ref.offset, patches[i].code)
		a.log.Logf(logging.LogScopeFixup, "%#08x: %s", a.cfg.base+uint32(ref.offset), patches[i].in)
	}
	sym.refs = nil
	return nil
}

func (a *Assembler) sym(s Sym) (*symbol, error) {
	if s < 0 || int(s) >= len(a.syms) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSymbol, s)
	}
	return &a.syms[s], nil
}

// patch is an instruction re-encoded by fixup, not yet written back.
type patch struct {
	in   *ais.IType
	code []byte
}

// fixup returns the instruction at ref.offset with its immediate replaced by
// one half of addr. Every other bit of the instruction is preserved.
func (a *Assembler) fixup(ref symRef, addr uint32) (patch, error) {
	code, err := a.buf.Slice(ref.offset, ais.InstructionSize)
	if err != nil {
		return patch{}, fmt.Errorf("%w: %v", ErrResolveUnstable, err)
	}
	in, n, err := ais.Decode(code)
	if err != nil {
		return patch{}, fmt.Errorf("%w: %#08x: %v", ErrResolveUnstable, a.cfg.base+uint32(ref.offset), err)
	}
	it, ok := in.(*ais.IType)
	if !ok {
		return patch{}, fmt.Errorf("%w: %#08x: %s has no immediate", ErrResolveUnstable, a.cfg.base+uint32(ref.offset), in)
	}

	if ref.kind == symRefHigh {
		it.Imm = uint16(addr >> 16)
	} else {
		it.Imm = uint16(addr)
	}

	patched, err := ais.Encode(it)
	if err != nil {
		return patch{}, fmt.Errorf("%w: %v", ErrResolveUnstable, err)
	}
	if len(patched) != n {
		return patch{}, fmt.Errorf("%w: %s re-encoded to %d bytes instead of %d", ErrResolveUnstable, it, len(patched), n)
	}
	return patch{in: it, code: patched}, nil
}

// Gen encodes in and appends it. Nothing is appended when encoding fails.
func (a *Assembler) Gen(in ais.Instruction) error {
	word, err := ais.EncodeWord(in)
	if err != nil {
		return err
	}
	a.log.Logf(logging.LogScopeEmit, "%#08x: %s", a.Here(), in)
	a.buf.AppendBytes(ais.Header[:])
	a.buf.AppendUint32(word)
	return nil
}

// genAll emits ins in order, or nothing at all when one of them fails.
func (a *Assembler) genAll(ins ...ais.Instruction) error {
	start := a.buf.Len()
	for _, in := range ins {
		if err := a.Gen(in); err != nil {
			a.buf.Truncate(start)
			return err
		}
	}
	return nil
}

// GenHeader appends the configured entry stub.
func (a *Assembler) GenHeader() {
	a.log.Logf(logging.LogScopeEmit, "%#08x: header (%d bytes)", a.Here(), len(a.cfg.header))
	a.buf.AppendBytes(a.cfg.header)
}

// GenFooter appends the configured exit stub.
func (a *Assembler) GenFooter() {
	a.log.Logf(logging.LogScopeEmit, "%#08x: footer (%d bytes)", a.Here(), len(a.cfg.footer))
	a.buf.AppendBytes(a.cfg.footer)
}

// GenLoad sets dst to imm with the fewest instructions.
func (a *Assembler) GenLoad(dst ais.Register, imm uint32) error {
	lo, hi := uint16(imm), uint16(imm>>16)
	switch {
	case hi != 0 && lo == 0:
		return a.Gen(ais.Oriu(dst, ais.R0, hi))
	case hi == 0:
		return a.Gen(ais.Ori(dst, ais.R0, lo))
	default:
		return a.genAll(ais.Ori(dst, ais.R0, lo), ais.Oriu(dst, dst, hi))
	}
}

// genSymImm emits the immediate instruction returned by build with one half
// of the address of s, recording a reference when s is unresolved.
func (a *Assembler) genSymImm(s Sym, kind symRefKind, build func(imm uint16) *ais.IType) error {
	sym, err := a.sym(s)
	if err != nil {
		return err
	}

	var imm uint16
	if sym.resolved {
		if kind == symRefHigh {
			imm = uint16(sym.addr >> 16)
		} else {
			imm = uint16(sym.addr)
		}
	}

	offset := a.buf.Len()
	if err = a.Gen(build(imm)); err != nil {
		return err
	}
	if !sym.resolved {
		sym.refs = append(sym.refs, symRef{kind: kind, offset: offset})
		a.log.Logf(logging.LogScopeSymbol, "sym %d: pending %s ref at %#08x", s, kind, a.cfg.base+uint32(offset))
	}
	return nil
}

// GenLoadSymbol sets dst to the address of s. Unlike GenLoad it always
// emits two instructions, so the size does not depend on the address.
func (a *Assembler) GenLoadSymbol(dst ais.Register, s Sym) error {
	if err := a.genSymImm(s, symRefLow, func(imm uint16) *ais.IType {
		return ais.Ori(dst, ais.R0, imm)
	}); err != nil {
		return err
	}
	return a.genSymImm(s, symRefHigh, func(imm uint16) *ais.IType {
		return ais.Oriu(dst, dst, imm)
	})
}

// GenJump jumps to s. R4 is clobbered.
func (a *Assembler) GenJump(s Sym) error {
	if err := a.GenLoadSymbol(ais.R4, s); err != nil {
		return err
	}
	return a.Gen(ais.J(ais.R4))
}

// GenCondJump jumps to t when the lowest bit of cond is set and to f
// otherwise, without branching. R4 and R5 are clobbered.
func (a *Assembler) GenCondJump(cond ais.Register, t, f Sym) error {
	if _, err := a.sym(t); err != nil {
		return err
	}
	if _, err := a.sym(f); err != nil {
		return err
	}

	// R4 = 0 - (cond & 1) is all ones when taken, R5 = (cond & 1) - 1 is
	// all ones otherwise. Each mask keeps one target.
	if err := a.genAll(
		ais.AndConst(ais.R5, cond, ais.Number(1)),
		ais.Sub(ais.R4, ais.R0, ais.R5),
	); err != nil {
		return err
	}
	if err := a.genMask(ais.R4, t); err != nil {
		return err
	}
	if err := a.Gen(ais.SubConst(ais.R5, ais.R5, ais.Number(1))); err != nil {
		return err
	}
	if err := a.genMask(ais.R5, f); err != nil {
		return err
	}
	return a.genAll(
		ais.Or(ais.R4, ais.R4, ais.R5),
		ais.J(ais.R4),
	)
}

// genMask emits reg &= address of s.
func (a *Assembler) genMask(reg ais.Register, s Sym) error {
	if err := a.genSymImm(s, symRefLow, func(imm uint16) *ais.IType {
		return ais.Andil(reg, reg, imm)
	}); err != nil {
		return err
	}
	return a.genSymImm(s, symRefHigh, func(imm uint16) *ais.IType {
		return ais.Andiu(reg, reg, imm)
	})
}

// GenCall pushes the return address on the x86 stack and jumps to s. R4 is
// clobbered.
func (a *Assembler) GenCall(s Sym) error {
	if err := a.GenLoadSymbol(ais.R4, s); err != nil {
		return err
	}
	return a.genAll(
		ais.PushIP(ais.SizeBits32),
		ais.J(ais.R4),
	)
}

// GenRet returns to the instruction following the matching GenCall. R4 is
// clobbered.
func (a *Assembler) GenRet() error {
	// The pushed address is the jump emitted by GenCall, skip it.
	return a.genAll(
		ais.PopSP(ais.SizeBits32, ais.R4),
		ais.AddConst(ais.R4, ais.R4, ais.Number(ais.InstructionSize)),
		ais.J(ais.R4),
	)
}
