// Package luabind exposes an aisasm.Assembler to Lua scripts.
//
// Scripts see a global table "asm". Registers are passed either by name
// ("EAX", "R4") or by index, symbols are the numbers returned by
// asm.new_sym and asm.new_sym_here. For example:
//
//	local done = asm.new_sym()
//	asm.load("EAX", 41)
//	asm.addi("EAX", "EAX", 1)
//	asm.jump(done)
//	asm.set_sym_here(done)
package luabind

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/aisre/aisasm"
	"github.com/aisre/aisasm/ais"
)

// GlobalName is the name of the table holding the assembler functions.
const GlobalName = "asm"

// binder keeps the last Go error raised into Lua so it can be returned
// unwrapped from Lua's own error type. A script may catch it with pcall, so
// it is only returned when the error ending the chunk still carries it.
type binder struct {
	a   *aisasm.Assembler
	err error
}

// Exec runs the Lua chunk read from r against a. name identifies the chunk
// in error messages.
func Exec(a *aisasm.Assembler, name string, r io.Reader) error {
	L := lua.NewState()
	defer L.Close()

	b := &binder{a: a}
	L.SetGlobal(GlobalName, b.table(L))

	fn, err := L.Load(r, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	L.Push(fn)
	if err = L.PCall(0, lua.MultRet, nil); err != nil {
		if b.err != nil && strings.Contains(err.Error(), b.err.Error()) {
			return fmt.Errorf("%s: %w", name, b.err)
		}
		return err
	}
	return nil
}

// ExecString runs src against a.
func ExecString(a *aisasm.Assembler, name, src string) error {
	return Exec(a, name, strings.NewReader(src))
}

// ExecFile runs the script at path against a.
func ExecFile(a *aisasm.Assembler, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Exec(a, path, f)
}

func (b *binder) table(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetFuncs(t, map[string]lua.LGFunction{
		"reg":          b.reg,
		"here":         b.here,
		"header":       b.header,
		"footer":       b.footer,
		"new_sym":      b.newSym,
		"new_sym_here": b.newSymHere,
		"set_sym_here": b.setSymHere,
		"sym_addr":     b.symAddr,
		"load":         b.load,
		"load_sym":     b.loadSym,
		"jump":         b.jump,
		"cond_jump":    b.condJump,
		"call":         b.call,
		"ret":          b.ret,
		"add":          b.alu(ais.Add),
		"sub":          b.alu(ais.Sub),
		"and_":         b.alu(ais.And),
		"or_":          b.alu(ais.Or),
		"shl":          b.alu(ais.Shl),
		"shr":          b.alu(ais.Shr),
		"addi":         b.aluConst(ais.AddConst),
		"subi":         b.aluConst(ais.SubConst),
		"andi":         b.aluConst(ais.AndConst),
		"ori":          b.aluConst(ais.OrConst),
		"shli":         b.aluConst(ais.ShlConst),
		"shri":         b.aluConst(ais.ShrConst),
		"iow":          b.iow,
		"ior":          b.ior,
		"push":         b.push,
		"pop":          b.pop,
		"cfc2":         b.cfc2,
		"ctc2":         b.ctc2,
		"j":            b.j,
		"jx86":         b.jx86,
	})
	return t
}

// check raises err into Lua, if any.
func (b *binder) check(L *lua.LState, err error) {
	if err != nil {
		b.err = err
		L.RaiseError("%s", err.Error())
	}
}

func (b *binder) checkReg(L *lua.LState, n int) ais.Register {
	var r ais.Register
	var err error
	switch v := L.CheckAny(n).(type) {
	case lua.LString:
		r, err = ais.RegisterByName(string(v))
	case lua.LNumber:
		if v < 0 || v > math.MaxUint8 || v != lua.LNumber(math.Trunc(float64(v))) {
			L.ArgError(n, fmt.Sprintf("invalid register index %v", v))
		}
		r, err = ais.NewRegister(uint8(v))
	default:
		L.ArgError(n, "register name or index expected, got "+v.Type().String())
	}
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return r
}

func checkUint32(L *lua.LState, n int) uint32 {
	v := L.CheckNumber(n)
	if v < 0 || v > math.MaxUint32 || v != lua.LNumber(math.Trunc(float64(v))) {
		L.ArgError(n, fmt.Sprintf("%v is not a 32-bit unsigned integer", v))
	}
	return uint32(v)
}

func checkSym(L *lua.LState, n int) aisasm.Sym {
	return aisasm.Sym(L.CheckInt(n))
}

func checkConst(L *lua.LState, n int) ais.Const {
	v := L.CheckInt(n)
	if v < math.MinInt8 || v > math.MaxInt8 {
		L.ArgError(n, fmt.Sprintf("constant %d out of range", v))
	}
	return ais.Number(int8(v))
}

func (b *binder) reg(L *lua.LState) int {
	L.Push(lua.LNumber(b.checkReg(L, 1)))
	return 1
}

func (b *binder) here(L *lua.LState) int {
	L.Push(lua.LNumber(b.a.Here()))
	return 1
}

func (b *binder) header(*lua.LState) int {
	b.a.GenHeader()
	return 0
}

func (b *binder) footer(*lua.LState) int {
	b.a.GenFooter()
	return 0
}

func (b *binder) newSym(L *lua.LState) int {
	L.Push(lua.LNumber(b.a.NewSym()))
	return 1
}

func (b *binder) newSymHere(L *lua.LState) int {
	L.Push(lua.LNumber(b.a.NewSymHere()))
	return 1
}

func (b *binder) setSymHere(L *lua.LState) int {
	b.check(L, b.a.SetSymHere(checkSym(L, 1)))
	return 0
}

func (b *binder) symAddr(L *lua.LState) int {
	addr, ok, err := b.a.SymAddr(checkSym(L, 1))
	b.check(L, err)
	L.Push(lua.LNumber(addr))
	L.Push(lua.LBool(ok))
	return 2
}

func (b *binder) load(L *lua.LState) int {
	b.check(L, b.a.GenLoad(b.checkReg(L, 1), checkUint32(L, 2)))
	return 0
}

func (b *binder) loadSym(L *lua.LState) int {
	b.check(L, b.a.GenLoadSymbol(b.checkReg(L, 1), checkSym(L, 2)))
	return 0
}

func (b *binder) jump(L *lua.LState) int {
	b.check(L, b.a.GenJump(checkSym(L, 1)))
	return 0
}

func (b *binder) condJump(L *lua.LState) int {
	b.check(L, b.a.GenCondJump(b.checkReg(L, 1), checkSym(L, 2), checkSym(L, 3)))
	return 0
}

func (b *binder) call(L *lua.LState) int {
	b.check(L, b.a.GenCall(checkSym(L, 1)))
	return 0
}

func (b *binder) ret(L *lua.LState) int {
	b.check(L, b.a.GenRet())
	return 0
}

func (b *binder) alu(build func(dst, src, extra ais.Register) *ais.XALUType) lua.LGFunction {
	return func(L *lua.LState) int {
		b.check(L, b.a.Gen(build(b.checkReg(L, 1), b.checkReg(L, 2), b.checkReg(L, 3))))
		return 0
	}
}

func (b *binder) aluConst(build func(dst, src ais.Register, c ais.Const) *ais.XALUIType) lua.LGFunction {
	return func(L *lua.LState) int {
		b.check(L, b.a.Gen(build(b.checkReg(L, 1), b.checkReg(L, 2), checkConst(L, 3))))
		return 0
	}
}

// iow(port, value) writes the low byte of value to the port held in port.
func (b *binder) iow(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.IOWrite(ais.SizeBits8L, b.checkReg(L, 1), b.checkReg(L, 2))))
	return 0
}

// ior(port, dst) reads a byte from the port held in port.
func (b *binder) ior(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.IORead(ais.SizeBits8L, b.checkReg(L, 1), b.checkReg(L, 2))))
	return 0
}

func (b *binder) push(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.PushSP(ais.SizeBits32, b.checkReg(L, 1))))
	return 0
}

func (b *binder) pop(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.PopSP(ais.SizeBits32, b.checkReg(L, 1))))
	return 0
}

func (b *binder) cfc2(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.CFC2(b.checkReg(L, 1), b.checkReg(L, 2))))
	return 0
}

func (b *binder) ctc2(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.CTC2(b.checkReg(L, 1), b.checkReg(L, 2))))
	return 0
}

func (b *binder) j(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.J(b.checkReg(L, 1))))
	return 0
}

func (b *binder) jx86(L *lua.LState) int {
	b.check(L, b.a.Gen(ais.JX86(b.checkReg(L, 1))))
	return 0
}
