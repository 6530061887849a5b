// Package x86stub holds the x86 code surrounding an AIS program: the entry
// sequence switching the processor into AIS mode and the exit sequence
// returning to the caller.
package x86stub

import (
	"bytes"
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
	"golang.org/x/arch/x86/x86asm"
)

// jmpai is the undocumented two byte instruction which continues execution
// in AIS mode at the address held in EAX.
var jmpai = []byte{0x0f, 0x3f}

// Header is the entry sequence:
//
//	call $+5      ; push the address of the next instruction
//	pop eax
//	add eax, 6    ; skip add and jmpai
//	jmpai         ; continue in AIS mode at eax
var Header = []byte{
	0xe8, 0x00, 0x00, 0x00, 0x00,
	0x58,
	0x83, 0xc0, 0x06,
	0x0f, 0x3f,
}

// Footer is the x86 return executed once the program jumps back to x86 mode.
var Footer = []byte{0xc3}

// Assemble rebuilds Header and Footer with golang-asm. Only the "call $+5"
// and jmpai bytes are written verbatim since golang-asm cannot express them.
func Assemble() (header, footer []byte, err error) {
	b, err := goasm.NewBuilder("amd64", 64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}

	pop := b.NewProg()
	pop.As = x86.APOPQ
	pop.To.Type = obj.TYPE_REG
	pop.To.Reg = x86.REG_AX
	b.AddInstruction(pop)

	add := b.NewProg()
	add.As = x86.AADDL
	add.From.Type = obj.TYPE_CONST
	// EAX holds the address of the pop; AIS code starts at the end of the header.
	add.From.Offset = int64(len(Header) - 5)
	add.To.Type = obj.TYPE_REG
	add.To.Reg = x86.REG_AX
	b.AddInstruction(add)

	ret := b.NewProg()
	ret.As = obj.ARET
	b.AddInstruction(ret)

	code := b.Assemble()
	if len(code) < 5 {
		return nil, nil, fmt.Errorf("unexpected stub length %d", len(code))
	}

	header = append([]byte{0xe8, 0x00, 0x00, 0x00, 0x00}, code[:4]...)
	header = append(header, jmpai...)
	footer = append([]byte(nil), code[4:]...)
	return header, footer, nil
}

// Disassemble lists the 32-bit x86 instructions of code, loaded at pc, in
// Intel syntax. jmpai is listed by name since x86 disassemblers reject it.
func Disassemble(code []byte, pc uint32) ([]string, error) {
	var lines []string
	for len(code) > 0 {
		if bytes.HasPrefix(code, jmpai) {
			lines = append(lines, "jmpai eax")
			code, pc = code[len(jmpai):], pc+uint32(len(jmpai))
			continue
		}
		inst, err := x86asm.Decode(code, 32)
		if err != nil {
			return nil, fmt.Errorf("%#08x: %w", pc, err)
		}
		lines = append(lines, x86asm.IntelSyntax(inst, uint64(pc), nil))
		code, pc = code[inst.Len:], pc+uint32(inst.Len)
	}
	return lines, nil
}
