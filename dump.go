package aisasm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aisre/aisasm/ais"
)

// Dump writes a listing of the generated program to w. See Dump.
func (a *Assembler) Dump(w io.Writer) error {
	return Dump(w, a.buf.Bytes(), a.cfg)
}

// Dump writes one line per instruction of code to w, for example:
//
//	00480011: 62 80 34 12 10 34  ORI EAX, R0, 0x1234
//
// When code starts with the configured header or ends with the configured
// footer, these are listed as a single line each. Addresses start at the
// configured base. A nil config means NewAssemblerConfig.
func Dump(w io.Writer, code []byte, config *AssemblerConfig) error {
	if config == nil {
		config = NewAssemblerConfig()
	}
	addr := config.base

	if h := config.header; len(h) > 0 && bytes.HasPrefix(code, h) {
		if _, err := fmt.Fprintf(w, "%08x: %-18s header\n", addr, hexBytes(h)); err != nil {
			return err
		}
		code = code[len(h):]
		addr += uint32(len(h))
	}

	var footer []byte
	if f := config.footer; len(f) > 0 && bytes.HasSuffix(code, f) && (len(code)-len(f))%ais.InstructionSize == 0 {
		footer = f
		code = code[:len(code)-len(f)]
	}

	for len(code) > 0 {
		in, n, err := ais.Decode(code)
		if err != nil {
			return fmt.Errorf("%08x: %w", addr, err)
		}
		if _, err = fmt.Fprintf(w, "%08x: %-18s %s\n", addr, hexBytes(code[:n]), in); err != nil {
			return err
		}
		code = code[n:]
		addr += uint32(n)
	}

	if footer != nil {
		if _, err := fmt.Fprintf(w, "%08x: %-18s footer\n", addr, hexBytes(footer)); err != nil {
			return err
		}
	}
	return nil
}

func hexBytes(b []byte) string {
	return fmt.Sprintf("% x", b)
}
