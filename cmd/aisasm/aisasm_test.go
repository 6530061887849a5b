package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aisre/aisasm/internal/version"
	"github.com/aisre/aisasm/internal/x86stub"
)

const callRet = `
local add, done = asm.new_sym(), asm.new_sym()
asm.load("EAX", 41)
asm.call(add)
asm.jump(done)
asm.set_sym_here(add)
asm.addi("EAX", "EAX", 1)
asm.ret()
asm.set_sym_here(done)
`

const hello = `
for c in string.gmatch("Hi!\n", ".") do
  asm.load("EDX", 0x3f8)
  asm.load("ECX", string.byte(c))
  asm.iow("EDX", "ECX")
end
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// build assembles script and returns the path to the binary.
func build(t *testing.T, script string, opts ...string) string {
	out := filepath.Join(t.TempDir(), "out.bin")
	args := append([]string{"build", "-o", out}, opts...)
	args = append(args, writeFile(t, "script.lua", script))
	exitCode, stdOut, stdErr := runMain(t, args)
	require.Equal(t, 0, exitCode, stdErr)
	require.Zero(t, stdOut)
	return out
}

func TestBuild(t *testing.T) {
	bin, err := os.ReadFile(build(t, `asm.load("EAX", 42)`))
	require.NoError(t, err)

	expected := append([]byte{}, x86stub.Header...)
	expected = append(expected, 0x62, 0x80, 0x2a, 0x00, 0x10, 0x34)
	expected = append(expected, x86stub.Footer...)
	require.Equal(t, expected, bin)
}

func TestBuild_Stdout(t *testing.T) {
	script := writeFile(t, "script.lua", `asm.load("EAX", 42)`)
	exitCode, stdOut, stdErr := runMain(t, []string{"build", script})
	require.Equal(t, 0, exitCode, stdErr)

	bin, err := os.ReadFile(build(t, `asm.load("EAX", 42)`))
	require.NoError(t, err)
	require.Equal(t, string(bin), stdOut)
}

func TestBuild_HostLogging(t *testing.T) {
	script := writeFile(t, "script.lua", `asm.load("EAX", 42)`)
	out := filepath.Join(t.TempDir(), "out.bin")
	exitCode, _, stdErr := runMain(t, []string{"build", "-hostlogging=emit", "-o", out, script})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "==> emit: 0x0048000b: ORI EAX, R0, 0x002a\n")
	require.NotContains(t, stdErr, "==> symbol")
}

func TestDump(t *testing.T) {
	bin := build(t, `asm.load("EAX", 0x1234)`, "-base", "0x1000")

	exitCode, stdOut, stdErr := runMain(t, []string{"dump", "-base=0x1000", bin})
	require.Equal(t, 0, exitCode, stdErr)

	pad := func(s string) string { return s + strings.Repeat(" ", 18-len(s)) }
	require.Equal(t, strings.Join([]string{
		"00001000: e8 00 00 00 00 58 83 c0 06 0f 3f header",
		"0000100b: " + pad("62 80 34 12 10 34") + " ORI EAX, R0, 0x1234",
		"00001011: " + pad("c3") + " footer",
		"",
	}, "\n"), stdOut)
}

func TestDump_X86(t *testing.T) {
	bin := build(t, `asm.load("EAX", 1)`)

	exitCode, stdOut, stdErr := runMain(t, []string{"dump", "-x86", bin})
	require.Equal(t, 0, exitCode, stdErr)
	require.Contains(t, stdOut, "header:\n")
	require.Contains(t, stdOut, "\tpop eax\n")
	require.Contains(t, stdOut, "\tjmpai eax\n")
	require.True(t, strings.HasSuffix(stdOut, "footer:\n\tret\n"), stdOut)
}

func TestDecode(t *testing.T) {
	exitCode, stdOut, stdErr := runMain(t, []string{"decode", "62 80 34 12 10 34", "628047001018"})
	require.Equal(t, 0, exitCode, stdErr)
	require.Equal(t, "ORI EAX, R0, 0x1234\nXJ.Bits32/X86 EAX {leftover 0x4}\n", stdOut)
}

func TestDecode_Verbose(t *testing.T) {
	exitCode, stdOut, stdErr := runMain(t, []string{"decode", "-v", "628047001018"})
	require.Equal(t, 0, exitCode, stdErr)
	first := "XJ.Bits32/X86 EAX {leftover 0x4}\n"
	require.True(t, strings.HasPrefix(stdOut, first), stdOut)
	require.Greater(t, len(stdOut), len(first))
	require.NotContains(t, stdOut, "\x1b[", "not a terminal")
}

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		script string
		stdOut string
		stdErr string
	}{
		{
			name:   "call ret",
			script: callRet,
			stdErr: "EAX=0x0000002a steps=12\n",
		},
		{
			name:   "serial",
			script: hello,
			stdOut: "Hi!\n",
			stdErr: "EAX=0x00000000 steps=12\n",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			bin := build(t, tc.script)
			exitCode, stdOut, stdErr := runMain(t, []string{"run", bin})
			require.Equal(t, 0, exitCode, stdErr)
			require.Equal(t, tc.stdOut, stdOut)
			require.Equal(t, tc.stdErr, stdErr)
		})
	}
}

func TestVersion(t *testing.T) {
	exitCode, stdOut, _ := runMain(t, []string{"version"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, version.GetVersion()+"\n", stdOut)
}

func TestHelp(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"-h"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "aisasm CLI\n\nUsage:")
}

func TestErrors(t *testing.T) {
	bin := build(t, `asm.load("EAX", 1)`)
	loop := build(t, `local l = asm.new_sym_here(); asm.jump(l)`)
	badScript := writeFile(t, "bad.lua", `asm.jump(99)`)
	missing := filepath.Join(t.TempDir(), "missing.bin")

	tests := []struct {
		message string
		args    []string
	}{
		{message: "invalid command", args: []string{"bear"}},
		{message: "missing path to script file", args: []string{"build"}},
		{message: "missing path to binary file", args: []string{"dump"}},
		{message: "missing path to binary file", args: []string{"run"}},
		{message: "missing instruction bytes", args: []string{"decode"}},
		{message: "invalid hex", args: []string{"decode", "zz"}},
		{message: "error decoding", args: []string{"decode", "628000000000"}},
		{message: "error reading binary", args: []string{"dump", missing}},
		{message: "error reading binary", args: []string{"run", missing}},
		{message: "invalid base", args: []string{"dump", "-base", "bear", bin}},
		{message: "invalid symbol", args: []string{"build", "-o", missing, badScript}},
		{message: "step limit exceeded", args: []string{"run", "-maxsteps", "10", loop}},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.message, func(t *testing.T) {
			exitCode, _, stdErr := runMain(t, tc.args)
			require.Equal(t, 1, exitCode)
			require.Contains(t, stdErr, tc.message)
		})
	}
}

func runMain(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() {
		os.Args = oldArgs
	})
	os.Args = append([]string{"aisasm"}, args...)

	var exitCode int
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	var exited bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				exited = true
			}
		}()
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		doMain(stdOut, stdErr, func(code int) {
			exitCode = code
			panic(code)
		})
	}()

	require.True(t, exited)

	return exitCode, stdOut.String(), stdErr.String()
}
