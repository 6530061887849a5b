package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/aisre/aisasm"
	"github.com/aisre/aisasm/ais"
	"github.com/aisre/aisasm/internal/interpreter"
	"github.com/aisre/aisasm/internal/logging"
	"github.com/aisre/aisasm/internal/luabind"
	"github.com/aisre/aisasm/internal/version"
	"github.com/aisre/aisasm/internal/x86stub"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "build":
		doBuild(flag.Args()[1:], stdOut, stdErr, exit)
	case "dump":
		doDump(flag.Args()[1:], stdOut, stdErr, exit)
	case "decode":
		doDecode(flag.Args()[1:], stdOut, stdErr, exit)
	case "run":
		doRun(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

func doBuild(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("build", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	base := baseFlag(flags)

	out := flags.String("o", "", "Path of the output binary. Defaults to stdout, which must not be a terminal.")

	var hostlogging logScopesFlag
	flags.Var(&hostlogging, "hostlogging",
		"A comma-separated list of assembler scopes to log to stderr. "+
			"This may be specified multiple times. Supported values: all,emit,fixup,symbol")

	_ = flags.Parse(args)

	if help {
		printBuildUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to script file")
		printBuildUsage(stdErr, flags)
		exit(1)
	}
	scriptPath := flags.Arg(0)

	if *out == "" && isTerminal(stdOut) {
		fmt.Fprintln(stdErr, "refusing to write binary to a terminal, use -o")
		exit(1)
	}

	config := aisasm.NewAssemblerConfig().
		WithBase(parseBase(*base, stdErr, exit)).
		WithLogging(stdErr, logging.LogScopes(hostlogging))
	a := aisasm.NewAssembler(config)
	a.GenHeader()
	if err := luabind.ExecFile(a, scriptPath); err != nil {
		fmt.Fprintf(stdErr, "error running script: %v\n", err)
		exit(1)
	}
	a.GenFooter()

	if *out == "" {
		if _, err := stdOut.Write(a.Bytes()); err != nil {
			fmt.Fprintf(stdErr, "error writing binary: %v\n", err)
			exit(1)
		}
	} else if err := os.WriteFile(*out, a.Bytes(), 0o644); err != nil {
		fmt.Fprintf(stdErr, "error writing binary: %v\n", err)
		exit(1)
	}
	exit(0)
}

func doDump(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("dump", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	base := baseFlag(flags)

	var x86 bool
	flags.BoolVar(&x86, "x86", false, "Also disassemble the x86 header and footer.")

	_ = flags.Parse(args)

	if help {
		printDumpUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to binary file")
		printDumpUsage(stdErr, flags)
		exit(1)
	}

	code := readBinary(flags.Arg(0), stdErr, exit)
	config := aisasm.NewAssemblerConfig().WithBase(parseBase(*base, stdErr, exit))
	if err := aisasm.Dump(stdOut, code, config); err != nil {
		fmt.Fprintf(stdErr, "error dumping binary: %v\n", err)
		exit(1)
	}
	if x86 {
		dumpStubs(stdOut, code, config, stdErr, exit)
	}
	exit(0)
}

// dumpStubs lists the x86 instructions of the header and footer found in code.
func dumpStubs(stdOut io.Writer, code []byte, config *aisasm.AssemblerConfig, stdErr io.Writer, exit func(code int)) {
	stubs := []struct {
		name  string
		stub  []byte
		found bool
		addr  uint32
	}{
		{"header", config.Header(), bytes.HasPrefix(code, config.Header()), config.Base()},
		{"footer", config.Footer(), bytes.HasSuffix(code, config.Footer()), config.Base() + uint32(len(code)-len(config.Footer()))},
	}
	for _, s := range stubs {
		if !s.found || len(s.stub) == 0 {
			continue
		}
		lines, err := x86stub.Disassemble(s.stub, s.addr)
		if err != nil {
			fmt.Fprintf(stdErr, "error disassembling %s: %v\n", s.name, err)
			exit(1)
		}
		fmt.Fprintf(stdOut, "%s:\n", s.name)
		for _, l := range lines {
			fmt.Fprintf(stdOut, "\t%s\n", l)
		}
	}
}

func doDecode(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("decode", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var verbose bool
	flags.BoolVar(&verbose, "v", false, "Pretty-print the decoded fields of each instruction.")

	_ = flags.Parse(args)

	if help {
		printDecodeUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing instruction bytes")
		printDecodeUsage(stdErr, flags)
		exit(1)
	}

	printer := pp.New()
	printer.SetColoringEnabled(isTerminal(stdOut))

	for _, arg := range flags.Args() {
		// Accept "62 80 ..." as well as "6280...".
		b, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
		if err != nil {
			fmt.Fprintf(stdErr, "invalid hex %q: %v\n", arg, err)
			exit(1)
		}
		for len(b) > 0 {
			in, n, err := ais.Decode(b)
			if err != nil {
				fmt.Fprintf(stdErr, "error decoding %q: %v\n", arg, err)
				exit(1)
			}
			fmt.Fprintln(stdOut, in)
			if verbose {
				printer.Fprintln(stdOut, in) //nolint
			}
			b = b[n:]
		}
	}
	exit(0)
}

func doRun(args []string, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	base := baseFlag(flags)

	maxSteps := flags.Int("maxsteps", interpreter.DefaultMaxSteps,
		"Number of instructions after which the program is stopped.")

	_ = flags.Parse(args)

	if help {
		printRunUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to binary file")
		printRunUsage(stdErr, flags)
		exit(1)
	}

	code := readBinary(flags.Arg(0), stdErr, exit)
	addr := parseBase(*base, stdErr, exit)

	entry := addr
	if header := aisasm.NewAssemblerConfig().Header(); bytes.HasPrefix(code, header) {
		entry += uint32(len(header))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	config := interpreter.NewConfig().WithMaxSteps(*maxSteps).WithOutput(stdOut)
	m := interpreter.NewMachine(config, code, addr)
	if err := m.Run(ctx, entry); err != nil {
		fmt.Fprintf(stdErr, "error running binary: %v\n", err)
		exit(1)
	}
	fmt.Fprintf(stdErr, "EAX=0x%08x steps=%d\n", m.Reg(ais.EAX), m.Steps())
	exit(0)
}

func readBinary(path string, stdErr io.Writer, exit func(code int)) []byte {
	code, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading binary: %v\n", err)
		exit(1)
	}
	return code
}

func baseFlag(flags *flag.FlagSet) *string {
	return flags.String("base", fmt.Sprintf("%#x", aisasm.DefaultBase),
		"Load address of the first byte of the binary.")
}

func parseBase(s string, stdErr io.Writer, exit func(code int)) uint32 {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid base: %v\n", err)
		exit(1)
	}
	return uint32(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "aisasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  aisasm <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  build\t\tAssembles a Lua script into an AIS binary")
	fmt.Fprintln(stdErr, "  dump\t\tLists the instructions of an AIS binary")
	fmt.Fprintln(stdErr, "  decode\tDecodes hex encoded instructions")
	fmt.Fprintln(stdErr, "  run\t\tRuns an AIS binary on the reference interpreter")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of aisasm CLI")
}

func printBuildUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "aisasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  aisasm build <options> <path to script file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printDumpUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "aisasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  aisasm dump <options> <path to binary file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printDecodeUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "aisasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  aisasm decode <hex>...")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printRunUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "aisasm CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  aisasm run <options> <path to binary file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

type logScopesFlag logging.LogScopes

func (f *logScopesFlag) String() string {
	return logging.LogScopes(*f).String()
}

func (f *logScopesFlag) Set(input string) error {
	scopes, err := logging.ParseLogScopes(input)
	if err != nil {
		return err
	}
	*f |= logScopesFlag(scopes)
	return nil
}
