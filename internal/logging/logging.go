// Package logging includes utilities used to trace what the assembler emits.
// This is in an independent package to avoid dependency cycles.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type LogScopes uint64

const (
	LogScopeNone = LogScopes(0)
	// LogScopeEmit logs every instruction appended to the program.
	LogScopeEmit LogScopes = 1 << iota
	// LogScopeSymbol logs symbol creation, resolution and pending references.
	LogScopeSymbol
	// LogScopeFixup logs every instruction patched once its symbol resolves.
	LogScopeFixup
	LogScopeAll = LogScopes(0xffffffffffffffff)
)

func scopeName(s LogScopes) string {
	switch s {
	case LogScopeEmit:
		return "emit"
	case LogScopeSymbol:
		return "symbol"
	case LogScopeFixup:
		return "fixup"
	default:
		return fmt.Sprintf("<unknown=%d>", s)
	}
}

// IsEnabled returns true if the scope (or group of scopes) is enabled.
func (f LogScopes) IsEnabled(scope LogScopes) bool {
	return f&scope != 0
}

// String implements fmt.Stringer by returning each enabled log scope.
func (f LogScopes) String() string {
	if f == LogScopeAll {
		return "all"
	}
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := LogScopes(1 << i)
		if f.IsEnabled(target) {
			if name := scopeName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

// ParseLogScopes parses a comma-separated list of scope names, such as
// "emit,fixup". "all" enables every scope and empty entries are ignored.
func ParseLogScopes(input string) (LogScopes, error) {
	var f LogScopes
	for _, s := range strings.Split(input, ",") {
		switch s {
		case "":
			continue
		case "all":
			f |= LogScopeAll
		case "emit":
			f |= LogScopeEmit
		case "symbol":
			f |= LogScopeSymbol
		case "fixup":
			f |= LogScopeFixup
		default:
			return 0, errors.New("not a log scope")
		}
	}
	return f, nil
}

// Writer is satisfied by *os.File and *bytes.Buffer.
type Writer interface {
	io.Writer
	io.StringWriter
}

// Logger writes one line per event of an enabled scope. A nil Logger logs
// nothing.
type Logger struct {
	w      Writer
	scopes LogScopes
}

// NewLogger returns a Logger writing the given scopes to w, or nil when
// nothing would be logged.
func NewLogger(w Writer, scopes LogScopes) *Logger {
	if w == nil || scopes == LogScopeNone {
		return nil
	}
	return &Logger{w: w, scopes: scopes}
}

// IsEnabled returns true if l logs the scope.
func (l *Logger) IsEnabled(scope LogScopes) bool {
	return l != nil && l.scopes.IsEnabled(scope)
}

// Logf writes a line of the form "==> scope: message" when scope is enabled.
func (l *Logger) Logf(scope LogScopes, format string, args ...interface{}) {
	if !l.IsEnabled(scope) {
		return
	}
	l.w.WriteString("==> ")           //nolint
	l.w.WriteString(scopeName(scope)) //nolint
	l.w.WriteString(": ")             //nolint
	fmt.Fprintf(l.w, format, args...)
	l.w.WriteString("\n") //nolint
}
