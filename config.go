package aisasm

import (
	"github.com/aisre/aisasm/internal/logging"
	"github.com/aisre/aisasm/internal/x86stub"
)

// DefaultBase is the load address of the first header byte unless
// AssemblerConfig.WithBase says otherwise.
const DefaultBase uint32 = 0x480000

// LogScopes selects what an Assembler logs. See AssemblerConfig.WithLogging.
type LogScopes = logging.LogScopes

// LogWriter is the destination of assembler logging.
type LogWriter = logging.Writer

const (
	LogScopeNone   = logging.LogScopeNone
	LogScopeEmit   = logging.LogScopeEmit
	LogScopeSymbol = logging.LogScopeSymbol
	LogScopeFixup  = logging.LogScopeFixup
	LogScopeAll    = logging.LogScopeAll
)

// AssemblerConfig controls assembler behavior, with the default implementation as NewAssemblerConfig
type AssemblerConfig struct {
	base      uint32
	header    []byte
	footer    []byte
	logWriter LogWriter
	logScopes LogScopes
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &AssemblerConfig{
	base:   DefaultBase,
	header: x86stub.Header,
	footer: x86stub.Footer,
}

// clone ensures all fields are copied even if nil.
func (c *AssemblerConfig) clone() *AssemblerConfig {
	return &AssemblerConfig{
		base:      c.base,
		header:    c.header,
		footer:    c.footer,
		logWriter: c.logWriter,
		logScopes: c.logScopes,
	}
}

// NewAssemblerConfig returns the defaults: the program is loaded at
// DefaultBase and wrapped in the x86 stubs which enter and leave AIS mode.
func NewAssemblerConfig() *AssemblerConfig {
	return defaultConfig.clone()
}

// WithBase sets the load address of the first byte of the program, which is
// the first header byte when GenHeader is used.
func (c *AssemblerConfig) WithBase(base uint32) *AssemblerConfig {
	ret := c.clone()
	ret.base = base
	return ret
}

// WithHeader replaces the bytes written by Assembler.GenHeader. Nil writes
// nothing.
func (c *AssemblerConfig) WithHeader(header []byte) *AssemblerConfig {
	ret := c.clone()
	ret.header = append([]byte(nil), header...)
	return ret
}

// WithFooter replaces the bytes written by Assembler.GenFooter. Nil writes
// nothing.
func (c *AssemblerConfig) WithFooter(footer []byte) *AssemblerConfig {
	ret := c.clone()
	ret.footer = append([]byte(nil), footer...)
	return ret
}

// WithLogging writes a line to w for each event in scopes. Logging is
// disabled by default.
//
// For example, LogScopeEmit|LogScopeFixup traces every emitted and every
// patched instruction, with its address.
func (c *AssemblerConfig) WithLogging(w LogWriter, scopes LogScopes) *AssemblerConfig {
	ret := c.clone()
	ret.logWriter = w
	ret.logScopes = scopes
	return ret
}

// Base returns the configured load address.
func (c *AssemblerConfig) Base() uint32 {
	return c.base
}

// Header returns the configured entry stub.
func (c *AssemblerConfig) Header() []byte {
	return c.header
}

// Footer returns the configured exit stub.
func (c *AssemblerConfig) Footer() []byte {
	return c.footer
}
