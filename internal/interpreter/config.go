package interpreter

import (
	"io"

	"github.com/aisre/aisasm/ais"
)

const (
	// DefaultMaxSteps bounds the number of instructions executed by Run.
	DefaultMaxSteps = 1 << 20
	// DefaultStackTop is the initial ESP.
	DefaultStackTop uint32 = 0x00800000
)

// Config controls machine behavior, with the default implementation as NewConfig
type Config struct {
	maxSteps int
	stackTop uint32
	output   io.Writer
	cp2      map[ais.Register]uint32
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &Config{
	maxSteps: DefaultMaxSteps,
	stackTop: DefaultStackTop,
	output:   io.Discard,
}

// clone ensures all fields are copied even if nil.
func (c *Config) clone() *Config {
	cp2 := make(map[ais.Register]uint32, len(c.cp2))
	for k, v := range c.cp2 {
		cp2[k] = v
	}
	return &Config{
		maxSteps: c.maxSteps,
		stackTop: c.stackTop,
		output:   c.output,
		cp2:      cp2,
	}
}

func NewConfig() *Config {
	return defaultConfig.clone()
}

// WithMaxSteps sets the number of instructions after which Run fails with
// ErrStepLimit. Zero or less means DefaultMaxSteps.
func (c *Config) WithMaxSteps(n int) *Config {
	if n <= 0 {
		n = DefaultMaxSteps
	}
	ret := c.clone()
	ret.maxSteps = n
	return ret
}

// WithStackTop sets the initial value of ESP.
func (c *Config) WithStackTop(addr uint32) *Config {
	ret := c.clone()
	ret.stackTop = addr
	return ret
}

// WithOutput receives the bytes written to the serial port. Defaults to
// io.Discard if nil.
func (c *Config) WithOutput(w io.Writer) *Config {
	if w == nil {
		w = io.Discard
	}
	ret := c.clone()
	ret.output = w
	return ret
}

// WithCP2 presets the CP2 control register at index.
func (c *Config) WithCP2(index ais.Register, value uint32) *Config {
	ret := c.clone()
	ret.cp2[index] = value
	return ret
}
