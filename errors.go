package aisasm

import "errors"

var (
	// ErrInvalidSymbol is returned for a Sym not created by the Assembler
	// it is passed to.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrSymbolRedefined is returned when resolving a symbol twice.
	ErrSymbolRedefined = errors.New("symbol already resolved")

	// ErrResolveUnstable is returned when a pending reference no longer
	// holds an immediate instruction, or patching it changes its length.
	ErrResolveUnstable = errors.New("unstable symbol fixup")
)
