package ais

// Bit positions of the 32-bit instruction word shared by the encoder and the
// decoder.
//
//	       31:26    25:21    20:16   15:11    10:0
//	I:     Opcode | RS     | RT    | Immediate
//	XALU:  Opcode | RS     | RT    | RD     | Function
//	XALUI: Opcode | RS     | Const | RD     | Function
//	XJ:    Opcode |        | RT    |        | Function
//	XMISC: Opcode | RS     | RT    | RD     | Function
//	XLS:   Opcode | Offset | Base  | RS     | Function
const (
	opcodeShift = 26
	rsShift     = 21
	rtShift     = 16
	rdShift     = 11

	// XLS swaps the source register into the RD slot and the offset into the
	// RS slot.
	xlsOffsetShift = rsShift
	xlsRsShift     = rdShift
	constShift     = rtShift

	functionMask  = 0x7ff
	immediateMask = 0xffff
)

// bit returns bit n of w.
func bit(w uint32, n uint) uint32 {
	return (w >> n) & 1
}

// bits returns bits hi:lo of w, inclusive.
func bits(w uint32, hi, lo uint) uint32 {
	return (w >> lo) & (1<<(hi-lo+1) - 1)
}
