package core

import "fmt"

// Quoting is a per-cell counter, orthogonal to kind. Wrapping any value
// in a quote level is a pure metadata change: the payload is never
// copied, and the underlying kind stays what it was. This one rule gives
// every datatype quoted variants for free instead of multiplying the
// kind space by quote depth.

// Quotify raises the quote depth of c by depth levels and returns the
// adjusted cell. Depth 0 is the identity. Panics if the result would
// exceed MaxQuoteDepth.
func Quotify(c Cell, depth int) Cell {
	if depth < 0 {
		panic("Quotify: negative depth")
	}
	q := c.QuoteDepth() + depth
	if q > MaxQuoteDepth {
		panic(fmt.Sprintf("Quotify: quote depth %d exceeds maximum", q))
	}
	c.header = (c.header &^ headerQuoteMask) | uint32(q)<<headerQuoteShift
	return c
}

// Unquotify removes depth quote levels from c and returns the adjusted
// cell. Removing more levels than the cell carries is an underflow and
// panics; callers that may see arbitrary input must check QuoteDepth
// first. Silent clamping would hide real bugs in dispatch restoration.
func Unquotify(c Cell, depth int) Cell {
	if depth < 0 {
		panic("Unquotify: negative depth")
	}
	q := c.QuoteDepth() - depth
	if q < 0 {
		panic("Unquotify: quote depth underflow")
	}
	c.header = (c.header &^ headerQuoteMask) | uint32(q)<<headerQuoteShift
	return c
}

// Dequote strips all quoting from c, returning the bare cell and the
// depth removed. Generic dispatch uses this to operate on the underlying
// value, then Requote to restore the caller's quoting on the output.
func Dequote(c Cell) (Cell, int) {
	depth := c.QuoteDepth()
	if depth != 0 {
		c.header &^= headerQuoteMask
	}
	return c, depth
}

// Requote restores depth quote levels on an output cell. It is the
// companion of Dequote: copy on a doubly-quoted block yields a
// doubly-quoted copy.
func Requote(c Cell, depth int) Cell {
	return Quotify(c, depth)
}
