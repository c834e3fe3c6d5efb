package core

import "math"

// Cell is the universal fixed-size value container.
//
// Every runtime value, whatever its datatype, fits in one Cell. The
// header carries the kind byte, a quote counter, and flag bits; the
// payload is either an inline scalar (in bits) or a reference to a heap
// series node plus an index. Wordlike and arraylike cells additionally
// carry a binding: the varlist that resolves their words when the cell
// was found inside a function body shared across activations.
//
// Code must never interpret payload fields without checking the kind
// first; the accessors below enforce that with panics, mirroring how an
// out-of-kind read is always an internal bug and never a user error.
type Cell struct {
	header  uint32
	bits    uint64  // inline scalar: integer bits, float bits, symbol ID, logic
	node    *Series // heap payload: buffer, varlist, pairlist, paramlist
	index   int32   // head position for serieslike values
	binding *Series // specifier varlist for wordlike/arraylike values
}

// Header layout
const (
	headerKindMask  uint32 = 0x0000_00FF
	headerFlagsMask uint32 = 0x0000_FF00
	headerQuoteMask uint32 = 0x00FF_0000
	headerQuoteShift       = 16

	// MaxQuoteDepth is the deepest quoting a single cell can carry.
	MaxQuoteDepth = 255
)

// Cell flag bits (header bits 8..15).
const (
	// CellFlagConst marks a value seen through a const view; mutation
	// through it fails even when the backing series is not frozen.
	CellFlagConst uint32 = 1 << 8

	// CellFlagRelative marks a wordlike/arraylike cell whose binding must
	// be supplied by a specifier before lookup is meaningful.
	CellFlagRelative uint32 = 1 << 9

	// CellFlagNewline records that a newline preceded this value in
	// source, preserved by mold.
	CellFlagNewline uint32 = 1 << 10
)

// Kind returns the cell's kind byte.
func (c *Cell) Kind() Kind {
	return Kind(c.header & headerKindMask)
}

// QuoteDepth returns the number of quoting levels wrapped around the
// underlying value.
func (c *Cell) QuoteDepth() int {
	return int((c.header & headerQuoteMask) >> headerQuoteShift)
}

// HasFlag reports whether the given header flag is set.
func (c *Cell) HasFlag(flag uint32) bool {
	return c.header&flag != 0
}

// SetFlag sets a header flag.
func (c *Cell) SetFlag(flag uint32) {
	c.header |= flag
}

// ClearFlag clears a header flag.
func (c *Cell) ClearFlag(flag uint32) {
	c.header &^= flag
}

// IsEnd reports whether this cell is an array terminator.
func (c *Cell) IsEnd() bool {
	return c.Kind() == KindEnd
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Blank returns a blank! cell.
func Blank() Cell {
	return Cell{header: uint32(KindBlank)}
}

// EndCell returns the canonical array terminator.
func EndCell() Cell {
	return Cell{}
}

// LogicCell returns a logic! cell holding b.
func LogicCell(b bool) Cell {
	c := Cell{header: uint32(KindLogic)}
	if b {
		c.bits = 1
	}
	return c
}

// IntegerCell returns an integer! cell holding n.
func IntegerCell(n int64) Cell {
	return Cell{header: uint32(KindInteger), bits: uint64(n)}
}

// DecimalCell returns a decimal! cell holding f.
func DecimalCell(f float64) Cell {
	return Cell{header: uint32(KindDecimal), bits: math.Float64bits(f)}
}

// WordCell returns an unbound word cell of the given word kind.
func WordCell(kind Kind, sym Symbol) Cell {
	if !kind.IsWordlike() {
		panic("WordCell: kind is not wordlike")
	}
	return Cell{header: uint32(kind), bits: uint64(sym)}
}

// SeriesCell returns a serieslike cell over s starting at index.
func SeriesCell(kind Kind, s *Series, index int) Cell {
	if !kind.IsSerieslike() {
		panic("SeriesCell: kind is not serieslike")
	}
	return Cell{header: uint32(kind), node: s, index: int32(index)}
}

// ActionCell returns an action! cell over its paramlist node. Actions
// ride on a series payload but are not serieslike: the node is identity,
// not indexable content.
func ActionCell(s *Series) Cell {
	if _, ok := s.Owner().(*Action); !ok {
		panic("ActionCell: series is not owned by an action")
	}
	return Cell{header: uint32(KindAction), node: s}
}

// ---------------------------------------------------------------------------
// Scalar accessors
// ---------------------------------------------------------------------------

// Logic returns the cell's boolean payload.
// Panics if the cell is not a logic!.
func (c *Cell) Logic() bool {
	if c.Kind() != KindLogic {
		panic("Cell.Logic: not a logic!")
	}
	return c.bits != 0
}

// Integer returns the cell's integer payload.
// Panics if the cell is not an integer!.
func (c *Cell) Integer() int64 {
	if c.Kind() != KindInteger {
		panic("Cell.Integer: not an integer!")
	}
	return int64(c.bits)
}

// Decimal returns the cell's decimal payload.
// Panics if the cell is not a decimal!.
func (c *Cell) Decimal() float64 {
	if c.Kind() != KindDecimal {
		panic("Cell.Decimal: not a decimal!")
	}
	return math.Float64frombits(c.bits)
}

// Symbol returns the symbol payload of a wordlike cell.
// Panics for any other kind.
func (c *Cell) Symbol() Symbol {
	if !c.Kind().IsWordlike() {
		panic("Cell.Symbol: not a wordlike cell")
	}
	return Symbol(c.bits)
}

// ---------------------------------------------------------------------------
// Series / node accessors
// ---------------------------------------------------------------------------

// Series returns the backing series of a serieslike cell.
// Panics for any other kind.
func (c *Cell) Series() *Series {
	if !c.Kind().IsSerieslike() {
		panic("Cell.Series: not a serieslike cell")
	}
	return c.node
}

// Index returns the head position of a serieslike cell within its series.
func (c *Cell) Index() int {
	if !c.Kind().IsSerieslike() {
		panic("Cell.Index: not a serieslike cell")
	}
	return int(c.index)
}

// SetIndex repositions a serieslike cell within its series.
func (c *Cell) SetIndex(i int) {
	if !c.Kind().IsSerieslike() {
		panic("Cell.SetIndex: not a serieslike cell")
	}
	c.index = int32(i)
}

// Context returns the context of an object!/module!/error!/frame!/port!
// cell. Panics for any other kind.
func (c *Cell) Context() *Context {
	if !c.Kind().IsContextual() {
		panic("Cell.Context: not a contextual cell")
	}
	return c.node.Owner().(*Context)
}

// Map returns the map payload of a map! cell.
// Panics for any other kind.
func (c *Cell) Map() *MapValue {
	if c.Kind() != KindMap {
		panic("Cell.Map: not a map!")
	}
	return c.node.Owner().(*MapValue)
}

// Action returns the action payload of an action! cell.
// Panics for any other kind.
func (c *Cell) Action() *Action {
	if c.Kind() != KindAction {
		panic("Cell.Action: not an action!")
	}
	return c.node.Owner().(*Action)
}

// Node returns the heap node referenced by the payload, or nil for inline
// scalars. Used by the collector's mark phase and by snapshotting; normal
// code goes through the typed accessors.
func (c *Cell) Node() *Series {
	return c.node
}

// Binding returns the specifier varlist attached to this cell, or nil.
func (c *Cell) Binding() *Series {
	return c.binding
}

// SetBinding attaches a specifier varlist. Clears the relative flag: a
// bound cell is specific by definition.
func (c *Cell) SetBinding(varlist *Series) {
	c.binding = varlist
	c.ClearFlag(CellFlagRelative)
}

// ---------------------------------------------------------------------------
// Truthiness and identity
// ---------------------------------------------------------------------------

// IsTruthy reports conditional truth: blank! and false are falsy,
// everything else (including quoted values) is truthy.
func (c *Cell) IsTruthy() bool {
	if c.QuoteDepth() > 0 {
		return true
	}
	switch c.Kind() {
	case KindBlank:
		return false
	case KindLogic:
		return c.bits != 0
	default:
		return true
	}
}

// SameValue reports payload identity: same kind, same quote depth, and
// identical payload slots. This is the "same?" notion, stricter than
// equality (which goes through the dispatch table's compare hooks).
func (c *Cell) SameValue(other *Cell) bool {
	return c.header == other.header &&
		c.bits == other.bits &&
		c.node == other.node &&
		c.index == other.index &&
		c.binding == other.binding
}
