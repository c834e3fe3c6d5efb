package core

// Series is the heap node behind every growable buffer: blocks, text,
// binaries, varlists, pairlists, paramlists. A series describes a
// contiguous run of fixed-width units; arrays hold Cell units, everything
// else holds raw bytes.
//
// Layout bookkeeping:
//   - used: live unit count
//   - bias: slack units at the head left by in-place removal, so removing
//     from the front is O(1) without shifting the tail
//   - rest: total unit capacity including bias and the terminator slot
//
// Invariants: used <= rest - bias - 1 at all times. Byte series keep a
// zero unit at offset bias+used for defensive scanning; array series keep
// a KindEnd cell there instead.
type Series struct {
	cells []Cell // array units (flagArray set)
	data  []byte // byte units (flagArray clear)
	wide  int
	used  int
	bias  int
	flags seriesFlags

	// owner links a specialized series back to the structure it backs:
	// *Context for varlists, *MapValue for pairlists, *Action for
	// paramlists. Nil for plain buffers.
	owner any

	// serial is the manual-allocation birth order, assigned by the
	// tracker. Zero once managed.
	serial uint64
}

type seriesFlags uint16

const (
	flagManaged seriesFlags = 1 << iota // GC governs lifetime
	flagArray                           // units are Cells
	flagVarlist                         // array backing a context
	flagFrozenShallow
	flagFrozenDeep
	flagBlack        // transient mark for deep-recursive walks
	flagGCMark       // collector mark bit
	flagInaccessible // popped frame varlist; reads fail, never freed
	flagFreed        // manual series already freed; catches double free
)

// cellWide is the reported unit width of array series. The physical Cell
// size is a Go implementation detail; what matters is that all array
// series agree on one width.
const cellWide = 1

// minSeriesRest is the smallest capacity a series is created with. One
// slot is always reserved for the terminator.
const minSeriesRest = 8

// ---------------------------------------------------------------------------
// Flag queries
// ---------------------------------------------------------------------------

// IsArray reports whether the units are Cells.
func (s *Series) IsArray() bool { return s.flags&flagArray != 0 }

// IsManaged reports whether the collector governs this series.
func (s *Series) IsManaged() bool { return s.flags&flagManaged != 0 }

// IsVarlist reports whether this array backs a context.
func (s *Series) IsVarlist() bool { return s.flags&flagVarlist != 0 }

// IsFrozen reports whether shallow mutation is forbidden.
func (s *Series) IsFrozen() bool {
	return s.flags&(flagFrozenShallow|flagFrozenDeep) != 0
}

// IsDeepFrozen reports whether this series was frozen with deep scope.
func (s *Series) IsDeepFrozen() bool { return s.flags&flagFrozenDeep != 0 }

// IsInaccessible reports whether this varlist belonged to a frame that
// has popped.
func (s *Series) IsInaccessible() bool { return s.flags&flagInaccessible != 0 }

// Wide returns the unit width in bytes (cellWide for arrays).
func (s *Series) Wide() int { return s.wide }

// Len returns the live unit count.
func (s *Series) Len() int { return s.used }

// Rest returns the unit capacity, including bias and terminator slot.
func (s *Series) Rest() int {
	if s.IsArray() {
		return cap(s.cells)
	}
	return cap(s.data)
}

// Bias returns the head slack left by front removal.
func (s *Series) Bias() int { return s.bias }

// Owner returns the structure this series backs, or nil.
func (s *Series) Owner() any { return s.owner }

// ---------------------------------------------------------------------------
// Transient mark bits (cycle detection during deep walks)
// ---------------------------------------------------------------------------

// MarkBlack sets the transient deep-walk mark. Returns false if the
// series was already black, which is how deep operations detect cycles.
func (s *Series) MarkBlack() bool {
	if s.flags&flagBlack != 0 {
		return false
	}
	s.flags |= flagBlack
	return true
}

// MarkWhite clears the transient deep-walk mark.
func (s *Series) MarkWhite() { s.flags &^= flagBlack }

// IsBlack reports whether the transient mark is set.
func (s *Series) IsBlack() bool { return s.flags&flagBlack != 0 }

// ---------------------------------------------------------------------------
// Element access
// ---------------------------------------------------------------------------

// At returns the cell at logical index i (0-based from the biased head).
// Index used is the terminator; anything past it panics.
func (s *Series) At(i int) *Cell {
	if !s.IsArray() {
		panic("Series.At: not an array series")
	}
	if i < 0 || i > s.used {
		panic("Series.At: index out of range")
	}
	return &s.cells[s.bias+i]
}

// Head returns the live cell window (terminator excluded).
func (s *Series) Head() []Cell {
	if !s.IsArray() {
		panic("Series.Head: not an array series")
	}
	return s.cells[s.bias : s.bias+s.used]
}

// Bytes returns the live byte window (terminator excluded).
func (s *Series) Bytes() []byte {
	if s.IsArray() {
		panic("Series.Bytes: not a byte series")
	}
	return s.data[s.bias : s.bias+s.used]
}

// String returns the live bytes as a string (text! series).
func (s *Series) String() string {
	return string(s.Bytes())
}

// ---------------------------------------------------------------------------
// Growth and mutation (low level; protection checks live in the callers)
// ---------------------------------------------------------------------------

// ensureRest grows the backing storage so that at least n more units fit
// past used, folding any bias back into capacity. The terminator slot is
// re-established after every reshape.
func (s *Series) ensureRest(n int) {
	if s.IsArray() {
		need := s.used + n + 1
		if s.bias == 0 && need <= cap(s.cells) {
			s.cells = s.cells[:need]
			return
		}
		grown := cap(s.cells) * 2
		if grown < need {
			grown = need
		}
		if grown < minSeriesRest {
			grown = minSeriesRest
		}
		fresh := make([]Cell, need, grown)
		copy(fresh, s.cells[s.bias:s.bias+s.used])
		s.cells = fresh
		s.bias = 0
		return
	}
	need := s.used + n + 1
	if s.bias == 0 && need <= cap(s.data) {
		s.data = s.data[:need]
		return
	}
	grown := cap(s.data) * 2
	if grown < need {
		grown = need
	}
	if grown < minSeriesRest {
		grown = minSeriesRest
	}
	fresh := make([]byte, need, grown)
	copy(fresh, s.data[s.bias:s.bias+s.used])
	s.data = fresh
	s.bias = 0
}

// terminate writes the terminator unit at bias+used.
func (s *Series) terminate() {
	if s.IsArray() {
		s.cells[s.bias+s.used] = EndCell()
	} else {
		s.data[s.bias+s.used] = 0
	}
}

// AppendCell appends one cell, growing as needed.
func (s *Series) AppendCell(c Cell) {
	s.ensureRest(1)
	s.cells[s.bias+s.used] = c
	s.used++
	s.terminate()
}

// AppendBytes appends raw bytes, growing as needed.
func (s *Series) AppendBytes(b []byte) {
	s.ensureRest(len(b))
	copy(s.data[s.bias+s.used:], b)
	s.used += len(b)
	s.terminate()
}

// InsertCellAt inserts one cell at logical index i, shifting the tail.
func (s *Series) InsertCellAt(i int, c Cell) {
	if i < 0 || i > s.used {
		panic("Series.InsertCellAt: index out of range")
	}
	s.ensureRest(1)
	at := s.bias + i
	copy(s.cells[at+1:s.bias+s.used+1], s.cells[at:s.bias+s.used])
	s.cells[at] = c
	s.used++
	s.terminate()
}

// RemoveAt removes n units starting at logical index i. Removal at the
// head converts to bias instead of shifting the tail.
func (s *Series) RemoveAt(i, n int) {
	if n <= 0 {
		return
	}
	if i < 0 || i+n > s.used {
		panic("Series.RemoveAt: range out of bounds")
	}
	if i == 0 {
		s.bias += n
		s.used -= n
		s.terminate()
		return
	}
	if s.IsArray() {
		at := s.bias + i
		copy(s.cells[at:], s.cells[at+n:s.bias+s.used])
	} else {
		at := s.bias + i
		copy(s.data[at:], s.data[at+n:s.bias+s.used])
	}
	s.used -= n
	s.terminate()
}

// SetLen truncates or zero-extends the live window to n units.
func (s *Series) SetLen(n int) {
	if n < 0 {
		panic("Series.SetLen: negative length")
	}
	if n > s.used {
		s.ensureRest(n - s.used)
		if s.IsArray() {
			for i := s.used; i < n; i++ {
				s.cells[s.bias+i] = Blank()
			}
		} else {
			for i := s.used; i < n; i++ {
				s.data[s.bias+i] = 0
			}
		}
	}
	s.used = n
	s.terminate()
}

// ---------------------------------------------------------------------------
// Freezing
// ---------------------------------------------------------------------------

// FreezeShallow forbids mutation of this series' own units. One-way.
func (s *Series) FreezeShallow() { s.flags |= flagFrozenShallow }

// FreezeDeep freezes this series and, for arrays, every series reachable
// from its cells. Cycles are broken with the transient black mark, which
// is restored to white before returning.
func (s *Series) FreezeDeep() {
	var marked []*Series
	s.freezeDeep(&marked)
	for _, m := range marked {
		m.MarkWhite()
	}
}

func (s *Series) freezeDeep(marked *[]*Series) {
	if !s.MarkBlack() {
		return // already visited: cycle
	}
	*marked = append(*marked, s)
	s.flags |= flagFrozenShallow | flagFrozenDeep
	if !s.IsArray() {
		return
	}
	for i := 0; i < s.used; i++ {
		if n := s.cells[s.bias+i].Node(); n != nil {
			n.freezeDeep(marked)
		}
	}
}

// assertSane panics if core bookkeeping invariants do not hold. Called
// from debug paths and the collector; a failure here is an internal
// corruption, never a user error.
func (s *Series) assertSane() {
	if s.flags&flagFreed != 0 {
		panic("Series.assertSane: use after free")
	}
	if s.IsArray() {
		if s.bias+s.used >= len(s.cells) {
			panic("Series.assertSane: used past capacity")
		}
		if !s.cells[s.bias+s.used].IsEnd() {
			panic("Series.assertSane: array missing end marker")
		}
	} else {
		if s.bias+s.used >= len(s.data) {
			panic("Series.assertSane: used past capacity")
		}
		if s.data[s.bias+s.used] != 0 {
			panic("Series.assertSane: byte series missing terminator")
		}
	}
}
