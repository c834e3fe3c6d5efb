package core

import "strconv"

// MoldBuffer is the single process-wide buffer textual renderings are
// built in. Renderers append to it between a Mark and the matching
// TakeFrom, which snips the rendered region back out. The length of the
// buffer is one of the checkpointed counters: every operation that grows
// it must shrink it back on all success paths, and the trap unwind
// restores it on failure.
type MoldBuffer struct {
	rt  *Runtime
	buf []byte

	// limit truncates very long renderings (0 = unlimited); used when
	// rendering "near" context in error reports.
	limit int
}

const moldEllipsis = "..."

// Len returns the current buffer length.
func (mo *MoldBuffer) Len() int { return len(mo.buf) }

// Mark returns a position to later TakeFrom or truncate back to.
func (mo *MoldBuffer) Mark() int { return len(mo.buf) }

// TakeFrom returns everything rendered since mark and truncates it away.
func (mo *MoldBuffer) TakeFrom(mark int) string {
	if mark < 0 || mark > len(mo.buf) {
		panic("MoldBuffer.TakeFrom: bad mark")
	}
	out := string(mo.buf[mark:])
	mo.buf = mo.buf[:mark]
	return out
}

// truncate drops everything past mark. The unwind path calls this.
func (mo *MoldBuffer) truncate(mark int) {
	if mark <= len(mo.buf) {
		mo.buf = mo.buf[:mark]
	}
}

// WriteString appends s, honoring the active limit.
func (mo *MoldBuffer) WriteString(s string) {
	if mo.limit > 0 && len(mo.buf) >= mo.limit {
		return
	}
	mo.buf = append(mo.buf, s...)
}

// WriteByte appends one byte.
func (mo *MoldBuffer) WriteByte(b byte) error {
	mo.buf = append(mo.buf, b)
	return nil
}

// ---------------------------------------------------------------------------
// Value rendering
// ---------------------------------------------------------------------------

// Mold renders v in its source-loadable form.
func (rt *Runtime) Mold(v *Cell) string {
	mark := rt.mold.Mark()
	rt.moldInto(rt.mold, v, false)
	return rt.mold.TakeFrom(mark)
}

// Form renders v in its human-readable form (text without delimiters).
func (rt *Runtime) Form(v *Cell) string {
	mark := rt.mold.Mark()
	rt.moldInto(rt.mold, v, true)
	return rt.mold.TakeFrom(mark)
}

// moldInto dispatches to the kind's mold hook, rendering quote marks for
// the cell's quote depth first.
func (rt *Runtime) moldInto(mo *MoldBuffer, v *Cell, form bool) {
	bare, depth := Dequote(*v)
	for i := 0; i < depth; i++ {
		mo.WriteString("'")
	}
	d := rt.dispatchFor(bare.Kind())
	if d == nil || d.Mold == nil {
		mo.WriteString("#[" + bare.Kind().Name() + "]")
		return
	}
	d.Mold(rt, mo, &bare, form)
}

// moldArrayBody renders the elements of an arraylike cell separated by
// spaces, using the series black bit to cut cycles.
func (rt *Runtime) moldArrayBody(mo *MoldBuffer, s *Series, index int, form bool) {
	if !s.MarkBlack() {
		mo.WriteString(moldEllipsis)
		return
	}
	defer s.MarkWhite()
	for i := index; i < s.Len(); i++ {
		if s.At(i).HasFlag(CellFlagNewline) && i > index {
			mo.WriteString("\n")
		} else if i > index {
			mo.WriteString(" ")
		}
		rt.moldInto(mo, s.At(i), form)
	}
}

// moldInteger is shared by integer rendering and error field output.
func moldInteger(mo *MoldBuffer, n int64) {
	mo.WriteString(strconv.FormatInt(n, 10))
}
