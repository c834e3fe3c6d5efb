package core

import (
	"time"
)

// ---------------------------------------------------------------------------
// Tracker: manual vs. managed series lifecycle
// ---------------------------------------------------------------------------

// Tracker records every live series in one of two states. A fresh series
// is manual: the creating code owns it and must either Free it or Manage
// it before any potential failure point, because a manual series is
// invisible to the collector. Manage is a one-way promotion to collector
// ownership.
//
// Manual series are kept on a stack in birth order so that an error
// unwind can free exactly the ones allocated past a checkpoint. That is
// the only automatic cleanup manual series ever get: it happens solely on
// the failure path. Success paths must manage or free explicitly.
//
// The tracker is also what keeps series reachable from Go's point of
// view while interpreter data structures hold them only through cells.
type Tracker struct {
	manuals    []*Series
	managed    map[*Series]struct{}
	nextSerial uint64
}

// NewTracker creates an empty lifecycle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		managed: make(map[*Series]struct{}),
	}
}

// add registers a freshly allocated series as manual.
func (t *Tracker) add(s *Series) {
	t.nextSerial++
	s.serial = t.nextSerial
	t.manuals = append(t.manuals, s)
}

// Manage promotes a series to collector ownership. Managing an
// already-managed series is a no-op; the promotion is one-way.
func (t *Tracker) Manage(s *Series) {
	if s.flags&flagFreed != 0 {
		panic("Tracker.Manage: series already freed")
	}
	if s.IsManaged() {
		return
	}
	t.removeManual(s)
	s.flags |= flagManaged
	s.serial = 0
	t.managed[s] = struct{}{}
}

// Free releases a manual series. Freeing a managed series is an internal
// consistency violation: ownership already passed to the collector.
func (t *Tracker) Free(s *Series) {
	if s.IsManaged() {
		panic("Tracker.Free: series is managed; the collector owns it")
	}
	if s.flags&flagFreed != 0 {
		panic("Tracker.Free: double free")
	}
	t.removeManual(s)
	s.flags |= flagFreed
	s.cells = nil
	s.data = nil
	s.used = 0
}

// removeManual unlinks s from the manual stack. Searched from the top:
// frees almost always target recent allocations.
func (t *Tracker) removeManual(s *Series) {
	for i := len(t.manuals) - 1; i >= 0; i-- {
		if t.manuals[i] == s {
			t.manuals = append(t.manuals[:i], t.manuals[i+1:]...)
			return
		}
	}
	panic("Tracker: series not in manual set")
}

// ManualCount returns the number of outstanding manual series.
func (t *Tracker) ManualCount() int { return len(t.manuals) }

// ManagedCount returns the number of collector-owned series.
func (t *Tracker) ManagedCount() int { return len(t.managed) }

// truncateManuals frees every manual series allocated after the stack
// held depth entries. Used only by the error unwind.
func (t *Tracker) truncateManuals(depth int) {
	for len(t.manuals) > depth {
		s := t.manuals[len(t.manuals)-1]
		t.manuals = t.manuals[:len(t.manuals)-1]
		s.flags |= flagFreed
		s.cells = nil
		s.data = nil
		s.used = 0
	}
}

// ---------------------------------------------------------------------------
// Series allocation
// ---------------------------------------------------------------------------

// MakeSeries allocates a byte-oriented series with room for capacity
// units. The result is manual: the caller must Manage or Free it.
func (rt *Runtime) MakeSeries(capacity int) *Series {
	if capacity < minSeriesRest-1 {
		capacity = minSeriesRest - 1
	}
	s := &Series{
		wide: 1,
		data: make([]byte, 1, capacity+1),
	}
	s.terminate()
	rt.tracker.add(s)
	return s
}

// MakeArray allocates a cell-array series with room for capacity cells.
// The result is manual: the caller must Manage or Free it.
func (rt *Runtime) MakeArray(capacity int) *Series {
	if capacity < minSeriesRest-1 {
		capacity = minSeriesRest - 1
	}
	s := &Series{
		wide:  cellWide,
		flags: flagArray,
		cells: make([]Cell, 1, capacity+1),
	}
	s.terminate()
	rt.tracker.add(s)
	return s
}

// Manage promotes a series to collector ownership.
func (rt *Runtime) Manage(s *Series) { rt.tracker.Manage(s) }

// Free releases a manual series.
func (rt *Runtime) Free(s *Series) { rt.tracker.Free(s) }

// ---------------------------------------------------------------------------
// Guard stack
// ---------------------------------------------------------------------------

// PushGuard pins a series against collection while native code holds it
// only through a raw reference during a sub-evaluation. Guards follow a
// strict stack discipline: every PushGuard needs a matching DropGuard on
// all success paths; the failure path is restored by the trap unwind.
func (rt *Runtime) PushGuard(s *Series) {
	rt.guards = append(rt.guards, s)
}

// DropGuard removes the most recent guard. Panics on mismatch.
func (rt *Runtime) DropGuard(s *Series) {
	n := len(rt.guards)
	if n == 0 || rt.guards[n-1] != s {
		panic("Runtime.DropGuard: guard stack mismatch")
	}
	rt.guards = rt.guards[:n-1]
}

// GuardDepth returns the current guard stack depth.
func (rt *Runtime) GuardDepth() int { return len(rt.guards) }

// ---------------------------------------------------------------------------
// Collector
// ---------------------------------------------------------------------------

// CollectStats reports one collection pass.
type CollectStats struct {
	Marked   int
	Swept    int
	Duration time.Duration
	When     time.Time
}

// Collect runs a mark/sweep pass over the managed set. Roots are the
// root context, the live frame stack, the guard stack, and the operand
// stack. Manual series are never swept; they are owned elsewhere.
func (rt *Runtime) Collect() CollectStats {
	start := time.Now()
	stats := CollectStats{When: start}

	// Mark phase
	if rt.root != nil {
		rt.markSeries(rt.root.varlist, &stats)
	}
	for f := rt.topFrame; f != nil; f = f.prior {
		if f.varlist != nil {
			rt.markSeries(f.varlist.varlist, &stats)
		}
		if f.source != nil {
			rt.markSeries(f.source, &stats)
		}
	}
	for _, g := range rt.guards {
		rt.markSeries(g, &stats)
	}
	for i := range rt.stack {
		rt.markCell(&rt.stack[i], &stats)
	}
	// Manual series may hold references into the managed heap.
	for _, m := range rt.tracker.manuals {
		rt.markSeries(m, &stats)
	}

	// Sweep phase
	for s := range rt.tracker.managed {
		if s.flags&flagGCMark == 0 {
			delete(rt.tracker.managed, s)
			s.flags |= flagFreed
			s.cells = nil
			s.data = nil
			s.used = 0
			stats.Swept++
		} else {
			s.flags &^= flagGCMark
		}
	}
	for _, m := range rt.tracker.manuals {
		rt.unmarkSeries(m)
	}

	stats.Duration = time.Since(start)
	rt.log.Debugf("collect: marked %d, swept %d in %s",
		stats.Marked, stats.Swept, stats.Duration)
	return stats
}

func (rt *Runtime) markSeries(s *Series, stats *CollectStats) {
	if s == nil || s.flags&flagGCMark != 0 {
		return
	}
	s.flags |= flagGCMark
	stats.Marked++
	if !s.IsArray() {
		return
	}
	for i := 0; i <= s.used; i++ {
		rt.markCell(&s.cells[s.bias+i], stats)
	}
	if o, ok := s.owner.(*Action); ok && o.body != nil {
		rt.markSeries(o.body, stats)
	}
}

func (rt *Runtime) markCell(c *Cell, stats *CollectStats) {
	if n := c.Node(); n != nil {
		rt.markSeries(n, stats)
	}
	if b := c.Binding(); b != nil {
		rt.markSeries(b, stats)
	}
}

// unmarkSeries clears mark bits below a manual root after the sweep.
func (rt *Runtime) unmarkSeries(s *Series) {
	if s == nil || s.flags&flagGCMark == 0 {
		return
	}
	s.flags &^= flagGCMark
	if !s.IsArray() {
		return
	}
	for i := 0; i <= s.used; i++ {
		c := &s.cells[s.bias+i]
		if n := c.Node(); n != nil {
			rt.unmarkSeries(n)
		}
		if b := c.Binding(); b != nil {
			rt.unmarkSeries(b)
		}
	}
	if o, ok := s.owner.(*Action); ok {
		rt.unmarkSeries(o.body)
	}
}
