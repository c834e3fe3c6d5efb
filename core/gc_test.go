package core

import "testing"

func TestManageIsIdempotentAndOneWay(t *testing.T) {
	rt := newTestRuntime()
	before := rt.ManagedCount()

	s := rt.MakeArray(4)
	if s.IsManaged() {
		t.Fatal("fresh series must be manual")
	}
	rt.Manage(s)
	rt.Manage(s) // no-op
	if rt.ManagedCount() != before+1 {
		t.Errorf("ManagedCount = %d, want %d", rt.ManagedCount(), before+1)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("freeing a managed series must panic")
		}
	}()
	rt.Free(s)
}

func TestDoubleFreePanics(t *testing.T) {
	rt := newTestRuntime()
	s := rt.MakeSeries(4)
	rt.Free(s)
	defer func() {
		if recover() == nil {
			t.Fatal("double free must panic")
		}
	}()
	rt.Free(s)
}

func TestCollectSweepsUnreachable(t *testing.T) {
	rt := newTestRuntime()

	// Reachable: bound into the root context.
	kept := rt.MakeArray(2)
	kept.AppendCell(IntegerCell(1))
	rt.Manage(kept)
	keptCell := SeriesCell(KindBlock, kept, 0)
	w := word(rt, "kept")
	rt.SetWordValue(&w, keptCell)

	// Unreachable: managed but referenced by nothing.
	lost := rt.MakeArray(2)
	rt.Manage(lost)

	stats := rt.Collect()
	if stats.Swept < 1 {
		t.Errorf("Swept = %d, want at least 1", stats.Swept)
	}
	if lost.flags&flagFreed == 0 {
		t.Error("unreachable series not swept")
	}
	if kept.flags&flagFreed != 0 {
		t.Error("reachable series swept")
	}
	if kept.flags&flagGCMark != 0 {
		t.Error("mark bit leaked past collection")
	}
}

func TestCollectRootsGuardsAndStack(t *testing.T) {
	rt := newTestRuntime()

	guarded := rt.MakeArray(2)
	rt.Manage(guarded)
	rt.PushGuard(guarded)

	stacked := rt.MakeArray(2)
	rt.Manage(stacked)
	rt.stack = append(rt.stack, SeriesCell(KindBlock, stacked, 0))

	rt.Collect()
	if guarded.flags&flagFreed != 0 {
		t.Error("guarded series swept")
	}
	if stacked.flags&flagFreed != 0 {
		t.Error("operand stack series swept")
	}

	rt.stack = rt.stack[:len(rt.stack)-1]
	rt.DropGuard(guarded)
	rt.Collect()
	if guarded.flags&flagFreed == 0 {
		t.Error("dropped guard should leave series collectable")
	}
}

func TestCollectFollowsManualReferences(t *testing.T) {
	rt := newTestRuntime()

	inner := rt.MakeArray(2)
	rt.Manage(inner)
	outer := rt.MakeArray(2) // stays manual
	outer.AppendCell(SeriesCell(KindBlock, inner, 0))
	defer rt.Free(outer)

	rt.Collect()
	if inner.flags&flagFreed != 0 {
		t.Error("series reachable only through a manual series was swept")
	}
}

func TestGuardMismatchPanics(t *testing.T) {
	rt := newTestRuntime()
	a := rt.MakeArray(2)
	b := rt.MakeArray(2)
	defer rt.Free(b)
	defer rt.Free(a)
	rt.PushGuard(a)
	defer rt.DropGuard(a)
	defer func() {
		if recover() == nil {
			t.Fatal("out-of-order DropGuard must panic")
		}
	}()
	rt.DropGuard(b)
}
