package core

import "testing"

func pathOf(rt *Runtime, kind Kind, elems ...Cell) Cell {
	s := rt.MakeArray(len(elems))
	for _, e := range elems {
		s.AppendCell(e)
	}
	rt.Manage(s)
	return SeriesCell(kind, s, 0)
}

func groupOf(rt *Runtime, elems ...Cell) Cell {
	return pathOf(rt, KindGroup, elems...)
}

func bindRootWord(rt *Runtime, name string, val Cell) Cell {
	w := WordCell(KindSetWord, rt.Symbols.Intern(name))
	rt.SetWordValue(&w, val)
	return word(rt, name)
}

func TestGetPathThroughObjectAndBlock(t *testing.T) {
	rt := newTestRuntime()

	inner := blockOf(rt, IntegerCell(10), IntegerCell(20), IntegerCell(30))
	ctx := rt.MakeContext(KindObject, 1)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("items"))) = inner
	rt.Manage(ctx.Varlist())
	bindRootWord(rt, "obj", ctx.Archetype())

	p := pathOf(rt, KindPath, word(rt, "obj"), word(rt, "items"), IntegerCell(2))
	out, errObj := rt.TrapCell(func() Cell { return rt.GetPath(&p) })
	if errObj != nil {
		t.Fatalf("get-path failed: %s", rt.ErrorMessage(errObj))
	}
	if out.Integer() != 20 {
		t.Errorf("obj/items/2 = %v, want 20", out)
	}
}

func TestSetPathWritesBack(t *testing.T) {
	rt := newTestRuntime()

	inner := blockOf(rt, IntegerCell(1), IntegerCell(2))
	bindRootWord(rt, "blk", inner)

	p := pathOf(rt, KindPath, word(rt, "blk"), IntegerCell(2))
	errObj := rt.Trap(func() { rt.SetPath(&p, IntegerCell(99)) })
	if errObj != nil {
		t.Fatalf("set-path failed: %s", rt.ErrorMessage(errObj))
	}
	if inner.Series().At(1).Integer() != 99 {
		t.Error("set-path did not reach the backing series")
	}
}

func TestSetPathIntoFrozenSeriesFails(t *testing.T) {
	rt := newTestRuntime()

	inner := blockOf(rt, IntegerCell(1))
	inner.Series().FreezeShallow()
	bindRootWord(rt, "frozen-blk", inner)

	p := pathOf(rt, KindPath, word(rt, "frozen-blk"), IntegerCell(1))
	errObj := rt.Trap(func() { rt.SetPath(&p, IntegerCell(2)) })
	if errObj == nil {
		t.Fatal("set-path into frozen series should fail")
	}
	if rt.ErrorID(errObj) != string(IDSeriesFrozen) {
		t.Errorf("error id = %s, want series-frozen", rt.ErrorID(errObj))
	}
	if inner.Series().At(0).Integer() != 1 {
		t.Error("frozen series mutated")
	}
}

func TestPathBlankIntermediateFails(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindObject, 1)
	ctx.AppendKey(rt.Symbols.Intern("hole")) // blank value
	rt.Manage(ctx.Varlist())
	bindRootWord(rt, "holder", ctx.Archetype())

	p := pathOf(rt, KindPath,
		word(rt, "holder"), word(rt, "hole"), IntegerCell(1))
	errObj := rt.Trap(func() { rt.GetPath(&p) })
	if errObj == nil {
		t.Fatal("picking through blank should fail")
	}
	if rt.ErrorID(errObj) != string(IDPickPastNull) {
		t.Errorf("error id = %s, want pick-past-null", rt.ErrorID(errObj))
	}
}

func TestGetPathRejectsGroups(t *testing.T) {
	rt := newTestRuntime()
	inner := blockOf(rt, IntegerCell(1))
	bindRootWord(rt, "gblk", inner)

	grp := groupOf(rt, IntegerCell(1)) // (1)
	p := pathOf(rt, KindPath, word(rt, "gblk"), grp)

	errObj := rt.Trap(func() { rt.GetPath(&p) })
	if errObj == nil {
		t.Fatal("plain GET through a group segment should fail")
	}
	if rt.ErrorID(errObj) != string(IDGroupForbidden) {
		t.Errorf("error id = %s, want group-forbidden", rt.ErrorID(errObj))
	}

	// The evaluator's opt-in entry point runs the group.
	out, errObj := rt.TrapCell(func() Cell { return rt.EvalPath(&p) })
	if errObj != nil {
		t.Fatalf("eval-path failed: %s", rt.ErrorMessage(errObj))
	}
	if out.Integer() != 1 {
		t.Errorf("gblk/(1) = %v, want 1", out)
	}
}

func TestPathGroupEffectsLeftToRight(t *testing.T) {
	rt := newTestRuntime()
	inner := blockOf(rt,
		blockOf(rt, IntegerCell(7)),
		blockOf(rt, IntegerCell(8)))
	bindRootWord(rt, "grid", inner)
	bindRootWord(rt, "n", IntegerCell(0))

	// grid/(n: add n 1)/(n: add n 1) reads grid/1/1: both groups run,
	// in order, each seeing the prior one's side effect.
	g1 := groupOf(rt, setWord(rt, "n"), word(rt, "add"), word(rt, "n"), IntegerCell(1))
	g2 := groupOf(rt, setWord(rt, "n"), word(rt, "add"), word(rt, "n"), IntegerCell(-1))

	p := pathOf(rt, KindPath, word(rt, "grid"), g1, g2)
	_, errObj := rt.TrapCell(func() Cell { return rt.EvalPath(&p) })
	if errObj == nil {
		t.Fatal("grid/1/0 should fail on the zero pick")
	}
	// n ended at 0: 0+1 then 1-1, proving both groups ran in order.
	n := rt.root.VarAt(rt.root.FindKey(rt.Symbols.Intern("n")))
	if n.Integer() != 0 {
		t.Errorf("n = %v after group side effects, want 0", n)
	}
}

func TestPokeTemporaryImmediateFails(t *testing.T) {
	rt := newTestRuntime()
	txt := rt.textCell("abc")

	// Byte picks answer plain values; a poke through one has no slot to
	// write back into only when the hook declines the set. Text pokes
	// in place, so this succeeds.
	errObj := rt.Trap(func() {
		rt.PokeValue(txt, IntegerCell(2), IntegerCell(66))
	})
	if errObj != nil {
		t.Fatalf("text poke failed: %s", rt.ErrorMessage(errObj))
	}
	if txt.Series().Bytes()[1] != 66 {
		t.Error("text poke did not update buffer")
	}

	// Poking a byte value out of range is a set error.
	errObj = rt.Trap(func() {
		rt.PokeValue(txt, IntegerCell(1), IntegerCell(999))
	})
	if errObj == nil {
		t.Fatal("expected bad-path-set for out-of-range byte")
	}
}

func TestActionPathRefinementsDeclarationOrder(t *testing.T) {
	rt := newTestRuntime()

	var sawOrder []string
	params := []Param{
		{Sym: rt.Symbols.Intern("value")},
		{Sym: rt.Symbols.Intern("alpha"), Refinement: true},
		{Sym: rt.Symbols.Intern("beta"), Refinement: true},
	}
	fn := rt.MakeNative("spy-refines", params, func(rt *Runtime, f *Frame) Cell {
		sawOrder = nil
		for _, p := range f.action.params {
			if p.Refinement && f.HasRefinement(p.Sym) {
				sawOrder = append(sawOrder, rt.Symbols.Name(p.Sym))
			}
		}
		return *f.Arg(0)
	})
	w := WordCell(KindSetWord, rt.Symbols.Intern("spy-refines"))
	rt.SetWordValue(&w, fn)

	// Request in reverse discovery order: beta first, then alpha.
	p := pathOf(rt, KindPath,
		word(rt, "spy-refines"), word(rt, "beta"), word(rt, "alpha"))
	body := rt.MakeArray(2)
	body.AppendCell(p)
	body.AppendCell(IntegerCell(5))
	rt.Manage(body)
	blk := SeriesCell(KindBlock, body, 0)

	out, errObj := rt.TrapCell(func() Cell { return rt.DoBlock(&blk) })
	if errObj != nil {
		t.Fatalf("refined call failed: %s", rt.ErrorMessage(errObj))
	}
	if out.Integer() != 5 {
		t.Errorf("out = %v, want 5", out)
	}
	if len(sawOrder) != 2 || sawOrder[0] != "alpha" || sawOrder[1] != "beta" {
		t.Errorf("refinements seen as %v, want [alpha beta]", sawOrder)
	}

	spec := rt.Specialize(fn.Action(), []Symbol{
		rt.Symbols.Intern("beta"), rt.Symbols.Intern("alpha"),
	})
	partial := spec.Action().Partial()
	if len(partial) != 2 ||
		rt.Symbols.Name(partial[0]) != "alpha" ||
		rt.Symbols.Name(partial[1]) != "beta" {
		t.Errorf("partial order = %v, want declaration order", partial)
	}
}

func TestActionPathRejectsUnknownRefinement(t *testing.T) {
	rt := newTestRuntime()
	fn := rt.MakeNative("noref", []Param{{Sym: rt.Symbols.Intern("x")}},
		func(rt *Runtime, f *Frame) Cell { return *f.Arg(0) })
	w := WordCell(KindSetWord, rt.Symbols.Intern("noref"))
	rt.SetWordValue(&w, fn)

	p := pathOf(rt, KindPath, word(rt, "noref"), word(rt, "bogus"))
	errObj := rt.Trap(func() { rt.EvalPath(&p) })
	if errObj == nil {
		t.Fatal("unknown refinement should fail")
	}
	if rt.ErrorID(errObj) != string(IDBadRefine) {
		t.Errorf("error id = %s, want bad-refine", rt.ErrorID(errObj))
	}
}

func TestSetPathOnActionFails(t *testing.T) {
	rt := newTestRuntime()
	fn := rt.MakeNative("setp", []Param{{Sym: rt.Symbols.Intern("x")}},
		func(rt *Runtime, f *Frame) Cell { return *f.Arg(0) })
	w := WordCell(KindSetWord, rt.Symbols.Intern("setp"))
	rt.SetWordValue(&w, fn)

	p := pathOf(rt, KindSetPath, word(rt, "setp"), word(rt, "x"))
	errObj := rt.Trap(func() { rt.SetPath(&p, IntegerCell(1)) })
	if errObj == nil {
		t.Fatal("set-path on an action should fail")
	}
	if rt.ErrorID(errObj) != string(IDBadPathSet) {
		t.Errorf("error id = %s, want bad-path-set", rt.ErrorID(errObj))
	}
}

func TestSingleWordPathComparesAsWord(t *testing.T) {
	rt := newTestRuntime()
	p := pathOf(rt, KindPath, word(rt, "alpha"))
	w := word(rt, "alpha")

	if !rt.EqualValues(&p, &w) {
		t.Error("single-word path should equal its word")
	}
	if !rt.EqualValues(&w, &p) {
		t.Error("word should equal the single-word path of itself")
	}

	other := word(rt, "beta")
	if rt.EqualValues(&p, &other) {
		t.Error("path alpha equals word beta")
	}

	long := pathOf(rt, KindPath, word(rt, "alpha"), word(rt, "beta"))
	if rt.EqualValues(&long, &w) {
		t.Error("multi-element path equals a bare word")
	}
	if c := rt.CompareValues(&long, &w, false); c <= 0 {
		t.Errorf("long path vs word = %d, want > 0", c)
	}
	if c := rt.CompareValues(&w, &long, false); c >= 0 {
		t.Errorf("word vs long path = %d, want < 0", c)
	}
}

// packedSlotHook serves handle! values that pack a small payload in the
// cell itself: picking reads the packed slot, setting updates the proxy
// cell and asks the walker to write it back through the outer slot.
func packedSlotHook(rt *Runtime, step *PathStep) PathResult {
	if step.Picker.Kind() != KindInteger {
		return PathResult{Kind: PathUnhandled}
	}
	if step.SetVal != nil {
		if step.SetVal.Kind() != KindInteger {
			return PathResult{Kind: PathUnhandled}
		}
		step.Value.index = int32(step.SetVal.Integer())
		return PathResult{Kind: PathWriteBack}
	}
	return PathResult{Kind: PathValue, Value: IntegerCell(int64(step.Value.index))}
}

func TestSetPathWriteBackFlowsThroughReference(t *testing.T) {
	rt := newTestRuntime()
	rt.dispatch[KindHandle].Path = packedSlotHook

	h := rt.MakeHandle("packed")
	bindRootWord(rt, "box", h)

	p := pathOf(rt, KindSetPath, word(rt, "box"), IntegerCell(1))
	errObj := rt.Trap(func() { rt.SetPath(&p, IntegerCell(42)) })
	if errObj != nil {
		t.Fatalf("write-back set failed: %s", rt.ErrorMessage(errObj))
	}

	slot := rt.root.VarAt(rt.root.FindKey(rt.Symbols.Intern("box")))
	if slot.index != 42 {
		t.Errorf("packed slot = %d after write-back, want 42", slot.index)
	}
	if slot.node != h.node {
		t.Error("write-back replaced the handle node")
	}

	gp := pathOf(rt, KindPath, word(rt, "box"), IntegerCell(1))
	out, errObj := rt.TrapCell(func() Cell { return rt.GetPath(&gp) })
	if errObj != nil {
		t.Fatalf("get after write-back failed: %s", rt.ErrorMessage(errObj))
	}
	if out.Integer() != 42 {
		t.Errorf("box/1 = %v, want 42", out)
	}

	// A seed with no variable behind it has nowhere to flow the proxy.
	direct := pathOf(rt, KindSetPath, h, IntegerCell(1))
	errObj = rt.Trap(func() { rt.SetPath(&direct, IntegerCell(9)) })
	if errObj == nil {
		t.Fatal("write-back into a temporary seed should fail")
	}
	if rt.ErrorID(errObj) != string(IDBadPickTemp) {
		t.Errorf("error id = %s, want bad-pick-temp", rt.ErrorID(errObj))
	}
}

func TestPokeWriteBackWithoutSlotFails(t *testing.T) {
	rt := newTestRuntime()
	rt.dispatch[KindHandle].Path = packedSlotHook

	h := rt.MakeHandle("packed")
	errObj := rt.Trap(func() { rt.PokeValue(h, IntegerCell(1), IntegerCell(7)) })
	if errObj == nil {
		t.Fatal("lone poke through a packing hook should fail")
	}
	if rt.ErrorID(errObj) != string(IDBadPickTemp) {
		t.Errorf("error id = %s, want bad-pick-temp", rt.ErrorID(errObj))
	}
}

func TestQuotedIntermediateShedsQuotes(t *testing.T) {
	rt := newTestRuntime()
	inner := blockOf(rt, IntegerCell(11))
	quoted := Quotify(inner, 2)
	bindRootWord(rt, "qblk", quoted)

	p := pathOf(rt, KindPath, word(rt, "qblk"), IntegerCell(1))
	out, errObj := rt.TrapCell(func() Cell { return rt.GetPath(&p) })
	if errObj != nil {
		t.Fatalf("get-path through quoted block failed: %s", rt.ErrorMessage(errObj))
	}
	if out.Integer() != 11 {
		t.Errorf("qblk/1 = %v, want 11", out)
	}
}
