package core

import "testing"

func TestContextKeyOrderMatters(t *testing.T) {
	rt := newTestRuntime()

	mk := func(first, second string) Cell {
		ctx := rt.MakeContext(KindObject, 2)
		*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern(first))) = IntegerCell(1)
		*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern(second))) = IntegerCell(2)
		rt.Manage(ctx.Varlist())
		return ctx.Archetype()
	}
	ab := mk("a", "b")
	ba := mk("b", "a")
	if rt.EqualValues(&ab, &ba) {
		t.Error("contexts with reordered keys must not be equal")
	}
	ab2 := mk("a", "b")
	if !rt.EqualValues(&ab, &ab2) {
		t.Error("structurally identical contexts must be equal")
	}
}

func TestCopyContextSharesKeylist(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindObject, 2)
	ctx.AppendKey(rt.Symbols.Intern("x"))
	rt.Manage(ctx.Varlist())

	shared := rt.CopyContext(ctx, 0)
	rt.Manage(shared.Varlist())
	if shared.keylist != ctx.keylist {
		t.Fatal("copy with extra=0 must share the keylist")
	}
	if !ctx.keylist.Shared() {
		t.Error("shared keylist refcount not bumped")
	}

	// Divergent mutation forces a private copy; the original is untouched.
	shared.AppendKey(rt.Symbols.Intern("y"))
	if shared.keylist == ctx.keylist {
		t.Fatal("expansion must not mutate a shared keylist")
	}
	if ctx.Len() != 1 {
		t.Errorf("original grew to %d keys", ctx.Len())
	}
	if ctx.keylist.Shared() {
		t.Error("original refcount not released by copy-on-write")
	}
}

func TestCopyContextWithExtraIsPrivate(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindObject, 1)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("x"))) = IntegerCell(9)
	rt.Manage(ctx.Varlist())

	dup := rt.CopyContext(ctx, 4)
	rt.Manage(dup.Varlist())
	if dup.keylist == ctx.keylist {
		t.Fatal("copy with extra>0 must own its keylist")
	}
	if dup.VarAt(1).Integer() != 9 {
		t.Error("values not copied")
	}
	// Writes are independent.
	*dup.VarAt(1) = IntegerCell(10)
	if ctx.VarAt(1).Integer() != 9 {
		t.Error("copy aliases original varlist")
	}
}

func TestProtectedKeyRejectsAssignment(t *testing.T) {
	rt := newTestRuntime()
	w := setWord(rt, "locked")
	val, errObj := rt.TrapCell(func() Cell {
		body := blockOf(rt, w, IntegerCell(1))
		return rt.DoBlock(&body)
	})
	if errObj != nil {
		t.Fatalf("setup failed: %s", rt.ErrorMessage(errObj))
	}
	if val.Integer() != 1 {
		t.Fatalf("set-word returned %v", val)
	}

	idx := rt.root.FindKey(rt.Symbols.Intern("locked"))
	rt.root.SetKeyFlags(idx, KeyProtected)

	errObj = rt.Trap(func() {
		body := blockOf(rt, w, IntegerCell(2))
		rt.DoBlock(&body)
	})
	if errObj == nil {
		t.Fatal("assignment through protected key should fail")
	}
	if rt.ErrorID(errObj) != string(IDProtectedWord) {
		t.Errorf("error id = %s, want protected-word", rt.ErrorID(errObj))
	}
	if rt.root.VarAt(idx).Integer() != 1 {
		t.Error("protected slot was overwritten")
	}
}

func TestHiddenKeyInvisible(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindObject, 2)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("visible"))) = IntegerCell(1)
	hidx := ctx.AppendKey(rt.Symbols.Intern("secret"))
	*ctx.VarAt(hidx) = IntegerCell(2)
	ctx.SetKeyFlags(hidx, KeyHidden)
	rt.Manage(ctx.Varlist())
	obj := ctx.Archetype()

	words := rt.Apply(rt.symWordsOf, &obj, nil)
	if words.Series().Len() != 1 {
		t.Errorf("words-of returned %d keys, want 1", words.Series().Len())
	}

	err := rt.Trap(func() {
		rt.PickValue(obj, word(rt, "secret"))
	})
	if err == nil {
		t.Fatal("picking a hidden field should fail")
	}
	if rt.ErrorID(err) != string(IDHidden) {
		t.Errorf("error id = %s, want hidden", rt.ErrorID(err))
	}
}

func TestInvalidatedContextReadsFail(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindFrame, 1)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("arg"))) = IntegerCell(1)
	rt.Manage(ctx.Varlist())
	ctx.Invalidate()

	w := word(rt, "arg")
	w.SetBinding(ctx.Varlist())
	err := rt.Trap(func() { rt.GetWord(&w) })
	if err == nil {
		t.Fatal("read through expired context should fail")
	}
	if rt.ErrorID(err) != string(IDInaccessible) {
		t.Errorf("error id = %s, want inaccessible", rt.ErrorID(err))
	}
}

func TestMakeObjectFromBlock(t *testing.T) {
	rt := newTestRuntime()
	spec := blockOf(rt,
		setWord(rt, "a"), IntegerCell(1),
		setWord(rt, "b"), word(rt, "a"))

	out, errObj := rt.TrapCell(func() Cell {
		return rt.MakeValue(KindObject, &spec)
	})
	if errObj != nil {
		t.Fatalf("make object! failed: %s", rt.ErrorMessage(errObj))
	}
	ctx := out.Context()
	if ctx.Len() != 2 {
		t.Fatalf("object has %d keys, want 2", ctx.Len())
	}
	// b: a sees the already-collected a.
	if ctx.VarAt(2).Integer() != 1 {
		t.Errorf("b = %v, want 1", ctx.VarAt(2))
	}
}
