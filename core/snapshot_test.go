package core

import (
	"bytes"
	"testing"
)

func TestSnapshotRoundTripBlock(t *testing.T) {
	rt := newTestRuntime()
	inner := blockOf(rt, IntegerCell(2), rt.textCell("deep"))
	root := blockOf(rt,
		IntegerCell(1),
		Quotify(word(rt, "sym"), 1),
		inner)

	image, err := rt.Snapshot(&root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Restore into a fresh runtime with different interning history.
	rt2 := newTestRuntime()
	rt2.Symbols.Intern("skew-the-ids")
	back, err := rt2.Restore(image)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := rt2.Mold(&back); got != `[1 'sym [2 "deep"]]` {
		t.Errorf("restored mold = %q", got)
	}
	if !back.Series().IsManaged() {
		t.Error("restored series not managed")
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	rt := newTestRuntime()
	root := blockOf(rt, IntegerCell(1), word(rt, "a"), rt.textCell("x"))

	img1, err := rt.Snapshot(&root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	img2, err := rt.Snapshot(&root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !bytes.Equal(img1, img2) {
		t.Error("identical graphs produced different images")
	}
	if SnapshotDigest(img1) != SnapshotDigest(img2) {
		t.Error("digests differ for equal images")
	}
}

func TestSnapshotSharedNodeOnce(t *testing.T) {
	rt := newTestRuntime()
	shared := blockOf(rt, IntegerCell(9))
	root := blockOf(rt, shared, shared)

	image, err := rt.Snapshot(&root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	rt2 := newTestRuntime()
	back, err := rt2.Restore(image)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	s := back.Series()
	if s.At(0).Series() != s.At(1).Series() {
		t.Error("shared node duplicated across restore")
	}
}

func TestSnapshotObjectAndMap(t *testing.T) {
	rt := newTestRuntime()

	ctx := rt.MakeContext(KindObject, 2)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("n"))) = IntegerCell(5)
	prot := ctx.AppendKey(rt.Symbols.Intern("locked"))
	ctx.SetKeyFlags(prot, KeyProtected)
	rt.Manage(ctx.Varlist())

	mc := rt.MakeMap(4)
	rt.MapInsert(mc.Map(), word(rt, "k"), IntegerCell(7))

	root := blockOf(rt, ctx.Archetype(), mc)
	image, err := rt.Snapshot(&root)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	rt2 := newTestRuntime()
	back, err := rt2.Restore(image)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	obj := back.Series().At(0)
	rctx := obj.Context()
	if rctx.Kind() != KindObject || rctx.Len() != 2 {
		t.Fatalf("restored context shape: kind=%v len=%d", rctx.Kind(), rctx.Len())
	}
	if rctx.VarAt(1).Integer() != 5 {
		t.Errorf("restored n = %v", rctx.VarAt(1))
	}
	if rctx.KeyAt(2).Flags&KeyProtected == 0 {
		t.Error("key protection lost across snapshot")
	}

	rmap := back.Series().At(1)
	k := word(rt2, "k")
	v := rt2.MapFind(rmap.Map(), &k)
	if v == nil || v.Integer() != 7 {
		t.Errorf("restored map lookup = %v, want 7", v)
	}
}

func TestSnapshotMapDropsZombies(t *testing.T) {
	rt := newTestRuntime()
	mc := rt.MakeMap(4)
	m := mc.Map()
	rt.MapInsert(m, word(rt, "keep"), IntegerCell(1))
	rt.MapInsert(m, word(rt, "gone"), IntegerCell(2))
	k := word(rt, "gone")
	rt.MapRemove(m, &k)

	image, err := rt.Snapshot(&mc)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	rt2 := newTestRuntime()
	back, err := rt2.Restore(image)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	rm := back.Map()
	if rm.Len() != 1 {
		t.Errorf("restored len = %d, want 1", rm.Len())
	}
	keep := word(rt2, "keep")
	if v := rt2.MapFind(rm, &keep); v == nil || v.Integer() != 1 {
		t.Errorf("keep = %v, want 1", v)
	}
	gone := word(rt2, "gone")
	if rt2.MapFind(rm, &gone) != nil {
		t.Error("removed key survived the snapshot")
	}
}

func TestSnapshotFuncRoundTrip(t *testing.T) {
	rt := newTestRuntime()
	evalBlock(t, rt,
		setWord(rt, "triple"),
		word(rt, "func"),
		Quotify(blockOf(rt, word(rt, "n")), 1),
		Quotify(blockOf(rt,
			word(rt, "add"), word(rt, "n"),
			word(rt, "add"), word(rt, "n"), word(rt, "n")), 1))

	fnIdx := rt.root.FindKey(rt.Symbols.Intern("triple"))
	fn := *rt.root.VarAt(fnIdx)
	image, err := rt.Snapshot(&fn)
	if err != nil {
		t.Fatalf("snapshot func: %v", err)
	}

	rt2 := newTestRuntime()
	back, err := rt2.Restore(image)
	if err != nil {
		t.Fatalf("restore func: %v", err)
	}
	w := WordCell(KindSetWord, rt2.Symbols.Intern("triple"))
	rt2.SetWordValue(&w, back)

	out := evalBlock(t, rt2, word(rt2, "triple"), IntegerCell(4))
	if out.Integer() != 12 {
		t.Errorf("restored triple 4 = %v, want 12", out)
	}
}

func TestRestoreFailureFreesAllocations(t *testing.T) {
	rt := newTestRuntime()

	// A well-formed document whose first series decodes to an invalid
	// cell: allocation succeeds in pass 1, filling fails in pass 2.
	img := wireImage{
		Format:  snapshotFormat,
		Symbols: map[uint64]string{},
		Series: []wireSeries{
			{Array: true, Cells: []wireCell{{Kind: 255}}},
			{Bytes: []byte("orphan")},
		},
		Root: wireCell{Kind: byte(KindBlank)},
	}
	image, err := cborEncMode.Marshal(&img)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	before := rt.tracker.ManualCount()
	managed := rt.tracker.ManagedCount()
	if _, err := rt.Restore(image); err == nil {
		t.Fatal("restore of corrupt image succeeded")
	}
	if after := rt.tracker.ManualCount(); after != before {
		t.Errorf("manual count = %d after failed restore, want %d", after, before)
	}
	if rt.tracker.ManagedCount() != managed {
		t.Errorf("managed count changed across failed restore")
	}
}

func TestSnapshotRejectsNatives(t *testing.T) {
	rt := newTestRuntime()
	addIdx := rt.root.FindKey(rt.symAdd)
	native := *rt.root.VarAt(addIdx)
	if _, err := rt.Snapshot(&native); err == nil {
		t.Fatal("native action snapshotted")
	}

	h := rt.MakeHandle(42)
	if _, err := rt.Snapshot(&h); err == nil {
		t.Fatal("handle snapshotted")
	}
}
