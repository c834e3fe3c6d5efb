package core

import "testing"

func TestMoldValues(t *testing.T) {
	rt := newTestRuntime()

	inner := blockOf(rt, IntegerCell(1), word(rt, "two"))
	bin := rt.MakeSeries(3)
	bin.AppendBytes([]byte{0xDE, 0xAD, 0x0F})
	rt.Manage(bin)

	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"blank", Blank(), "_"},
		{"true", LogicCell(true), "true"},
		{"integer", IntegerCell(-7), "-7"},
		{"decimal", DecimalCell(1.5), "1.5"},
		{"word", word(rt, "hello"), "hello"},
		{"set-word", setWord(rt, "hello"), "hello:"},
		{"get-word", WordCell(KindGetWord, rt.Symbols.Intern("hello")), ":hello"},
		{"text", rt.textCell("hi"), `"hi"`},
		{"block", inner, "[1 two]"},
		{"quoted block", Quotify(inner, 2), "''[1 two]"},
		{"path", pathOf(rt, KindPath, word(rt, "a"), word(rt, "b")), "a/b"},
		{"set-path", pathOf(rt, KindSetPath, word(rt, "a"), word(rt, "b")), "a/b:"},
		{"get-path", pathOf(rt, KindGetPath, word(rt, "a"), word(rt, "b")), ":a/b"},
		{"group", groupOf(rt, IntegerCell(3)), "(3)"},
	}
	for _, tt := range tests {
		if got := rt.Mold(&tt.cell); got != tt.want {
			t.Errorf("%s: mold = %q, want %q", tt.name, got, tt.want)
		}
	}

	bc := SeriesCell(KindBinary, bin, 0)
	if got := rt.Mold(&bc); got != "#{DEAD0F}" {
		t.Errorf("binary mold = %q", got)
	}
}

func TestFormDropsDelimiters(t *testing.T) {
	rt := newTestRuntime()
	txt := rt.textCell("plain")
	if got := rt.Form(&txt); got != "plain" {
		t.Errorf("form text = %q", got)
	}
	blk := blockOf(rt, IntegerCell(1), IntegerCell(2))
	if got := rt.Form(&blk); got != "1 2" {
		t.Errorf("form block = %q", got)
	}
}

func TestMoldCyclicBlock(t *testing.T) {
	rt := newTestRuntime()
	s := rt.MakeArray(2)
	rt.Manage(s)
	s.AppendCell(IntegerCell(1))
	s.AppendCell(SeriesCell(KindBlock, s, 0))

	cell := SeriesCell(KindBlock, s, 0)
	got := rt.Mold(&cell)
	if got != "[1 [...]]" {
		t.Errorf("cyclic mold = %q", got)
	}
	if s.IsBlack() {
		t.Error("transient mark leaked after mold")
	}
}

func TestMoldObject(t *testing.T) {
	rt := newTestRuntime()
	ctx := rt.MakeContext(KindObject, 2)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("a"))) = IntegerCell(1)
	*ctx.VarAt(ctx.AppendKey(rt.Symbols.Intern("b"))) = rt.textCell("x")
	rt.Manage(ctx.Varlist())

	obj := ctx.Archetype()
	got := rt.Mold(&obj)
	want := `make object! [a: 1 b: "x"]`
	if got != want {
		t.Errorf("mold object = %q, want %q", got, want)
	}
}

func TestMoldBufferBalanceAcrossFailure(t *testing.T) {
	rt := newTestRuntime()
	before := rt.mold.Len()
	rt.Trap(func() {
		rt.mold.WriteString("partial")
		rt.FailText("abort mid-render")
	})
	if rt.mold.Len() != before {
		t.Errorf("mold len = %d after unwind, want %d", rt.mold.Len(), before)
	}
}
