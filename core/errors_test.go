package core

import (
	"strings"
	"testing"
)

func TestCatalogTemplateExpansion(t *testing.T) {
	rt := newTestRuntime()
	err := rt.NewError(CatScript, IDNoValue, word(rt, "missing-word"))
	if got := rt.ErrorMessage(err); got != "missing-word has no value" {
		t.Errorf("message = %q", got)
	}

	err = rt.NewError(CatScript, IDCannotUse, word(rt, "append"), IntegerCell(3))
	if got := rt.ErrorMessage(err); got != "cannot use append on 3 value" {
		t.Errorf("message = %q", got)
	}
}

func TestNewErrorPanicsOnArgMismatch(t *testing.T) {
	rt := newTestRuntime()
	defer func() {
		if recover() == nil {
			t.Fatal("argument count mismatch must panic, not error")
		}
	}()
	rt.NewError(CatScript, IDNoValue) // template wants one arg
}

func TestNewErrorPanicsOnUnknownPair(t *testing.T) {
	rt := newTestRuntime()
	defer func() {
		if recover() == nil {
			t.Fatal("unknown category/id must panic")
		}
	}()
	rt.NewError(CatScript, ErrorID("no-such-id"))
}

func TestMakeErrorFromText(t *testing.T) {
	rt := newTestRuntime()
	msg := rt.textCell("something broke")
	err := rt.MakeError(&msg)
	if rt.ErrorType(err) != string(CatUser) {
		t.Errorf("type = %s, want user", rt.ErrorType(err))
	}
	if rt.ErrorMessage(err) != "something broke" {
		t.Errorf("message = %q", rt.ErrorMessage(err))
	}
}

func TestMakeErrorValidatesAgainstCatalog(t *testing.T) {
	rt := newTestRuntime()

	mkSpec := func(fields ...Cell) Cell { return blockOf(rt, fields...) }

	t.Run("known pair accepted", func(t *testing.T) {
		spec := mkSpec(
			setWord(rt, "type"), word(rt, "math"),
			setWord(rt, "id"), word(rt, "zero-divide"))
		out, errObj := rt.TrapCell(func() Cell {
			return rt.MakeError(&spec).Archetype()
		})
		if errObj != nil {
			t.Fatalf("known pair rejected: %s", rt.ErrorMessage(errObj))
		}
		if rt.ErrorID(out.Context()) != "zero-divide" {
			t.Errorf("id = %s", rt.ErrorID(out.Context()))
		}
	})

	t.Run("unknown pair rejected", func(t *testing.T) {
		spec := mkSpec(
			setWord(rt, "type"), word(rt, "math"),
			setWord(rt, "id"), word(rt, "made-up"))
		errObj := rt.Trap(func() { rt.MakeError(&spec) })
		if errObj == nil {
			t.Fatal("unknown id accepted")
		}
		if rt.ErrorID(errObj) != string(IDInvalidError) {
			t.Errorf("error id = %s, want invalid-error", rt.ErrorID(errObj))
		}
	})

	t.Run("spoofed message rejected", func(t *testing.T) {
		spec := mkSpec(
			setWord(rt, "type"), word(rt, "math"),
			setWord(rt, "id"), word(rt, "zero-divide"),
			setWord(rt, "message"), rt.textCell("lying text"))
		errObj := rt.Trap(func() { rt.MakeError(&spec) })
		if errObj == nil {
			t.Fatal("message spoof accepted for a known pair")
		}
	})

	t.Run("bare message becomes user error", func(t *testing.T) {
		spec := mkSpec(setWord(rt, "message"), rt.textCell("plain note"))
		out, errObj := rt.TrapCell(func() Cell {
			return rt.MakeError(&spec).Archetype()
		})
		if errObj != nil {
			t.Fatalf("bare message rejected: %s", rt.ErrorMessage(errObj))
		}
		if rt.ErrorMessage(out.Context()) != "plain note" {
			t.Errorf("message = %q", rt.ErrorMessage(out.Context()))
		}
	})
}

func TestRenderErrorFormat(t *testing.T) {
	rt := newTestRuntime()
	err := rt.Trap(func() {
		w := word(rt, "never-assigned-anywhere")
		rt.GetWord(&w)
	})
	if err == nil {
		t.Fatal("expected no-value error")
	}
	report := rt.RenderError(err)
	if !strings.HasPrefix(report, "** Script Error: never-assigned-anywhere has no value") {
		t.Errorf("report = %q", report)
	}
}

func TestRenderErrorTruncatesNear(t *testing.T) {
	rt := newTestRuntime()
	err := rt.NewError(CatMath, IDOverflow)
	long := strings.Repeat("x", nearLimit*2)
	*err.VarAt(rt.errNear) = rt.textCell(long)
	*err.VarAt(rt.errWhere) = blockOf(rt, word(rt, "somewhere"))

	report := rt.RenderError(err)
	if !strings.Contains(report, "** Near: "+strings.Repeat("x", nearLimit)+"...") {
		t.Errorf("near not truncated: %q", report)
	}
}

func TestErrorIsOrdinaryContext(t *testing.T) {
	rt := newTestRuntime()
	err := rt.NewError(CatMath, IDZeroDivide)
	obj := err.Archetype()
	if obj.Kind() != KindError {
		t.Fatalf("archetype kind = %v", obj.Kind())
	}
	// Fields read through the normal path machinery.
	id := rt.PickValue(obj, word(rt, "id"))
	if rt.Symbols.Name(id.Symbol()) != "zero-divide" {
		t.Errorf("err/id = %v", id)
	}
}

func TestTrapNativeReturnsErrorValue(t *testing.T) {
	rt := newTestRuntime()
	inner := blockOf(rt, word(rt, "halt"))
	body := blockOf(rt, word(rt, "trap"), Quotify(inner, 1))

	out, errObj := rt.TrapCell(func() Cell { return rt.DoBlock(&body) })
	if errObj != nil {
		t.Fatalf("trap native leaked: %s", rt.ErrorMessage(errObj))
	}
	if out.Kind() != KindError {
		t.Fatalf("trap returned %v, want error!", out.Kind())
	}
	if rt.ErrorID(out.Context()) != string(IDHalt) {
		t.Errorf("trapped id = %s", rt.ErrorID(out.Context()))
	}
}
