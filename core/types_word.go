package core

// Word family handlers. The three word kinds share one implementation;
// path comparison delegates here when a path is in its single-word form.

func registerWordKinds(rt *Runtime) {
	d := &Dispatch{
		Name:    "word",
		Compare: compareWord,
		Mold:    moldWord,
		To:      toWord,
		Action:  wordAction,
	}
	rt.RegisterKind(KindWord, d)
	rt.RegisterKind(KindSetWord, d)
	rt.RegisterKind(KindGetWord, d)
}

// compareWord orders by canonical spelling. Interning already folds
// case, so symbol identity is case-insensitive equality; strict mode
// additionally distinguishes the word kinds.
func compareWord(rt *Runtime, a, b *Cell, strict bool) int {
	if strict && a.Kind() != b.Kind() {
		if a.Kind() < b.Kind() {
			return -1
		}
		return 1
	}
	if a.Symbol() == b.Symbol() {
		return 0
	}
	an, bn := rt.Symbols.Name(a.Symbol()), rt.Symbols.Name(b.Symbol())
	if an < bn {
		return -1
	}
	return 1
}

func moldWord(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	name := rt.Symbols.Name(v.Symbol())
	switch v.Kind() {
	case KindSetWord:
		mo.WriteString(name)
		mo.WriteString(":")
	case KindGetWord:
		mo.WriteString(":")
		mo.WriteString(name)
	default:
		mo.WriteString(name)
	}
}

// toWord converts between the word kinds and from text. No evaluation:
// TO semantics only.
func toWord(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch {
	case arg.Kind().IsWordlike():
		out := *arg
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		return out
	case arg.Kind() == KindText:
		return WordCell(kind, rt.Symbols.Intern(arg.Series().String()))
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

func wordAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	switch verb {
	case rt.symSpellingOf:
		return rt.textCell(rt.Symbols.Name(v.Symbol())), true
	case rt.symBindingOf:
		if b := v.Binding(); b != nil {
			return b.Owner().(*Context).Archetype(), true
		}
		return Blank(), true
	}
	return Cell{}, false
}
