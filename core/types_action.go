package core

// action! and handle! handlers. Both are identity kinds: equality means
// the same underlying node, and neither has a useful ordering.

func registerActionKinds(rt *Runtime) {
	rt.RegisterKind(KindAction, &Dispatch{
		Name:    "action",
		Compare: compareIdentity,
		Mold:    moldAction,
		Action:  actionAction,
	})
	rt.RegisterKind(KindHandle, &Dispatch{
		Name:    "handle",
		Compare: compareIdentity,
		Mold: func(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
			mo.WriteString("#[handle!]")
		},
	})
}

func compareIdentity(rt *Runtime, a, b *Cell, strict bool) int {
	if a.node == b.node {
		return 0
	}
	return 1
}

func moldAction(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	a := v.Action()
	mo.WriteString("make action! [[")
	for i, p := range a.params {
		if i > 0 {
			mo.WriteString(" ")
		}
		if p.Refinement {
			mo.WriteString("/")
		}
		mo.WriteString(rt.Symbols.Name(p.Sym))
	}
	mo.WriteString("] ")
	mo.WriteString(rt.Symbols.Name(a.name))
	mo.WriteString("]")
}

func actionAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	a := v.Action()
	switch verb {
	case rt.symWordsOf:
		out := rt.MakeArray(len(a.params))
		for _, p := range a.params {
			kind := KindWord
			if p.Refinement {
				kind = KindGetWord
			}
			out.AppendCell(WordCell(kind, p.Sym))
		}
		rt.Manage(out)
		return SeriesCell(KindBlock, out, 0), true

	case rt.symLength:
		return IntegerCell(int64(a.Arity())), true

	case rt.symSpellingOf:
		return rt.textCell(rt.Symbols.Name(a.name)), true
	}
	return Cell{}, false
}

// MakeHandle wraps an opaque Go value as a handle! cell. The payload
// rides on a zero-length managed node so handles live in the cell model
// like everything else.
func (rt *Runtime) MakeHandle(payload any) Cell {
	node := rt.MakeArray(0)
	node.owner = payload
	rt.Manage(node)
	return Cell{header: uint32(KindHandle), node: node}
}

// HandlePayload returns the wrapped Go value of a handle! cell.
func HandlePayload(c *Cell) any {
	if c.Kind() != KindHandle {
		panic("HandlePayload: not a handle!")
	}
	return c.node.Owner()
}
