package core

// The evaluator is deliberately small: enough stepwise evaluation to
// exercise words, set-words, groups, paths, and action application over
// the cell/series substrate. One logical thread, one frame stack;
// recursive evaluation of nested expressions is the only suspension
// point besides the trap unwind.

// Do evaluates a block cell and returns the value of its last
// expression. An empty block yields blank.
func (rt *Runtime) DoBlock(block *Cell) Cell {
	if !block.Kind().IsArraylike() {
		panic("DoBlock: not an arraylike cell")
	}
	s := block.Series()
	out := Blank()
	i := block.Index()
	for i < s.Len() {
		rt.CheckSignals()
		out, i = rt.evalNext(s, i, block.Binding())
	}
	return out
}

// DoText scans nothing: the core receives pre-parsed arrays from the
// loader (an external collaborator). DoBlock is the entry point.

// evalNext evaluates one expression starting at index i, returning the
// value and the index just past the consumed material.
func (rt *Runtime) evalNext(s *Series, i int, specifier *Series) (Cell, int) {
	if i >= s.Len() {
		rt.Fail(CatScript, IDExpectArg, rt.wordCell(rt.symDo), Blank())
	}
	cell := *s.At(i)

	// A quoted value evaluates by shedding one quote level.
	if cell.QuoteDepth() > 0 {
		return Unquotify(derive(cell, specifier), 1), i + 1
	}

	switch cell.Kind() {
	case KindWord:
		slot := rt.GetWord(derivePtr(&cell, specifier))
		if slot.Kind() == KindAction {
			return rt.applyFrom(slot.Action(), nil, s, i+1, specifier)
		}
		return *slot, i + 1

	case KindGetWord:
		w := derive(cell, specifier)
		w.header = (w.header &^ headerKindMask) | uint32(KindWord)
		return *rt.GetWord(&w), i + 1

	case KindSetWord:
		val, next := rt.evalNext(s, i+1, specifier)
		w := derive(cell, specifier)
		rt.SetWordValue(&w, val)
		return val, next

	case KindGroup:
		g := derive(cell, specifier)
		return rt.DoBlock(&g), i + 1

	case KindPath:
		p := derive(cell, specifier)
		val, act, refines := rt.evalPathMaybeAction(&p, true)
		if act != nil {
			return rt.applyFrom(act, refines, s, i+1, specifier)
		}
		return val, i + 1

	case KindGetPath:
		p := derive(cell, specifier)
		val, _, _ := rt.evalPathMaybeAction(&p, false)
		return val, i + 1

	case KindSetPath:
		val, next := rt.evalNext(s, i+1, specifier)
		p := derive(cell, specifier)
		rt.SetPath(&p, val)
		return val, next

	default:
		return derive(cell, specifier), i + 1
	}
}

// applyFrom gathers an action's positional arguments by evaluating
// forward from index i, then invokes. Refinements discovered by a path
// application arrive in refines (discovery order) and are baked through
// specialization first, restoring declaration order.
func (rt *Runtime) applyFrom(a *Action, refines []Symbol, s *Series, i int, specifier *Series) (Cell, int) {
	if len(refines) > 0 {
		spec := rt.Specialize(a, refines)
		a = spec.Action()
	}
	args := make([]Cell, 0, a.Arity())
	for len(args) < a.Arity() {
		if i >= s.Len() {
			rt.Fail(CatScript, IDExpectArg,
				WordCell(KindWord, a.name), IntegerCell(int64(a.Arity())))
		}
		var arg Cell
		arg, i = rt.evalNext(s, i, specifier)
		args = append(args, arg)
	}
	return rt.invokeNative(a, args), i
}

// ---------------------------------------------------------------------------
// Word resolution
// ---------------------------------------------------------------------------

// derive attaches the specifier to a relative cell. A cell that already
// carries a binding keeps it: specific beats relative.
func derive(c Cell, specifier *Series) Cell {
	if c.binding == nil && specifier != nil {
		c.SetBinding(specifier)
	}
	return c
}

func derivePtr(c *Cell, specifier *Series) *Cell {
	d := derive(*c, specifier)
	return &d
}

// resolveWord finds the context and slot index for a word, failing if
// the word is unbound or its context has expired.
func (rt *Runtime) resolveWord(w *Cell) (*Context, int) {
	sym := w.Symbol()
	if w.HasFlag(CellFlagRelative) {
		// A relative word reached lookup without its specifier.
		rt.Fail(CatScript, IDNotBound, WordCell(KindWord, sym))
	}
	var ctx *Context
	if b := w.Binding(); b != nil {
		if b.IsInaccessible() {
			rt.Fail(CatAccess, IDInaccessible)
		}
		ctx = b.Owner().(*Context)
	} else {
		ctx = rt.root
	}
	idx := ctx.FindKey(sym)
	if idx == 0 && ctx != rt.root {
		// Words the specifier does not capture fall through to root.
		if ridx := rt.root.FindKey(sym); ridx != 0 {
			ctx, idx = rt.root, ridx
		}
	}
	if idx == 0 {
		rt.Fail(CatScript, IDNoValue, WordCell(KindWord, sym))
	}
	if ctx.KeyAt(idx).Flags&KeyHidden != 0 {
		rt.Fail(CatAccess, IDHidden, WordCell(KindWord, sym))
	}
	return ctx, idx
}

// GetWord returns the slot a word refers to.
func (rt *Runtime) GetWord(w *Cell) *Cell {
	ctx, idx := rt.resolveWord(w)
	return ctx.VarAt(idx)
}

// SetWordValue assigns through a word, honoring key protection and
// varlist freezing. A word new to the root context is added there; a
// word missing from an explicit binding falls back to an existing root
// binding, or fails.
func (rt *Runtime) SetWordValue(w *Cell, val Cell) {
	sym := w.Symbol()
	if w.HasFlag(CellFlagRelative) {
		rt.Fail(CatScript, IDNotBound, WordCell(KindWord, sym))
	}
	var ctx *Context
	if b := w.Binding(); b != nil {
		if b.IsInaccessible() {
			rt.Fail(CatAccess, IDInaccessible)
		}
		ctx = b.Owner().(*Context)
	} else {
		ctx = rt.root
	}
	idx := ctx.FindKey(sym)
	if idx == 0 && ctx != rt.root {
		// Assignment through an uncaptured word targets the root binding
		// when one exists; otherwise it is an error, never a silent
		// expansion of someone else's context.
		if ridx := rt.root.FindKey(sym); ridx != 0 {
			ctx, idx = rt.root, ridx
		} else {
			rt.Fail(CatScript, IDNotBound, WordCell(KindWord, sym))
		}
	}
	if ctx.varlist.IsFrozen() {
		rt.Fail(CatAccess, IDSeriesFrozen)
	}
	if idx == 0 {
		idx = ctx.AppendKey(sym)
	}
	if ctx.KeyAt(idx).Flags&KeyProtected != 0 {
		rt.Fail(CatAccess, IDProtectedWord, WordCell(KindWord, sym))
	}
	*ctx.VarAt(idx) = val
}

// ensureMutable fails if a series-backed value cannot be mutated: const
// view, frozen series, or expired frame context.
func (rt *Runtime) ensureMutable(v *Cell, s *Series) {
	if s.IsInaccessible() {
		rt.Fail(CatAccess, IDInaccessible)
	}
	if s.IsFrozen() || (v != nil && v.HasFlag(CellFlagConst)) {
		rt.Fail(CatAccess, IDSeriesFrozen)
	}
}
