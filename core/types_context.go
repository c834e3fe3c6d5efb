package core

// Handlers for the context-backed kinds: object!, module!, error!,
// frame!, and port!. All five share one dispatch entry; error! overrides
// mold to render its message form.

func registerContextKinds(rt *Runtime) {
	ctx := &Dispatch{
		Name:    "context",
		Compare: compareContext,
		Mold:    moldContext,
		Make:    makeContextValue,
		Path:    pdContext,
		Action:  contextAction,
	}
	rt.RegisterKind(KindObject, ctx)
	rt.RegisterKind(KindModule, ctx)
	rt.RegisterKind(KindFrame, ctx)
	rt.RegisterKind(KindPort, ctx)

	errd := *ctx
	errd.Name = "error"
	errd.Mold = moldError
	errd.Make = makeErrorValue
	rt.RegisterKind(KindError, &errd)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// compareContext orders contexts key by key, then value by value. Key
// ORDER is significant: the same keys in a different order compare
// unequal. That is a documented wart, kept.
func compareContext(rt *Runtime, a, b *Cell, strict bool) int {
	ca, cb := a.Context(), b.Context()
	if ca == cb {
		return 0
	}
	na, nb := ca.Len(), cb.Len()
	n := na
	if nb < n {
		n = nb
	}
	for i := 1; i <= n; i++ {
		ka, kb := ca.KeyAt(i), cb.KeyAt(i)
		if ka.Sym != kb.Sym {
			if rt.Symbols.Name(ka.Sym) < rt.Symbols.Name(kb.Sym) {
				return -1
			}
			return 1
		}
		if c := rt.CompareValues(ca.VarAt(i), cb.VarAt(i), strict); c != 0 {
			return c
		}
	}
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// Mold
// ---------------------------------------------------------------------------

func moldContext(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	ctx := v.Context()
	s := ctx.Varlist()
	if s.IsInaccessible() {
		mo.WriteString("make ")
		mo.WriteString(ctx.Kind().Name())
		mo.WriteString(" [...expired...]")
		return
	}
	mo.WriteString("make ")
	mo.WriteString(ctx.Kind().Name())
	mo.WriteString(" [")
	// Cycle cut shares the array machinery's black marks.
	if s.IsBlack() {
		mo.WriteString(moldEllipsis)
		mo.WriteString("]")
		return
	}
	s.MarkBlack()
	defer s.MarkWhite()
	wrote := false
	for i := 1; i <= ctx.Len(); i++ {
		if ctx.KeyAt(i).Flags&KeyHidden != 0 {
			continue
		}
		if wrote {
			mo.WriteString(" ")
		}
		mo.WriteString(rt.Symbols.Name(ctx.KeyAt(i).Sym))
		mo.WriteString(": ")
		rt.moldInto(mo, ctx.VarAt(i), form)
		wrote = true
	}
	mo.WriteString("]")
}

// moldError shows the rendered report in form mode and the loadable
// spec block otherwise.
func moldError(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	ctx := v.Context()
	if form {
		mo.WriteString(rt.RenderError(ctx))
		return
	}
	mo.WriteString("make error! [type: ")
	mo.WriteString(rt.ErrorType(ctx))
	mo.WriteString(" id: ")
	mo.WriteString(rt.ErrorID(ctx))
	mo.WriteString("]")
}

// ---------------------------------------------------------------------------
// MAKE
// ---------------------------------------------------------------------------

// makeContextValue builds an object (or module/port) from an integer
// capacity, a spec block, or an existing context.
//
// The block form collects top-level set-words into the new context
// first, then evaluates the block bound to it, so `make object! [a: 1
// b: a]` sees `a` while initializing `b`.
func makeContextValue(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindInteger:
		ctx := rt.MakeContext(kind, int(arg.Integer()))
		rt.Manage(ctx.varlist)
		return ctx.Archetype()

	case KindBlock:
		s := arg.Series()
		ctx := rt.MakeContext(kind, s.Len()-arg.Index())
		for i := arg.Index(); i < s.Len(); i++ {
			el := s.At(i)
			if el.Kind() == KindSetWord && ctx.FindKey(el.Symbol()) == 0 {
				ctx.AppendKey(el.Symbol())
			}
		}
		rt.Manage(ctx.varlist)
		body := *arg
		body.SetBinding(ctx.varlist)
		rt.DoBlock(&body)
		return ctx.Archetype()

	case KindObject, KindModule, KindFrame, KindPort:
		dup := rt.CopyContext(arg.Context(), 0)
		rt.Manage(dup.varlist)
		out := dup.Archetype()
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		*dup.varlist.At(0) = out
		return out
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

// makeErrorValue routes MAKE ERROR! through catalog validation.
func makeErrorValue(rt *Runtime, kind Kind, arg *Cell) Cell {
	return rt.MakeError(arg).Archetype()
}

// ---------------------------------------------------------------------------
// Path dispatch
// ---------------------------------------------------------------------------

// pdContext picks context fields by word. Get steps answer with a
// reference into the varlist slot so a SET-path writes straight back;
// set steps enforce key protection and varlist freezing here, where the
// slot is known.
func pdContext(rt *Runtime, step *PathStep) PathResult {
	if !step.Picker.Kind().IsWordlike() {
		return PathResult{Kind: PathUnhandled}
	}
	ctx := step.Value.Context()
	if ctx.Varlist().IsInaccessible() {
		rt.Fail(CatAccess, IDInaccessible)
	}
	idx := ctx.FindKey(step.Picker.Symbol())
	if idx == 0 {
		return PathResult{Kind: PathUnhandled}
	}
	key := ctx.KeyAt(idx)
	if key.Flags&KeyHidden != 0 {
		rt.Fail(CatAccess, IDHidden, *step.Picker)
	}
	if step.SetVal != nil {
		if ctx.Varlist().IsFrozen() {
			rt.Fail(CatAccess, IDSeriesFrozen)
		}
		if key.Flags&KeyProtected != 0 {
			rt.Fail(CatAccess, IDProtectedWord, *step.Picker)
		}
		*ctx.VarAt(idx) = *step.SetVal
		return PathResult{Kind: PathValue, Value: *step.SetVal}
	}
	return PathResult{Kind: PathReference, Ref: ctx.VarAt(idx)}
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func contextAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	ctx := v.Context()
	switch verb {
	case rt.symLength:
		return IntegerCell(int64(visibleKeys(ctx))), true

	case rt.symCopy:
		dup := rt.CopyContext(ctx, 0)
		rt.Manage(dup.varlist)
		out := dup.Archetype()
		return out, true

	case rt.symWordsOf:
		out := rt.MakeArray(ctx.Len())
		for i := 1; i <= ctx.Len(); i++ {
			if ctx.KeyAt(i).Flags&KeyHidden != 0 {
				continue
			}
			out.AppendCell(WordCell(KindWord, ctx.KeyAt(i).Sym))
		}
		rt.Manage(out)
		return SeriesCell(KindBlock, out, 0), true

	case rt.symValuesOf:
		out := rt.MakeArray(ctx.Len())
		for i := 1; i <= ctx.Len(); i++ {
			if ctx.KeyAt(i).Flags&KeyHidden != 0 {
				continue
			}
			out.AppendCell(*ctx.VarAt(i))
		}
		rt.Manage(out)
		return SeriesCell(KindBlock, out, 0), true

	case rt.symFreeze:
		ctx.FreezeDeep()
		return *v, true

	case rt.symProtect, rt.symHide:
		if len(args) != 1 || !args[0].Kind().IsWordlike() {
			rt.FailInvalidArg(verb, argOrBlank(args))
		}
		idx := ctx.FindKey(args[0].Symbol())
		if idx == 0 {
			rt.Fail(CatScript, IDNoValue, args[0])
		}
		flag := KeyProtected
		if verb == rt.symHide {
			flag = KeyHidden
		}
		ctx.SetKeyFlags(idx, ctx.KeyAt(idx).Flags|flag)
		return *v, true
	}
	return Cell{}, false
}

func visibleKeys(ctx *Context) int {
	n := 0
	for i := 1; i <= ctx.Len(); i++ {
		if ctx.KeyAt(i).Flags&KeyHidden == 0 {
			n++
		}
	}
	return n
}

func argOrBlank(args []Cell) Cell {
	if len(args) > 0 {
		return args[0]
	}
	return Blank()
}
