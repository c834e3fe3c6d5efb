package core

// Action is the callable value: a native Go function or a block body,
// described by an ordered parameter list. Refinement parameters are
// optional flags selected through path application (action/refinement).
//
// The paramlist series exists so actions live in the cell model like any
// other heap payload; its cells mirror params for reflection.

// NativeFunc is the Go calling convention for natives: the frame carries
// arguments and refinements, the return is the result cell.
type NativeFunc func(rt *Runtime, f *Frame) Cell

// Param describes one parameter.
type Param struct {
	Sym        Symbol
	Refinement bool
}

// Action is a callable.
type Action struct {
	name      Symbol
	params    []Param
	paramlist *Series
	body      *Series // block body; nil for natives
	native    NativeFunc

	// partial lists refinements baked in by specialization, in
	// declaration order.
	partial []Symbol
}

// Name returns the action's label symbol.
func (a *Action) Name() Symbol { return a.name }

// Params returns the declared parameter list.
func (a *Action) Params() []Param { return a.params }

// Partial returns refinements baked by specialization, declaration order.
func (a *Action) Partial() []Symbol { return a.partial }

// Arity returns the count of positional (non-refinement) parameters.
func (a *Action) Arity() int {
	n := 0
	for _, p := range a.params {
		if !p.Refinement {
			n++
		}
	}
	return n
}

// findParam returns the parameter with the given symbol, or nil.
func (a *Action) findParam(sym Symbol) *Param {
	for i := range a.params {
		if a.params[i].Sym == sym {
			return &a.params[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// MakeNative creates a native action. The paramlist is managed
// immediately; natives are built during boot where no failure can leak
// them.
func (rt *Runtime) MakeNative(name string, params []Param, fn NativeFunc) Cell {
	a := &Action{
		name:   rt.Symbols.Intern(name),
		params: params,
		native: fn,
	}
	a.paramlist = rt.makeParamlist(params)
	a.paramlist.owner = a
	rt.Manage(a.paramlist)
	return ActionCell(a.paramlist)
}

// MakeActionBody creates a block-bodied action. The body array must
// already be managed.
func (rt *Runtime) MakeActionBody(name string, params []Param, body *Series) Cell {
	if !body.IsManaged() {
		panic("MakeActionBody: body must be managed")
	}
	a := &Action{
		name:   rt.Symbols.Intern(name),
		params: params,
		body:   body,
	}
	a.paramlist = rt.makeParamlist(params)
	a.paramlist.owner = a
	rt.Manage(a.paramlist)
	return ActionCell(a.paramlist)
}

func (rt *Runtime) makeParamlist(params []Param) *Series {
	s := rt.MakeArray(len(params))
	for _, p := range params {
		kind := KindWord
		if p.Refinement {
			kind = KindGetWord // refinements mold distinctly
		}
		s.AppendCell(WordCell(kind, p.Sym))
	}
	return s
}

// cellFor returns the action's canonical cell.
func (a *Action) cellFor() Cell {
	return ActionCell(a.paramlist)
}

// ---------------------------------------------------------------------------
// Specialization
// ---------------------------------------------------------------------------

// Specialize bakes a set of refinements into a new partially-applied
// action. The requested set arrives in discovery order (as popped from
// the path's refinement stack); the result's partial list is rebuilt in
// declaration order, which is what keyword-style binding later relies
// on. Unknown refinements fail; duplicates fail.
func (rt *Runtime) Specialize(a *Action, requested []Symbol) Cell {
	seen := make(map[Symbol]bool, len(requested))
	for _, sym := range requested {
		p := a.findParam(sym)
		if p == nil || !p.Refinement {
			rt.Fail(CatScript, IDBadRefine, WordCell(KindWord, sym))
		}
		if seen[sym] {
			rt.Fail(CatScript, IDDupRefine, WordCell(KindWord, sym))
		}
		seen[sym] = true
	}

	spec := &Action{
		name:   a.name,
		params: a.params,
		body:   a.body,
		native: a.native,
	}
	// Declaration order, not discovery order.
	spec.partial = append([]Symbol(nil), a.partial...)
	for _, p := range a.params {
		if p.Refinement && seen[p.Sym] {
			spec.partial = append(spec.partial, p.Sym)
		}
	}
	spec.paramlist = rt.makeParamlist(a.params)
	spec.paramlist.owner = spec
	rt.Manage(spec.paramlist)
	return ActionCell(spec.paramlist)
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

// invokeNative applies an action to already-evaluated arguments. Body
// actions get a frame context binding their parameters; natives read the
// frame's argument slice directly.
func (rt *Runtime) invokeNative(a *Action, args []Cell) Cell {
	if len(args) != a.Arity() {
		rt.Fail(CatScript, IDExpectArg,
			WordCell(KindWord, a.name), IntegerCell(int64(a.Arity())))
	}

	f := &Frame{label: a.name, action: a, args: args}
	f.refines = make(map[Symbol]bool, len(a.partial))
	for _, sym := range a.partial {
		f.refines[sym] = true
	}

	rt.pushFrame(f)
	defer rt.popFrame()

	if a.native != nil {
		return a.native(rt, f)
	}
	return rt.invokeBody(a, f, args)
}

// invokeBody runs a block-bodied action inside a frame context.
func (rt *Runtime) invokeBody(a *Action, f *Frame, args []Cell) Cell {
	ctx := rt.MakeContext(KindFrame, len(a.params))
	argn := 0
	for _, p := range a.params {
		idx := ctx.AppendKey(p.Sym)
		if p.Refinement {
			*ctx.VarAt(idx) = LogicCell(f.refines[p.Sym])
		} else {
			*ctx.VarAt(idx) = args[argn]
			argn++
		}
	}
	rt.Manage(ctx.varlist)
	f.varlist = ctx

	f.source = a.body
	f.sourceIndex = 0
	body := SeriesCell(KindBlock, a.body, 0)
	body.SetBinding(ctx.varlist)
	return rt.DoBlock(&body)
}
