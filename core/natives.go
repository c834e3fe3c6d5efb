package core

// The boot native set. Each native lands in the root context as an
// action! value; bodies are thin shims over the runtime's primitives so
// script-visible behavior and Go-visible behavior stay identical.

func (rt *Runtime) registerNatives() {
	def := func(name string, params []Param, fn NativeFunc) {
		cell := rt.MakeNative(name, params, fn)
		idx := rt.root.AppendKey(rt.Symbols.Intern(name))
		*rt.root.VarAt(idx) = cell
	}
	one := func(name string) []Param {
		return []Param{{Sym: rt.Symbols.Intern(name)}}
	}
	two := func(a, b string) []Param {
		return []Param{{Sym: rt.Symbols.Intern(a)}, {Sym: rt.Symbols.Intern(b)}}
	}

	// Construction and conversion.
	def("make", two("type", "spec"), func(rt *Runtime, f *Frame) Cell {
		return rt.MakeValue(rt.kindArg(f.Arg(0)), f.Arg(1))
	})
	def("to", two("type", "spec"), func(rt *Runtime, f *Frame) Cell {
		return rt.ToValue(rt.kindArg(f.Arg(0)), f.Arg(1))
	})

	// Rendering.
	def("mold", one("value"), func(rt *Runtime, f *Frame) Cell {
		return rt.textCell(rt.Mold(f.Arg(0)))
	})
	def("form", one("value"), func(rt *Runtime, f *Frame) Cell {
		return rt.textCell(rt.Form(f.Arg(0)))
	})
	def("print", one("value"), func(rt *Runtime, f *Frame) Cell {
		rt.log.Noticef("%s", rt.Form(f.Arg(0)))
		return Blank()
	})

	// Arithmetic: generic verbs routed through the dispatch table, so a
	// future kind with an add hook picks these up for free.
	binaryVerb := func(name string, sym Symbol) {
		def(name, two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
			return rt.Apply(sym, f.Arg(0), []Cell{*f.Arg(1)})
		})
	}
	binaryVerb("add", rt.symAdd)
	binaryVerb("subtract", rt.symSubtract)
	binaryVerb("multiply", rt.symMultiply)
	binaryVerb("divide", rt.symDivide)
	def("negate", one("value"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symNegate, f.Arg(0), nil)
	})

	// Series and context verbs.
	unaryVerb := func(name string, sym Symbol) {
		def(name, one("value"), func(rt *Runtime, f *Frame) Cell {
			return rt.Apply(sym, f.Arg(0), nil)
		})
	}
	unaryVerb("length-of", rt.symLength)
	unaryVerb("copy", rt.symCopy)
	unaryVerb("first", rt.symFirst)
	unaryVerb("last", rt.symLast)
	unaryVerb("remove", rt.symRemove)
	unaryVerb("freeze", rt.symFreeze)
	unaryVerb("words-of", rt.symWordsOf)
	unaryVerb("values-of", rt.symValuesOf)
	unaryVerb("spelling-of", rt.symSpellingOf)
	unaryVerb("binding-of", rt.symBindingOf)

	def("append", two("series", "value"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symAppend, f.Arg(0), []Cell{*f.Arg(1)})
	})
	def("insert", two("series", "value"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symInsert, f.Arg(0), []Cell{*f.Arg(1)})
	})
	def("find", two("series", "value"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symFind, f.Arg(0), []Cell{*f.Arg(1)})
	})
	def("remove-key", two("map", "key"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symRemove, f.Arg(0), []Cell{*f.Arg(1)})
	})
	def("protect", two("context", "word"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symProtect, f.Arg(0), []Cell{*f.Arg(1)})
	})
	def("hide", two("context", "word"), func(rt *Runtime, f *Frame) Cell {
		return rt.Apply(rt.symHide, f.Arg(0), []Cell{*f.Arg(1)})
	})

	// Pick / poke.
	def("pick", two("value", "picker"), func(rt *Runtime, f *Frame) Cell {
		return rt.PickValue(*f.Arg(0), *f.Arg(1))
	})
	def("poke", []Param{
		{Sym: rt.Symbols.Intern("value")},
		{Sym: rt.Symbols.Intern("picker")},
		{Sym: rt.Symbols.Intern("new")},
	}, func(rt *Runtime, f *Frame) Cell {
		rt.PokeValue(*f.Arg(0), *f.Arg(1), *f.Arg(2))
		return *f.Arg(2)
	})

	// Comparison.
	def("equal?", two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(rt.EqualValues(f.Arg(0), f.Arg(1)))
	})
	def("strict-equal?", two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(rt.CompareValues(f.Arg(0), f.Arg(1), true) == 0)
	})
	def("lesser?", two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(rt.CompareValues(f.Arg(0), f.Arg(1), false) < 0)
	})
	def("greater?", two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(rt.CompareValues(f.Arg(0), f.Arg(1), false) > 0)
	})
	def("same?", two("value1", "value2"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(f.Arg(0).SameValue(f.Arg(1)))
	})
	def("not", one("value"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(!f.Arg(0).IsTruthy())
	})

	// Control.
	def("do", one("block"), func(rt *Runtime, f *Frame) Cell {
		b := f.Arg(0)
		if !b.Kind().IsArraylike() {
			rt.FailInvalidArg(rt.symDo, *b)
		}
		return rt.DoBlock(b)
	})
	def("if", two("condition", "branch"), func(rt *Runtime, f *Frame) Cell {
		if f.Arg(0).IsTruthy() {
			return rt.doBranch(f.Arg(1))
		}
		return Blank()
	})
	def("either", []Param{
		{Sym: rt.Symbols.Intern("condition")},
		{Sym: rt.Symbols.Intern("true-branch")},
		{Sym: rt.Symbols.Intern("false-branch")},
	}, func(rt *Runtime, f *Frame) Cell {
		if f.Arg(0).IsTruthy() {
			return rt.doBranch(f.Arg(1))
		}
		return rt.doBranch(f.Arg(2))
	})
	def("loop", two("count", "body"), func(rt *Runtime, f *Frame) Cell {
		if f.Arg(0).Kind() != KindInteger {
			rt.FailInvalidArg(rt.Symbols.Intern("count"), *f.Arg(0))
		}
		out := Blank()
		for i := int64(0); i < f.Arg(0).Integer(); i++ {
			rt.CheckSignals()
			out = rt.doBranch(f.Arg(1))
		}
		return out
	})
	def("func", two("params", "body"), func(rt *Runtime, f *Frame) Cell {
		return rt.makeFunc(f.Arg(0), f.Arg(1))
	})
	def("quote", one("value"), func(rt *Runtime, f *Frame) Cell {
		return Quotify(*f.Arg(0), 1)
	})

	// Errors and lifecycle.
	def("trap", one("block"), func(rt *Runtime, f *Frame) Cell {
		blk := *f.Arg(0)
		out, errObj := rt.TrapCell(func() Cell { return rt.DoBlock(&blk) })
		if errObj != nil {
			return errObj.Archetype()
		}
		return out
	})
	def("fail", one("spec"), func(rt *Runtime, f *Frame) Cell {
		rt.FailWith(rt.MakeError(f.Arg(0)))
		panic("unreachable")
	})
	def("error?", one("value"), func(rt *Runtime, f *Frame) Cell {
		return LogicCell(f.Arg(0).Kind() == KindError)
	})
	def("halt", nil, func(rt *Runtime, f *Frame) Cell {
		rt.Fail(CatScript, IDHalt)
		panic("unreachable")
	})
	def("recycle", nil, func(rt *Runtime, f *Frame) Cell {
		stats := rt.Collect()
		return IntegerCell(int64(stats.Swept))
	})
}

// kindArg resolves a datatype-naming word (e.g. object!) to its kind.
func (rt *Runtime) kindArg(c *Cell) Kind {
	if !c.Kind().IsWordlike() {
		rt.FailInvalidArg(rt.Symbols.Intern("type"), *c)
	}
	name := rt.Symbols.Name(c.Symbol())
	for k := KindBlank; k < KindMax; k++ {
		if kindNames[k] == name {
			return k
		}
	}
	rt.FailInvalidArg(rt.Symbols.Intern("type"), *c)
	panic("unreachable")
}

// doBranch evaluates a block branch, passing plain values through.
func (rt *Runtime) doBranch(c *Cell) Cell {
	if c.Kind() == KindBlock {
		return rt.DoBlock(c)
	}
	return *c
}

// makeFunc builds a block-bodied action from a params block (word! for
// positional, get-word! for refinements) and a body block. The body is
// copied so later mutation of the source block cannot change the
// function.
func (rt *Runtime) makeFunc(params *Cell, body *Cell) Cell {
	if params.Kind() != KindBlock || body.Kind() != KindBlock {
		rt.FailInvalidArg(rt.Symbols.Intern("func"), *params)
	}
	var ps []Param
	s := params.Series()
	for i := params.Index(); i < s.Len(); i++ {
		el := s.At(i)
		switch el.Kind() {
		case KindWord:
			ps = append(ps, Param{Sym: el.Symbol()})
		case KindGetWord:
			ps = append(ps, Param{Sym: el.Symbol(), Refinement: true})
		default:
			rt.FailInvalidArg(rt.Symbols.Intern("func"), *el)
		}
	}
	bodyCopy := rt.copySeries(body)
	bs := bodyCopy.Series()
	for i := 0; i < bs.Len(); i++ {
		c := bs.At(i)
		if (c.Kind().IsWordlike() || c.Kind().IsArraylike()) && c.Binding() == nil {
			c.SetFlag(CellFlagRelative)
		}
	}
	return rt.MakeActionBody("func", ps, bs)
}
