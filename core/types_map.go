package core

// map! handlers. Picking an absent key yields blank rather than failing;
// setting through a path inserts. Removal goes through the remove verb
// with the key as argument.

func registerMapKind(rt *Runtime) {
	rt.RegisterKind(KindMap, &Dispatch{
		Name:    "map",
		Compare: compareMap,
		Mold:    moldMap,
		Make:    makeMapValue,
		Path:    pdMap,
		Action:  mapAction,
	})
}

// compareMap is entrywise: equal live counts and every key of a mapping
// to an equal value in b. Maps admit equality only; unequal maps answer
// a fixed nonzero so callers testing equality get a stable result.
func compareMap(rt *Runtime, a, b *Cell, strict bool) int {
	ma, mb := a.Map(), b.Map()
	if ma == mb {
		return 0
	}
	if ma.Len() != mb.Len() {
		return 1
	}
	pl := ma.pairlist
	for i := 0; i+1 < pl.Len(); i += 2 {
		if isZombie(pl.At(i + 1)) {
			continue
		}
		bv := rt.MapFind(mb, pl.At(i))
		if bv == nil || !rt.EqualValues(pl.At(i+1), bv) {
			return 1
		}
	}
	return 0
}

func moldMap(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	m := v.Map()
	s := m.pairlist
	mo.WriteString("#(")
	if s.IsBlack() {
		mo.WriteString(moldEllipsis)
		mo.WriteString(")")
		return
	}
	s.MarkBlack()
	defer s.MarkWhite()
	wrote := false
	for i := 0; i+1 < s.Len(); i += 2 {
		if isZombie(s.At(i + 1)) {
			continue
		}
		if wrote {
			mo.WriteString(" ")
		}
		rt.moldInto(mo, s.At(i), form)
		mo.WriteString(" ")
		rt.moldInto(mo, s.At(i+1), form)
		wrote = true
	}
	mo.WriteString(")")
}

// makeMapValue builds a map from an integer capacity or a block of
// alternating keys and values.
func makeMapValue(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindInteger:
		return rt.MakeMap(int(arg.Integer()))
	case KindBlock:
		s := arg.Series()
		n := (s.Len() - arg.Index()) / 2
		out := rt.MakeMap(n)
		m := out.Map()
		for i := arg.Index(); i+1 < s.Len(); i += 2 {
			rt.MapInsert(m, *s.At(i), *s.At(i+1))
		}
		return out
	case KindMap:
		src := arg.Map()
		out := rt.MakeMap(src.Len())
		m := out.Map()
		pl := src.pairlist
		for i := 0; i+1 < pl.Len(); i += 2 {
			if !isZombie(pl.At(i + 1)) {
				rt.MapInsert(m, *pl.At(i), *pl.At(i+1))
			}
		}
		return out
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

// pdMap picks by arbitrary key. An absent key reads as blank; a set step
// inserts or replaces. The result is a plain value, never a reference:
// the pairlist can move an entry on rehash, so no slot pointer is stable
// enough to hand out.
func pdMap(rt *Runtime, step *PathStep) PathResult {
	m := step.Value.Map()
	if step.SetVal != nil {
		rt.MapInsert(m, *step.Picker, *step.SetVal)
		return PathResult{Kind: PathValue, Value: *step.SetVal}
	}
	if found := rt.MapFind(m, step.Picker); found != nil {
		return PathResult{Kind: PathValue, Value: *found}
	}
	return PathResult{Kind: PathValue, Value: Blank()}
}

func mapAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	m := v.Map()
	switch verb {
	case rt.symLength:
		return IntegerCell(int64(m.Len())), true

	case rt.symCopy:
		arg := *v
		return makeMapValue(rt, KindMap, &arg), true

	case rt.symWordsOf:
		return rt.MapKeys(m), true

	case rt.symFind:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		if found := rt.MapFind(m, &args[0]); found != nil {
			return *found, true
		}
		return Blank(), true

	case rt.symRemove:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		rt.MapRemove(m, &args[0])
		return *v, true
	}
	return Cell{}, false
}
