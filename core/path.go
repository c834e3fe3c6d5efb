package core

// Path traversal walks picker elements against a starting value,
// dispatching each step through the current value's kind hook. The hook
// answers with a tagged PathResult; the walker threads the mutable
// reference needed for SET-path write-back through the steps.
//
// Side effects of path segments (group evaluation) occur strictly left
// to right. Path hooks themselves never perform control-flow escapes;
// only group evaluation inside a path may fail or unwind.

// redoLimit bounds PathRedo retries per step; a hook that redoes forever
// is broken.
const redoLimit = 8

// GetPath reads through a path with plain GET semantics: group segments
// are a usage error without the evaluator's explicit opt-in.
func (rt *Runtime) GetPath(path *Cell) Cell {
	val, act, _ := rt.evalPathMaybeAction(path, false)
	if act != nil {
		return act.cellFor()
	}
	return val
}

// SetPath writes val through a path. The final reference must be
// writable; assigning into a temporary immediate fails rather than
// silently mutating a stack proxy.
func (rt *Runtime) SetPath(path *Cell, val Cell) {
	rt.walkPath(path, &val, false)
}

// EvalPath reads through a path with group segments permitted, for
// callers implementing the evaluator's opt-in.
func (rt *Runtime) EvalPath(path *Cell) Cell {
	val, act, refines := rt.evalPathMaybeAction(path, true)
	if act != nil {
		if len(refines) > 0 {
			return rt.Specialize(act, refines)
		}
		return act.cellFor()
	}
	return val
}

// evalPathMaybeAction resolves a path. When the seed resolves to a
// callable, the remaining word pickers are not applied as picks: they
// accumulate as refinement requests and come back in discovery order
// for the caller to specialize or invoke with.
func (rt *Runtime) evalPathMaybeAction(path *Cell, allowGroups bool) (Cell, *Action, []Symbol) {
	out := rt.walkPath(path, nil, allowGroups)
	if out.action != nil {
		return Cell{}, out.action, out.refines
	}
	return out.value, nil, nil
}

// pathOutcome is the walker's internal result.
type pathOutcome struct {
	value   Cell
	action  *Action
	refines []Symbol
}

// walkPath is the state machine. setval non-nil selects SET semantics.
func (rt *Runtime) walkPath(path *Cell, setval *Cell, allowGroups bool) pathOutcome {
	if !path.Kind().IsPathlike() {
		panic("walkPath: not a pathlike cell")
	}
	s := path.Series()
	first := path.Index()
	if s.Len()-first < 2 {
		rt.Fail(CatScript, IDBadPathPick, *path)
	}
	specifier := path.Binding()

	// Seed: resolve the first element to a value plus the slot it came
	// from, when there is one to remember for write-back.
	var cur Cell
	var ref *Cell
	seed := derivePtr(s.At(first), specifier)
	switch seed.Kind() {
	case KindWord:
		ref = rt.GetWord(seed)
		cur = *ref
	case KindGroup:
		if !allowGroups {
			rt.Fail(CatScript, IDGroupForbidden, *path)
		}
		cur = rt.DoBlock(seed)
	default:
		cur = *seed
	}

	// A callable seed flips the walk into refinement accumulation. The
	// pickers are pushed onto the operand stack in forward order, popped
	// back off in reverse, and un-reversed once so discovery order is
	// what the caller sees.
	if cur.Kind() == KindAction {
		mark := len(rt.stack)
		for i := first + 1; i < s.Len(); i++ {
			el := s.At(i)
			if el.Kind() != KindWord {
				rt.Fail(CatScript, IDBadRefine, *el)
			}
			rt.stack = append(rt.stack, *el)
		}
		refines := make([]Symbol, 0, len(rt.stack)-mark)
		for len(rt.stack) > mark {
			top := rt.stack[len(rt.stack)-1]
			rt.stack = rt.stack[:len(rt.stack)-1]
			refines = append(refines, top.Symbol())
		}
		for i, j := 0, len(refines)-1; i < j; i, j = i+1, j-1 {
			refines[i], refines[j] = refines[j], refines[i]
		}
		if setval != nil {
			rt.Fail(CatScript, IDBadPathSet, *path)
		}
		return pathOutcome{action: cur.Action(), refines: refines}
	}

	// Step through the remaining pickers.
	for i := first + 1; i < s.Len(); i++ {
		last := i == s.Len()-1

		if cur.Kind() == KindBlank {
			rt.Fail(CatScript, IDPickPastNull, *s.At(i))
		}

		picker := derive(*s.At(i), specifier)
		if picker.Kind() == KindGroup {
			if !allowGroups {
				rt.Fail(CatScript, IDGroupForbidden, *path)
			}
			picker = rt.DoBlock(&picker)
		}

		step := PathStep{Value: &cur, Picker: &picker}
		if last && setval != nil {
			step.SetVal = setval
		}

		redo := 0
	dispatch:
		// Quoted values shed one quote level and re-dispatch, the same
		// protocol a hook expresses by returning PathRedo.
		if cur.QuoteDepth() > 0 {
			cur = Unquotify(cur, 1)
			goto dispatch
		}
		d := rt.mustDispatch(cur.Kind())
		if d.Path == nil {
			rt.Fail(CatScript, IDBadPathPick, picker)
		}
		res := d.Path(rt, &step)
		switch res.Kind {
		case PathValue:
			cur = res.Value
			ref = nil

		case PathReference:
			if res.Ref == nil {
				rt.Panic("path hook returned reference variant with nil slot")
			}
			ref = res.Ref
			cur = *ref

		case PathWriteBack:
			// The hook updated the proxy in place. On a final SET step
			// the proxy must flow back into a real variable.
			if last && setval != nil {
				if ref == nil {
					rt.Fail(CatScript, IDBadPickTemp, picker)
				}
				*ref = cur
			}

		case PathRedo:
			redo++
			if redo > redoLimit {
				rt.Panic("path hook redo loop for " + cur.Kind().Name())
			}
			goto dispatch

		case PathUnhandled:
			if setval != nil && last {
				rt.Fail(CatScript, IDBadPathSet, picker)
			}
			rt.Fail(CatScript, IDBadPathPick, picker)
		}
	}

	return pathOutcome{value: cur}
}

// ---------------------------------------------------------------------------
// Single-step pick/poke
// ---------------------------------------------------------------------------

// PickValue applies one picker against a value outside any path walk,
// the PICK native's engine. Shares the hook protocol with the walker.
func (rt *Runtime) PickValue(v Cell, picker Cell) Cell {
	cur, ref := rt.stepOnce(v, picker, nil)
	if ref != nil {
		return *ref
	}
	return cur
}

// PokeValue writes through one picker. Hooks that can only update a
// temporary proxy fail here: a lone poke has no outer reference to
// write the proxy back through.
func (rt *Runtime) PokeValue(v Cell, picker Cell, val Cell) {
	rt.stepOnce(v, picker, &val)
}

func (rt *Runtime) stepOnce(v Cell, picker Cell, setval *Cell) (Cell, *Cell) {
	step := PathStep{Value: &v, Picker: &picker, SetVal: setval}
	redo := 0
dispatch:
	if v.QuoteDepth() > 0 {
		v = Unquotify(v, 1)
		goto dispatch
	}
	d := rt.mustDispatch(v.Kind())
	if d.Path == nil {
		rt.Fail(CatScript, IDBadPathPick, picker)
	}
	res := d.Path(rt, &step)
	switch res.Kind {
	case PathValue:
		return res.Value, nil
	case PathReference:
		if res.Ref == nil {
			rt.Panic("path hook returned reference variant with nil slot")
		}
		return *res.Ref, res.Ref
	case PathWriteBack:
		if setval != nil {
			rt.Fail(CatScript, IDBadPickTemp, picker)
		}
		return v, nil
	case PathRedo:
		redo++
		if redo > redoLimit {
			rt.Panic("path hook redo loop for " + v.Kind().Name())
		}
		goto dispatch
	}
	if setval != nil {
		rt.Fail(CatScript, IDBadPathSet, picker)
	}
	rt.Fail(CatScript, IDBadPathPick, picker)
	panic("unreachable")
}
