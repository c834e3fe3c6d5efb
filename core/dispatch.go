package core

// Generic dispatch routes an operation on a value to the handler
// registered for the value's kind byte. There is no inheritance chain:
// the kind indexes straight into a table, and shared behavior across
// kinds is one handler calling another (or both calling a shared
// helper). Handlers that do not recognize a verb return unhandled, a
// sentinel distinct from an error, so an outer layer (the port-actor
// fallback) gets a chance before the user sees "cannot use".

// CompareHook orders two values of compatible kinds: -1, 0, or 1.
// Strict mode distinguishes case and datatype where lax mode folds them.
type CompareHook func(rt *Runtime, a, b *Cell, strict bool) int

// MoldHook renders a value into the mold buffer. form selects the
// human-readable rendering over the source-loadable one.
type MoldHook func(rt *Runtime, mo *MoldBuffer, v *Cell, form bool)

// MakeHook constructs a value of the hook's kind from an argument. MAKE
// hooks may evaluate and accept broad input; TO hooks never evaluate and
// convert narrowly. Both fail through the trap protocol on bad input.
type MakeHook func(rt *Runtime, kind Kind, arg *Cell) Cell

// PathHook handles one picker step against a value of the hook's kind.
type PathHook func(rt *Runtime, step *PathStep) PathResult

// ActionHook is the catch-all verb dispatcher for a kind. It returns the
// result and true, or a zero cell and false for unhandled.
type ActionHook func(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool)

// Dispatch is the per-kind handler table entry.
type Dispatch struct {
	Name    string
	Compare CompareHook
	Mold    MoldHook
	Make    MakeHook
	To      MakeHook
	Path    PathHook
	Action  ActionHook
}

// PathStep carries one step of path traversal into a hook.
type PathStep struct {
	Value  *Cell // current value being picked into
	Picker *Cell // the resolved picker element
	SetVal *Cell // non-nil only on the final step of a SET-path
}

// PathResultKind tags a hook's traversal answer.
type PathResultKind int

const (
	// PathValue: continue with Value as the new current value.
	PathValue PathResultKind = iota
	// PathReference: Ref is the mutable slot found; dereference to
	// continue and remember it for write-back.
	PathReference
	// PathWriteBack: the hook updated the proxy in Step.Value in place;
	// if this was the last step of a SET-path, the caller must write the
	// proxy back through its remembered reference.
	PathWriteBack
	// PathRedo: re-dispatch the same step (used after stripping a quote
	// level).
	PathRedo
	// PathUnhandled: the picker is not valid for this kind.
	PathUnhandled
)

// PathResult is the tagged traversal answer. A tagged struct rather than
// sentinel pointers: each variant's payload is explicit.
type PathResult struct {
	Kind  PathResultKind
	Value Cell
	Ref   *Cell
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// RegisterKind installs the dispatch entry for a kind. Every kind byte
// that can appear in a cell must have a non-nil entry before evaluation
// starts; holes in the table are boot sequencing bugs.
func (rt *Runtime) RegisterKind(k Kind, d *Dispatch) {
	if k == KindEnd || k >= KindMax {
		panic("RegisterKind: invalid kind")
	}
	if d == nil {
		panic("RegisterKind: nil dispatch entry")
	}
	rt.dispatch[k] = d
}

// dispatchFor returns the entry for a kind, or nil.
func (rt *Runtime) dispatchFor(k Kind) *Dispatch {
	if k >= KindMax {
		return nil
	}
	return rt.dispatch[k]
}

// mustDispatch returns the entry for a kind, panicking on a table hole.
func (rt *Runtime) mustDispatch(k Kind) *Dispatch {
	d := rt.dispatchFor(k)
	if d == nil {
		panic("dispatch: no handler registered for " + k.Name())
	}
	return d
}

// stubCompare is installed for kinds providing no comparison, keeping
// dispatch branch-free. It fails as a user error, not a panic.
func stubCompare(rt *Runtime, a, b *Cell, strict bool) int {
	rt.Fail(CatScript, IDInvalidCompare, *a, *b)
	return 0 // unreachable
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// CompareValues orders two cells. Quoting participates: values are
// compared at equal quote depth only; unequal depths order by depth.
func (rt *Runtime) CompareValues(a, b *Cell, strict bool) int {
	ba, da := Dequote(*a)
	bb, db := Dequote(*b)
	if da != db {
		if da < db {
			return -1
		}
		return 1
	}
	ka, kb := ba.Kind(), bb.Kind()
	if ka != kb && !crossComparable(ka, kb) {
		if ka < kb {
			return -1
		}
		return 1
	}
	if ka != kb && !ka.IsPathlike() && kb.IsPathlike() {
		// The array handler owns the word/path pairing; swap so the
		// pathlike operand is on its own dispatch side.
		d := rt.mustDispatch(kb)
		if d.Compare == nil {
			return stubCompare(rt, &ba, &bb, strict)
		}
		return -d.Compare(rt, &bb, &ba, strict)
	}
	d := rt.mustDispatch(ka)
	if d.Compare == nil {
		return stubCompare(rt, &ba, &bb, strict)
	}
	return d.Compare(rt, &ba, &bb, strict)
}

// EqualValues reports lax equality.
func (rt *Runtime) EqualValues(a, b *Cell) bool {
	ba, da := Dequote(*a)
	bb, db := Dequote(*b)
	if da != db {
		return false
	}
	ka, kb := ba.Kind(), bb.Kind()
	if ka != kb && !crossComparable(ka, kb) {
		return false
	}
	if ka != kb && !ka.IsPathlike() && kb.IsPathlike() {
		ba, bb = bb, ba
		ka = kb
	}
	d := rt.mustDispatch(ka)
	if d.Compare == nil {
		return false
	}
	return d.Compare(rt, &ba, &bb, false) == 0
}

// crossComparable allows cross-kind comparison for the numeric pair and
// for a word against a path (a single-word path equals its word).
func crossComparable(a, b Kind) bool {
	num := func(k Kind) bool { return k == KindInteger || k == KindDecimal }
	if num(a) && num(b) {
		return true
	}
	return (a.IsWordlike() && b.IsPathlike()) || (a.IsPathlike() && b.IsWordlike())
}

// ---------------------------------------------------------------------------
// MAKE / TO
// ---------------------------------------------------------------------------

// MakeValue constructs a value of the target kind from arg via the
// kind's MAKE hook.
func (rt *Runtime) MakeValue(kind Kind, arg *Cell) Cell {
	d := rt.mustDispatch(kind)
	if d.Make == nil {
		rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	}
	return d.Make(rt, kind, arg)
}

// ToValue converts arg to the target kind via the kind's TO hook.
func (rt *Runtime) ToValue(kind Kind, arg *Cell) Cell {
	d := rt.mustDispatch(kind)
	if d.To == nil {
		rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	}
	return d.To(rt, kind, arg)
}

// kindCell renders a kind as a word cell for error arguments.
func (rt *Runtime) kindCell(k Kind) Cell {
	return WordCell(KindWord, rt.Symbols.Intern(k.Name()))
}

// ---------------------------------------------------------------------------
// Generic verb application
// ---------------------------------------------------------------------------

// Apply routes a verb to the value's kind handler. The quote rule from
// the cell model holds here: quoting is stripped before dispatch and
// restored on the output, so any kind gains quoted variants for free.
// Unclaimed verbs fall through to the port-actor layer before failing.
func (rt *Runtime) Apply(verb Symbol, v *Cell, args []Cell) Cell {
	bare, depth := Dequote(*v)
	d := rt.mustDispatch(bare.Kind())

	if d.Action != nil {
		if out, handled := d.Action(rt, verb, &bare, args); handled {
			return Requote(out, depth)
		}
	}
	if out, handled := rt.portActorFallback(verb, &bare, args); handled {
		return Requote(out, depth)
	}
	rt.Fail(CatScript, IDCannotUse, rt.wordCell(verb), bare)
	panic("unreachable")
}

// portActorFallback bounces an unclaimed verb on a port-shaped context
// to the action stored in its "actor" slot. This is the core's only
// contract with the I/O layer: it does not know what the actor does.
func (rt *Runtime) portActorFallback(verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	if v.Kind() != KindPort {
		return Cell{}, false
	}
	ctx := v.Context()
	idx := ctx.FindKey(rt.symActor)
	if idx == 0 {
		return Cell{}, false
	}
	slot := ctx.VarAt(idx)
	if slot.Kind() != KindAction {
		return Cell{}, false
	}
	actorArgs := make([]Cell, 0, len(args)+2)
	actorArgs = append(actorArgs, *v, rt.wordCell(verb))
	actorArgs = append(actorArgs, args...)
	return rt.invokeNative(slot.Action(), actorArgs), true
}

// wordCell builds a bound-free word! cell for a symbol.
func (rt *Runtime) wordCell(sym Symbol) Cell {
	return WordCell(KindWord, sym)
}
