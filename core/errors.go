package core

// Error objects are contexts of kind error! with the standard field set:
// type, id, message, arg1..arg3, near, where, file, line. They come from
// two origins: runtime code calling Fail with a typed category/id pair,
// and user-level MAKE ERROR! validated against the same catalog.

// nearLimit bounds the captured "near" source snippet in error reports.
const nearLimit = 80

// errorFieldCount is the fixed key count of an error context.
const errorFieldCount = 10

// NewError builds an error context from a catalog category/id pair plus
// positional argument cells. The pair must exist in the catalog: a
// missing pair, or an argument count that disagrees with the template's
// placeholder count, is an internal consistency panic, not a user error.
func (rt *Runtime) NewError(cat ErrorCategory, id ErrorID, args ...Cell) *Context {
	if rt.catalog == nil {
		panic("NewError: error catalog not loaded (boot sequencing bug)")
	}
	mt := rt.catalog.Lookup(cat, id)
	if mt == nil {
		panic("NewError: unknown error " + string(cat) + "/" + string(id))
	}
	if len(args) != mt.ArgCount {
		panic("NewError: argument count mismatch for " + string(cat) + "/" + string(id))
	}

	ctx := rt.makeErrorContext()
	*ctx.VarAt(rt.errType) = WordCell(KindWord, rt.Symbols.Intern(string(cat)))
	*ctx.VarAt(rt.errID) = WordCell(KindWord, rt.Symbols.Intern(string(id)))
	*ctx.VarAt(rt.errMessage) = rt.textCell(mt.render(rt, args))
	for i, a := range args {
		if i >= 3 {
			break
		}
		*ctx.VarAt(rt.errArg1 + i) = a
	}
	rt.Manage(ctx.varlist)
	return ctx
}

// UserError wraps a raw message string into a generic user-category
// error.
func (rt *Runtime) UserError(msg string) *Context {
	return rt.NewError(CatUser, IDUserMessage, rt.textCell(msg))
}

// makeErrorContext allocates the fixed-shape error context. All error
// contexts share one keylist, cached on the runtime.
func (rt *Runtime) makeErrorContext() *Context {
	ctx := rt.MakeContext(KindError, errorFieldCount)
	for _, sym := range rt.errorKeys {
		ctx.AppendKey(sym)
	}
	return ctx
}

// ---------------------------------------------------------------------------
// User-level MAKE ERROR!
// ---------------------------------------------------------------------------

// MakeError constructs an error from a user specification: a text cell
// (generic user error) or a block of set-word/value pairs. A type/id
// pair naming catalog entries must resolve to a known template, and a
// known pair rejects a user-supplied message: the catalog's template
// wins, so a system id cannot be spoofed with mismatched text.
//
// Validation failures surface as ordinary user errors. The reserved
// invalid-error object built during boot guards against recursion if
// error construction itself fails.
func (rt *Runtime) MakeError(spec *Cell) *Context {
	switch spec.Kind() {
	case KindText:
		return rt.UserError(spec.Series().String())
	case KindError:
		return spec.Context()
	case KindBlock:
		return rt.makeErrorFromBlock(spec)
	}
	rt.failInvalidError(spec)
	panic("unreachable")
}

func (rt *Runtime) makeErrorFromBlock(spec *Cell) *Context {
	var typeVal, idVal, msgVal *Cell

	s := spec.Series()
	for i := spec.Index(); i < s.Len(); i += 2 {
		field := s.At(i)
		if field.Kind() != KindSetWord || i+1 >= s.Len() {
			rt.failInvalidError(spec)
		}
		val := s.At(i + 1)
		switch field.Symbol() {
		case rt.symType:
			typeVal = val
		case rt.symID:
			idVal = val
		case rt.symMessage:
			msgVal = val
		default:
			rt.failInvalidError(spec)
		}
	}

	if typeVal == nil || idVal == nil {
		if msgVal != nil && msgVal.Kind() == KindText {
			return rt.UserError(msgVal.Series().String())
		}
		rt.failInvalidError(spec)
	}
	if typeVal.Kind() != KindWord || idVal.Kind() != KindWord {
		rt.failInvalidError(spec)
	}

	cat := ErrorCategory(rt.Symbols.Name(typeVal.Symbol()))
	id := ErrorID(rt.Symbols.Name(idVal.Symbol()))
	mt := rt.catalog.Lookup(cat, id)
	if mt == nil {
		rt.failInvalidError(spec)
	}
	if msgVal != nil {
		// Known pair with a user message is a spoof attempt.
		rt.failInvalidError(spec)
	}

	args := make([]Cell, mt.ArgCount)
	for i := range args {
		args[i] = Blank()
	}
	return rt.NewError(cat, id, args...)
}

// failInvalidError raises the construction-time validation error. The
// pre-built object from boot breaks the recursion that would otherwise
// occur if constructing the invalid-error error failed too.
func (rt *Runtime) failInvalidError(spec *Cell) {
	if rt.invalidErrorObj != nil {
		err := rt.CopyContext(rt.invalidErrorObj, 0)
		rt.Manage(err.varlist)
		if spec != nil {
			*err.VarAt(rt.errArg1) = *spec
		}
		rt.FailWith(err)
	}
	panic("failInvalidError: reserved invalid-error object not built")
}

// ---------------------------------------------------------------------------
// Field access and rendering
// ---------------------------------------------------------------------------

// ErrorType returns the error's category word spelling.
func (rt *Runtime) ErrorType(err *Context) string {
	c := err.VarAt(rt.errType)
	if c.Kind() != KindWord {
		return ""
	}
	return rt.Symbols.Name(c.Symbol())
}

// ErrorID returns the error's id word spelling.
func (rt *Runtime) ErrorID(err *Context) string {
	c := err.VarAt(rt.errID)
	if c.Kind() != KindWord {
		return ""
	}
	return rt.Symbols.Name(c.Symbol())
}

// ErrorMessage returns the expanded message text.
func (rt *Runtime) ErrorMessage(err *Context) string {
	c := err.VarAt(rt.errMessage)
	if c.Kind() != KindText {
		return ""
	}
	return c.Series().String()
}

// RenderError produces the top-level report:
//
//	** Script Error: <message>
//	** Where: <call labels>
//	** Near: <source snippet>
//	** File: <file>  ** Line: <line>
//
// Where/Near/File/Line lines appear only when captured. Long near
// snippets are truncated with an ellipsis.
func (rt *Runtime) RenderError(err *Context) string {
	mark := rt.mold.Mark()
	mo := rt.mold

	mo.WriteString("** ")
	mo.WriteString(ErrorCategory(rt.ErrorType(err)).displayName())
	mo.WriteString(" Error: ")
	mo.WriteString(rt.ErrorMessage(err))

	if w := err.VarAt(rt.errWhere); w.Kind() == KindBlock && w.Series().Len() > 0 {
		mo.WriteString("\n** Where: ")
		rt.moldArrayBody(mo, w.Series(), 0, true)
	}
	if n := err.VarAt(rt.errNear); n.Kind() == KindText && n.Series().Len() > 0 {
		mo.WriteString("\n** Near: ")
		near := n.Series().String()
		if len(near) > nearLimit {
			near = near[:nearLimit] + moldEllipsis
		}
		mo.WriteString(near)
	}
	if f := err.VarAt(rt.errFile); f.Kind() == KindText && f.Series().Len() > 0 {
		mo.WriteString("\n** File: ")
		mo.WriteString(f.Series().String())
	}
	if l := err.VarAt(rt.errLine); l.Kind() == KindInteger {
		mo.WriteString("\n** Line: ")
		moldInteger(mo, l.Integer())
	}
	return mo.TakeFrom(mark)
}

// textCell allocates a managed text! series holding s.
func (rt *Runtime) textCell(s string) Cell {
	series := rt.MakeSeries(len(s))
	series.AppendBytes([]byte(s))
	rt.Manage(series)
	return SeriesCell(KindText, series, 0)
}
