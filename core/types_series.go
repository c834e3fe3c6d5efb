package core

// Handlers for the series-backed kinds: the arraylike family (block!,
// group!, paths) and the byte-backed pair (text!, binary!). One shared
// action helper serves them all; the per-kind entries differ only in
// mold delimiters and path pickers.

func registerSeriesKinds(rt *Runtime) {
	array := &Dispatch{
		Name:    "array",
		Compare: compareArray,
		Mold:    moldArray,
		Make:    makeArray,
		To:      toArray,
		Path:    pdArray,
		Action:  seriesAction,
	}
	rt.RegisterKind(KindBlock, array)
	rt.RegisterKind(KindGroup, array)
	rt.RegisterKind(KindPath, array)
	rt.RegisterKind(KindSetPath, array)
	rt.RegisterKind(KindGetPath, array)

	bytes := &Dispatch{
		Name:    "bytes",
		Compare: compareBytes,
		Mold:    moldBytes,
		Make:    makeBytes,
		To:      toBytes,
		Path:    pdBytes,
		Action:  seriesAction,
	}
	rt.RegisterKind(KindText, bytes)
	rt.RegisterKind(KindBinary, bytes)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// compareArray orders element-wise, shorter series first on a tie.
// A path in single-word form delegates to the word comparison, sharing
// behavior without inheritance.
func compareArray(rt *Runtime, a, b *Cell, strict bool) int {
	if a.Kind().IsPathlike() && b.Kind().IsWordlike() {
		if w := singleWordOf(a); w != nil {
			return compareWord(rt, w, b, strict)
		}
		return 1 // a multi-element path orders after any bare word
	}
	as, bs := a.Series(), b.Series()
	ai, bi := a.Index(), b.Index()
	for {
		aDone := ai >= as.Len()
		bDone := bi >= bs.Len()
		if aDone || bDone {
			switch {
			case aDone && bDone:
				return 0
			case aDone:
				return -1
			default:
				return 1
			}
		}
		if c := rt.CompareValues(as.At(ai), bs.At(bi), strict); c != 0 {
			return c
		}
		ai++
		bi++
	}
}

// singleWordOf returns the word cell of a one-element path, or nil.
func singleWordOf(p *Cell) *Cell {
	s := p.Series()
	if s.Len()-p.Index() != 1 {
		return nil
	}
	el := s.At(p.Index())
	if !el.Kind().IsWordlike() {
		return nil
	}
	return el
}

func compareBytes(rt *Runtime, a, b *Cell, strict bool) int {
	if strict && a.Kind() != b.Kind() {
		if a.Kind() < b.Kind() {
			return -1
		}
		return 1
	}
	ab := a.Series().Bytes()[a.Index():]
	bb := b.Series().Bytes()[b.Index():]
	if !strict && a.Kind() == KindText {
		return compareFolded(ab, bb)
	}
	switch {
	case string(ab) < string(bb):
		return -1
	case string(ab) > string(bb):
		return 1
	default:
		return 0
	}
}

func compareFolded(a, b []byte) int {
	fold := func(c byte) byte {
		if c >= 'A' && c <= 'Z' {
			return c + 32
		}
		return c
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		fa, fb := fold(a[i]), fold(b[i])
		if fa != fb {
			if fa < fb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// Mold
// ---------------------------------------------------------------------------

func moldArray(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	switch v.Kind() {
	case KindGroup:
		mo.WriteString("(")
		rt.moldArrayBody(mo, v.Series(), v.Index(), form)
		mo.WriteString(")")
	case KindPath, KindSetPath, KindGetPath:
		if v.Kind() == KindGetPath {
			mo.WriteString(":")
		}
		s := v.Series()
		for i := v.Index(); i < s.Len(); i++ {
			if i > v.Index() {
				mo.WriteString("/")
			}
			rt.moldInto(mo, s.At(i), form)
		}
		if v.Kind() == KindSetPath {
			mo.WriteString(":")
		}
	default:
		if form {
			rt.moldArrayBody(mo, v.Series(), v.Index(), form)
			return
		}
		mo.WriteString("[")
		rt.moldArrayBody(mo, v.Series(), v.Index(), form)
		mo.WriteString("]")
	}
}

func moldBytes(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	if v.Kind() == KindBinary {
		mo.WriteString("#{")
		const hexdigits = "0123456789ABCDEF"
		for _, b := range v.Series().Bytes()[v.Index():] {
			mo.WriteByte(hexdigits[b>>4])
			mo.WriteByte(hexdigits[b&0xF])
		}
		mo.WriteString("}")
		return
	}
	if form {
		mo.WriteString(v.Series().String()[v.Index():])
		return
	}
	mo.WriteString("\"")
	mo.WriteString(v.Series().String()[v.Index():])
	mo.WriteString("\"")
}

// ---------------------------------------------------------------------------
// MAKE / TO
// ---------------------------------------------------------------------------

func makeArray(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindInteger:
		s := rt.MakeArray(int(arg.Integer()))
		rt.Manage(s)
		return SeriesCell(kind, s, 0)
	case KindBlock, KindGroup, KindPath, KindSetPath, KindGetPath:
		out := rt.copySeries(arg)
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		return out
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

func toArray(rt *Runtime, kind Kind, arg *Cell) Cell {
	if arg.Kind().IsArraylike() {
		// TO between array kinds aliases without copying.
		out := *arg
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		return out
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

func makeBytes(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindInteger:
		s := rt.MakeSeries(int(arg.Integer()))
		rt.Manage(s)
		return SeriesCell(kind, s, 0)
	case KindText, KindBinary:
		out := rt.copySeries(arg)
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		return out
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

func toBytes(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindText, KindBinary:
		out := *arg
		out.header = (out.header &^ headerKindMask) | uint32(kind)
		return out
	case KindWord, KindSetWord, KindGetWord:
		s := rt.MakeSeries(len(rt.Symbols.Name(arg.Symbol())))
		s.AppendBytes([]byte(rt.Symbols.Name(arg.Symbol())))
		rt.Manage(s)
		return SeriesCell(kind, s, 0)
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

// ---------------------------------------------------------------------------
// Path dispatch
// ---------------------------------------------------------------------------

// pdArray picks by 1-based integer position. Get steps answer with a
// reference into the buffer so a later SET can write back; set steps
// poke in place.
func pdArray(rt *Runtime, step *PathStep) PathResult {
	v := step.Value
	if step.Picker.Kind() != KindInteger {
		return PathResult{Kind: PathUnhandled}
	}
	n := int(step.Picker.Integer())
	s := v.Series()
	idx := v.Index() + n - 1
	if n < 1 || idx >= s.Len() {
		rt.Fail(CatScript, IDBadPathPick, *step.Picker)
	}
	if step.SetVal != nil {
		rt.ensureMutable(v, s)
		*s.At(idx) = *step.SetVal
		return PathResult{Kind: PathValue, Value: *step.SetVal}
	}
	return PathResult{Kind: PathReference, Ref: s.At(idx)}
}

// pdBytes picks a byte as an integer. Setting a byte position updates
// the buffer in place.
func pdBytes(rt *Runtime, step *PathStep) PathResult {
	v := step.Value
	if step.Picker.Kind() != KindInteger {
		return PathResult{Kind: PathUnhandled}
	}
	n := int(step.Picker.Integer())
	s := v.Series()
	idx := v.Index() + n - 1
	if n < 1 || idx >= s.Len() {
		rt.Fail(CatScript, IDBadPathPick, *step.Picker)
	}
	if step.SetVal != nil {
		rt.ensureMutable(v, s)
		if step.SetVal.Kind() != KindInteger {
			rt.Fail(CatScript, IDBadPathSet, *step.SetVal)
		}
		b := step.SetVal.Integer()
		if b < 0 || b > 255 {
			rt.Fail(CatScript, IDBadPathSet, *step.SetVal)
		}
		s.Bytes()[idx] = byte(b)
		return PathResult{Kind: PathValue, Value: *step.SetVal}
	}
	return PathResult{Kind: PathValue, Value: IntegerCell(int64(s.Bytes()[idx]))}
}

// ---------------------------------------------------------------------------
// Shared series actions
// ---------------------------------------------------------------------------

// seriesAction is the common verb handler for every series-backed kind,
// the shared helper the per-kind entries all point at.
func seriesAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	s := v.Series()
	switch verb {
	case rt.symLength:
		return IntegerCell(int64(s.Len() - v.Index())), true

	case rt.symCopy:
		return rt.copySeries(v), true

	case rt.symFirst, rt.symLast:
		if s.Len() == v.Index() {
			return Blank(), true
		}
		if s.IsArray() {
			if verb == rt.symFirst {
				return *s.At(v.Index()), true
			}
			return *s.At(s.Len() - 1), true
		}
		if verb == rt.symFirst {
			return IntegerCell(int64(s.Bytes()[v.Index()])), true
		}
		return IntegerCell(int64(s.Bytes()[s.Len()-1])), true

	case rt.symAppend:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		rt.ensureMutable(v, s)
		rt.appendInto(s, &args[0])
		return *v, true

	case rt.symInsert:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		rt.ensureMutable(v, s)
		if s.IsArray() {
			s.InsertCellAt(v.Index(), args[0])
		} else {
			rt.Fail(CatScript, IDCannotUse, rt.wordCell(verb), *v)
		}
		return *v, true

	case rt.symRemove:
		rt.ensureMutable(v, s)
		if s.Len() > v.Index() {
			s.RemoveAt(v.Index(), 1)
		}
		return *v, true

	case rt.symFind:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		return rt.findInSeries(v, &args[0]), true

	case rt.symFreeze:
		s.FreezeDeep()
		return *v, true
	}
	return Cell{}, false
}

// copySeries shallow-copies from the cell's index to the tail into a new
// managed series of the same kind.
func (rt *Runtime) copySeries(v *Cell) Cell {
	s := v.Series()
	if s.IsArray() {
		out := rt.MakeArray(s.Len() - v.Index())
		for i := v.Index(); i < s.Len(); i++ {
			out.AppendCell(*s.At(i))
		}
		rt.Manage(out)
		return SeriesCell(v.Kind(), out, 0)
	}
	out := rt.MakeSeries(s.Len() - v.Index())
	out.AppendBytes(s.Bytes()[v.Index():])
	rt.Manage(out)
	return SeriesCell(v.Kind(), out, 0)
}

// appendInto appends a value to a series, splicing nothing: one value,
// one element (bytes take integers and same-width series).
func (rt *Runtime) appendInto(s *Series, val *Cell) {
	if s.IsArray() {
		s.AppendCell(*val)
		return
	}
	switch val.Kind() {
	case KindInteger:
		b := val.Integer()
		if b < 0 || b > 255 {
			rt.FailInvalidArg(rt.symAppend, *val)
		}
		s.AppendBytes([]byte{byte(b)})
	case KindText, KindBinary:
		s.AppendBytes(val.Series().Bytes()[val.Index():])
	default:
		rt.FailInvalidArg(rt.symAppend, *val)
	}
}

// findInSeries returns the series repositioned at the first match, or
// blank when absent.
func (rt *Runtime) findInSeries(v *Cell, target *Cell) Cell {
	s := v.Series()
	if s.IsArray() {
		for i := v.Index(); i < s.Len(); i++ {
			if rt.EqualValues(s.At(i), target) {
				out := *v
				out.SetIndex(i)
				return out
			}
		}
		return Blank()
	}
	if target.Kind() == KindInteger {
		b := byte(target.Integer())
		bs := s.Bytes()
		for i := v.Index(); i < len(bs); i++ {
			if bs[i] == b {
				out := *v
				out.SetIndex(i)
				return out
			}
		}
	}
	return Blank()
}
