package core

import (
	"math"
	"strconv"
)

// Handlers for the inline scalar kinds. These are the mechanical leaves
// of the dispatch table; the interesting machinery is what routes here.

func registerScalarKinds(rt *Runtime) {
	rt.RegisterKind(KindBlank, &Dispatch{
		Name:    "blank",
		Compare: compareBlank,
		Mold: func(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
			mo.WriteString("_")
		},
		Make: func(rt *Runtime, kind Kind, arg *Cell) Cell { return Blank() },
		To:   func(rt *Runtime, kind Kind, arg *Cell) Cell { return Blank() },
	})

	rt.RegisterKind(KindLogic, &Dispatch{
		Name:    "logic",
		Compare: compareLogic,
		Mold:    moldLogic,
		Make:    makeLogic,
		To:      makeLogic,
	})

	rt.RegisterKind(KindInteger, &Dispatch{
		Name:    "integer",
		Compare: compareNumeric,
		Mold: func(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
			moldInteger(mo, v.Integer())
		},
		Make:   makeInteger,
		To:     makeInteger,
		Action: numericAction,
	})

	rt.RegisterKind(KindDecimal, &Dispatch{
		Name:    "decimal",
		Compare: compareNumeric,
		Mold: func(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
			mo.WriteString(strconv.FormatFloat(v.Decimal(), 'g', -1, 64))
		},
		Make:   makeDecimal,
		To:     makeDecimal,
		Action: numericAction,
	})
}

func compareBlank(rt *Runtime, a, b *Cell, strict bool) int {
	return 0 // all blanks are equal
}

func compareLogic(rt *Runtime, a, b *Cell, strict bool) int {
	av, bv := a.Logic(), b.Logic()
	switch {
	case av == bv:
		return 0
	case !av:
		return -1
	default:
		return 1
	}
}

// compareNumeric serves integer! and decimal!, including the cross-kind
// pair: the only cross-kind comparison the table allows.
func compareNumeric(rt *Runtime, a, b *Cell, strict bool) int {
	if strict && a.Kind() != b.Kind() {
		if a.Kind() < b.Kind() {
			return -1
		}
		return 1
	}
	av, bv := numericValue(a), numericValue(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func numericValue(c *Cell) float64 {
	if c.Kind() == KindInteger {
		return float64(c.Integer())
	}
	return c.Decimal()
}

func moldLogic(rt *Runtime, mo *MoldBuffer, v *Cell, form bool) {
	if v.Logic() {
		mo.WriteString("true")
	} else {
		mo.WriteString("false")
	}
}

func makeLogic(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindLogic:
		return *arg
	case KindBlank:
		return LogicCell(false)
	default:
		return LogicCell(arg.IsTruthy())
	}
}

func makeInteger(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindInteger:
		return *arg
	case KindDecimal:
		f := arg.Decimal()
		if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
			rt.Fail(CatMath, IDOverflow)
		}
		return IntegerCell(int64(f))
	case KindText:
		n, err := strconv.ParseInt(arg.Series().String(), 10, 64)
		if err != nil {
			rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
		}
		return IntegerCell(n)
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

func makeDecimal(rt *Runtime, kind Kind, arg *Cell) Cell {
	switch arg.Kind() {
	case KindDecimal:
		return *arg
	case KindInteger:
		return DecimalCell(float64(arg.Integer()))
	case KindText:
		f, err := strconv.ParseFloat(arg.Series().String(), 64)
		if err != nil {
			rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
		}
		return DecimalCell(f)
	}
	rt.Fail(CatScript, IDCannotMake, rt.kindCell(kind), *arg)
	panic("unreachable")
}

// numericAction handles the arithmetic verbs for both numeric kinds.
func numericAction(rt *Runtime, verb Symbol, v *Cell, args []Cell) (Cell, bool) {
	switch verb {
	case rt.symAdd, rt.symSubtract, rt.symMultiply, rt.symDivide:
		if len(args) != 1 {
			rt.Fail(CatScript, IDExpectArg, rt.wordCell(verb), IntegerCell(1))
		}
		return rt.numericBinary(verb, v, &args[0]), true
	case rt.symNegate:
		if v.Kind() == KindInteger {
			return IntegerCell(-v.Integer()), true
		}
		return DecimalCell(-v.Decimal()), true
	}
	return Cell{}, false
}

func (rt *Runtime) numericBinary(verb Symbol, a, b *Cell) Cell {
	if b.Kind() != KindInteger && b.Kind() != KindDecimal {
		rt.FailInvalidArg(verb, *b)
	}
	// Integer pairs stay exact; anything else widens to decimal.
	if a.Kind() == KindInteger && b.Kind() == KindInteger {
		x, y := a.Integer(), b.Integer()
		switch verb {
		case rt.symAdd:
			return IntegerCell(x + y)
		case rt.symSubtract:
			return IntegerCell(x - y)
		case rt.symMultiply:
			return IntegerCell(x * y)
		case rt.symDivide:
			if y == 0 {
				rt.Fail(CatMath, IDZeroDivide)
			}
			if x%y == 0 {
				return IntegerCell(x / y)
			}
			return DecimalCell(float64(x) / float64(y))
		}
	}
	x, y := numericValue(a), numericValue(b)
	switch verb {
	case rt.symAdd:
		return DecimalCell(x + y)
	case rt.symSubtract:
		return DecimalCell(x - y)
	case rt.symMultiply:
		return DecimalCell(x * y)
	case rt.symDivide:
		if y == 0 {
			rt.Fail(CatMath, IDZeroDivide)
		}
		return DecimalCell(x / y)
	}
	panic("numericBinary: unknown verb")
}
