package core

// Frame is one pending evaluation step on the single call stack. Frames
// nest by ordinary Go calls; the only other control transfer between
// them is the trap unwind, which tears frames down rather than pausing
// them. Recursion depth is bounded explicitly so runaway recursion
// becomes a stack-overflow error instead of corrupting checkpoint
// invariants.
type Frame struct {
	label  Symbol
	action *Action
	prior  *Frame

	// varlist is the frame's argument context for body actions. It is
	// invalidated (not freed) when the frame pops: closures may still
	// hold it.
	varlist *Context

	// args/refines carry the native calling convention.
	args    []Cell
	refines map[Symbol]bool

	// source position for error diagnostics.
	source      *Series
	sourceIndex int
	file        string
	line        int
}

// Label returns the frame's call label symbol.
func (f *Frame) Label() Symbol { return f.label }

// Arg returns the n-th positional argument (0-based). Missing arguments
// read as blank.
func (f *Frame) Arg(n int) *Cell {
	if n < 0 || n >= len(f.args) {
		panic("Frame.Arg: index out of range")
	}
	return &f.args[n]
}

// ArgCount returns the number of positional arguments supplied.
func (f *Frame) ArgCount() int { return len(f.args) }

// HasRefinement reports whether a refinement was requested for this call.
func (f *Frame) HasRefinement(sym Symbol) bool { return f.refines[sym] }

// ---------------------------------------------------------------------------
// Frame stack
// ---------------------------------------------------------------------------

// pushFrame links a new frame on top of the call stack, enforcing the
// recursion guard.
func (rt *Runtime) pushFrame(f *Frame) {
	if rt.frameDepth >= rt.maxFrameDepth {
		rt.Fail(CatInternal, IDStackOverflow)
	}
	f.prior = rt.topFrame
	rt.topFrame = f
	rt.frameDepth++
}

// popFrame unlinks the top frame, invalidating its argument context so
// outstanding closure references read as expired rather than stale.
func (rt *Runtime) popFrame() {
	f := rt.topFrame
	if f == nil {
		panic("Runtime.popFrame: frame stack empty")
	}
	if f.varlist != nil {
		f.varlist.Invalidate()
	}
	rt.topFrame = f.prior
	rt.frameDepth--
}

// FrameDepth returns the current call nesting depth.
func (rt *Runtime) FrameDepth() int { return rt.frameDepth }

// Where returns the labels of the live frames, innermost first. Used by
// diagnostics and tests.
func (rt *Runtime) Where() []Symbol {
	var out []Symbol
	for f := rt.topFrame; f != nil; f = f.prior {
		if f.label != SymNone {
			out = append(out, f.label)
		}
	}
	return out
}
