package core

import (
	"fmt"
)

// The trap protocol is the non-local exit for user/script errors. A
// checkpoint snapshots the counters that must survive any failure:
// operand stack depth, guard stack depth, outstanding manual series, and
// mold buffer length (plus the pending signal mask). A fail anywhere
// below unwinds to the nearest trap, which restores all of them before
// handing the error object back. Internal invariant violations do not
// use this path: they are Go panics of a distinct type that no trap
// catches, because the state needed to resume is exactly what is
// suspect.

// Snapshot captures the checkpointed counters.
type Snapshot struct {
	StackDepth  int
	GuardDepth  int
	ManualDepth int
	MoldLen     int
	FrameDepth  int
	Signals     SignalMask
}

// SignalMask carries pending cooperative signals.
type SignalMask uint8

// SigHalt requests a halt at the next cooperative check.
const SigHalt SignalMask = 1 << 0

// failSignal is the value carried by the unwinding panic. Recovered only
// by Trap; anything else re-panics.
type failSignal struct {
	err *Context
}

// fatalPanic marks an internal consistency violation. Trap deliberately
// refuses to recover it.
type fatalPanic struct {
	msg string
}

func (f fatalPanic) String() string { return f.msg }

// ---------------------------------------------------------------------------
// Checkpoint
// ---------------------------------------------------------------------------

// TakeSnapshot captures the current checkpoint counters.
func (rt *Runtime) TakeSnapshot() Snapshot {
	return Snapshot{
		StackDepth:  len(rt.stack),
		GuardDepth:  len(rt.guards),
		ManualDepth: rt.tracker.ManualCount(),
		MoldLen:     rt.mold.Len(),
		FrameDepth:  rt.frameDepth,
		Signals:     rt.signals,
	}
}

// assertBalanced verifies that all checkpointed counters are back at
// their snapshot values. Called on the success path of every trap; a
// mismatch means some operation leaked state and is fatal.
func (rt *Runtime) assertBalanced(snap Snapshot) {
	if len(rt.stack) != snap.StackDepth {
		rt.Panic(fmt.Sprintf("checkpoint: operand stack %d, expected %d",
			len(rt.stack), snap.StackDepth))
	}
	if len(rt.guards) != snap.GuardDepth {
		rt.Panic(fmt.Sprintf("checkpoint: guard stack %d, expected %d",
			len(rt.guards), snap.GuardDepth))
	}
	if rt.tracker.ManualCount() != snap.ManualDepth {
		rt.Panic(fmt.Sprintf("checkpoint: %d manual series outstanding, expected %d",
			rt.tracker.ManualCount(), snap.ManualDepth))
	}
	if rt.mold.Len() != snap.MoldLen {
		rt.Panic(fmt.Sprintf("checkpoint: mold buffer %d, expected %d",
			rt.mold.Len(), snap.MoldLen))
	}
}

// restore brings every checkpointed counter back to the snapshot. Only
// the unwind path runs this; manual series allocated past the snapshot
// are freed here, the sole automatic cleanup manual series receive.
func (rt *Runtime) restore(snap Snapshot) {
	for rt.topFrame != nil && rt.frameDepth > snap.FrameDepth {
		rt.popFrame()
	}
	rt.stack = rt.stack[:snap.StackDepth]
	rt.guards = rt.guards[:snap.GuardDepth]
	rt.tracker.truncateManuals(snap.ManualDepth)
	rt.mold.truncate(snap.MoldLen)
	rt.signals = snap.Signals
}

// ---------------------------------------------------------------------------
// Trap
// ---------------------------------------------------------------------------

// Trap runs body under a checkpoint. A Fail anywhere inside unwinds
// here: frames between the failure site and this trap are torn down,
// the checkpointed counters are restored, and the error object is
// returned. On normal completion Trap asserts the counters balanced and
// returns nil.
func (rt *Runtime) Trap(body func()) (errObj *Context) {
	snap := rt.TakeSnapshot()
	done := false

	defer func() {
		if done {
			return
		}
		r := recover()
		if r == nil {
			return
		}
		fs, ok := r.(failSignal)
		if !ok {
			// Fatal panics and foreign panics pass through untouched.
			panic(r)
		}
		rt.restore(snap)
		errObj = fs.err
	}()

	body()
	done = true
	rt.assertBalanced(snap)
	return nil
}

// TrapCell is Trap for bodies producing a value: returns the value and
// nil, or a zero cell and the caught error.
func (rt *Runtime) TrapCell(body func() Cell) (out Cell, errObj *Context) {
	errObj = rt.Trap(func() { out = body() })
	if errObj != nil {
		out = Cell{}
	}
	return out, errObj
}

// ---------------------------------------------------------------------------
// Fail
// ---------------------------------------------------------------------------

// Fail constructs a catalog error and unwinds to the nearest trap.
func (rt *Runtime) Fail(cat ErrorCategory, id ErrorID, args ...Cell) {
	rt.FailWith(rt.NewError(cat, id, args...))
}

// FailText wraps a plain message into a user error and unwinds.
func (rt *Runtime) FailText(msg string) {
	rt.FailWith(rt.UserError(msg))
}

// FailInvalidArg raises "invalid argument" for the named parameter of
// the currently executing call, capturing the call label from the live
// frame.
func (rt *Runtime) FailInvalidArg(param Symbol, arg Cell) {
	label := param
	if rt.topFrame != nil && rt.topFrame.label != SymNone {
		label = rt.topFrame.label
	}
	rt.Fail(CatScript, IDInvalidArg, arg, WordCell(KindWord, label))
}

// FailWith attaches backtrace diagnostics to err (unless already set)
// and performs the unwind.
func (rt *Runtime) FailWith(err *Context) {
	rt.attachDiagnostics(err)
	panic(failSignal{err: err})
}

// attachDiagnostics walks the live frame stack, capturing call labels
// into the where block and the nearest source snippet plus file/line
// into the remaining diagnostic fields. Errors re-failed with where
// already set keep their original capture.
func (rt *Runtime) attachDiagnostics(err *Context) {
	where := err.VarAt(rt.errWhere)
	if where.Kind() == KindBlock {
		return // already captured
	}

	labels := rt.MakeArray(4)
	for f := rt.topFrame; f != nil; f = f.prior {
		if f.label != SymNone {
			labels.AppendCell(WordCell(KindWord, f.label))
		}
	}
	rt.Manage(labels)
	*where = SeriesCell(KindBlock, labels, 0)

	for f := rt.topFrame; f != nil; f = f.prior {
		if f.source == nil {
			continue
		}
		// Cap the capture so a huge source block cannot bloat the mold
		// buffer; RenderError trims again for display.
		mark := rt.mold.Mark()
		rt.mold.limit = mark + 2*nearLimit
		rt.moldArrayBody(rt.mold, f.source, f.sourceIndex, false)
		rt.mold.limit = 0
		*err.VarAt(rt.errNear) = rt.textCell(rt.mold.TakeFrom(mark))
		if f.file != "" {
			*err.VarAt(rt.errFile) = rt.textCell(f.file)
			*err.VarAt(rt.errLine) = IntegerCell(int64(f.line))
		}
		break
	}
}

// ---------------------------------------------------------------------------
// Panic (unrecoverable)
// ---------------------------------------------------------------------------

// Panic reports an internal consistency violation and terminates. It
// emits best-effort diagnostics first; no trap may catch it.
func (rt *Runtime) Panic(msg string) {
	rt.log.Criticalf("internal panic: %s", msg)
	for f := rt.topFrame; f != nil; f = f.prior {
		rt.log.Criticalf("  in %s", rt.Symbols.Name(f.label))
	}
	panic(fatalPanic{msg: msg})
}

// PanicSeries is Panic with an offending-node dump.
func (rt *Runtime) PanicSeries(msg string, s *Series) {
	if s != nil {
		rt.log.Criticalf("offending series: wide=%d used=%d rest=%d bias=%d flags=%#x",
			s.wide, s.used, s.Rest(), s.bias, s.flags)
	}
	rt.Panic(msg)
}

// ---------------------------------------------------------------------------
// Halt and cooperative checks
// ---------------------------------------------------------------------------

// RequestHalt schedules a halt at the next cooperative check. Safe to
// call from outside the evaluator thread only in the sense that the
// flag is eventually seen; the halt itself is delivered cooperatively.
func (rt *Runtime) RequestHalt() {
	rt.signals |= SigHalt
}

// CheckSignals delivers any pending signal. The halt signal becomes an
// ordinary catalog error consumed by the trap machinery like any fail.
func (rt *Runtime) CheckSignals() {
	if rt.signals&SigHalt != 0 {
		rt.signals &^= SigHalt
		rt.Fail(CatScript, IDHalt)
	}
}
