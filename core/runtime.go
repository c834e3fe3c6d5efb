package core

import (
	"github.com/tliron/commonlog"
)

// Runtime is one interpreter instance: symbol table, series tracker,
// dispatch table, root context, call stack, and the shared mold buffer.
// A Runtime is single-threaded by construction; nothing here is safe for
// concurrent evaluation except RequestHalt, whose flag is delivered
// cooperatively.
type Runtime struct {
	Symbols *SymbolTable

	tracker *Tracker
	guards  []*Series
	stack   []Cell // operand stack, checkpointed by depth
	mold    *MoldBuffer

	dispatch [KindMax]*Dispatch

	catalog *ErrorCatalog
	root    *Context

	topFrame      *Frame
	frameDepth    int
	maxFrameDepth int

	signals SignalMask

	log commonlog.Logger

	// invalidErrorObj is the reserved error built during boot so that a
	// failure inside error construction does not recurse.
	invalidErrorObj *Context

	// Error context shape: shared key symbols and fixed 1-based slots.
	errorKeys  []Symbol
	errType    int
	errID      int
	errMessage int
	errArg1    int
	errNear    int
	errWhere   int
	errFile    int
	errLine    int

	// Pre-interned verb and field symbols.
	symActor      Symbol
	symType       Symbol
	symID         Symbol
	symMessage    Symbol
	symDo         Symbol
	symAdd        Symbol
	symSubtract   Symbol
	symMultiply   Symbol
	symDivide     Symbol
	symNegate     Symbol
	symLength     Symbol
	symCopy       Symbol
	symFirst      Symbol
	symLast       Symbol
	symAppend     Symbol
	symInsert     Symbol
	symRemove     Symbol
	symFind       Symbol
	symFreeze     Symbol
	symWordsOf    Symbol
	symValuesOf   Symbol
	symProtect    Symbol
	symHide       Symbol
	symSpellingOf Symbol
	symBindingOf  Symbol
}

// Options configures a new runtime. The zero value gets defaults.
type Options struct {
	// MaxFrameDepth bounds call nesting before stack-overflow errors.
	MaxFrameDepth int

	// RootCapacity sizes the root context's initial key allocation.
	RootCapacity int

	// Log overrides the default logger.
	Log commonlog.Logger
}

const (
	defaultMaxFrameDepth = 1024
	defaultRootCapacity  = 64
)

// NewRuntime boots a runtime: catalog first (symbolic Fail is illegal
// before it), then the dispatch table, the root context, the reserved
// invalid-error object, and finally the native set.
func NewRuntime(opts Options) *Runtime {
	if opts.MaxFrameDepth <= 0 {
		opts.MaxFrameDepth = defaultMaxFrameDepth
	}
	if opts.RootCapacity <= 0 {
		opts.RootCapacity = defaultRootCapacity
	}
	log := opts.Log
	if log == nil {
		log = commonlog.GetLogger("loam.core")
	}

	rt := &Runtime{
		Symbols:       NewSymbolTable(),
		tracker:       NewTracker(),
		maxFrameDepth: opts.MaxFrameDepth,
		log:           log,
	}
	rt.mold = &MoldBuffer{rt: rt}
	rt.catalog = LoadErrorCatalog()

	rt.internSymbols()

	registerScalarKinds(rt)
	registerWordKinds(rt)
	registerSeriesKinds(rt)
	registerContextKinds(rt)
	registerMapKind(rt)
	registerActionKinds(rt)
	rt.checkDispatchComplete()

	rt.root = rt.MakeContext(KindObject, opts.RootCapacity)
	rt.Manage(rt.root.varlist)

	// The invalid-error object must exist before any MAKE ERROR! runs.
	rt.invalidErrorObj = rt.NewError(CatScript, IDInvalidError, Blank())

	rt.registerNatives()

	rt.log.Infof("runtime booted: %d kinds, %d symbols",
		int(KindMax)-1, rt.Symbols.Count())
	return rt
}

func (rt *Runtime) internSymbols() {
	in := rt.Symbols.Intern

	rt.symActor = in("actor")
	rt.symType = in("type")
	rt.symID = in("id")
	rt.symMessage = in("message")
	rt.symDo = in("do")

	rt.symAdd = in("add")
	rt.symSubtract = in("subtract")
	rt.symMultiply = in("multiply")
	rt.symDivide = in("divide")
	rt.symNegate = in("negate")

	rt.symLength = in("length")
	rt.symCopy = in("copy")
	rt.symFirst = in("first")
	rt.symLast = in("last")
	rt.symAppend = in("append")
	rt.symInsert = in("insert")
	rt.symRemove = in("remove")
	rt.symFind = in("find")
	rt.symFreeze = in("freeze")
	rt.symWordsOf = in("words-of")
	rt.symValuesOf = in("values-of")
	rt.symProtect = in("protect")
	rt.symHide = in("hide")
	rt.symSpellingOf = in("spelling-of")
	rt.symBindingOf = in("binding-of")

	// Error context shape. Slot numbers are 1-based varlist positions.
	rt.errorKeys = []Symbol{
		rt.symType, rt.symID, rt.symMessage,
		in("arg1"), in("arg2"), in("arg3"),
		in("near"), in("where"), in("file"), in("line"),
	}
	rt.errType = 1
	rt.errID = 2
	rt.errMessage = 3
	rt.errArg1 = 4
	rt.errNear = 7
	rt.errWhere = 8
	rt.errFile = 9
	rt.errLine = 10
}

// checkDispatchComplete panics on table holes. Every kind byte a cell
// can carry must have been registered by now.
func (rt *Runtime) checkDispatchComplete() {
	for k := KindBlank; k < KindMax; k++ {
		if rt.dispatch[k] == nil {
			panic("boot: no dispatch entry for " + k.Name())
		}
	}
}

// Root returns the root context, where unbound set-words land.
func (rt *Runtime) Root() *Context { return rt.root }

// Catalog returns the loaded error catalog.
func (rt *Runtime) Catalog() *ErrorCatalog { return rt.catalog }

// Log returns the runtime's logger.
func (rt *Runtime) Log() commonlog.Logger { return rt.log }

// StackDepth returns the operand stack depth (for balance checks).
func (rt *Runtime) StackDepth() int { return len(rt.stack) }

// ManualCount returns the outstanding manual series count.
func (rt *Runtime) ManualCount() int { return rt.tracker.ManualCount() }

// ManagedCount returns the collector-owned series count.
func (rt *Runtime) ManagedCount() int { return rt.tracker.ManagedCount() }
