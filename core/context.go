package core

// Context pairs an ordered keylist with a parallel varlist of value
// cells. Objects, modules, errors, ports, and call frames are all
// contexts; the archetype cell in varlist slot 0 carries the kind.
//
// Invariant: varlist.Len() - 1 == keylist length. Key order is
// significant: two contexts with the same keys in different order are
// not equal. That is a documented wart of the equality semantics, kept
// deliberately.
type Context struct {
	varlist *Series
	keylist *Keylist
}

// Key is one keylist entry: an interned spelling plus per-key flags.
type Key struct {
	Sym   Symbol
	Flags KeyFlags
}

// KeyFlags qualify a single context key.
type KeyFlags uint8

const (
	// KeyProtected rejects assignment through this key.
	KeyProtected KeyFlags = 1 << iota
	// KeyHidden excludes the key from reflection and mold.
	KeyHidden
)

// Keylist is an ordered key array shared copy-on-write between contexts.
// Expansion or per-key flag mutation on a shared keylist forces a
// private copy first; a shared keylist is never mutated in place.
type Keylist struct {
	keys []Key
	refs int32 // contexts sharing this keylist
}

// Shared reports whether more than one context uses this keylist.
func (kl *Keylist) Shared() bool { return kl.refs > 1 }

// Len returns the key count.
func (kl *Keylist) Len() int { return len(kl.keys) }

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// MakeContext allocates a context of the given kind with room for
// capacity keys. The varlist comes back manual, like any fresh series;
// callers manage it once construction is known complete.
func (rt *Runtime) MakeContext(kind Kind, capacity int) *Context {
	if !kind.IsContextual() {
		panic("MakeContext: kind is not contextual")
	}
	varlist := rt.MakeArray(capacity + 1)
	varlist.flags |= flagVarlist

	ctx := &Context{
		varlist: varlist,
		keylist: &Keylist{keys: make([]Key, 0, capacity), refs: 1},
	}
	varlist.owner = ctx

	// Slot 0 is the archetype: a self-referencing cell carrying the kind.
	varlist.AppendCell(Cell{header: uint32(kind), node: varlist})
	return ctx
}

// Kind returns the context's kind from its archetype cell.
func (ctx *Context) Kind() Kind {
	return ctx.varlist.At(0).Kind()
}

// Archetype returns a copy of the archetype cell, the canonical value
// representing this context.
func (ctx *Context) Archetype() Cell {
	return *ctx.varlist.At(0)
}

// Varlist exposes the backing varlist (for lifecycle operations).
func (ctx *Context) Varlist() *Series { return ctx.varlist }

// Len returns the number of keys (archetype slot excluded).
func (ctx *Context) Len() int { return ctx.keylist.Len() }

// ---------------------------------------------------------------------------
// Key and var access
// ---------------------------------------------------------------------------

// FindKey returns the 1-based index of sym, or 0 if absent. Index 0 is
// never a key slot; it addresses the archetype.
func (ctx *Context) FindKey(sym Symbol) int {
	for i, k := range ctx.keylist.keys {
		if k.Sym == sym {
			return i + 1
		}
	}
	return 0
}

// KeyAt returns the key at 1-based index n.
func (ctx *Context) KeyAt(n int) *Key {
	if n < 1 || n > ctx.keylist.Len() {
		panic("Context.KeyAt: index out of range")
	}
	return &ctx.keylist.keys[n-1]
}

// VarAt returns the value cell at 1-based index n.
func (ctx *Context) VarAt(n int) *Cell {
	if n < 1 || n > ctx.Len() {
		panic("Context.VarAt: index out of range")
	}
	return ctx.varlist.At(n)
}

// ---------------------------------------------------------------------------
// Expansion (copy-on-write keylist discipline)
// ---------------------------------------------------------------------------

// ensurePrivateKeylist gives this context its own keylist before any
// divergent mutation. The first len(keys) entries equal the shared
// original's.
func (ctx *Context) ensurePrivateKeylist() {
	if !ctx.keylist.Shared() {
		return
	}
	ctx.keylist.refs--
	private := &Keylist{keys: make([]Key, len(ctx.keylist.keys)), refs: 1}
	copy(private.keys, ctx.keylist.keys)
	ctx.keylist = private
}

// AppendKey adds a key with a blank value and returns its 1-based index.
// Forces a private keylist if the current one is shared.
func (ctx *Context) AppendKey(sym Symbol) int {
	ctx.ensurePrivateKeylist()
	ctx.keylist.keys = append(ctx.keylist.keys, Key{Sym: sym})
	ctx.varlist.AppendCell(Blank())
	return ctx.keylist.Len()
}

// SetKeyFlags updates flags on the key at 1-based index n, copying the
// keylist first if it is shared.
func (ctx *Context) SetKeyFlags(n int, flags KeyFlags) {
	if n < 1 || n > ctx.keylist.Len() {
		panic("Context.SetKeyFlags: index out of range")
	}
	ctx.ensurePrivateKeylist()
	ctx.keylist.keys[n-1].Flags = flags
}

// ---------------------------------------------------------------------------
// Copying
// ---------------------------------------------------------------------------

// CopyContext duplicates a context. With extra == 0 the copy shares the
// original's keylist (bumping its reference count); with extra > 0 the
// copy owns a private keylist sized for growth, whose first N entries
// equal the original's. Values are copied cell by cell.
func (rt *Runtime) CopyContext(ctx *Context, extra int) *Context {
	n := ctx.Len()
	varlist := rt.MakeArray(n + extra + 1)
	varlist.flags |= flagVarlist

	dup := &Context{varlist: varlist}
	varlist.owner = dup
	varlist.AppendCell(Cell{header: uint32(ctx.Kind()), node: varlist})
	for i := 1; i <= n; i++ {
		varlist.AppendCell(*ctx.varlist.At(i))
	}

	if extra == 0 {
		ctx.keylist.refs++
		dup.keylist = ctx.keylist
	} else {
		keys := make([]Key, n, n+extra)
		copy(keys, ctx.keylist.keys)
		dup.keylist = &Keylist{keys: keys, refs: 1}
	}
	return dup
}

// ---------------------------------------------------------------------------
// Protection and invalidation
// ---------------------------------------------------------------------------

// FreezeDeep freezes the varlist and everything reachable from it.
func (ctx *Context) FreezeDeep() { ctx.varlist.FreezeDeep() }

// Invalidate marks a frame context inaccessible after its frame pops.
// Outstanding references keep the node alive, but reads through them
// fail; the varlist is not freed.
func (ctx *Context) Invalidate() {
	ctx.varlist.flags |= flagInaccessible
}
