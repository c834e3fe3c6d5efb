package core

import (
	"strings"
	"sync"
)

// Symbol is an interned word spelling. Symbols compare by ID; two words
// with the same case-insensitive spelling share one Symbol.
type Symbol uint32

// SymNone is the zero symbol, used where no symbol applies.
const SymNone Symbol = 0

// ---------------------------------------------------------------------------
// SymbolTable: interned word spellings
// ---------------------------------------------------------------------------

// SymbolTable interns word spellings to unique IDs. Interning folds case
// (Rebol words are case-preserving but case-insensitive), keeping the
// first spelling seen as the canonical one for mold.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]Symbol // folded spelling -> ID
	byID   []string          // ID -> canonical spelling; index 0 reserved
}

// NewSymbolTable creates a new symbol table with ID 0 reserved as SymNone.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]Symbol),
		byID:   make([]string, 1, 256),
	}
}

// Intern returns the Symbol for a spelling, creating one if needed.
func (st *SymbolTable) Intern(name string) Symbol {
	folded := strings.ToLower(name)

	st.mu.RLock()
	if id, ok := st.byName[folded]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[folded]; ok {
		return id
	}

	id := Symbol(len(st.byID))
	st.byName[folded] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the Symbol for a spelling, or SymNone and false if the
// spelling was never interned.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[strings.ToLower(name)]
	return id, ok
}

// Name returns the canonical spelling for a Symbol, or "" if invalid.
func (st *SymbolTable) Name(id Symbol) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Count returns the number of interned symbols (excluding SymNone).
func (st *SymbolTable) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID) - 1
}
