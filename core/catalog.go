package core

import (
	"fmt"
	"strings"
)

// The error catalog maps category -> id -> message template. It is
// loaded during boot from the built-in table below; failing with a
// symbolic category/id pair before the catalog is loaded is a boot
// sequencing bug and panics rather than erroring.
//
// Category and id are typed string constants rather than raw variadic
// symbols, so a misspelled pair is a compile error at the call site and
// an argument-count mismatch is caught at construction time.

// ErrorCategory names a catalog category.
type ErrorCategory string

// ErrorID names a message template within a category.
type ErrorID string

// Categories. Codes are stable and spaced for later insertion.
const (
	CatInternal ErrorCategory = "internal"
	CatSyntax   ErrorCategory = "syntax"
	CatScript   ErrorCategory = "script"
	CatMath     ErrorCategory = "math"
	CatAccess   ErrorCategory = "access"
	CatUser     ErrorCategory = "user"
)

// Script category ids.
const (
	IDNoValue        ErrorID = "no-value"
	IDNotBound       ErrorID = "not-bound"
	IDBadPathPick    ErrorID = "bad-path-pick"
	IDBadPathSet     ErrorID = "bad-path-set"
	IDBadPickTemp    ErrorID = "bad-pick-temp"
	IDCannotUse      ErrorID = "cannot-use"
	IDCannotMake     ErrorID = "cannot-make"
	IDInvalidArg     ErrorID = "invalid-arg"
	IDExpectArg      ErrorID = "expect-arg"
	IDInvalidCompare ErrorID = "invalid-compare"
	IDBadRefine      ErrorID = "bad-refine"
	IDDupRefine      ErrorID = "dup-refine"
	IDGroupForbidden ErrorID = "group-forbidden"
	IDPickPastNull   ErrorID = "pick-past-null"
	IDInvalidError   ErrorID = "invalid-error"
	IDHalt           ErrorID = "halt"
)

// Math category ids.
const (
	IDZeroDivide ErrorID = "zero-divide"
	IDOverflow   ErrorID = "overflow"
)

// Access category ids.
const (
	IDProtectedWord ErrorID = "protected-word"
	IDSeriesFrozen  ErrorID = "series-frozen"
	IDInaccessible  ErrorID = "inaccessible"
	IDHidden        ErrorID = "hidden"
)

// Internal category ids.
const (
	IDStackOverflow ErrorID = "stack-overflow"
	IDNotDone       ErrorID = "not-done"
)

// Syntax category ids.
const (
	IDSyntaxInvalid ErrorID = "invalid"
)

// User category ids.
const (
	IDUserMessage ErrorID = "message"
)

// ---------------------------------------------------------------------------
// Catalog structure
// ---------------------------------------------------------------------------

// MessageTemplate is a parsed template: literal runs interleaved with
// numbered argument placeholders.
type MessageTemplate struct {
	parts    []templatePart
	ArgCount int
}

type templatePart struct {
	text string // literal run, or "" when arg >= 1
	arg  int    // 1-based placeholder index, 0 for literal
}

// CategoryEntry is one catalog category.
type CategoryEntry struct {
	Name ErrorCategory
	Code int
	ids  map[ErrorID]*MessageTemplate
}

// ErrorCatalog is the loaded category -> id -> template table.
type ErrorCatalog struct {
	categories map[ErrorCategory]*CategoryEntry
}

// Lookup returns the template for a category/id pair, or nil.
func (ec *ErrorCatalog) Lookup(cat ErrorCategory, id ErrorID) *MessageTemplate {
	c, ok := ec.categories[cat]
	if !ok {
		return nil
	}
	return c.ids[id]
}

// Category returns the entry for a category, or nil.
func (ec *ErrorCatalog) Category(cat ErrorCategory) *CategoryEntry {
	return ec.categories[cat]
}

// ---------------------------------------------------------------------------
// Boot table
// ---------------------------------------------------------------------------

// bootCatalog is the built-in category/id/template table, the moral
// equivalent of a boot-loaded errors block. Placeholders are :arg1,
// :arg2, :arg3.
var bootCatalog = []struct {
	cat  ErrorCategory
	code int
	ids  map[ErrorID]string
}{
	{CatInternal, 0, map[ErrorID]string{
		IDStackOverflow: "stack overflow",
		IDNotDone:       "reserved for future use (or not yet implemented)",
	}},
	{CatSyntax, 100, map[ErrorID]string{
		IDSyntaxInvalid: "invalid :arg1 -- :arg2",
	}},
	{CatScript, 200, map[ErrorID]string{
		IDNoValue:        ":arg1 has no value",
		IDNotBound:       ":arg1 word is not bound to a context",
		IDBadPathPick:    "cannot pick :arg1 in path",
		IDBadPathSet:     "cannot set :arg1 in path",
		IDBadPickTemp:    "cannot update temporary immediate value via :arg1",
		IDCannotUse:      "cannot use :arg1 on :arg2 value",
		IDCannotMake:     "cannot MAKE/TO :arg1 from: :arg2",
		IDInvalidArg:     ":arg1 is not a valid argument for :arg2",
		IDExpectArg:      ":arg1 is missing its :arg2 argument",
		IDInvalidCompare: "cannot compare :arg1 with :arg2",
		IDBadRefine:      "incompatible or invalid refinement: :arg1",
		IDDupRefine:      "duplicate refinement: :arg1",
		IDGroupForbidden: "GROUP! in path not allowed here: :arg1",
		IDPickPastNull:   "cannot pick :arg1 out of a null intermediate",
		IDInvalidError:   "invalid error specification: :arg1",
		IDHalt:           "halted by user or script",
	}},
	{CatMath, 300, map[ErrorID]string{
		IDZeroDivide: "attempt to divide by zero",
		IDOverflow:   "math or number overflow",
	}},
	{CatAccess, 400, map[ErrorID]string{
		IDProtectedWord: "variable :arg1 locked by PROTECT",
		IDSeriesFrozen:  "series is frozen and cannot be modified",
		IDInaccessible:  "context no longer accessible (frame expired)",
		IDHidden:        "cannot access hidden field :arg1",
	}},
	{CatUser, 500, map[ErrorID]string{
		IDUserMessage: ":arg1",
	}},
}

// LoadErrorCatalog parses the boot table into a catalog. Must run during
// boot before any symbolic Fail is legal.
func LoadErrorCatalog() *ErrorCatalog {
	ec := &ErrorCatalog{categories: make(map[ErrorCategory]*CategoryEntry)}
	for _, b := range bootCatalog {
		entry := &CategoryEntry{
			Name: b.cat,
			Code: b.code,
			ids:  make(map[ErrorID]*MessageTemplate, len(b.ids)),
		}
		for id, text := range b.ids {
			entry.ids[id] = parseTemplate(text)
		}
		ec.categories[b.cat] = entry
	}
	return ec
}

// parseTemplate splits a message template into literal runs and
// placeholder references, recording the highest placeholder used.
func parseTemplate(text string) *MessageTemplate {
	mt := &MessageTemplate{}
	rest := text
	for {
		i := strings.Index(rest, ":arg")
		if i < 0 {
			break
		}
		if i > 0 {
			mt.parts = append(mt.parts, templatePart{text: rest[:i]})
		}
		rest = rest[i+len(":arg"):]
		if len(rest) == 0 || rest[0] < '1' || rest[0] > '3' {
			panic(fmt.Sprintf("parseTemplate: bad placeholder in %q", text))
		}
		n := int(rest[0] - '0')
		mt.parts = append(mt.parts, templatePart{arg: n})
		if n > mt.ArgCount {
			mt.ArgCount = n
		}
		rest = rest[1:]
	}
	if rest != "" {
		mt.parts = append(mt.parts, templatePart{text: rest})
	}
	return mt
}

// render expands the template with the given argument cells, forming
// each placeholder value through the mold machinery.
func (mt *MessageTemplate) render(rt *Runtime, args []Cell) string {
	mark := rt.mold.Mark()
	for _, p := range mt.parts {
		if p.arg == 0 {
			rt.mold.WriteString(p.text)
			continue
		}
		if p.arg <= len(args) {
			rt.moldInto(rt.mold, &args[p.arg-1], true)
		} else {
			rt.mold.WriteString("??")
		}
	}
	return rt.mold.TakeFrom(mark)
}

// displayName returns the category name as it appears in error output,
// e.g. "Script" in "** Script Error:".
func (c ErrorCategory) displayName() string {
	s := string(c)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
