package core

// Kind identifies the datatype of a cell. It occupies the low byte of the
// cell header and is the sole index into the generic dispatch table.
//
// Kind 0 is reserved for the end marker that terminates every array
// series one past its used length. A cell holding KindEnd is never a
// valid value; reading one outside termination checks is a bug.
type Kind byte

const (
	KindEnd Kind = iota // array terminator, not a value

	KindBlank
	KindLogic
	KindInteger
	KindDecimal

	KindWord
	KindSetWord
	KindGetWord

	KindText
	KindBinary

	KindBlock
	KindGroup
	KindPath
	KindSetPath
	KindGetPath

	KindObject
	KindModule
	KindError
	KindFrame
	KindPort

	KindMap
	KindAction
	KindHandle

	KindMax
)

var kindNames = [KindMax]string{
	KindEnd:     "end!",
	KindBlank:   "blank!",
	KindLogic:   "logic!",
	KindInteger: "integer!",
	KindDecimal: "decimal!",
	KindWord:    "word!",
	KindSetWord: "set-word!",
	KindGetWord: "get-word!",
	KindText:    "text!",
	KindBinary:  "binary!",
	KindBlock:   "block!",
	KindGroup:   "group!",
	KindPath:    "path!",
	KindSetPath: "set-path!",
	KindGetPath: "get-path!",
	KindObject:  "object!",
	KindModule:  "module!",
	KindError:   "error!",
	KindFrame:   "frame!",
	KindPort:    "port!",
	KindMap:     "map!",
	KindAction:  "action!",
	KindHandle:  "handle!",
}

// Name returns the canonical datatype name (e.g. "block!").
func (k Kind) Name() string {
	if k >= KindMax {
		return "?"
	}
	return kindNames[k]
}

// IsWordlike returns true for the word family (word!, set-word!, get-word!).
// Wordlike cells carry a symbol payload and an optional binding.
func (k Kind) IsWordlike() bool {
	return k >= KindWord && k <= KindGetWord
}

// IsArraylike returns true for kinds whose payload is a cell-array series
// viewed from an index (block!, group!, and the path family).
func (k Kind) IsArraylike() bool {
	return k >= KindBlock && k <= KindGetPath
}

// IsPathlike returns true for path!, set-path!, and get-path!.
func (k Kind) IsPathlike() bool {
	return k >= KindPath && k <= KindGetPath
}

// IsSerieslike returns true for kinds backed by a series buffer, array or
// byte oriented (text!, binary!, plus the arraylike kinds).
func (k Kind) IsSerieslike() bool {
	return k == KindText || k == KindBinary || k.IsArraylike()
}

// IsContextual returns true for kinds represented by a context (varlist):
// object!, module!, error!, frame!, port!.
func (k Kind) IsContextual() bool {
	return k >= KindObject && k <= KindPort
}
