package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshotting serializes the value graph reachable from one root cell
// into a self-contained CBOR image: every referenced series node, the
// spellings of every referenced symbol, and enough owner metadata to
// rebuild contexts, maps, and block-bodied actions on load. Canonical
// encoding keeps the image deterministic, so identical graphs produce
// identical content hashes.
//
// Native actions, handles, and frame/port contexts do not snapshot:
// their payload is live Go state with no portable form.

// snapshotFormat is bumped on any wire-incompatible change.
const snapshotFormat = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("core: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireCell is one serialized cell. Node and Bind are 1-based ids into
// the image's series table; 0 means nil.
type wireCell struct {
	Kind  byte   `cbor:"k"`
	Quote byte   `cbor:"q,omitempty"`
	Flags uint8  `cbor:"f,omitempty"`
	Bits  uint64 `cbor:"b,omitempty"`
	Node  uint32 `cbor:"n,omitempty"`
	Index int32  `cbor:"i,omitempty"`
	Bind  uint32 `cbor:"d,omitempty"`
}

// wireKey is one context keylist entry.
type wireKey struct {
	Sym   uint64 `cbor:"s"`
	Flags uint8  `cbor:"f,omitempty"`
}

// Series owner discriminants.
const (
	ownerNone byte = iota
	ownerContext
	ownerMap
	ownerAction
)

// wireSeries is one serialized heap node.
type wireSeries struct {
	Array  bool       `cbor:"a,omitempty"`
	Frozen bool       `cbor:"z,omitempty"`
	Deep   bool       `cbor:"zd,omitempty"`
	Bytes  []byte     `cbor:"y,omitempty"`
	Cells  []wireCell `cbor:"c,omitempty"`

	Owner byte `cbor:"o,omitempty"`

	// ownerContext
	Keys    []wireKey `cbor:"ck,omitempty"`
	CtxKind byte      `cbor:"cx,omitempty"`

	// ownerAction
	ActName   uint64    `cbor:"an,omitempty"`
	ActParams []wireKey `cbor:"ap,omitempty"` // Flags bit 0 = refinement
	ActBody   uint32    `cbor:"ab,omitempty"`
}

// wireImage is the full snapshot document.
type wireImage struct {
	Format  int               `cbor:"v"`
	Symbols map[uint64]string `cbor:"sym"`
	Series  []wireSeries      `cbor:"ser"`
	Root    wireCell          `cbor:"root"`
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type snapshotEncoder struct {
	rt      *Runtime
	ids     map[*Series]uint32
	image   *wireImage
	pending []*Series
}

// Snapshot serializes the graph reachable from root into CBOR bytes.
func (rt *Runtime) Snapshot(root *Cell) ([]byte, error) {
	enc := &snapshotEncoder{
		rt:  rt,
		ids: make(map[*Series]uint32),
		image: &wireImage{
			Format:  snapshotFormat,
			Symbols: make(map[uint64]string),
		},
	}
	rc, err := enc.encodeCell(root)
	if err != nil {
		return nil, err
	}
	// Breadth-first: encoding a series may discover more nodes.
	for len(enc.pending) > 0 {
		s := enc.pending[0]
		enc.pending = enc.pending[1:]
		if err := enc.encodeSeries(s); err != nil {
			return nil, err
		}
	}
	enc.image.Root = rc
	return cborEncMode.Marshal(enc.image)
}

// SnapshotDigest returns the SHA-256 content hash of a snapshot image.
func SnapshotDigest(image []byte) [32]byte {
	return sha256.Sum256(image)
}

func (e *snapshotEncoder) encodeCell(c *Cell) (wireCell, error) {
	k := c.Kind()
	switch k {
	case KindHandle, KindFrame, KindPort:
		return wireCell{}, fmt.Errorf("core: cannot snapshot %s value", k.Name())
	}
	if k == KindAction {
		a := c.Action()
		if a.native != nil {
			return wireCell{}, fmt.Errorf("core: cannot snapshot native action %s",
				e.rt.Symbols.Name(a.name))
		}
	}

	wc := wireCell{
		Kind:  byte(k),
		Quote: byte(c.QuoteDepth()),
		Flags: uint8((c.header & headerFlagsMask) >> 8),
		Bits:  c.bits,
		Index: c.index,
	}
	if k.IsWordlike() {
		e.noteSymbol(Symbol(c.bits))
	}
	if c.node != nil {
		id, err := e.noteSeries(c.node)
		if err != nil {
			return wireCell{}, err
		}
		wc.Node = id
	}
	if c.binding != nil {
		id, err := e.noteSeries(c.binding)
		if err != nil {
			return wireCell{}, err
		}
		wc.Bind = id
	}
	return wc, nil
}

func (e *snapshotEncoder) noteSymbol(sym Symbol) {
	if sym != SymNone {
		e.image.Symbols[uint64(sym)] = e.rt.Symbols.Name(sym)
	}
}

// noteSeries assigns an id and queues the node for encoding.
func (e *snapshotEncoder) noteSeries(s *Series) (uint32, error) {
	if s.IsInaccessible() {
		return 0, fmt.Errorf("core: cannot snapshot expired context")
	}
	if id, ok := e.ids[s]; ok {
		return id, nil
	}
	e.image.Series = append(e.image.Series, wireSeries{})
	id := uint32(len(e.image.Series))
	e.ids[s] = id
	e.pending = append(e.pending, s)
	return id, nil
}

func (e *snapshotEncoder) encodeSeries(s *Series) error {
	ws := wireSeries{
		Array:  s.IsArray(),
		Frozen: s.IsFrozen(),
		Deep:   s.IsDeepFrozen(),
	}
	switch {
	case !s.IsArray():
		ws.Bytes = append([]byte(nil), s.Bytes()...)
	default:
		_, isMap := s.owner.(*MapValue)
		ws.Cells = make([]wireCell, 0, s.Len())
		for i := 0; i < s.Len(); i++ {
			// Zombie pairs are an index artifact; the image carries only
			// live entries.
			if isMap && i%2 == 0 && i+1 < s.Len() && isZombie(s.At(i+1)) {
				i++
				continue
			}
			wc, err := e.encodeCell(s.At(i))
			if err != nil {
				return err
			}
			ws.Cells = append(ws.Cells, wc)
		}
	}

	switch o := s.owner.(type) {
	case nil:
	case *Context:
		switch o.Kind() {
		case KindFrame, KindPort:
			return fmt.Errorf("core: cannot snapshot %s context", o.Kind().Name())
		}
		ws.Owner = ownerContext
		ws.CtxKind = byte(o.Kind())
		for _, k := range o.keylist.keys {
			e.noteSymbol(k.Sym)
			ws.Keys = append(ws.Keys, wireKey{Sym: uint64(k.Sym), Flags: uint8(k.Flags)})
		}
	case *MapValue:
		ws.Owner = ownerMap
		// The hash index is rebuilt on load; only the pairlist travels.
	case *Action:
		if o.native != nil {
			return fmt.Errorf("core: cannot snapshot native action %s",
				e.rt.Symbols.Name(o.name))
		}
		ws.Owner = ownerAction
		ws.ActName = uint64(o.name)
		e.noteSymbol(o.name)
		for _, p := range o.params {
			e.noteSymbol(p.Sym)
			wk := wireKey{Sym: uint64(p.Sym)}
			if p.Refinement {
				wk.Flags = 1
			}
			ws.ActParams = append(ws.ActParams, wk)
		}
		id, err := e.noteSeries(o.body)
		if err != nil {
			return err
		}
		ws.ActBody = id
	default:
		return fmt.Errorf("core: cannot snapshot series with foreign owner")
	}

	e.image.Series[e.ids[s]-1] = ws
	return nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Restore decodes a snapshot image into this runtime and returns the
// root cell. Symbols are re-interned, so the image loads into any
// runtime regardless of its interning history. Every restored series is
// managed.
func (rt *Runtime) Restore(image []byte) (Cell, error) {
	var img wireImage
	if err := cbor.Unmarshal(image, &img); err != nil {
		return Cell{}, fmt.Errorf("core: unmarshal snapshot: %w", err)
	}
	if img.Format != snapshotFormat {
		return Cell{}, fmt.Errorf("core: snapshot format %d not supported", img.Format)
	}

	// Old symbol id -> re-interned symbol.
	syms := make(map[uint64]Symbol, len(img.Symbols))
	for old, name := range img.Symbols {
		syms[old] = rt.Symbols.Intern(name)
	}

	// Pass 1: allocate every node so forward references resolve.
	nodes := make([]*Series, len(img.Series))
	for i, ws := range img.Series {
		if ws.Array {
			nodes[i] = rt.MakeArray(len(ws.Cells))
		} else {
			nodes[i] = rt.MakeSeries(len(ws.Bytes))
		}
	}

	dec := &snapshotDecoder{rt: rt, img: &img, nodes: nodes, syms: syms}

	// Pass 2: fill contents and rebuild owners. A decode failure here
	// must release every node from pass 1: none are managed yet, so a
	// bare return would leave them on the manual stack forever.
	for i, ws := range img.Series {
		if err := dec.fillSeries(nodes[i], &ws); err != nil {
			for _, n := range nodes {
				rt.Free(n)
			}
			return Cell{}, err
		}
	}
	for i := range nodes {
		rt.Manage(nodes[i])
	}

	root, err := dec.decodeCell(&img.Root)
	if err != nil {
		return Cell{}, err
	}
	return root, nil
}

type snapshotDecoder struct {
	rt    *Runtime
	img   *wireImage
	nodes []*Series
	syms  map[uint64]Symbol
}

func (d *snapshotDecoder) node(id uint32) (*Series, error) {
	if id == 0 {
		return nil, nil
	}
	if int(id) > len(d.nodes) {
		return nil, fmt.Errorf("core: snapshot references missing node %d", id)
	}
	return d.nodes[id-1], nil
}

func (d *snapshotDecoder) decodeCell(wc *wireCell) (Cell, error) {
	k := Kind(wc.Kind)
	if k == KindEnd || k >= KindMax {
		return Cell{}, fmt.Errorf("core: snapshot cell has invalid kind %d", wc.Kind)
	}
	c := Cell{
		header: uint32(k) | uint32(wc.Flags)<<8 | uint32(wc.Quote)<<headerQuoteShift,
		bits:   wc.Bits,
		index:  wc.Index,
	}
	if k.IsWordlike() {
		sym, ok := d.syms[wc.Bits]
		if !ok {
			return Cell{}, fmt.Errorf("core: snapshot word references missing symbol %d", wc.Bits)
		}
		c.bits = uint64(sym)
	}
	var err error
	if c.node, err = d.node(wc.Node); err != nil {
		return Cell{}, err
	}
	if c.binding, err = d.node(wc.Bind); err != nil {
		return Cell{}, err
	}
	return c, nil
}

func (d *snapshotDecoder) fillSeries(s *Series, ws *wireSeries) error {
	if ws.Array {
		for i := range ws.Cells {
			c, err := d.decodeCell(&ws.Cells[i])
			if err != nil {
				return err
			}
			s.AppendCell(c)
		}
	} else {
		s.AppendBytes(ws.Bytes)
	}

	switch ws.Owner {
	case ownerNone:
	case ownerContext:
		ctx := &Context{varlist: s, keylist: &Keylist{refs: 1}}
		s.flags |= flagVarlist
		s.owner = ctx
		for _, wk := range ws.Keys {
			sym, ok := d.syms[wk.Sym]
			if !ok {
				return fmt.Errorf("core: snapshot key references missing symbol %d", wk.Sym)
			}
			ctx.keylist.keys = append(ctx.keylist.keys, Key{Sym: sym, Flags: KeyFlags(wk.Flags)})
		}
		if ctx.Len() != s.Len()-1 {
			return fmt.Errorf("core: snapshot context shape mismatch: %d keys, %d slots",
				ctx.Len(), s.Len()-1)
		}
		// Rewrite the archetype to point at the restored varlist.
		*s.At(0) = Cell{header: uint32(Kind(ws.CtxKind)), node: s}
	case ownerMap:
		m := &MapValue{pairlist: s, index: make([]int32, minMapIndex)}
		s.owner = m
		size := minMapIndex
		for size < s.Len() {
			size *= 2
		}
		d.rt.rehash(m, size)
		m.count = s.Len() / 2
	case ownerAction:
		sym, ok := d.syms[ws.ActName]
		if !ok {
			return fmt.Errorf("core: snapshot action references missing symbol %d", ws.ActName)
		}
		body, err := d.node(ws.ActBody)
		if err != nil {
			return err
		}
		if body == nil || !body.IsArray() {
			return fmt.Errorf("core: snapshot action %s has no body", d.rt.Symbols.Name(sym))
		}
		a := &Action{name: sym, paramlist: s, body: body}
		for _, wk := range ws.ActParams {
			psym, ok := d.syms[wk.Sym]
			if !ok {
				return fmt.Errorf("core: snapshot param references missing symbol %d", wk.Sym)
			}
			a.params = append(a.params, Param{Sym: psym, Refinement: wk.Flags&1 != 0})
		}
		s.owner = a
	default:
		return fmt.Errorf("core: snapshot series has unknown owner tag %d", ws.Owner)
	}

	if ws.Frozen {
		s.flags |= flagFrozenShallow
	}
	if ws.Deep {
		s.flags |= flagFrozenDeep
	}
	return nil
}
