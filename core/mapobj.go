package core

import "hash/fnv"

// MapValue pairs a pairlist (alternating key/value cells) with an
// open-addressed hash index of slot -> pair offset. Removal does not
// compact the pairlist: the value cell becomes a zombie sentinel that
// keeps probe chains intact until the next rehash reclaims it.
//
// Keys with mutable payloads (series and contexts) are deep-frozen on
// insertion; a key changed after hashing would silently desynchronize
// the index.
type MapValue struct {
	pairlist *Series
	index    []int32 // slot -> 1-based pair number; 0 = empty
	count    int     // live entries
	zombies  int
}

// minMapIndex is the smallest hash index size (power of two, so an odd
// probe skip visits every slot).
const minMapIndex = 8

// MakeMap allocates an empty map with room for capacity entries. The
// pairlist is managed before return.
func (rt *Runtime) MakeMap(capacity int) Cell {
	if capacity < 1 {
		capacity = 1
	}
	size := minMapIndex
	for size < capacity*2 {
		size *= 2
	}
	pairs := rt.MakeArray(capacity * 2)
	m := &MapValue{
		pairlist: pairs,
		index:    make([]int32, size),
	}
	pairs.owner = m
	rt.Manage(pairs)
	return Cell{header: uint32(KindMap), node: pairs}
}

// Len returns the live entry count.
func (m *MapValue) Len() int { return m.count }

// zombieCell is the null sentinel marking a removed entry's value slot.
func zombieCell() Cell { return Cell{} }

func isZombie(c *Cell) bool { return c.IsEnd() }

// ---------------------------------------------------------------------------
// Hashing
// ---------------------------------------------------------------------------

// hashCell computes a structural hash for a map key. Words hash by
// symbol (case already folded by interning); text and binary by
// content; arrays recursively by element.
func (rt *Runtime) hashCell(c *Cell) uint64 {
	h := fnv.New64a()
	rt.hashInto(h, c)
	return h.Sum64()
}

type hashWriter interface{ Write(p []byte) (int, error) }

func (rt *Runtime) hashInto(h hashWriter, c *Cell) {
	bare, depth := Dequote(*c)
	var hdr [2]byte
	hdr[0] = byte(bare.Kind())
	hdr[1] = byte(depth)
	h.Write(hdr[:])

	switch {
	case bare.Kind().IsWordlike():
		writeU64(h, uint64(bare.Symbol()))
	case bare.Kind() == KindText || bare.Kind() == KindBinary:
		h.Write(bare.Series().Bytes()[bare.Index():])
	case bare.Kind().IsArraylike():
		s := bare.Series()
		for i := bare.Index(); i < s.Len(); i++ {
			rt.hashInto(h, s.At(i))
		}
	default:
		writeU64(h, bare.bits)
	}
}

func writeU64(h hashWriter, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

// ---------------------------------------------------------------------------
// Probing
// ---------------------------------------------------------------------------

// probe iterates the index slots for hash h. The skip is derived from
// the high hash bits and forced odd, so with a power-of-two table every
// slot is eventually visited.
func (m *MapValue) probe(h uint64) func() int {
	mask := uint64(len(m.index) - 1)
	slot := h & mask
	skip := ((h >> 32) | 1) & mask
	if skip == 0 {
		skip = 1
	}
	first := true
	return func() int {
		if !first {
			slot = (slot + skip) & mask
		}
		first = false
		return int(slot)
	}
}

// findSlot locates the index slot for key: either the slot holding it or
// the first empty slot. Returns (slot, pairNumber) with pairNumber 0 when
// absent.
func (rt *Runtime) findSlot(m *MapValue, key *Cell) (int, int32) {
	next := m.probe(rt.hashCell(key))
	for {
		slot := next()
		pair := m.index[slot]
		if pair == 0 {
			return slot, 0
		}
		kc := m.pairlist.At(int(pair-1) * 2)
		vc := m.pairlist.At(int(pair-1)*2 + 1)
		if !isZombie(vc) && rt.EqualValues(kc, key) {
			return slot, pair
		}
		// Zombies stay in the chain: skipping them here would break
		// lookups for keys inserted past them.
	}
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// freezeMapKey deep-freezes any key whose payload can mutate, keeping
// its hash stable while indexed. Contextual keys freeze their varlist.
func (rt *Runtime) freezeMapKey(key *Cell) {
	switch {
	case key.Kind().IsSerieslike():
		key.Series().FreezeDeep()
	case key.Kind().IsContextual():
		key.Context().FreezeDeep()
	}
}

// MapFind returns the value for key, or nil when absent.
func (rt *Runtime) MapFind(m *MapValue, key *Cell) *Cell {
	_, pair := rt.findSlot(m, key)
	if pair == 0 {
		return nil
	}
	return m.pairlist.At(int(pair-1)*2 + 1)
}

// MapInsert sets key to val, replacing any live entry. Mutable keys are
// deep-frozen. Rehash triggers before occupancy (live plus zombies)
// exceeds half the index.
func (rt *Runtime) MapInsert(m *MapValue, key Cell, val Cell) {
	rt.ensureMutable(nil, m.pairlist)
	rt.freezeMapKey(&key)
	if (m.count+m.zombies+1)*2 > len(m.index) {
		rt.rehash(m, len(m.index)*2)
	}
	slot, pair := rt.findSlot(m, &key)
	if pair != 0 {
		*m.pairlist.At(int(pair-1)*2 + 1) = val
		return
	}
	m.pairlist.AppendCell(key)
	m.pairlist.AppendCell(val)
	m.index[slot] = int32(m.pairlist.Len() / 2)
	m.count++
}

// MapRemove deletes key, leaving a zombie in its pairlist slot. Removing
// an absent key is a no-op.
func (rt *Runtime) MapRemove(m *MapValue, key *Cell) bool {
	rt.ensureMutable(nil, m.pairlist)
	_, pair := rt.findSlot(m, key)
	if pair == 0 {
		return false
	}
	*m.pairlist.At(int(pair-1)*2 + 1) = zombieCell()
	m.count--
	m.zombies++
	return true
}

// rehash compacts zombies out of the pairlist in place and rebuilds the
// index at the given size. The pairlist node is kept: outstanding map!
// cells reference it.
func (rt *Runtime) rehash(m *MapValue, size int) {
	if size < minMapIndex {
		size = minMapIndex
	}
	s := m.pairlist
	w := 0
	for i := 0; i+1 < s.Len(); i += 2 {
		if isZombie(s.At(i + 1)) {
			continue
		}
		if w != i {
			*s.At(w) = *s.At(i)
			*s.At(w + 1) = *s.At(i + 1)
		}
		w += 2
	}
	s.SetLen(w)
	m.zombies = 0

	m.index = make([]int32, size)
	for pair := int32(1); int(pair-1)*2 < s.Len(); pair++ {
		key := s.At(int(pair-1) * 2)
		next := m.probe(rt.hashCell(key))
		for {
			slot := next()
			if m.index[slot] == 0 {
				m.index[slot] = pair
				break
			}
		}
	}
}

// MapKeys returns the live keys in insertion order (managed block).
func (rt *Runtime) MapKeys(m *MapValue) Cell {
	out := rt.MakeArray(m.count)
	for i := 0; i+1 < m.pairlist.Len(); i += 2 {
		if !isZombie(m.pairlist.At(i + 1)) {
			out.AppendCell(*m.pairlist.At(i))
		}
	}
	rt.Manage(out)
	return SeriesCell(KindBlock, out, 0)
}
