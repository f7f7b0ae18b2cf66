package mmu

/*
Decoded instruction cache. A row memoizes instruction identity, not
translation: the tag must equal the exact fetch address, and the cached
dispatch handle is only ever as old as the cached bits.
*/

const (
	// insnSize - full instruction width in bytes
	insnSize = 4

	// halfInsnSize - compressed (half width) instruction unit
	halfInsnSize = 2
)

// isCompressed reports whether the low half-parcel already encodes a
// complete short form instruction. A full width encoding has both low
// bits set.
func isCompressed(bits uint32) bool {
	return bits&0x3 != 0x3
}

// FetchInstruction returns the instruction word at a virtual address and
// its dispatch handle. compressed enables variable length instruction
// fetch: an address half aligned to the full width takes the split path
// below, everything else goes through the instruction cache.
func (m *MMU) FetchInstruction(addr uint64, compressed bool) (uint32, Handle, error) {
	if compressed && addr%insnSize == halfInsnSize {
		return m.fetchSplit(addr)
	}

	idx := (addr / insnSize) % ICacheEntries
	if m.icacheTag[idx] == addr {
		m.Stats.ICacheHits++
		return m.icacheBits[idx], m.icacheHandle[idx], nil
	}
	m.Stats.ICacheMisses++

	pa, err := m.translate(addr, AccessFetch)
	if err != nil {
		return 0, 0, err
	}
	bits := uint32(m.readPhys(pa, insnSize))
	handle := m.resolve(addr, bits)

	m.icacheTag[idx] = addr
	m.icacheBits[idx] = bits
	m.icacheHandle[idx] = handle
	return bits, handle, nil
}

// fetchSplit reads an instruction that may straddle a page boundary, one
// half-parcel at a time. The single-tag cache row cannot represent the two
// translations atomically, so this path bypasses the instruction cache.
//
// The dispatch handle is resolved from the low parcel alone; the dispatch
// table is sized so the index never depends on the high parcel (see
// cpu.DispatchTableSize).
func (m *MMU) fetchSplit(addr uint64) (uint32, Handle, error) {
	paLo, err := m.translate(addr, AccessFetch)
	if err != nil {
		return 0, 0, err
	}
	bits := uint32(m.readPhys(paLo, halfInsnSize))
	handle := m.resolve(addr, bits)

	if !isCompressed(bits) {
		// the adjoining parcel may sit on a different virtual page
		paHi, err := m.translate(addr+halfInsnSize, AccessFetch)
		if err != nil {
			return 0, 0, err
		}
		bits |= uint32(m.readPhys(paHi, halfInsnSize)) << 16
	}
	return bits, handle, nil
}

func (m *MMU) resolve(addr uint64, bits uint32) Handle {
	m.Stats.Decodes++
	return m.decode(addr, bits)
}
