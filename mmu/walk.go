package mmu

import "rvsim/trap"

// walk performs the multi level page table walk for a virtual address and
// returns the leaf entry together with its own physical address, so the
// caller can write referenced/dirty bits back. Permission checking is left
// to the caller; walk only validates the shape of the mapping.
//
// At each level the next most significant index bit group of the address
// selects an entry in the current table:
//   - neither table nor leaf bit set: the mapping is absent, trap with the
//     access fault kind for the requested access
//   - table descriptor above the last level: descend
//   - table descriptor at the last level, or leaf above it: malformed
func (m *MMU) walk(addr uint64, kind AccessKind) (leaf, leafAddr uint64, err error) {
	m.Stats.Walks++

	table := m.root
	for level := 0; level < Levels; level++ {
		shift := PageShift + (Levels-1-level)*IndexBits
		idx := (addr >> shift) & (tableEntries - 1)

		pteAddr := table + idx*pteSize
		pte := m.readPhys(pteAddr, pteSize)

		switch {
		case pte&PteTable != 0:
			if level == Levels-1 {
				return 0, 0, m.fault(addr, trap.MalformedMapping)
			}
			table = (pte >> PtePPNShift) << PageShift

		case pte&PteValid != 0:
			if level != Levels-1 {
				return 0, 0, m.fault(addr, trap.MalformedMapping)
			}
			return pte, pteAddr, nil

		default:
			return 0, 0, m.accessFault(addr, kind)
		}
	}

	// not reachable: the loop either descends, returns a leaf, or faults
	return 0, 0, m.accessFault(addr, kind)
}
