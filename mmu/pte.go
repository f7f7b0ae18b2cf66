package mmu

// virtual memory geometry. 64-bit PTEs give 9 index bits per level;
// 4 levels plus the 12-bit page offset partition a 48-bit virtual address.
const (
	// Levels - depth of the page table walk
	Levels = 4

	// PageShift - log2 of the page size
	PageShift = 12

	// PageSize in bytes
	PageSize = 1 << PageShift

	// pteSize - a page table entry is one 64-bit word
	pteSize = 8

	// IndexBits - index bits consumed per walk level
	IndexBits = PageShift - 3

	// entries per table level
	tableEntries = 1 << IndexBits
)

// page table entry fields
const (
	// PteTable - entry is a page table descriptor
	PteTable = 0x001

	// PteValid - entry is a leaf mapping
	PteValid = 0x002

	// PteReferenced - set on first access to the page
	PteReferenced = 0x004

	// PteDirty - set on first store to the page
	PteDirty = 0x008

	// user mode permissions:
	PteUserExec  = 0x010
	PteUserWrite = 0x020
	PteUserRead  = 0x040

	// supervisor mode permissions:
	PteSupExec  = 0x080
	PteSupWrite = 0x100
	PteSupRead  = 0x200

	// PtePPNShift - LSB of the physical page number in the PTE
	PtePPNShift = 12
)

// permBit returns the permission bit an access must carry in the leaf
// entry, given the access kind and the current privilege.
func permBit(kind AccessKind, supervisor bool) uint64 {
	if supervisor {
		switch kind {
		case AccessFetch:
			return PteSupExec
		case AccessStore:
			return PteSupWrite
		default:
			return PteSupRead
		}
	}
	switch kind {
	case AccessFetch:
		return PteUserExec
	case AccessStore:
		return PteUserWrite
	default:
		return PteUserRead
	}
}

// pageBase strips the in-page offset bits from an address.
func pageBase(addr uint64) uint64 {
	return addr &^ (PageSize - 1)
}
