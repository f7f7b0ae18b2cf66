package system

// Physical memory map of the simulated machine. The memory itself is one
// flat buffer; these are just the conventional places the bootstrap puts
// things. All regions sit inside DefaultMemSize so the default
// configuration never trips the MMU bounds check.
const (
	// DefaultMemSize - backing memory, 1MB
	DefaultMemSize = 1 << 20

	// BootBase - where boot code is loaded and where PC starts
	BootBase = 0x1000

	// RootBase - top level page table of the bootstrap address space.
	// The three lower table levels follow, one page each.
	RootBase = 0x10000

	// DataBase - scratch page the demo program stores to
	DataBase = 0x20000

	// IdentityPages - pages 0..IdentityPages-1 are identity mapped by
	// the bootstrap tables
	IdentityPages = 256
)
