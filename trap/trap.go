package trap

import "fmt"

/**
 * Separate package exists mainly in order to avoid cyclic imports:
 * the MMU raises traps, the system run loop delivers them.
 */

// Kind identifies the cause of a memory trap.
type Kind int

// trap kinds, in cause-register order:
const (
	// LoadMisaligned - load address not a multiple of the access width
	LoadMisaligned Kind = iota

	// StoreMisaligned - store address not a multiple of the access width
	StoreMisaligned

	// FetchAccess - instruction fetch hit an invalid mapping
	FetchAccess

	// LoadAccess - load hit an invalid mapping
	LoadAccess

	// StoreAccess - store hit an invalid mapping
	StoreAccess

	// FetchPermission - page not executable in the current mode
	FetchPermission

	// LoadPermission - page not readable in the current mode
	LoadPermission

	// StorePermission - page not writable in the current mode
	StorePermission

	// MalformedMapping - table/leaf level mismatch during the walk.
	// Covers both a table descriptor at the last level and a leaf entry
	// above it; the two are not distinguished.
	MalformedMapping
)

var kindNames = map[Kind]string{
	LoadMisaligned:   "misaligned load",
	StoreMisaligned:  "misaligned store",
	FetchAccess:      "instruction access fault",
	LoadAccess:       "load access fault",
	StoreAccess:      "store access fault",
	FetchPermission:  "instruction permission denied",
	LoadPermission:   "load permission denied",
	StorePermission:  "store permission denied",
	MalformedMapping: "malformed mapping",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown trap kind %d", int(k))
}

// Trap is the fault value raised by the memory system. Addr is the virtual
// address that triggered it.
type Trap struct {
	Kind Kind
	Addr uint64
}

func (t Trap) Error() string {
	return fmt.Sprintf("%s at %#x", t.Kind, t.Addr)
}
