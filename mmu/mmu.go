package mmu

import (
	"encoding/binary"
	"fmt"
	"log"

	"rvsim/trap"
)

// AccessKind selects the permission and the trap kinds for a memory access.
// The TLB keeps a separate row set per kind: the same page may be executable
// to fetches but not writable to stores, so the kinds must not share tags.
type AccessKind int

const (
	// AccessFetch - instruction fetch
	AccessFetch AccessKind = iota

	// AccessLoad - data load
	AccessLoad

	// AccessStore - data store
	AccessStore

	accessKinds = 3
)

const (
	// TLBEntries - rows per access kind in the translation cache
	TLBEntries = 256

	// ICacheEntries - rows in the decoded instruction cache
	ICacheEntries = 256

	// invalidTag can never equal a page-aligned or fetch-aligned address,
	// so writing it to a tag column is enough to invalidate the row.
	invalidTag = ^uint64(0)
)

// Handle is a pre-resolved dispatch index. The MMU only stores and returns
// it; decoding semantics belong to the execution core.
type Handle uint32

// Decoder turns a fetched instruction word into a dispatch handle.
// Supplied by the execution core at construction time.
type Decoder func(addr uint64, bits uint32) Handle

// Stats counts cache and walk activity. The run loop and the console read
// it, and the tests use it to tell a hit path from a refill path.
type Stats struct {
	TLBHits      uint64
	TLBMisses    uint64
	Walks        uint64
	ICacheHits   uint64
	ICacheMisses uint64
	Decodes      uint64
	Faults       uint64
}

// MMU is the processor's port into the simulated memory system: it owns
// address translation, the translation cache, the decoded instruction
// cache, and the load/store/fetch API. The backing buffer is supplied by
// the caller and treated as the whole physical address space.
type MMU struct {
	mem []byte

	// virtual address of the most recent fault
	badVAddr uint64

	// translation root and mode flags, kept in sync with the processor
	root       uint64
	supervisor bool
	vmEnabled  bool

	// translation cache: page-aligned tag plus cached physical page base,
	// one row set per access kind
	tlbTag  [accessKinds][TLBEntries]uint64
	tlbBase [accessKinds][TLBEntries]uint64

	// instruction cache: exact-address tag, raw bits, dispatch handle
	icacheTag    [ICacheEntries]uint64
	icacheBits   [ICacheEntries]uint32
	icacheHandle [ICacheEntries]Handle

	decode Decoder

	// Stats is exported for the console and the tests; nothing else
	// writes to it.
	Stats Stats

	debugMode bool
	log       *log.Logger
	trace     *TraceBuffer
}

// New returns an MMU over the given backing buffer. The buffer is owned by
// the caller; the MMU only bounds-checks offsets into it. decode supplies
// the dispatch handle for fetched instructions.
func New(mem []byte, decode Decoder, logger *log.Logger) *MMU {
	m := &MMU{
		mem:    mem,
		decode: decode,
		log:    logger,
		trace:  NewTraceBuffer(traceDepth),
	}
	m.FlushTLB()
	m.FlushICache()
	return m
}

// SetDebugMode toggles refill logging and trace collection.
func (m *MMU) SetDebugMode(on bool) {
	m.debugMode = on
}

// BadVAddr returns the virtual address that caused the most recent fault.
func (m *MMU) BadVAddr() uint64 {
	return m.badVAddr
}

// Root returns the physical address of the top level page table.
func (m *MMU) Root() uint64 {
	return m.root
}

// SetRoot installs a new top level page table and drops every cached
// translation: mappings under the old root must never be consulted again.
func (m *MMU) SetRoot(addr uint64) {
	m.root = pageBase(addr)
	m.FlushTLB()
}

// SetSupervisor keeps the MMU in sync with the processor privilege mode.
// Cached translations embed a permission decision, so the cache is dropped.
func (m *MMU) SetSupervisor(sup bool) {
	m.supervisor = sup
	m.FlushTLB()
}

// SetVMEnabled turns translation on or off. Off means identity mapping.
func (m *MMU) SetVMEnabled(en bool) {
	m.vmEnabled = en
	m.FlushTLB()
}

// VMEnabled reports whether translation is active.
func (m *MMU) VMEnabled() bool {
	return m.vmEnabled
}

// FlushTLB invalidates every cached translation. Tags are overwritten with
// a value no address can match; the data columns are left in place.
func (m *MMU) FlushTLB() {
	for kind := 0; kind < accessKinds; kind++ {
		for i := range m.tlbTag[kind] {
			m.tlbTag[kind][i] = invalidTag
		}
	}
}

// FlushICache invalidates every cached instruction. Called by the
// execution core when simulated code may have been modified; it does not
// touch the translation cache.
func (m *MMU) FlushICache() {
	for i := range m.icacheTag {
		m.icacheTag[i] = invalidTag
	}
}

// Trace returns the recent-translation ring, populated in debug mode.
func (m *MMU) Trace() *TraceBuffer {
	return m.trace
}

// translate resolves a virtual address to an offset into the backing
// buffer, consulting the translation cache first and walking on a miss.
func (m *MMU) translate(addr uint64, kind AccessKind) (uint64, error) {
	idx := (addr >> PageShift) % TLBEntries
	if m.tlbTag[kind][idx] == pageBase(addr) {
		m.Stats.TLBHits++
		return m.tlbBase[kind][idx] | (addr & (PageSize - 1)), nil
	}
	return m.refill(addr, kind)
}

// refill finishes translation on a TLB miss and installs the result.
func (m *MMU) refill(addr uint64, kind AccessKind) (uint64, error) {
	m.Stats.TLBMisses++

	var base uint64
	if !m.vmEnabled {
		base = pageBase(addr)
	} else {
		leaf, leafAddr, err := m.walk(addr, kind)
		if err != nil {
			return 0, err
		}
		if err := m.checkPermission(leaf, addr, kind); err != nil {
			return 0, err
		}

		// referenced and dirty bits are set lazily on the leaf itself,
		// mirroring hardware behaviour
		updated := leaf | PteReferenced
		if kind == AccessStore {
			updated |= PteDirty
		}
		if updated != leaf {
			m.writePhys(leafAddr, pteSize, updated)
		}

		base = (leaf >> PtePPNShift) << PageShift
	}

	idx := (addr >> PageShift) % TLBEntries
	m.tlbTag[kind][idx] = pageBase(addr)
	m.tlbBase[kind][idx] = base

	if m.debugMode {
		m.trace.Push(TraceEvent{VAddr: pageBase(addr), PBase: base, Kind: kind})
		if m.log != nil {
			m.log.Printf("mmu: refill kind=%d va=%#x -> pa=%#x", kind, pageBase(addr), base)
		}
	}

	return base | (addr & (PageSize - 1)), nil
}

// checkPermission validates the leaf entry for the access kind under the
// current privilege.
func (m *MMU) checkPermission(leaf, addr uint64, kind AccessKind) error {
	if leaf&permBit(kind, m.supervisor) != 0 {
		return nil
	}
	switch kind {
	case AccessFetch:
		return m.fault(addr, trap.FetchPermission)
	case AccessStore:
		return m.fault(addr, trap.StorePermission)
	default:
		return m.fault(addr, trap.LoadPermission)
	}
}

// accessFault selects the invalid-mapping trap kind for an access kind.
func (m *MMU) accessFault(addr uint64, kind AccessKind) error {
	switch kind {
	case AccessFetch:
		return m.fault(addr, trap.FetchAccess)
	case AccessStore:
		return m.fault(addr, trap.StoreAccess)
	default:
		return m.fault(addr, trap.LoadAccess)
	}
}

// fault records the faulting address and builds the trap value. Faults are
// never retried here; the caller owns delivery.
func (m *MMU) fault(addr uint64, kind trap.Kind) error {
	m.badVAddr = addr
	m.Stats.Faults++
	return trap.Trap{Kind: kind, Addr: addr}
}

// readPhys reads a little-endian value of the given width at a physical
// offset. An offset beyond the buffer is a setup error, not a trap.
func (m *MMU) readPhys(pa uint64, size int) uint64 {
	m.checkBounds(pa, size)
	switch size {
	case 1:
		return uint64(m.mem[pa])
	case 2:
		return uint64(binary.LittleEndian.Uint16(m.mem[pa:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(m.mem[pa:]))
	default:
		return binary.LittleEndian.Uint64(m.mem[pa:])
	}
}

// writePhys stores a little-endian value of the given width at a physical
// offset.
func (m *MMU) writePhys(pa uint64, size int, val uint64) {
	m.checkBounds(pa, size)
	switch size {
	case 1:
		m.mem[pa] = byte(val)
	case 2:
		binary.LittleEndian.PutUint16(m.mem[pa:], uint16(val))
	case 4:
		binary.LittleEndian.PutUint32(m.mem[pa:], uint32(val))
	default:
		binary.LittleEndian.PutUint64(m.mem[pa:], val)
	}
}

func (m *MMU) checkBounds(pa uint64, size int) {
	if pa+uint64(size) > uint64(len(m.mem)) || pa+uint64(size) < pa {
		panic(fmt.Sprintf(
			"mmu: physical access %#x+%d outside %d byte memory", pa, size, len(m.mem)))
	}
}
