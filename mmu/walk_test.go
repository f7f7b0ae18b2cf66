package mmu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvsim/trap"
)

/*
Test address space: a four level chain at rootA (tables in pages 16-19),
leaves indexed by virtual page number < 512. A second chain at rootB
(pages 24-27) backs the root-change tests.
*/

const (
	rootA = 0x10000
	rootB = 0x18000
)

func writePTE(mem []byte, addr, val uint64) {
	binary.LittleEndian.PutUint64(mem[addr:], val)
}

func readPTE(mem []byte, addr uint64) uint64 {
	return binary.LittleEndian.Uint64(mem[addr:])
}

// buildChain links root -> l1 -> l2 -> l3 and returns the leaf table.
func buildChain(mem []byte, root uint64) uint64 {
	l1, l2, l3 := root+PageSize, root+2*PageSize, root+3*PageSize
	writePTE(mem, root, l1|PteTable)
	writePTE(mem, l1, l2|PteTable)
	writePTE(mem, l2, l3|PteTable)
	return l3
}

// mapPage installs a leaf for a virtual page below 512.
func mapPage(mem []byte, root, vpn, ppn, perms uint64) {
	l3 := root + 3*PageSize
	writePTE(mem, l3+vpn*pteSize, ppn<<PtePPNShift|perms|PteValid)
}

// leafAddr returns where mapPage put the leaf, for inspecting R/D bits.
func leafAddr(root, vpn uint64) uint64 {
	return root + 3*PageSize + vpn*pteSize
}

func newWalkMMU(t *testing.T) (*MMU, []byte) {
	t.Helper()
	m, mem := newTestMMU(1 << 20)
	buildChain(mem, rootA)
	m.SetRoot(rootA)
	m.SetVMEnabled(true)
	return m, mem
}

func TestWalkResolvesMapping(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead|PteUserWrite)

	// phys page 5, offset 8
	binary.LittleEndian.PutUint64(mem[5*PageSize+8:], 0x1122334455667788)

	got, err := m.LoadUint64(2*PageSize + 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), got)

	require.NoError(t, m.StoreUint32(2*PageSize+16, 0xabcd))
	assert.Equal(t, uint32(0xabcd), binary.LittleEndian.Uint32(mem[5*PageSize+16:]))
}

// The spec scenario: page 2 readable and writable but not executable in
// user mode. Loads succeed, fetches are refused.
func TestFetchPermissionDenied(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead|PteUserWrite)

	_, err := m.LoadUint32(2 * PageSize)
	require.NoError(t, err)

	_, _, err = m.FetchInstruction(2*PageSize, false)
	var tr trap.Trap
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.FetchPermission, tr.Kind)
	assert.Equal(t, uint64(2*PageSize), m.BadVAddr())
}

func TestPermissionKinds(t *testing.T) {
	m, mem := newWalkMMU(t)

	// execute only page: loads and stores must be refused independently
	mapPage(mem, rootA, 3, 6, PteUserExec)

	_, _, err := m.FetchInstruction(3*PageSize, false)
	require.NoError(t, err)

	_, err = m.LoadUint8(3 * PageSize)
	var tr trap.Trap
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.LoadPermission, tr.Kind)

	err = m.StoreUint8(3*PageSize, 1)
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.StorePermission, tr.Kind)
}

func TestSupervisorPermissionBits(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 4, 7, PteSupRead)

	// user mode must not pass on supervisor bits
	_, err := m.LoadUint8(4 * PageSize)
	var tr trap.Trap
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.LoadPermission, tr.Kind)

	m.SetSupervisor(true)
	_, err = m.LoadUint8(4 * PageSize)
	require.NoError(t, err)
}

func TestAccessFaultKinds(t *testing.T) {
	m, _ := newWalkMMU(t)

	// virtual page 9 has no leaf at all
	addr := uint64(9 * PageSize)

	var tr trap.Trap

	_, err := m.LoadUint8(addr)
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.LoadAccess, tr.Kind)
	assert.Equal(t, addr, tr.Addr)

	err = m.StoreUint8(addr, 1)
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.StoreAccess, tr.Kind)

	_, _, err = m.FetchInstruction(addr, false)
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.FetchAccess, tr.Kind)
}

func TestMalformedMapping(t *testing.T) {
	m, mem := newWalkMMU(t)

	// a leaf above the last level
	writePTE(mem, rootA+1*pteSize, 5<<PtePPNShift|PteUserRead|PteValid)
	_, err := m.LoadUint8(1 << (PageShift + 3*IndexBits))
	var tr trap.Trap
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.MalformedMapping, tr.Kind)

	// a table descriptor at the last level
	l3 := uint64(rootA + 3*PageSize)
	writePTE(mem, l3+7*pteSize, uint64(5*PageSize)|PteTable)
	_, err = m.LoadUint8(7 * PageSize)
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.MalformedMapping, tr.Kind)
}

func TestReferencedDirtyBits(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead|PteUserWrite)

	_, err := m.LoadUint8(2 * PageSize)
	require.NoError(t, err)

	leaf := readPTE(mem, leafAddr(rootA, 2))
	assert.NotZero(t, leaf&PteReferenced, "load must set the referenced bit")
	assert.Zero(t, leaf&PteDirty, "load must not set the dirty bit")

	// a store on a fresh mapping sets both
	m.FlushTLB()
	require.NoError(t, m.StoreUint8(2*PageSize+1, 1))

	leaf = readPTE(mem, leafAddr(rootA, 2))
	assert.NotZero(t, leaf&PteReferenced)
	assert.NotZero(t, leaf&PteDirty)
}

func TestTLBAvoidsRepeatWalks(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead)

	_, err := m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	walks := m.Stats.Walks

	_, err = m.LoadUint8(2*PageSize + 64)
	require.NoError(t, err)
	assert.Equal(t, walks, m.Stats.Walks, "second access to the page must not walk")
	assert.NotZero(t, m.Stats.TLBHits)
}

func TestPerKindRowsDoNotAlias(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 3, 6, PteUserExec)

	// prime the fetch row for the page
	_, _, err := m.FetchInstruction(3*PageSize, false)
	require.NoError(t, err)

	// the store row must run its own permission check
	err = m.StoreUint8(3*PageSize, 1)
	var tr trap.Trap
	require.True(t, errors.As(err, &tr))
	assert.Equal(t, trap.StorePermission, tr.Kind)
}

func TestRootChangeInvalidatesTranslations(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead)

	buildChain(mem, rootB)
	mapPage(mem, rootB, 2, 6, PteUserRead)

	mem[5*PageSize] = 0xaa
	mem[6*PageSize] = 0xbb

	got, err := m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xaa), got)

	// same virtual page under the new root resolves to the new frame
	m.SetRoot(rootB)
	got, err = m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xbb), got)
}

// Flushing is by sentinel tags: remapping a page in the tables is not
// visible until the translation cache is flushed.
func TestFlushTLBPicksUpRemap(t *testing.T) {
	m, mem := newWalkMMU(t)
	mapPage(mem, rootA, 2, 5, PteUserRead)

	mem[5*PageSize] = 0xaa
	mem[6*PageSize] = 0xbb

	got, err := m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xaa), got)

	mapPage(mem, rootA, 2, 6, PteUserRead)

	got, err = m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xaa), got, "stale row is still live until a flush")

	m.FlushTLB()
	got, err = m.LoadUint8(2 * PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xbb), got)
}

func TestVMDisabledIsIdentity(t *testing.T) {
	m, mem := newTestMMU(65536)

	// no tables anywhere: with translation off the address is the offset
	mem[0x3456] = 0x42
	got, err := m.LoadUint8(0x3456)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x42), got)
	assert.Zero(t, m.Stats.Walks)
}
