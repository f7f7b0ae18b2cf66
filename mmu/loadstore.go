package mmu

import "rvsim/trap"

/*
Width and signedness variants share one load and one store helper; the
exported functions are thin wrappers. Alignment is checked before any
translation is attempted, and a misaligned access leaves both caches and
the backing buffer untouched.
*/

// load reads size bytes at a virtual address and extends the value to
// register width.
func (m *MMU) load(addr uint64, size int, signed bool) (uint64, error) {
	if addr%uint64(size) != 0 {
		return 0, m.fault(addr, trap.LoadMisaligned)
	}
	pa, err := m.translate(addr, AccessLoad)
	if err != nil {
		return 0, err
	}
	val := m.readPhys(pa, size)
	if signed {
		val = signExtend(val, size)
	}
	return val, nil
}

// store writes the low size bytes of val at a virtual address.
func (m *MMU) store(addr uint64, size int, val uint64) error {
	if addr%uint64(size) != 0 {
		return m.fault(addr, trap.StoreMisaligned)
	}
	pa, err := m.translate(addr, AccessStore)
	if err != nil {
		return err
	}
	m.writePhys(pa, size, val)
	return nil
}

// signExtend widens the low size bytes of val to 64 bits.
func signExtend(val uint64, size int) uint64 {
	shift := 64 - 8*size
	return uint64(int64(val<<shift) >> shift)
}

// LoadUint8 loads a byte, zero extended.
func (m *MMU) LoadUint8(addr uint64) (uint64, error) { return m.load(addr, 1, false) }

// LoadUint16 loads a halfword, zero extended.
func (m *MMU) LoadUint16(addr uint64) (uint64, error) { return m.load(addr, 2, false) }

// LoadUint32 loads a word, zero extended.
func (m *MMU) LoadUint32(addr uint64) (uint64, error) { return m.load(addr, 4, false) }

// LoadUint64 loads a doubleword.
func (m *MMU) LoadUint64(addr uint64) (uint64, error) { return m.load(addr, 8, false) }

// LoadInt8 loads a byte, sign extended.
func (m *MMU) LoadInt8(addr uint64) (uint64, error) { return m.load(addr, 1, true) }

// LoadInt16 loads a halfword, sign extended.
func (m *MMU) LoadInt16(addr uint64) (uint64, error) { return m.load(addr, 2, true) }

// LoadInt32 loads a word, sign extended.
func (m *MMU) LoadInt32(addr uint64) (uint64, error) { return m.load(addr, 4, true) }

// LoadInt64 loads a doubleword.
func (m *MMU) LoadInt64(addr uint64) (uint64, error) { return m.load(addr, 8, true) }

// StoreUint8 stores the low byte of val.
func (m *MMU) StoreUint8(addr uint64, val uint64) error { return m.store(addr, 1, val) }

// StoreUint16 stores the low halfword of val.
func (m *MMU) StoreUint16(addr uint64, val uint64) error { return m.store(addr, 2, val) }

// StoreUint32 stores the low word of val.
func (m *MMU) StoreUint32(addr uint64, val uint64) error { return m.store(addr, 4, val) }

// StoreUint64 stores val.
func (m *MMU) StoreUint64(addr uint64, val uint64) error { return m.store(addr, 8, val) }
