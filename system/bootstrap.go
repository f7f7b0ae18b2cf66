package system

import (
	"fmt"

	"rvsim/cpu"
	"rvsim/mmu"
)

/*
	Minimal bootstrap image -> build page tables, load code, start executing.

	The page tables identity map the first IdentityPages pages with full
	permissions in both modes; the code turns translation on and keeps
	running under it.
*/

var bootcode = [...]uint32{
	0x000102b7, // LUI x5, 0x10          ; x5 = RootBase
	0x18029073, // CSRRW x0, satp, x5    ; install translation root
	0x00020337, // LUI x6, 0x20          ; x6 = translation enable bit
	0x30032073, // CSRRS x0, mstatus, x6 ; turn translation on
	0x00100093, // ADDI x1, x0, 1
	0x00200113, // ADDI x2, x0, 2
	0x002081b3, // ADD x3, x1, x2
	0x00020237, // LUI x4, 0x20          ; x4 = DataBase
	0x00322023, // SW x3, 0(x4)
	0x00022383, // LW x7, 0(x4)
	0x00000073, // ECALL                 ; halt
}

// identity leaf: readable, writable, executable in user and supervisor mode
const bootLeafPerms = mmu.PteUserRead | mmu.PteUserWrite | mmu.PteUserExec |
	mmu.PteSupRead | mmu.PteSupWrite | mmu.PteSupExec

// LoadBootstrap builds the bootstrap address space and loads the boot
// code, leaving the CPU ready to run.
func (sys *System) LoadBootstrap() error {
	if err := sys.buildBootTables(); err != nil {
		return err
	}

	memPointer := uint64(BootBase)
	for _, c := range bootcode {
		if err := sys.Mmu.StoreUint32(memPointer, uint64(c)); err != nil {
			return fmt.Errorf("bootstrap load: %w", err)
		}
		memPointer += 4
	}
	sys.Mmu.FlushICache()

	sys.CPU.PC = BootBase
	sys.CPU.State = cpu.RUN
	return nil
}

// Boot loads the bootstrap image and starts emulation.
func (sys *System) Boot() error {
	_ = sys.console.WriteConsole("Booting..\n")
	if err := sys.LoadBootstrap(); err != nil {
		return err
	}
	err := sys.Run()
	_ = sys.console.WriteConsole(sys.StatsSummary())
	return err
}

// buildBootTables writes the four level identity mapping. Translation is
// off at this point, so the stores land at their physical addresses.
func (sys *System) buildBootTables() error {
	l1 := uint64(RootBase) + mmu.PageSize
	l2 := uint64(RootBase) + 2*mmu.PageSize
	l3 := uint64(RootBase) + 3*mmu.PageSize

	// one descriptor chain covers the whole identity window: all its
	// virtual pages share the top three index groups
	chain := []struct{ at, next uint64 }{
		{RootBase, l1},
		{l1, l2},
		{l2, l3},
	}
	for _, c := range chain {
		if err := sys.Mmu.StoreUint64(c.at, c.next|mmu.PteTable); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}

	for i := uint64(0); i < IdentityPages; i++ {
		pte := i<<mmu.PtePPNShift | bootLeafPerms | mmu.PteValid
		if err := sys.Mmu.StoreUint64(l3+i*8, pte); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}
	return nil
}
