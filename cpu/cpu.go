package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"

	"rvsim/mmu"
)

const (
	// CPU state: Run / Halt / Wait:
	HALT = 0
	RUN  = 1
	WAIT = 2
)

// DispatchTableSize - number of dispatch slots. A power of two no larger
// than 1<<16, so the dispatch index of a split fetch is fully determined
// by the low half-parcel.
const DispatchTableSize = 1024

// ErrHalted is returned by Step once the processor has stopped.
var ErrHalted = errors.New("cpu halted")

// DispatchIndex is the decode function handed to the MMU: it selects the
// dispatch slot for an instruction word. Execution semantics stay here,
// the MMU only memoizes the result.
func DispatchIndex(addr uint64, bits uint32) mmu.Handle {
	return mmu.Handle(bits % DispatchTableSize)
}

// an opcode handler executes one instruction and advances PC itself
type handlerFn func(c *CPU, bits uint32) error

// CPU models the integer execution core. All memory traffic goes through
// the MMU; the dispatch table is indexed by the handle the MMU caches.
type CPU struct {
	Registers [32]uint64
	PC        uint64
	State     int

	// machine status word; mode bits are mirrored into the MMU
	Status Status

	// memory access is required:
	mmunit *mmu.MMU

	// dispatch is indexed with bits % DispatchTableSize. Handlers are
	// registered per opcode; every residue sharing an opcode shares the
	// handler, which decodes the rest of the word itself.
	dispatch [DispatchTableSize]handlerFn

	// compressed instruction fetch mode, threaded into every fetch
	compressed bool

	log *log.Logger
}

// New initializes and returns the CPU variable
func New(mmunit *mmu.MMU, compressed bool, logger *log.Logger) *CPU {
	c := &CPU{
		mmunit:     mmunit,
		compressed: compressed,
		log:        logger,
	}
	c.buildDispatch()
	return c
}

// MMU returns the memory port this core executes against.
func (c *CPU) MMU() *mmu.MMU {
	return c.mmunit
}

// Reset brings the core back to its power-on state. Cache state in the
// MMU is dropped as well: a reset may be preceded by arbitrary memory
// edits.
func (c *CPU) Reset() {
	for i := range c.Registers {
		c.Registers[i] = 0
	}
	c.PC = 0
	c.State = HALT
	c.Status.Set(0)
	c.syncStatus()
	c.mmunit.FlushICache()
}

// buildDispatch registers the opcode handlers. Residues whose low bits do
// not mark a full width encoding belong to the compressed quadrants.
func (c *CPU) buildDispatch() {
	byOpcode := map[uint32]handlerFn{
		0x37: (*CPU).opLui,
		0x17: (*CPU).opAuipc,
		0x6f: (*CPU).opJal,
		0x67: (*CPU).opJalr,
		0x63: (*CPU).opBranch,
		0x03: (*CPU).opLoad,
		0x23: (*CPU).opStore,
		0x13: (*CPU).opImm,
		0x33: (*CPU).opReg,
		0x1b: (*CPU).opImmWord,
		0x3b: (*CPU).opRegWord,
		0x0f: (*CPU).opMiscMem,
		0x73: (*CPU).opSystem,
	}

	for i := range c.dispatch {
		bits := uint32(i)
		if !fullWidth(bits) {
			c.dispatch[i] = (*CPU).opCompressed
			continue
		}
		if fn, ok := byOpcode[bits&0x7f]; ok {
			c.dispatch[i] = fn
		} else {
			c.dispatch[i] = (*CPU).opUnknown
		}
	}
}

// fullWidth reports whether the encoding is a 32-bit instruction.
func fullWidth(bits uint32) bool {
	return bits&0x3 == 0x3
}

// Step fetches and executes a single instruction.
func (c *CPU) Step() error {
	bits, handle, err := c.mmunit.FetchInstruction(c.PC, c.compressed)
	if err != nil {
		return err
	}
	return c.dispatch[handle](c, bits)
}

// setReg writes a register, keeping x0 hardwired to zero.
func (c *CPU) setReg(i uint32, val uint64) {
	if i != 0 {
		c.Registers[i] = val
	}
}

// syncStatus mirrors the status word mode bits into the MMU.
func (c *CPU) syncStatus() {
	c.mmunit.SetSupervisor(c.Status.Supervisor())
	c.mmunit.SetVMEnabled(c.Status.VMEnabled())
}

// DumpRegisters writes the register file to the registers view
func (c *CPU) DumpRegisters(w io.Writer) {
	for i, v := range c.Registers {
		fmt.Fprintf(w, "x%-2d %016x  ", i, v)
		if i%4 == 3 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "pc  %016x  %s\n", c.PC, c.Status.Flags())
}
