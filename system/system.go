package system

import (
	"errors"
	"fmt"
	"log"
	"os"

	"rvsim/console"
	"rvsim/cpu"
	"rvsim/mmu"
	"rvsim/trap"
)

// System wires the simulated machine together: backing memory, the MMU
// on top of it, the execution core, and the status console.
type System struct {
	CPU *cpu.CPU
	Mmu *mmu.MMU

	memory []byte

	console console.Console
	log     *log.Logger
}

// InitializeSystem initializes the emulated machine.
func InitializeSystem(
	c console.Console, memSize int, compressed, debugMode bool, logger *log.Logger) *System {
	sys := new(System)
	sys.console = c
	sys.log = logger

	sys.memory = make([]byte, memSize)
	sys.Mmu = mmu.New(sys.memory, cpu.DispatchIndex, logger)
	sys.Mmu.SetDebugMode(debugMode)
	sys.CPU = cpu.New(sys.Mmu, compressed, logger)
	sys.CPU.Reset()

	_ = sys.console.WriteConsole("Initializing rvsim CPU.\n")
	return sys
}

// LoadImage copies a raw memory image to BootBase and points PC at it.
func (sys *System) LoadImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if BootBase+len(data) > len(sys.memory) {
		return fmt.Errorf("image %s does not fit in %d bytes of memory", path, len(sys.memory))
	}
	copy(sys.memory[BootBase:], data)

	// the image replaced whatever code was cached
	sys.Mmu.FlushICache()

	sys.CPU.PC = BootBase
	sys.CPU.State = cpu.RUN
	_ = sys.console.WriteConsole(fmt.Sprintf("Loaded %d byte image from %s\n", len(data), path))
	return nil
}

// Run executes instructions until the program halts or traps.
func (sys *System) Run() error {
	for sys.CPU.State == cpu.RUN {
		if err := sys.step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes a single instruction, for the console.
func (sys *System) Step() error {
	if sys.CPU.State != cpu.RUN {
		sys.CPU.State = cpu.RUN
	}
	return sys.step()
}

// step runs one instruction and delivers whatever it raised. Trap
// delivery policy lives here, not in the MMU: log the kind and the
// faulting address, then halt.
func (sys *System) step() error {
	err := sys.CPU.Step()
	if err == nil {
		return nil
	}

	sys.CPU.State = cpu.HALT

	if errors.Is(err, cpu.ErrHalted) {
		_ = sys.console.WriteConsole(fmt.Sprintf("Halted at pc %#x\n", sys.CPU.PC))
		return nil
	}

	var t trap.Trap
	if errors.As(err, &t) {
		sys.log.Printf("TRAP %s (pc %#x)", t, sys.CPU.PC)
		_ = sys.console.WriteConsole(fmt.Sprintf("TRAP: %s, pc %#x\n", t, sys.CPU.PC))
		return err
	}

	sys.log.Printf("stopped: %v", err)
	_ = sys.console.WriteConsole(fmt.Sprintf("Stopped: %v\n", err))
	return err
}

// StatsSummary renders MMU counters and, in debug mode, the recent
// translation trace.
func (sys *System) StatsSummary() string {
	s := sys.Mmu.Stats
	out := fmt.Sprintf(
		"tlb %d/%d hits, %d walks | icache %d/%d hits, %d decodes | %d faults\n",
		s.TLBHits, s.TLBHits+s.TLBMisses, s.Walks,
		s.ICacheHits, s.ICacheHits+s.ICacheMisses, s.Decodes, s.Faults)
	for _, e := range sys.Mmu.Trace().Drain() {
		out += "  " + e.String() + "\n"
	}
	return out
}
