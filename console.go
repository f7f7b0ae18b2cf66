package main

import (
	"fmt"
	"log"
	"time"

	"github.com/jroimartin/gocui"

	"rvsim/cpu"
	"rvsim/system"
)

// the machine behind the UI and its logger, shared by the keybindings
var (
	sim    *system.System
	simLog *log.Logger
)

func setKeybindings(g *gocui.Gui) error {
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlB, gocui.ModNone, bootSim); err != nil {
		return err
	}
	return g.SetKeybinding("", gocui.KeyCtrlS, gocui.ModNone, stepSim)
}

// bootSim loads the bootstrap image and runs it in the background, so the
// UI stays responsive while the machine executes.
func bootSim(g *gocui.Gui, v *gocui.View) error {
	if sim == nil || sim.CPU.State == cpu.RUN {
		return nil
	}
	go func() {
		if err := sim.Boot(); err != nil {
			simLog.Printf("boot: %v", err)
		}
	}()
	return nil
}

// stepSim executes a single instruction and shows it on the status view.
func stepSim(g *gocui.Gui, v *gocui.View) error {
	if sim == nil {
		return nil
	}

	pc := sim.CPU.PC
	bits, _, fetchErr := sim.Mmu.FetchInstruction(pc, false)
	err := sim.Step()

	statusView, verr := g.View("status")
	if verr != nil {
		return verr
	}
	if fetchErr == nil {
		fmt.Fprintf(statusView, "%#x: %s\n", pc, cpu.Disasm(bits))
	}
	if err != nil {
		fmt.Fprintf(statusView, "%v\n", err)
	}
	return nil
}

// updateRegisters redraws the register and MMU views once a second.
// Has to be run through Update -> gocui allows updating views only there.
func updateRegisters(sim *system.System, g *gocui.Gui) {
	ticker := time.NewTicker(time.Second * 1)

	go func() {
		for range ticker.C {
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("registers")
				if err != nil {
					return err
				}
				v.Clear()
				sim.CPU.DumpRegisters(v)

				mv, err := g.View("mmu")
				if err != nil {
					return err
				}
				mv.Clear()
				fmt.Fprint(mv, sim.StatsSummary())
				return nil
			})
		}
	}()
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
