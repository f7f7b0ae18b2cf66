package main

import (
	"fmt"
	"os"

	"github.com/jroimartin/gocui"
	"github.com/spf13/cobra"

	"rvsim/console"
	"rvsim/logger"
	"rvsim/system"
)

var (
	flagImage    string
	flagMem      int
	flagLog      string
	flagHeadless bool
	flagRVC      bool
	flagDebug    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rvsim",
	Short: "rvsim emulates a small RISC-V machine with paged virtual memory.",
	Long: `rvsim emulates a small RISC-V machine with paged virtual memory. ` +
		`Without an image it boots a built-in program that turns translation on ` +
		`and runs under it; with --image it executes a raw memory image loaded ` +
		`at the boot address.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagImage, "image", "", "raw memory image to load instead of the built-in bootstrap")
	rootCmd.Flags().IntVar(&flagMem, "mem", system.DefaultMemSize, "backing memory size in bytes")
	rootCmd.Flags().StringVar(&flagLog, "log", "", "log file path (default stdout)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run without the terminal UI")
	rootCmd.Flags().BoolVar(&flagRVC, "rvc", false, "enable variable length (compressed) instruction fetch")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "log MMU refills and collect the translation trace")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	simLog = logger.New(flagLog)

	if flagHeadless {
		return runHeadless()
	}
	return runGui()
}

// runHeadless boots on a stdout console and exits when the machine halts.
func runHeadless() error {
	cons := console.NewSimple()
	sys := system.InitializeSystem(cons, flagMem, flagRVC, flagDebug, simLog)

	if flagImage != "" {
		if err := sys.LoadImage(flagImage); err != nil {
			return err
		}
		err := sys.Run()
		_ = cons.WriteConsole(sys.StatsSummary())
		return err
	}
	return sys.Boot()
}

// runGui drives the full screen UI. The simulator starts halted; the
// keybindings boot, step and quit it.
func runGui() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("couldn't create gui: %w", err)
	}
	defer g.Close()

	g.SetManagerFunc(layout)

	if err := setKeybindings(g); err != nil {
		return err
	}

	// set up the machine once the views exist
	g.Update(startSim)

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// startSim wires the simulator to the UI views.
func startSim(g *gocui.Gui) error {
	statusView, err := g.View("status")
	if err != nil {
		return err
	}
	statusView.Clear()

	cons := console.NewGui(g)
	sim = system.InitializeSystem(cons, flagMem, flagRVC, flagDebug, simLog)

	fmt.Fprintf(statusView, "rvsim ready: ^B boot, ^S step, ^C quit\n")
	updateRegisters(sim, g)
	return nil
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> status console
	if v, err := g.SetView("status", 0, 0, maxX-1, maxY-12); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-11, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}

	// down -> cache counters and translation trace
	if v, err := g.SetView("mmu", 0, maxY-4, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "MMU"
	}
	return nil
}
