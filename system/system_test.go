package system

import (
	"encoding/binary"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvsim/cpu"
)

// recorder collects console output for inspection.
type recorder struct {
	lines []string
}

func (r *recorder) WriteConsole(msg string) error {
	r.lines = append(r.lines, msg)
	return nil
}

func (r *recorder) all() string {
	return strings.Join(r.lines, "")
}

func newTestSystem(t *testing.T) (*System, *recorder) {
	t.Helper()
	rec := &recorder{}
	quiet := log.New(io.Discard, "", 0)
	return InitializeSystem(rec, DefaultMemSize, false, false, quiet), rec
}

func TestBootRunsToHalt(t *testing.T) {
	sys, rec := newTestSystem(t)

	require.NoError(t, sys.Boot())

	// the boot program turned translation on and computed under it
	assert.True(t, sys.Mmu.VMEnabled())
	assert.Equal(t, uint64(RootBase), sys.Mmu.Root())

	assert.Equal(t, uint64(3), sys.CPU.Registers[3], "x3 = 1 + 2")
	assert.Equal(t, uint64(3), sys.CPU.Registers[7], "x7 loaded the stored sum back")
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(sys.memory[DataBase:]))

	assert.Equal(t, cpu.HALT, sys.CPU.State)
	assert.Contains(t, rec.all(), "Halted")
}

func TestBootExercisesBothCaches(t *testing.T) {
	sys, _ := newTestSystem(t)
	require.NoError(t, sys.Boot())

	s := sys.Mmu.Stats
	assert.NotZero(t, s.Walks, "the boot program must run under translation")
	assert.NotZero(t, s.TLBHits)
	assert.NotZero(t, s.Decodes)
	assert.Zero(t, s.Faults)
}

func TestLoadImage(t *testing.T) {
	sys, rec := newTestSystem(t)

	// addi x9, x0, 41; addi x9, x9, 1; ecall
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], 0x02900493)
	binary.LittleEndian.PutUint32(buf[4:], 0x00148493)
	binary.LittleEndian.PutUint32(buf[8:], 0x00000073)

	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, buf[:], 0o644))

	require.NoError(t, sys.LoadImage(path))
	assert.Equal(t, uint64(BootBase), sys.CPU.PC)

	require.NoError(t, sys.Run())
	assert.Equal(t, uint64(42), sys.CPU.Registers[9])
	assert.Equal(t, cpu.HALT, sys.CPU.State)
	assert.Contains(t, rec.all(), "Loaded 12 byte image")
}

func TestLoadImageMissingFile(t *testing.T) {
	sys, _ := newTestSystem(t)
	assert.Error(t, sys.LoadImage(filepath.Join(t.TempDir(), "nope.bin")))
}

func TestLoadImageTooLarge(t *testing.T) {
	rec := &recorder{}
	quiet := log.New(io.Discard, "", 0)
	sys := InitializeSystem(rec, 8192, false, false, quiet)

	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	err := sys.LoadImage(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit")
}

func TestStepDeliversTrap(t *testing.T) {
	sys, rec := newTestSystem(t)

	// lw x7, 1(x0) -> misaligned load
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[0:], 0x00102383)
	path := filepath.Join(t.TempDir(), "fault.bin")
	require.NoError(t, os.WriteFile(path, buf[:], 0o644))
	require.NoError(t, sys.LoadImage(path))

	err := sys.Step()
	require.Error(t, err)
	assert.Equal(t, cpu.HALT, sys.CPU.State)
	assert.Contains(t, rec.all(), "TRAP")
	assert.Contains(t, rec.all(), "misaligned load")
}

func TestStatsSummaryFormat(t *testing.T) {
	sys, _ := newTestSystem(t)
	require.NoError(t, sys.Boot())

	out := sys.StatsSummary()
	assert.Contains(t, out, "tlb")
	assert.Contains(t, out, "icache")
	assert.Contains(t, out, "faults")
}
