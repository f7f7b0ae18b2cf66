package cpu

import "fmt"

var regNames = [...]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "x29", "x30", "x31",
}

const (
	fmtR = iota
	fmtI
	fmtS
	fmtB
	fmtU
	fmtJ
	fmtNone
)

var disasmTable = []struct {
	mask, match uint32
	msg         string
	format      int
}{
	{0x0000007f, 0x00000037, "LUI", fmtU},
	{0x0000007f, 0x00000017, "AUIPC", fmtU},
	{0x0000007f, 0x0000006f, "JAL", fmtJ},
	{0x0000707f, 0x00000067, "JALR", fmtI},
	{0x0000707f, 0x00000063, "BEQ", fmtB},
	{0x0000707f, 0x00001063, "BNE", fmtB},
	{0x0000707f, 0x00004063, "BLT", fmtB},
	{0x0000707f, 0x00005063, "BGE", fmtB},
	{0x0000707f, 0x00006063, "BLTU", fmtB},
	{0x0000707f, 0x00007063, "BGEU", fmtB},
	{0x0000707f, 0x00000003, "LB", fmtI},
	{0x0000707f, 0x00001003, "LH", fmtI},
	{0x0000707f, 0x00002003, "LW", fmtI},
	{0x0000707f, 0x00003003, "LD", fmtI},
	{0x0000707f, 0x00004003, "LBU", fmtI},
	{0x0000707f, 0x00005003, "LHU", fmtI},
	{0x0000707f, 0x00006003, "LWU", fmtI},
	{0x0000707f, 0x00000023, "SB", fmtS},
	{0x0000707f, 0x00001023, "SH", fmtS},
	{0x0000707f, 0x00002023, "SW", fmtS},
	{0x0000707f, 0x00003023, "SD", fmtS},
	{0x0000707f, 0x00000013, "ADDI", fmtI},
	{0x0000707f, 0x00002013, "SLTI", fmtI},
	{0x0000707f, 0x00003013, "SLTIU", fmtI},
	{0x0000707f, 0x00004013, "XORI", fmtI},
	{0xfc00707f, 0x00001013, "SLLI", fmtI},
	{0xfc00707f, 0x00005013, "SRLI", fmtI},
	{0xfc00707f, 0x40005013, "SRAI", fmtI},
	{0x0000707f, 0x00006013, "ORI", fmtI},
	{0x0000707f, 0x00007013, "ANDI", fmtI},
	{0xfe00707f, 0x00000033, "ADD", fmtR},
	{0xfe00707f, 0x40000033, "SUB", fmtR},
	{0xfe00707f, 0x00001033, "SLL", fmtR},
	{0xfe00707f, 0x00002033, "SLT", fmtR},
	{0xfe00707f, 0x00003033, "SLTU", fmtR},
	{0xfe00707f, 0x00004033, "XOR", fmtR},
	{0xfe00707f, 0x00005033, "SRL", fmtR},
	{0xfe00707f, 0x40005033, "SRA", fmtR},
	{0xfe00707f, 0x00006033, "OR", fmtR},
	{0xfe00707f, 0x00007033, "AND", fmtR},
	{0x0000707f, 0x0000000f, "FENCE", fmtNone},
	{0x0000707f, 0x0000100f, "FENCE.I", fmtNone},
	{0xffffffff, 0x00000073, "ECALL", fmtNone},
	{0xffffffff, 0x00100073, "EBREAK", fmtNone},
	{0xfe007fff, 0x12000073, "SFENCE.VMA", fmtNone},
	{0x0000707f, 0x00001073, "CSRRW", fmtI},
	{0x0000707f, 0x00002073, "CSRRS", fmtI},
	{0x0000707f, 0x00003073, "CSRRC", fmtI},
}

// Disasm renders an instruction word for the console views. Unrecognized
// words come back as raw hex.
func Disasm(bits uint32) string {
	for _, e := range disasmTable {
		if bits&e.mask != e.match {
			continue
		}
		switch e.format {
		case fmtR:
			return fmt.Sprintf("%s %s, %s, %s",
				e.msg, regNames[rd(bits)], regNames[rs1(bits)], regNames[rs2(bits)])
		case fmtI:
			return fmt.Sprintf("%s %s, %s, %d",
				e.msg, regNames[rd(bits)], regNames[rs1(bits)], immI(bits))
		case fmtS:
			return fmt.Sprintf("%s %s, %d(%s)",
				e.msg, regNames[rs2(bits)], immS(bits), regNames[rs1(bits)])
		case fmtB:
			return fmt.Sprintf("%s %s, %s, %d",
				e.msg, regNames[rs1(bits)], regNames[rs2(bits)], immB(bits))
		case fmtU:
			return fmt.Sprintf("%s %s, %#x", e.msg, regNames[rd(bits)], uint32(immU(bits))>>12)
		case fmtJ:
			return fmt.Sprintf("%s %s, %d", e.msg, regNames[rd(bits)], immJ(bits))
		default:
			return e.msg
		}
	}
	return fmt.Sprintf(".word %#08x", bits)
}
