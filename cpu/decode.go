package cpu

// instruction word field extractors. Immediates come back sign extended
// to 64 bits, ready to add to a register.

func rd(bits uint32) uint32     { return (bits >> 7) & 0x1f }
func rs1(bits uint32) uint32    { return (bits >> 15) & 0x1f }
func rs2(bits uint32) uint32    { return (bits >> 20) & 0x1f }
func funct3(bits uint32) uint32 { return (bits >> 12) & 0x7 }
func funct7(bits uint32) uint32 { return bits >> 25 }

// immI - I-type: loads, jalr, op-imm
func immI(bits uint32) int64 {
	return int64(int32(bits)) >> 20
}

// immS - S-type: stores
func immS(bits uint32) int64 {
	return (int64(int32(bits))>>25)<<5 | int64((bits>>7)&0x1f)
}

// immB - B-type: branches, in multiples of two bytes
func immB(bits uint32) int64 {
	imm := (int64(int32(bits))>>31)<<12 |
		int64((bits>>25)&0x3f)<<5 |
		int64((bits>>8)&0xf)<<1 |
		int64((bits>>7)&0x1)<<11
	return imm
}

// immU - U-type: lui, auipc
func immU(bits uint32) int64 {
	return int64(int32(bits & 0xfffff000))
}

// immJ - J-type: jal
func immJ(bits uint32) int64 {
	imm := (int64(int32(bits))>>31)<<20 |
		int64((bits>>21)&0x3ff)<<1 |
		int64((bits>>20)&0x1)<<11 |
		int64((bits>>12)&0xff)<<12
	return imm
}
