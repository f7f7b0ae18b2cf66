package cpu

import "fmt"

// CSR addresses the core implements
const (
	csrSatp    = 0x180
	csrMstatus = 0x300
	csrMtval   = 0x343
)

func (c *CPU) unimplemented(bits uint32) error {
	return fmt.Errorf("cpu: unimplemented instruction %#08x at %#x", bits, c.PC)
}

func (c *CPU) opLui(bits uint32) error {
	c.setReg(rd(bits), uint64(immU(bits)))
	c.PC += 4
	return nil
}

func (c *CPU) opAuipc(bits uint32) error {
	c.setReg(rd(bits), c.PC+uint64(immU(bits)))
	c.PC += 4
	return nil
}

func (c *CPU) opJal(bits uint32) error {
	c.setReg(rd(bits), c.PC+4)
	c.PC += uint64(immJ(bits))
	return nil
}

func (c *CPU) opJalr(bits uint32) error {
	target := (c.Registers[rs1(bits)] + uint64(immI(bits))) &^ 1
	c.setReg(rd(bits), c.PC+4)
	c.PC = target
	return nil
}

func (c *CPU) opBranch(bits uint32) error {
	a, b := c.Registers[rs1(bits)], c.Registers[rs2(bits)]

	var taken bool
	switch funct3(bits) {
	case 0: // BEQ
		taken = a == b
	case 1: // BNE
		taken = a != b
	case 4: // BLT
		taken = int64(a) < int64(b)
	case 5: // BGE
		taken = int64(a) >= int64(b)
	case 6: // BLTU
		taken = a < b
	case 7: // BGEU
		taken = a >= b
	default:
		return c.unimplemented(bits)
	}

	if taken {
		c.PC += uint64(immB(bits))
	} else {
		c.PC += 4
	}
	return nil
}

func (c *CPU) opLoad(bits uint32) error {
	ea := c.Registers[rs1(bits)] + uint64(immI(bits))

	var val uint64
	var err error
	switch funct3(bits) {
	case 0: // LB
		val, err = c.mmunit.LoadInt8(ea)
	case 1: // LH
		val, err = c.mmunit.LoadInt16(ea)
	case 2: // LW
		val, err = c.mmunit.LoadInt32(ea)
	case 3: // LD
		val, err = c.mmunit.LoadInt64(ea)
	case 4: // LBU
		val, err = c.mmunit.LoadUint8(ea)
	case 5: // LHU
		val, err = c.mmunit.LoadUint16(ea)
	case 6: // LWU
		val, err = c.mmunit.LoadUint32(ea)
	default:
		return c.unimplemented(bits)
	}
	if err != nil {
		return err
	}

	c.setReg(rd(bits), val)
	c.PC += 4
	return nil
}

func (c *CPU) opStore(bits uint32) error {
	ea := c.Registers[rs1(bits)] + uint64(immS(bits))
	val := c.Registers[rs2(bits)]

	var err error
	switch funct3(bits) {
	case 0: // SB
		err = c.mmunit.StoreUint8(ea, val)
	case 1: // SH
		err = c.mmunit.StoreUint16(ea, val)
	case 2: // SW
		err = c.mmunit.StoreUint32(ea, val)
	case 3: // SD
		err = c.mmunit.StoreUint64(ea, val)
	default:
		return c.unimplemented(bits)
	}
	if err != nil {
		return err
	}

	c.PC += 4
	return nil
}

func (c *CPU) opImm(bits uint32) error {
	a := c.Registers[rs1(bits)]
	imm := uint64(immI(bits))

	var val uint64
	switch funct3(bits) {
	case 0: // ADDI
		val = a + imm
	case 1: // SLLI
		val = a << ((bits >> 20) & 0x3f)
	case 2: // SLTI
		val = boolToReg(int64(a) < int64(imm))
	case 3: // SLTIU
		val = boolToReg(a < imm)
	case 4: // XORI
		val = a ^ imm
	case 5: // SRLI / SRAI
		shamt := (bits >> 20) & 0x3f
		if bits&0x40000000 != 0 {
			val = uint64(int64(a) >> shamt)
		} else {
			val = a >> shamt
		}
	case 6: // ORI
		val = a | imm
	case 7: // ANDI
		val = a & imm
	}

	c.setReg(rd(bits), val)
	c.PC += 4
	return nil
}

func (c *CPU) opReg(bits uint32) error {
	a, b := c.Registers[rs1(bits)], c.Registers[rs2(bits)]

	var val uint64
	switch funct7(bits)<<3 | funct3(bits) {
	case 0x000: // ADD
		val = a + b
	case 0x100: // SUB
		val = a - b
	case 0x001: // SLL
		val = a << (b & 0x3f)
	case 0x002: // SLT
		val = boolToReg(int64(a) < int64(b))
	case 0x003: // SLTU
		val = boolToReg(a < b)
	case 0x004: // XOR
		val = a ^ b
	case 0x005: // SRL
		val = a >> (b & 0x3f)
	case 0x105: // SRA
		val = uint64(int64(a) >> (b & 0x3f))
	case 0x006: // OR
		val = a | b
	case 0x007: // AND
		val = a & b
	default:
		return c.unimplemented(bits)
	}

	c.setReg(rd(bits), val)
	c.PC += 4
	return nil
}

func (c *CPU) opImmWord(bits uint32) error {
	a := uint32(c.Registers[rs1(bits)])

	var val int32
	switch funct3(bits) {
	case 0: // ADDIW
		val = int32(a) + int32(immI(bits))
	case 1: // SLLIW
		val = int32(a << ((bits >> 20) & 0x1f))
	case 5: // SRLIW / SRAIW
		shamt := (bits >> 20) & 0x1f
		if bits&0x40000000 != 0 {
			val = int32(a) >> shamt
		} else {
			val = int32(a >> shamt)
		}
	default:
		return c.unimplemented(bits)
	}

	c.setReg(rd(bits), uint64(int64(val)))
	c.PC += 4
	return nil
}

func (c *CPU) opRegWord(bits uint32) error {
	a, b := uint32(c.Registers[rs1(bits)]), uint32(c.Registers[rs2(bits)])

	var val int32
	switch funct7(bits)<<3 | funct3(bits) {
	case 0x000: // ADDW
		val = int32(a + b)
	case 0x100: // SUBW
		val = int32(a - b)
	case 0x001: // SLLW
		val = int32(a << (b & 0x1f))
	case 0x005: // SRLW
		val = int32(a >> (b & 0x1f))
	case 0x105: // SRAW
		val = int32(a) >> (b & 0x1f)
	default:
		return c.unimplemented(bits)
	}

	c.setReg(rd(bits), uint64(int64(val)))
	c.PC += 4
	return nil
}

// opMiscMem covers the fence group. FENCE.I is the code coherence flush:
// stores may have modified instruction memory, so the decoded instruction
// cache must go. The translation cache is deliberately left alone.
func (c *CPU) opMiscMem(bits uint32) error {
	if funct3(bits) == 1 {
		c.mmunit.FlushICache()
	}
	c.PC += 4
	return nil
}

func (c *CPU) opSystem(bits uint32) error {
	switch funct3(bits) {
	case 0:
		// SFENCE.VMA drops cached translations only
		if funct7(bits) == 0x09 {
			c.mmunit.FlushTLB()
			c.PC += 4
			return nil
		}
		switch bits {
		case 0x00000073, 0x00100073: // ECALL, EBREAK
			c.State = HALT
			return ErrHalted
		}
		return c.unimplemented(bits)
	case 1, 2, 3:
		return c.opCSR(bits)
	default:
		return c.unimplemented(bits)
	}
}

func (c *CPU) opCSR(bits uint32) error {
	csr := bits >> 20
	old, err := c.readCSR(csr)
	if err != nil {
		return err
	}

	src := c.Registers[rs1(bits)]
	var next uint64
	switch funct3(bits) {
	case 1: // CSRRW
		next = src
	case 2: // CSRRS
		next = old | src
	case 3: // CSRRC
		next = old &^ src
	}

	// CSRRS/CSRRC with x0 read without side effects
	if funct3(bits) == 1 || rs1(bits) != 0 {
		if err := c.writeCSR(csr, next); err != nil {
			return err
		}
	}

	c.setReg(rd(bits), old)
	c.PC += 4
	return nil
}

func (c *CPU) readCSR(csr uint32) (uint64, error) {
	switch csr {
	case csrSatp:
		return c.mmunit.Root(), nil
	case csrMstatus:
		return c.Status.Get(), nil
	case csrMtval:
		return c.mmunit.BadVAddr(), nil
	default:
		return 0, fmt.Errorf("cpu: unimplemented csr %#x at %#x", csr, c.PC)
	}
}

func (c *CPU) writeCSR(csr uint32, val uint64) error {
	switch csr {
	case csrSatp:
		// the root setter drops every cached translation
		c.mmunit.SetRoot(val)
	case csrMstatus:
		c.Status.Set(val)
		c.syncStatus()
	case csrMtval:
		// read only
	default:
		return fmt.Errorf("cpu: unimplemented csr %#x at %#x", csr, c.PC)
	}
	return nil
}

// opCompressed catches half-width encodings. Fetch supports them (split
// path included), execution of the compressed set does not.
func (c *CPU) opCompressed(bits uint32) error {
	return fmt.Errorf("cpu: compressed instruction %#04x at %#x not implemented", bits&0xffff, c.PC)
}

func (c *CPU) opUnknown(bits uint32) error {
	return c.unimplemented(bits)
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
