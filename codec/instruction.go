// Package codec packs and unpacks 32-bit RV32I instruction words: the
// R/I/S/B/U/J field layouts and their sign-extended immediates.
package codec

import (
	"github.com/lookbusy1344/riscv32-edu/bits"
	"github.com/lookbusy1344/riscv32-edu/isa"
)

// Instruction is an opaque 32-bit instruction word with derived accessors.
type Instruction uint32

func (i Instruction) Word() uint32   { return uint32(i) }
func (i Instruction) Opcode() uint32 { return bits.Extract(uint32(i), 0, 7) }
func (i Instruction) Rd() uint32     { return bits.Extract(uint32(i), 7, 5) }
func (i Instruction) Funct3() uint32 { return bits.Extract(uint32(i), 12, 3) }
func (i Instruction) Rs1() uint32    { return bits.Extract(uint32(i), 15, 5) }
func (i Instruction) Rs2() uint32    { return bits.Extract(uint32(i), 20, 5) }
func (i Instruction) Funct7() uint32 { return bits.Extract(uint32(i), 25, 7) }

// Immediate decodes this instruction's immediate under the given format,
// sign-extended to int32. Returns ImmediateFormatError for U (which has no
// sign-extension, use ImmediateU) or an unsupported format.
func (i Instruction) Immediate(format isa.Format) (int32, error) {
	v := uint32(i)
	switch format {
	case isa.FormatI:
		return bits.SignExtend(bits.Extract(v, 20, 12), 12), nil
	case isa.FormatS:
		hi := bits.Extract(v, 25, 7)
		lo := bits.Extract(v, 7, 5)
		return bits.SignExtend((hi<<5)|lo, 12), nil
	case isa.FormatB:
		b12 := bits.Extract(v, 31, 1)
		b11 := bits.Extract(v, 7, 1)
		b10_5 := bits.Extract(v, 25, 6)
		b4_1 := bits.Extract(v, 8, 4)
		raw := (b12 << 12) | (b11 << 11) | (b10_5 << 5) | (b4_1 << 1)
		return bits.SignExtend(raw, 13), nil
	case isa.FormatJ:
		b20 := bits.Extract(v, 31, 1)
		b19_12 := bits.Extract(v, 12, 8)
		b11 := bits.Extract(v, 20, 1)
		b10_1 := bits.Extract(v, 21, 10)
		raw := (b20 << 20) | (b19_12 << 12) | (b11 << 11) | (b10_1 << 1)
		return bits.SignExtend(raw, 21), nil
	default:
		return 0, &ImmediateFormatError{Format: format.String()}
	}
}

// ImmediateU returns the raw upper-20-bits-shifted-left-12 immediate of a
// U-format instruction (LUI/AUIPC): bits [31:12], lower 12 bits zero.
func (i Instruction) ImmediateU() uint32 {
	return bits.Extract(uint32(i), 12, 20) << 12
}

// EncodeR packs an R-format instruction.
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) (Instruction, error) {
	if err := checkFields(opcode, rd, funct3, rs1, rs2, funct7); err != nil {
		return 0, err
	}
	w := opcode | rd<<7 | funct3<<12 | rs1<<15 | rs2<<20 | funct7<<25
	return Instruction(w), nil
}

// EncodeI packs an I-format instruction with a 12-bit signed immediate.
func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) (Instruction, error) {
	if err := checkFields(opcode, rd, funct3, rs1, 0, 0); err != nil {
		return 0, err
	}
	if err := checkSigned("imm", imm, 12); err != nil {
		return 0, err
	}
	w := opcode | rd<<7 | funct3<<12 | rs1<<15 | (uint32(imm)&bits.Mask(0, 12))<<20
	return Instruction(w), nil
}

// EncodeIShift packs an I-format shift instruction whose immediate field
// carries a 5-bit shift amount and whose top 7 bits are a funct7 marking
// logical vs arithmetic.
func EncodeIShift(opcode, rd, funct3, rs1, shamt, funct7 uint32) (Instruction, error) {
	if err := checkFields(opcode, rd, funct3, rs1, 0, funct7); err != nil {
		return 0, err
	}
	if err := checkUnsigned("shamt", shamt, 5); err != nil {
		return 0, err
	}
	w := opcode | rd<<7 | funct3<<12 | rs1<<15 | shamt<<20 | funct7<<25
	return Instruction(w), nil
}

// EncodeS packs an S-format instruction with a 12-bit signed immediate.
func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) (Instruction, error) {
	if err := checkFields(opcode, 0, funct3, rs1, rs2, 0); err != nil {
		return 0, err
	}
	if err := checkSigned("imm", imm, 12); err != nil {
		return 0, err
	}
	u := uint32(imm) & bits.Mask(0, 12)
	lo := bits.Extract(u, 0, 5)
	hi := bits.Extract(u, 5, 7)
	w := opcode | lo<<7 | funct3<<12 | rs1<<15 | rs2<<20 | hi<<25
	return Instruction(w), nil
}

// EncodeB packs a B-format instruction. imm must be even and fit a 13-bit
// signed range (its bit 0 is implicit and not stored).
func EncodeB(opcode, funct3, rs1, rs2 uint32, imm int32) (Instruction, error) {
	if err := checkFields(opcode, 0, funct3, rs1, rs2, 0); err != nil {
		return 0, err
	}
	if imm%2 != 0 {
		return 0, &FieldRangeError{Field: "branch offset", Value: int64(imm)}
	}
	if err := checkSigned("branch offset", imm, 13); err != nil {
		return 0, err
	}
	u := uint32(imm) & bits.Mask(0, 13)
	b11 := bits.Extract(u, 11, 1)
	b4_1 := bits.Extract(u, 1, 4)
	b10_5 := bits.Extract(u, 5, 6)
	b12 := bits.Extract(u, 12, 1)
	w := opcode | b11<<7 | b4_1<<8 | funct3<<12 | rs1<<15 | rs2<<20 | b10_5<<25 | b12<<31
	return Instruction(w), nil
}

// EncodeU packs a U-format instruction. imm20 is the 20-bit upper-immediate
// value (already right-shifted by 12, i.e. what the assembly operand
// spells); the codec places it at inst[31:12].
func EncodeU(opcode, rd, imm20 uint32) (Instruction, error) {
	if err := checkFields(opcode, rd, 0, 0, 0, 0); err != nil {
		return 0, err
	}
	if err := checkUnsigned("imm20", imm20, 20); err != nil {
		return 0, err
	}
	w := opcode | rd<<7 | imm20<<12
	return Instruction(w), nil
}

// EncodeJ packs a J-format instruction. imm must be even and fit a 21-bit
// signed range (its bit 0 is implicit and not stored).
func EncodeJ(opcode, rd uint32, imm int32) (Instruction, error) {
	if err := checkFields(opcode, rd, 0, 0, 0, 0); err != nil {
		return 0, err
	}
	if imm%2 != 0 {
		return 0, &FieldRangeError{Field: "jump offset", Value: int64(imm)}
	}
	if err := checkSigned("jump offset", imm, 21); err != nil {
		return 0, err
	}
	u := uint32(imm) & bits.Mask(0, 21)
	b19_12 := bits.Extract(u, 12, 8)
	b11 := bits.Extract(u, 11, 1)
	b10_1 := bits.Extract(u, 1, 10)
	b20 := bits.Extract(u, 20, 1)
	w := opcode | rd<<7 | b19_12<<12 | b11<<20 | b10_1<<21 | b20<<31
	return Instruction(w), nil
}

func checkFields(opcode, rd, funct3, rs1, rs2, funct7 uint32) error {
	if err := checkUnsigned("opcode", opcode, 7); err != nil {
		return err
	}
	if err := checkUnsigned("rd", rd, 5); err != nil {
		return err
	}
	if err := checkUnsigned("funct3", funct3, 3); err != nil {
		return err
	}
	if err := checkUnsigned("rs1", rs1, 5); err != nil {
		return err
	}
	if err := checkUnsigned("rs2", rs2, 5); err != nil {
		return err
	}
	if err := checkUnsigned("funct7", funct7, 7); err != nil {
		return err
	}
	return nil
}
