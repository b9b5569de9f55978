// Package isa holds the canonical RV32I instruction catalog: the bijection
// between mnemonics and their (format, opcode, funct3, funct7) encoding.
package isa

import "strings"

// Format names an instruction's field layout.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return "?"
	}
}

// Definition is the immutable catalog record for one RV32I mnemonic.
type Definition struct {
	Name      string
	Format    Format
	Opcode    uint32
	Funct3    uint32
	HasFunct3 bool
	Funct7    uint32
	HasFunct7 bool
}

const (
	opLoad     = 0b0000011
	opFence    = 0b0001111
	opImm      = 0b0010011
	opAUIPC    = 0b0010111
	opStore    = 0b0100011
	opOp       = 0b0110011
	opLUI      = 0b0110111
	opBranch   = 0b1100011
	opJALR     = 0b1100111
	opJAL      = 0b1101111
	opSystem   = 0b1110011
	funct7Zero = 0b0000000
	funct7Alt  = 0b0100000
)

// mnemonicTable carries every assemblable mnemonic, including ECALL and
// EBREAK as distinct entries (they differ only in encoded immediate, not
// in opcode/funct3/funct7, so only one of them lives in the decode table).
var mnemonicTable = []Definition{
	{Name: "LUI", Format: FormatU, Opcode: opLUI},
	{Name: "AUIPC", Format: FormatU, Opcode: opAUIPC},
	{Name: "JAL", Format: FormatJ, Opcode: opJAL},
	{Name: "JALR", Format: FormatI, Opcode: opJALR, Funct3: 0b000, HasFunct3: true},

	{Name: "BEQ", Format: FormatB, Opcode: opBranch, Funct3: 0b000, HasFunct3: true},
	{Name: "BNE", Format: FormatB, Opcode: opBranch, Funct3: 0b001, HasFunct3: true},
	{Name: "BLT", Format: FormatB, Opcode: opBranch, Funct3: 0b100, HasFunct3: true},
	{Name: "BGE", Format: FormatB, Opcode: opBranch, Funct3: 0b101, HasFunct3: true},
	{Name: "BLTU", Format: FormatB, Opcode: opBranch, Funct3: 0b110, HasFunct3: true},
	{Name: "BGEU", Format: FormatB, Opcode: opBranch, Funct3: 0b111, HasFunct3: true},

	{Name: "LB", Format: FormatI, Opcode: opLoad, Funct3: 0b000, HasFunct3: true},
	{Name: "LH", Format: FormatI, Opcode: opLoad, Funct3: 0b001, HasFunct3: true},
	{Name: "LW", Format: FormatI, Opcode: opLoad, Funct3: 0b010, HasFunct3: true},
	{Name: "LBU", Format: FormatI, Opcode: opLoad, Funct3: 0b100, HasFunct3: true},
	{Name: "LHU", Format: FormatI, Opcode: opLoad, Funct3: 0b101, HasFunct3: true},

	{Name: "SB", Format: FormatS, Opcode: opStore, Funct3: 0b000, HasFunct3: true},
	{Name: "SH", Format: FormatS, Opcode: opStore, Funct3: 0b001, HasFunct3: true},
	{Name: "SW", Format: FormatS, Opcode: opStore, Funct3: 0b010, HasFunct3: true},

	{Name: "ADDI", Format: FormatI, Opcode: opImm, Funct3: 0b000, HasFunct3: true},
	{Name: "SLTI", Format: FormatI, Opcode: opImm, Funct3: 0b010, HasFunct3: true},
	{Name: "SLTIU", Format: FormatI, Opcode: opImm, Funct3: 0b011, HasFunct3: true},
	{Name: "XORI", Format: FormatI, Opcode: opImm, Funct3: 0b100, HasFunct3: true},
	{Name: "ORI", Format: FormatI, Opcode: opImm, Funct3: 0b110, HasFunct3: true},
	{Name: "ANDI", Format: FormatI, Opcode: opImm, Funct3: 0b111, HasFunct3: true},
	{Name: "SLLI", Format: FormatI, Opcode: opImm, Funct3: 0b001, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SRLI", Format: FormatI, Opcode: opImm, Funct3: 0b101, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SRAI", Format: FormatI, Opcode: opImm, Funct3: 0b101, HasFunct3: true, Funct7: funct7Alt, HasFunct7: true},

	{Name: "ADD", Format: FormatR, Opcode: opOp, Funct3: 0b000, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SUB", Format: FormatR, Opcode: opOp, Funct3: 0b000, HasFunct3: true, Funct7: funct7Alt, HasFunct7: true},
	{Name: "SLL", Format: FormatR, Opcode: opOp, Funct3: 0b001, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SLT", Format: FormatR, Opcode: opOp, Funct3: 0b010, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SLTU", Format: FormatR, Opcode: opOp, Funct3: 0b011, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "XOR", Format: FormatR, Opcode: opOp, Funct3: 0b100, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SRL", Format: FormatR, Opcode: opOp, Funct3: 0b101, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "SRA", Format: FormatR, Opcode: opOp, Funct3: 0b101, HasFunct3: true, Funct7: funct7Alt, HasFunct7: true},
	{Name: "OR", Format: FormatR, Opcode: opOp, Funct3: 0b110, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},
	{Name: "AND", Format: FormatR, Opcode: opOp, Funct3: 0b111, HasFunct3: true, Funct7: funct7Zero, HasFunct7: true},

	{Name: "FENCE", Format: FormatI, Opcode: opFence, Funct3: 0b000, HasFunct3: true},
	{Name: "ECALL", Format: FormatI, Opcode: opSystem, Funct3: 0b000, HasFunct3: true},
	{Name: "EBREAK", Format: FormatI, Opcode: opSystem, Funct3: 0b000, HasFunct3: true},
}

var byMnemonic map[string]*Definition

func init() {
	byMnemonic = make(map[string]*Definition, len(mnemonicTable))
	for i := range mnemonicTable {
		byMnemonic[mnemonicTable[i].Name] = &mnemonicTable[i]
	}
}

// Lookup finds a definition by mnemonic, case-insensitively.
func Lookup(mnemonic string) (*Definition, bool) {
	d, ok := byMnemonic[strings.ToUpper(mnemonic)]
	return d, ok
}

// Decode finds the definition matching an opcode and, where relevant,
// funct3/funct7. Instructions whose opcode doesn't carry funct3/funct7
// (U and J format) are looked up by opcode alone. ECALL/EBREAK share one
// encoding here; the caller distinguishes them by inspecting bit 20 of the
// raw instruction word directly (see emulator semantics dispatch).
func Decode(opcode, funct3, funct7 uint32) (*Definition, bool) {
	for i := range mnemonicTable {
		d := &mnemonicTable[i]
		if d.Opcode != opcode {
			continue
		}
		if d.HasFunct3 && d.Funct3 != funct3 {
			continue
		}
		if d.HasFunct7 && d.Funct7 != funct7 {
			continue
		}
		if d.Name == "EBREAK" {
			continue // ECALL is the canonical decode entry for this encoding
		}
		return d, true
	}
	return nil, false
}

// All returns the full mnemonic catalog in declaration order.
func All() []Definition {
	return mnemonicTable
}

// IsSystemOpcode reports whether opcode is the shared ECALL/EBREAK/CSR
// SYSTEM opcode, used by callers that must inspect the raw instruction
// word further to disambiguate.
func IsSystemOpcode(opcode uint32) bool {
	return opcode == opSystem
}

// IsFenceOpcode reports whether opcode is FENCE/FENCE.TSO/PAUSE's shared
// opcode.
func IsFenceOpcode(opcode uint32) bool {
	return opcode == opFence
}
