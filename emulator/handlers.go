package emulator

import (
	"github.com/lookbusy1344/riscv32-edu/bits"
	"github.com/lookbusy1344/riscv32-edu/codec"
	"github.com/lookbusy1344/riscv32-edu/isa"
)

// handler performs one instruction's architectural and pipeline effects.
// A handler that writes pc_if itself marks that with committedPC; the clock
// applies the default pc_if += 4 only when no handler has done so.
type handler func(s *State, inst codec.Instruction)

func dispatch(def *isa.Definition, word uint32) handler {
	name := def.Name
	if isa.IsSystemOpcode(def.Opcode) {
		if bits.Extract(word, 20, 1) == 1 {
			name = "EBREAK"
		} else {
			name = "ECALL"
		}
	}
	if isa.IsFenceOpcode(def.Opcode) {
		switch word {
		case 0x8330000F:
			name = "FENCE.TSO"
		case 0x0100000F:
			name = "PAUSE"
		default:
			name = "FENCE"
		}
	}

	switch name {
	case "LUI":
		return handleLUI
	case "AUIPC":
		return handleAUIPC
	case "JAL":
		return handleJAL
	case "JALR":
		return handleJALR
	case "BEQ":
		return handleBranch(func(a, b uint32) bool { return a == b })
	case "BNE":
		return handleBranch(func(a, b uint32) bool { return a != b })
	case "BLT":
		return handleBranch(func(a, b uint32) bool { return int32(a) < int32(b) })
	case "BGE":
		return handleBranch(func(a, b uint32) bool { return int32(a) >= int32(b) })
	case "BLTU":
		return handleBranch(func(a, b uint32) bool { return a < b })
	case "BGEU":
		return handleBranch(func(a, b uint32) bool { return a >= b })
	case "LB":
		return handleLoad(1, true)
	case "LH":
		return handleLoad(2, true)
	case "LW":
		return handleLoad(4, true)
	case "LBU":
		return handleLoad(1, false)
	case "LHU":
		return handleLoad(2, false)
	case "SB":
		return handleStore(1)
	case "SH":
		return handleStore(2)
	case "SW":
		return handleStore(4)
	case "ADDI":
		return handleAluI(func(x uint32, imm int32) uint32 { return x + uint32(imm) })
	case "SLTI":
		return handleAluI(func(x uint32, imm int32) uint32 { return boolU32(int32(x) < imm) })
	case "SLTIU":
		return handleAluI(func(x uint32, imm int32) uint32 { return boolU32(x < uint32(imm)) })
	case "XORI":
		return handleAluI(func(x uint32, imm int32) uint32 { return x ^ uint32(imm) })
	case "ORI":
		return handleAluI(func(x uint32, imm int32) uint32 { return x | uint32(imm) })
	case "ANDI":
		return handleAluI(func(x uint32, imm int32) uint32 { return x & uint32(imm) })
	case "SLLI":
		return handleShiftI(func(x, sh uint32) uint32 { return x << sh })
	case "SRLI":
		return handleShiftI(func(x, sh uint32) uint32 { return x >> sh })
	case "SRAI":
		return handleShiftI(func(x, sh uint32) uint32 { return uint32(int32(x) >> sh) })
	case "ADD":
		return handleAluR(func(a, b uint32) uint32 { return a + b })
	case "SUB":
		return handleAluR(func(a, b uint32) uint32 { return a - b })
	case "SLL":
		return handleAluR(func(a, b uint32) uint32 { return a << (b & 0x1F) })
	case "SLT":
		return handleAluR(func(a, b uint32) uint32 { return boolU32(int32(a) < int32(b)) })
	case "SLTU":
		return handleAluR(func(a, b uint32) uint32 { return boolU32(a < b) })
	case "XOR":
		return handleAluR(func(a, b uint32) uint32 { return a ^ b })
	case "SRL":
		return handleAluR(func(a, b uint32) uint32 { return a >> (b & 0x1F) })
	case "SRA":
		return handleAluR(func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 0x1F)) })
	case "OR":
		return handleAluR(func(a, b uint32) uint32 { return a | b })
	case "AND":
		return handleAluR(func(a, b uint32) uint32 { return a & b })
	case "FENCE", "FENCE.TSO", "PAUSE":
		return handleFence
	case "ECALL":
		return handleECALL
	case "EBREAK":
		return handleEBREAK
	default:
		return handleIllegal
	}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func handleLUI(s *State, inst codec.Instruction) {
	s.SetRegister(inst.Rd(), inst.ImmediateU())
}

func handleAUIPC(s *State, inst codec.Instruction) {
	s.SetRegister(inst.Rd(), s.PCIf+inst.ImmediateU())
}

func handleJAL(s *State, inst codec.Instruction) {
	off, _ := inst.Immediate(isa.FormatJ)
	target := uint32(int32(s.PCIf) + off)
	s.SetRegister(inst.Rd(), s.PCIf+4)
	if target%4 != 0 {
		s.Signal = SignalMisaligned
		return
	}
	s.PCIf = target
	s.Pipeline.PCSet = true
	s.Pipeline.PCMux = PCMuxJump
	s.Pipeline.BranchTargetEx = target
	committedPC(s)
}

func handleJALR(s *State, inst codec.Instruction) {
	imm, _ := inst.Immediate(isa.FormatI)
	t := (s.Register(inst.Rs1()) + uint32(imm)) &^ 1
	s.SetRegister(inst.Rd(), s.PCIf+4)
	if t%4 != 0 {
		s.Signal = SignalMisaligned
		return
	}
	s.PCIf = t
	s.Pipeline.PCSet = true
	s.Pipeline.PCMux = PCMuxJump
	s.Pipeline.BranchTargetEx = t
	committedPC(s)
}

func handleBranch(cond func(a, b uint32) bool) handler {
	return func(s *State, inst codec.Instruction) {
		if !cond(s.Register(inst.Rs1()), s.Register(inst.Rs2())) {
			return
		}
		off, _ := inst.Immediate(isa.FormatB)
		target := uint32(int32(s.PCIf) + off)
		if target%4 != 0 {
			s.Signal = SignalMisaligned
			return
		}
		s.PCIf = target
		s.Pipeline.PCSet = true
		s.Pipeline.PCMux = PCMuxJump
		s.Pipeline.BranchTargetEx = target
		committedPC(s)
	}
}

func handleLoad(width uint32, signExt bool) handler {
	return func(s *State, inst codec.Instruction) {
		imm, _ := inst.Immediate(isa.FormatI)
		addr := s.Register(inst.Rs1()) + uint32(imm)
		pd := &s.Pipeline
		pd.DataReqO = true
		pd.DataAddrO = addr
		pd.DataWeO = false
		pd.DataBeO = computeByteEnable(width)
		pd.LsuReq = true
		pd.LsuWe = false
		pd.LsuIsLoad = true
		pd.LsuWidth = width
		pd.LsuSignExt = signExt
		pd.LsuRd = inst.Rd()
	}
}

func handleStore(width uint32) handler {
	return func(s *State, inst codec.Instruction) {
		imm, _ := inst.Immediate(isa.FormatS)
		addr := s.Register(inst.Rs1()) + uint32(imm)
		pd := &s.Pipeline
		pd.DataReqO = true
		pd.DataAddrO = addr
		pd.DataWeO = true
		pd.DataBeO = computeByteEnable(width)
		pd.DataWdataO = s.Register(inst.Rs2())
		pd.LsuReq = true
		pd.LsuWe = true
		pd.LsuIsLoad = false
		pd.LsuWidth = width
	}
}

func handleAluI(op func(x uint32, imm int32) uint32) handler {
	return func(s *State, inst codec.Instruction) {
		imm, _ := inst.Immediate(isa.FormatI)
		s.SetRegister(inst.Rd(), op(s.Register(inst.Rs1()), imm))
	}
}

func handleShiftI(op func(x, shamt uint32) uint32) handler {
	return func(s *State, inst codec.Instruction) {
		shamt := inst.Rs2() // shamt occupies the same bit range as rs2 in I-shift encodings
		s.SetRegister(inst.Rd(), op(s.Register(inst.Rs1()), shamt))
	}
}

func handleAluR(op func(a, b uint32) uint32) handler {
	return func(s *State, inst codec.Instruction) {
		s.SetRegister(inst.Rd(), op(s.Register(inst.Rs1()), s.Register(inst.Rs2())))
	}
}

func handleFence(s *State, inst codec.Instruction) {
	// Architectural no-op for this single-core, single-threaded model.
}

func handleECALL(s *State, inst codec.Instruction) {
	s.Signal = SignalEnvironmentCall
}

func handleEBREAK(s *State, inst codec.Instruction) {
	s.Pipeline.DebugReqI = true
	s.Signal = SignalBreakpoint
}

func handleIllegal(s *State, inst codec.Instruction) {
	s.Signal = SignalIllegalInstruction
}

// committedPC marks that this handler already wrote pc_if, so the clock
// must not additionally advance it by 4.
func committedPC(s *State) {
	s.pcCommitted = true
}
