package emulator

import (
	"github.com/lookbusy1344/riscv32-edu/codec"
	"github.com/lookbusy1344/riscv32-edu/isa"
)

// Clock advances state by exactly one cycle and returns the next state.
// It never mutates s; instrMem and dataMem are the shared program image
// maps and may be written to directly (stores create new data bytes).
func Clock(s State, instrMem, dataMem map[uint32]byte) State {
	ns := s
	ns.pcCommitted = false
	ns.Signal = SignalNone
	ns.Pipeline = Datapath{}
	pd := &ns.Pipeline

	// 1. Fetch.
	pd.InstrReqO = true
	pd.InstrAddrO = ns.PCIf
	word, ok := readWord(instrMem, ns.PCIf)
	if !ok {
		pd.InstrErrI = true
		ns.Signal = SignalFetchError
		return ns
	}
	pd.InstrGntI = true
	pd.InstrRvalidI = true
	pd.InstrRdataI = word

	// 2. Decode.
	pd.InstrRdataId = word
	pd.InstrValidId = true
	pd.InstrNewId = true
	ns.PCId = ns.PCIf
	inst := codec.Instruction(word)
	def, found := isa.Decode(inst.Opcode(), inst.Funct3(), inst.Funct7())
	if !found {
		ns.Signal = SignalIllegalInstruction
		ns.PCIf += 4
		ns.X[0] = 0
		return ns
	}

	// 3. Dispatch and execute.
	h := dispatch(def, word)
	h(&ns, inst)

	// 4. LSU transaction, for instructions that requested one.
	if pd.LsuReq {
		completeLSU(&ns, dataMem)
	}

	// 5. Default PC advance; handlers that committed a taken branch or
	// jump already set pc_if and pcCommitted.
	if !ns.pcCommitted {
		ns.PCIf += 4
	}

	// 6. x0 is always wired to zero, even if a handler's bug forgot.
	ns.X[0] = 0

	return ns
}

func readWord(mem map[uint32]byte, addr uint32) (uint32, bool) {
	var word uint32
	for i := uint32(0); i < 4; i++ {
		b, ok := mem[addr+i]
		if !ok {
			return 0, false
		}
		word |= uint32(b) << (8 * i)
	}
	return word, true
}

// completeLSU performs the byte-enable-masked memory transaction requested
// by a load or store handler. A store's enabled bytes are written first,
// so a byte written to a previously unbacked address is not itself
// considered missing; only a byte still absent after that counts as a
// fault, and sets the corresponding Load/StoreError signal instead of
// completing the register write-back.
func completeLSU(ns *State, dataMem map[uint32]byte) {
	pd := &ns.Pipeline
	addr := pd.DataAddrO

	if pd.DataWeO {
		for i := uint32(0); i < pd.LsuWidth; i++ {
			if pd.DataBeO[i] {
				dataMem[addr+i] = byte(pd.DataWdataO >> (8 * i))
			}
		}
	}

	var word uint32
	missing := false
	for i := uint32(0); i < pd.LsuWidth; i++ {
		if !pd.DataBeO[i] {
			continue
		}
		b, ok := dataMem[addr+i]
		if !ok {
			missing = true
			continue
		}
		word |= uint32(b) << (8 * i)
	}

	pd.DataRvalidI = true
	if missing {
		pd.DataErrI = true
		if pd.LsuIsLoad {
			pd.LsuLoadErr = true
			ns.Signal = SignalLoadError
		} else {
			pd.LsuStoreErr = true
			ns.Signal = SignalStoreError
		}
		return
	}

	pd.DataRdataI = word
	if !pd.LsuIsLoad {
		return
	}
	pd.LsuRespValid = true

	var value uint32
	switch pd.LsuWidth {
	case 1:
		if pd.LsuSignExt {
			value = uint32(int32(int8(byte(word))))
		} else {
			value = uint32(byte(word))
		}
	case 2:
		if pd.LsuSignExt {
			value = uint32(int32(int16(uint16(word))))
		} else {
			value = uint32(uint16(word))
		}
	default:
		value = word
	}
	pd.RfWaddrWb = pd.LsuRd
	pd.RfWdataWb = value
	pd.RfWeWb = true
	ns.SetRegister(pd.LsuRd, value)
}
