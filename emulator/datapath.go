package emulator

// PCMux names the source the next pc_if is selected from.
type PCMux int

const (
	PCMuxBoot PCMux = iota
	PCMuxJump
	PCMuxExc
	PCMuxERet
	PCMuxDRet
)

func (m PCMux) String() string {
	switch m {
	case PCMuxBoot:
		return "boot"
	case PCMuxJump:
		return "jump"
	case PCMuxExc:
		return "exception"
	case PCMuxERet:
		return "eret"
	case PCMuxDRet:
		return "dret"
	default:
		return "unknown"
	}
}

// Datapath is a flat record of named pipeline signals, grouped by stage.
// Every field is an owned value -- there are no references into any
// parent structure. Signals ending in _o are outputs of the stage that
// drives them; _i are inputs latched from the bus. The emulator treats
// them as word/boolean latches written during one clock and observed at
// the start of the next.
type Datapath struct {
	// IF: instruction fetch handshake.
	InstrReqO    bool
	InstrAddrO   uint32
	InstrGntI    bool
	InstrRvalidI bool
	InstrRdataI  uint32
	InstrErrI    bool

	// ID latch.
	InstrRdataId uint32
	InstrValidId bool
	InstrNewId   bool

	// PC control.
	PCSet           bool
	PCMux           PCMux
	BranchTargetEx  uint32

	// LSU: data bus handshake.
	DataReqO    bool
	DataAddrO   uint32
	DataWeO     bool
	DataBeO     [4]bool
	DataWdataO  uint32
	DataGntI    bool
	DataRvalidI bool
	DataRdataI  uint32
	DataErrI    bool

	// LSU control/status, decoded by the dispatched handler and consumed
	// by the clock's load-completion step.
	LsuReq       bool
	LsuWe        bool
	LsuWidth     uint32 // 1, 2, or 4 bytes
	LsuSignExt   bool
	LsuIsLoad    bool
	LsuRd        uint32
	LsuRespValid bool
	LsuLoadErr   bool
	LsuStoreErr  bool

	// Register-file ports: two combinational read ports, one write port
	// that commits at the end of the clock.
	RfRaddrA uint32
	RfRaddrB uint32
	RfRdataA uint32
	RfRdataB uint32
	RfRenA   bool
	RfRenB   bool
	RfWaddrWb uint32
	RfWdataWb uint32
	RfWeWb    bool

	// Debug.
	DebugReqI bool
}

func computeByteEnable(width uint32) [4]bool {
	var be [4]bool
	for i := uint32(0); i < width; i++ {
		be[i] = true
	}
	return be
}
