package emulator

// State is the flat, owned-value emulator state: the fetch and decode
// program counters, the 32-register file, the pipeline datapath, and the
// most recent run-time signal. It is created once and mutated only by
// Clock; it is never destroyed explicitly.
type State struct {
	PCIf     uint32
	PCId     uint32
	X        [32]uint32
	Pipeline Datapath
	Signal   Signal

	// pcCommitted is set by a handler that already wrote PCIf (a taken
	// branch or jump), telling the clock to skip its default pc_if += 4.
	// Reset at the start of every Clock call.
	pcCommitted bool
}

// NewState returns a zeroed emulator state with pc_if set to entry.
func NewState(entry uint32) State {
	return State{PCIf: entry}
}

// SetRegister writes value to register r, silently discarding writes to
// x0 per the hardwired-zero invariant.
func (s *State) SetRegister(r uint32, value uint32) {
	if r == 0 {
		return
	}
	s.X[r] = value
}

// Register reads register r (x0 always reads 0, even if never written).
func (s *State) Register(r uint32) uint32 {
	return s.X[r]
}
