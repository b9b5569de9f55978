package trace

import (
	"fmt"
	"io"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

// SignalChangeEntry records one step where the run-time Signal changed.
type SignalChangeEntry struct {
	Sequence uint64
	PC       uint32
	Old      emulator.Signal
	New      emulator.Signal
}

// PipelineSignalTrace watches emulator.State.Signal across steps and
// records every transition, the way a hardware trace would watch a status
// register rather than re-deriving it from the instruction stream.
type PipelineSignalTrace struct {
	Enabled bool
	Writer  io.Writer

	entries    []SignalChangeEntry
	maxEntries int
	last       emulator.Signal
	seq        uint64

	counts map[emulator.Signal]uint64
}

// NewPipelineSignalTrace creates a signal trace writing to w.
func NewPipelineSignalTrace(w io.Writer) *PipelineSignalTrace {
	return &PipelineSignalTrace{
		Enabled:    true,
		Writer:     w,
		maxEntries: 100000,
		counts:     make(map[emulator.Signal]uint64),
	}
}

// Start resets the trace.
func (p *PipelineSignalTrace) Start() {
	p.entries = p.entries[:0]
	p.last = emulator.SignalNone
	p.seq = 0
	p.counts = make(map[emulator.Signal]uint64)
}

// Record inspects s.Signal and appends an entry if it differs from the
// previous step's signal.
func (p *PipelineSignalTrace) Record(s emulator.State) {
	if !p.Enabled {
		return
	}
	p.counts[s.Signal]++
	if s.Signal == p.last {
		p.seq++
		return
	}
	if p.maxEntries > 0 && len(p.entries) < p.maxEntries {
		p.entries = append(p.entries, SignalChangeEntry{
			Sequence: p.seq,
			PC:       s.PCIf,
			Old:      p.last,
			New:      s.Signal,
		})
	}
	p.last = s.Signal
	p.seq++
}

// Entries returns every recorded transition.
func (p *PipelineSignalTrace) Entries() []SignalChangeEntry {
	return p.entries
}

// Count returns how many steps observed the given signal.
func (p *PipelineSignalTrace) Count(sig emulator.Signal) uint64 {
	return p.counts[sig]
}

// Flush writes every recorded transition to the trace's writer.
func (p *PipelineSignalTrace) Flush() error {
	if p.Writer == nil {
		return nil
	}
	for _, e := range p.entries {
		line := fmt.Sprintf("[%06d] pc=0x%08x %s -> %s\n", e.Sequence, e.PC, e.Old, e.New)
		if _, err := io.WriteString(p.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// CallFrame is one entry on the recorded call stack.
type CallFrame struct {
	ReturnAddr uint32
	CallerPC   uint32
	Depth      int
}

// CallTrace reconstructs a call stack from JAL/JALR-with-link-register
// instructions, without any dedicated hardware call stack: a call is a
// jump that writes its own pc+4 into x1, a return is any jump whose target
// is the innermost open call's return address.
type CallTrace struct {
	Enabled bool

	frames   []CallFrame
	maxDepth int
}

// NewCallTrace creates an empty call trace.
func NewCallTrace() *CallTrace {
	return &CallTrace{Enabled: true}
}

// Observe inspects a state transition (before, after) for a call or
// return and updates the stack accordingly.
func (c *CallTrace) Observe(before, after emulator.State) {
	if !c.Enabled {
		return
	}
	if !after.Pipeline.PCSet || after.Pipeline.PCMux != emulator.PCMuxJump {
		return
	}
	linkWritten := after.X[1] == before.PCIf+4 && before.X[1] != after.X[1]
	if linkWritten {
		c.frames = append(c.frames, CallFrame{
			ReturnAddr: before.PCIf + 4,
			CallerPC:   before.PCIf,
			Depth:      len(c.frames),
		})
		if len(c.frames) > c.maxDepth {
			c.maxDepth = len(c.frames)
		}
		return
	}
	if len(c.frames) > 0 && after.PCIf == c.frames[len(c.frames)-1].ReturnAddr {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

// Depth returns the current call stack depth.
func (c *CallTrace) Depth() int {
	return len(c.frames)
}

// MaxDepth returns the deepest the call stack has ever reached.
func (c *CallTrace) MaxDepth() int {
	return c.maxDepth
}

// Frames returns the current call stack, outermost first.
func (c *CallTrace) Frames() []CallFrame {
	out := make([]CallFrame, len(c.frames))
	copy(out, c.frames)
	return out
}
