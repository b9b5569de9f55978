// Package trace holds the diagnostic recorders a host can attach to an
// emulator.Session: an instruction-level execution trace, a memory access
// trace, code coverage, a pipeline signal trace, and aggregate run
// statistics. None of these affect emulation; they only observe it.
package trace

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

// ExecutionEntry is one recorded instruction step.
type ExecutionEntry struct {
	Sequence        uint64
	PC              uint32
	RegisterChanges map[uint32]uint32
	Signal          emulator.Signal
	Duration        time.Duration
}

// ExecutionTrace records register-level execution history, in the style
// of a step-by-step disassembly log: only registers that actually changed
// on a given step are recorded.
type ExecutionTrace struct {
	Enabled       bool
	Writer        io.Writer
	FilterRegs    map[uint32]bool // empty means track every register
	IncludeTiming bool
	MaxEntries    int

	entries      []ExecutionEntry
	startTime    time.Time
	lastSnapshot [32]uint32
	haveSnapshot bool
	seq          uint64
}

// NewExecutionTrace creates a trace writing formatted entries to w.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:       true,
		Writer:        w,
		FilterRegs:    make(map[uint32]bool),
		IncludeTiming: true,
		MaxEntries:    100000,
		entries:       make([]ExecutionEntry, 0, 1000),
	}
}

// SetFilterRegisters restricts tracking to the given register numbers.
func (t *ExecutionTrace) SetFilterRegisters(regs []uint32) {
	t.FilterRegs = make(map[uint32]bool, len(regs))
	for _, r := range regs {
		t.FilterRegs[r] = true
	}
}

// Start resets the trace and begins timing from now.
func (t *ExecutionTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.haveSnapshot = false
	t.seq = 0
}

// Record captures one step's register deltas against the last recorded
// state. s is the state after the step.
func (t *ExecutionTrace) Record(s emulator.State) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	entry := ExecutionEntry{
		Sequence:        t.seq,
		PC:              s.PCIf,
		RegisterChanges: make(map[uint32]uint32),
		Signal:          s.Signal,
	}
	t.seq++
	if t.IncludeTiming {
		entry.Duration = time.Since(t.startTime)
	}

	for r := uint32(0); r < 32; r++ {
		if len(t.FilterRegs) > 0 && !t.FilterRegs[r] {
			continue
		}
		v := s.X[r]
		if !t.haveSnapshot || t.lastSnapshot[r] != v {
			entry.RegisterChanges[r] = v
		}
	}
	t.lastSnapshot = s.X
	t.haveSnapshot = true

	t.entries = append(t.entries, entry)
}

// Flush writes every recorded entry to the trace's writer.
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, e := range t.entries {
		if err := t.writeEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (t *ExecutionTrace) writeEntry(e ExecutionEntry) error {
	line := fmt.Sprintf("[%06d] pc=0x%08x", e.Sequence, e.PC)

	if len(e.RegisterChanges) > 0 {
		changes := make([]string, 0, len(e.RegisterChanges))
		for r, v := range e.RegisterChanges {
			changes = append(changes, fmt.Sprintf("x%d=0x%08x", r, v))
		}
		line += " | " + strings.Join(changes, " ")
	} else {
		line += " | (no changes)"
	}

	if e.Signal != emulator.SignalNone {
		line += " | " + e.Signal.String()
	}
	if t.IncludeTiming {
		line += fmt.Sprintf(" | %v", e.Duration)
	}
	line += "\n"

	_, err := t.Writer.Write([]byte(line))
	return err
}

// Entries returns every entry recorded so far.
func (t *ExecutionTrace) Entries() []ExecutionEntry {
	return t.entries
}

// Clear discards all recorded entries.
func (t *ExecutionTrace) Clear() {
	t.entries = t.entries[:0]
	t.haveSnapshot = false
}

// MemoryAccessEntry is one recorded load or store.
type MemoryAccessEntry struct {
	Sequence  uint64
	PC        uint32
	Address   uint32
	Write     bool
	Width     uint32
	Value     uint32
	Timestamp time.Duration
}

// MemoryTrace records every LSU transaction the pipeline datapath reports.
type MemoryTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries   []MemoryAccessEntry
	startTime time.Time
	seq       uint64
}

// NewMemoryTrace creates a memory trace writing to w.
func NewMemoryTrace(w io.Writer) *MemoryTrace {
	return &MemoryTrace{
		Enabled:    true,
		Writer:     w,
		MaxEntries: 100000,
		entries:    make([]MemoryAccessEntry, 0, 1000),
	}
}

// Start resets the trace and begins timing from now.
func (t *MemoryTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.seq = 0
}

// Record inspects s.Pipeline for an LSU request and records it, if one
// occurred on this step.
func (t *MemoryTrace) Record(s emulator.State) {
	if !t.Enabled || !s.Pipeline.LsuReq {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	value := s.Pipeline.DataWdataO
	if !s.Pipeline.DataWeO {
		value = s.Pipeline.DataRdataI
	}

	t.entries = append(t.entries, MemoryAccessEntry{
		Sequence:  t.seq,
		PC:        s.PCIf,
		Address:   s.Pipeline.DataAddrO,
		Write:     s.Pipeline.DataWeO,
		Width:     s.Pipeline.LsuWidth,
		Value:     value,
		Timestamp: time.Since(t.startTime),
	})
	t.seq++
}

// Flush writes every recorded entry to the trace's writer.
func (t *MemoryTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, e := range t.entries {
		if err := t.writeEntry(e); err != nil {
			return err
		}
	}
	return nil
}

func (t *MemoryTrace) writeEntry(e MemoryAccessEntry) error {
	dir := "<-"
	kind := "READ"
	if e.Write {
		dir = "->"
		kind = "WRITE"
	}
	line := fmt.Sprintf("[%06d] [%-5s] pc=0x%08x %s [0x%08x] = 0x%08x (%d bytes)\n",
		e.Sequence, kind, e.PC, dir, e.Address, e.Value, e.Width)
	_, err := t.Writer.Write([]byte(line))
	return err
}

// Entries returns every entry recorded so far.
func (t *MemoryTrace) Entries() []MemoryAccessEntry {
	return t.entries
}

// Clear discards all recorded entries.
func (t *MemoryTrace) Clear() {
	t.entries = t.entries[:0]
}
