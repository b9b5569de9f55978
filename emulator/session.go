package emulator

import (
	"fmt"

	"github.com/lookbusy1344/riscv32-edu/assembler"
	"github.com/lookbusy1344/riscv32-edu/image"
)

// Session is the host-facing wrapper around one assembled program and its
// running emulator state. It is the single entry point embedders (the CLI,
// the debugger, the HTTP API) drive: Assemble, then repeatedly Step, with a
// history list that lets the host step back without re-running from reset.
type Session struct {
	program *image.Program
	history []State
}

// NewSession assembles source and returns a Session with its state
// initialized at the program's text section start. The assembler's
// first-error-short-circuit policy means a non-nil error here carries a
// single *assembler.Error, not a partial program.
func NewSession(source string) (*Session, error) {
	prog, err := assembler.Assemble(source)
	if err != nil {
		return nil, err
	}
	entry := prog.TextSectionStart()
	return &Session{
		program: prog,
		history: []State{NewState(entry)},
	}, nil
}

// State returns the current emulator state (the most recent history entry).
func (sess *Session) State() State {
	return sess.history[len(sess.history)-1]
}

// Step runs one clock cycle and appends the resulting state to history.
func (sess *Session) Step() State {
	cur := sess.State()
	next := Clock(cur, sess.program.InstructionMemory, sess.program.DataMemory)
	sess.history = append(sess.history, next)
	return next
}

// Run steps until a halting signal is raised or maxSteps is reached,
// whichever comes first. It returns the number of steps actually taken.
func (sess *Session) Run(maxSteps int) int {
	for i := 0; i < maxSteps; i++ {
		next := sess.Step()
		if next.Signal.Halting() {
			return i + 1
		}
	}
	return maxSteps
}

// StepBack discards the most recent history entry and returns the state
// before it, if any step has been taken.
func (sess *Session) StepBack() (State, bool) {
	if len(sess.history) < 2 {
		return sess.State(), false
	}
	sess.history = sess.history[:len(sess.history)-1]
	return sess.State(), true
}

// Reset discards all history and reinitializes state at the program's text
// section entry point, without re-assembling the source.
func (sess *Session) Reset() {
	entry := sess.program.TextSectionStart()
	sess.history = []State{NewState(entry)}
}

// History returns every state recorded so far, oldest first.
func (sess *Session) History() []State {
	out := make([]State, len(sess.history))
	copy(out, sess.history)
	return out
}

// Program returns the assembled program image backing this session.
func (sess *Session) Program() *image.Program {
	return sess.program
}

// Register reads general-purpose register r (0-31).
func (sess *Session) Register(r uint32) uint32 {
	s := sess.State()
	return s.Register(r)
}

// PC returns the current fetch-stage program counter.
func (sess *Session) PC() uint32 {
	return sess.State().PCIf
}

// ReadByte reads one byte from data memory, reporting whether it has ever
// been written.
func (sess *Session) ReadByte(addr uint32) (byte, bool) {
	b, ok := sess.program.DataMemory[addr]
	return b, ok
}

// ReadWord reads a little-endian 32-bit word from data memory. Missing bytes
// read back as zero; this is for debugger/API inspection, not emulation, so
// it does not raise SignalLoadError the way a real LSU transaction would.
func (sess *Session) ReadWord(addr uint32) uint32 {
	var word uint32
	for i := uint32(0); i < 4; i++ {
		b := sess.program.DataMemory[addr+i]
		word |= uint32(b) << (8 * i)
	}
	return word
}

// WriteWord writes a little-endian 32-bit word directly into data memory,
// bypassing the pipeline. Used by the debugger's "set" command, which should
// not have to fabricate a store instruction to poke a value in.
func (sess *Session) WriteWord(addr, value uint32) {
	for i := uint32(0); i < 4; i++ {
		sess.program.DataMemory[addr+i] = byte(value >> (8 * i))
	}
}

// SetRegister forces general-purpose register r (0-31) to value in the
// current state, for the debugger's "set" command.
func (sess *Session) SetRegister(r, value uint32) {
	s := sess.State()
	s.SetRegister(r, value)
	sess.history[len(sess.history)-1] = s
}

// SourceLineForPC resolves the current pc_if back to its assembly source
// line, using the program's bidirectional source map.
func (sess *Session) SourceLineForPC() (int, bool) {
	return sess.program.SourceMap.LineFor(sess.PC())
}

// Describe renders a short human-readable summary of the current state,
// in the same spirit as a debugger status line.
func (sess *Session) Describe() string {
	s := sess.State()
	return fmt.Sprintf("pc=0x%08x signal=%s", s.PCIf, s.Signal)
}
