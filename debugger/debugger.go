package debugger

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/riscv32-edu/codec"
	"github.com/lookbusy1344/riscv32-edu/emulator"
	"github.com/lookbusy1344/riscv32-edu/isa"
	"github.com/lookbusy1344/riscv32-edu/symbols"
)

// Debugger wraps an emulator.Session with breakpoint/watchpoint management,
// step control, and an expression evaluator, and renders command output into
// an internal buffer a CLI or TUI front end drains after each command.
type Debugger struct {
	Session *emulator.Session

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Evaluator   *ExpressionEvaluator
	Resolver    *symbols.Resolver

	Running    bool
	StepMode   StepMode
	StepOverPC uint32

	// LastCommand repeats on empty input, matching gdb's behavior for step/next.
	LastCommand string

	Output strings.Builder
}

// StepMode represents different stepping modes
type StepMode int

const (
	StepNone   StepMode = iota // Not stepping
	StepSingle                 // Step one instruction
	StepOver                   // Step over function calls
	StepOut                    // Step out of current function
)

// NewDebugger creates a debugger wrapping an already-assembled session.
func NewDebugger(sess *emulator.Session) *Debugger {
	return &Debugger{
		Session:     sess,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(),
		Evaluator:   NewExpressionEvaluator(),
		Resolver:    symbols.FromProgram(sess.Program()),
		Running:     false,
		StepMode:    StepNone,
	}
}

// symbolTable exposes the session's merged label table in the shape the
// expression evaluator and address resolver expect.
func (d *Debugger) symbolTable() map[string]uint32 {
	return d.Resolver.All()
}

// ResolveAddress resolves a label to an address, or parses a numeric address.
func (d *Debugger) ResolveAddress(addrStr string) (uint32, error) {
	if addr, exists := d.Resolver.LookupSymbol(addrStr); exists {
		return addr, nil
	}

	var addr uint32
	if strings.HasPrefix(addrStr, "0x") || strings.HasPrefix(addrStr, "0X") {
		if _, err := fmt.Sscanf(addrStr, "0x%x", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
	} else {
		if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
	}

	return addr, nil
}

// ExecuteCommand processes and executes a debugger command
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)

	if cmdLine == "" {
		cmdLine = d.LastCommand
	}

	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	return d.handleCommand(cmd, args)
}

// handleCommand dispatches commands to appropriate handlers
func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	// Execution control
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)
	case "finish", "fin":
		return d.cmdFinish(args)

	// Breakpoints
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	// Watchpoints
	case "watch", "w":
		return d.cmdWatch(args)

	// Inspection
	case "print", "p":
		return d.cmdPrint(args)
	case "x":
		return d.cmdExamine(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "backtrace", "bt", "where":
		return d.cmdBacktrace(args)
	case "list", "l":
		return d.cmdList(args)
	case "history":
		return d.cmdHistory(args)

	// State modification
	case "set":
		return d.cmdSet(args)

	// Program control
	case "reset":
		return d.cmdReset(args)

	// Help
	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak checks if execution should pause at the current pc_if.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.Session.PC()

	switch d.StepMode {
	case StepSingle:
		d.StepMode = StepNone
		return true, "single step"

	case StepOver:
		if pc == d.StepOverPC {
			d.StepMode = StepNone
			return true, "step over complete"
		}

	case StepOut:
		// StepOut has no stop condition of its own; it falls through to the
		// halt, breakpoint and watchpoint checks.
	}

	if sig := d.Session.State().Signal; sig.Halting() {
		return true, fmt.Sprintf("halted: %s", sig)
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil {
		if !bp.Enabled {
			return false, ""
		}

		if bp.Condition != "" {
			result, err := d.Evaluator.Evaluate(bp.Condition, d.Session, d.symbolTable())
			if err != nil {
				return true, fmt.Sprintf("breakpoint %d (condition error: %v)", bp.ID, err)
			}
			if !result {
				return false, ""
			}
		}

		bp.HitCount++

		if bp.Temporary {
			_ = d.Breakpoints.DeleteBreakpoint(bp.ID)
		}

		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.Session); wp != nil && changed {
		return true, fmt.Sprintf("watchpoint %d: %s", wp.ID, wp.Expression)
	}

	return false, ""
}

// GetOutput returns and clears the output buffer
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer
func (d *Debugger) Printf(format string, args ...interface{}) {
	d.Output.WriteString(fmt.Sprintf(format, args...))
}

// Println writes a line to the output buffer
func (d *Debugger) Println(args ...interface{}) {
	d.Output.WriteString(fmt.Sprintln(args...))
}

// SetStepOver configures the debugger to step over function calls: if the
// instruction at pc_if is a JAL/JALR that writes ra (x1), stop at pc_if+4
// instead of descending into the call.
func (d *Debugger) SetStepOver() {
	inst, found := d.fetchInstruction()
	if !found || !isCallWithLink(inst) {
		d.StepMode = StepSingle
		d.Running = true
		return
	}

	d.StepOverPC = d.Session.PC() + 4
	d.StepMode = StepOver
	d.Running = true
}

// SetStepOut starts a "finish" run. No return address is tracked, so it runs
// until a halting signal, breakpoint or watchpoint stops it.
func (d *Debugger) SetStepOut() {
	d.StepMode = StepOut
	d.Running = true
}

func (d *Debugger) fetchInstruction() (codec.Instruction, bool) {
	mem := d.Session.Program().InstructionMemory
	pc := d.Session.PC()
	var word uint32
	for i := uint32(0); i < 4; i++ {
		b, ok := mem[pc+i]
		if !ok {
			return 0, false
		}
		word |= uint32(b) << (8 * i)
	}
	return codec.Instruction(word), true
}

// isCallWithLink reports whether inst is a JAL/JALR that writes the RV32
// return-address register (x1), the calling convention a step-over command
// uses to decide whether to treat an instruction as a function call.
func isCallWithLink(inst codec.Instruction) bool {
	def, found := isa.Decode(inst.Opcode(), inst.Funct3(), inst.Funct7())
	if !found {
		return false
	}
	return (def.Name == "JAL" || def.Name == "JALR") && inst.Rd() == 1
}
