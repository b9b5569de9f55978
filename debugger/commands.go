package debugger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command handler implementations

// cmdRun starts or restarts program execution
func (d *Debugger) cmdRun(args []string) error {
	d.Running = true
	d.StepMode = StepNone

	d.Println("Starting program execution...")
	return nil
}

// cmdContinue continues execution from current point
func (d *Debugger) cmdContinue(args []string) error {
	if d.Session.State().Signal.Halting() {
		return fmt.Errorf("program is not running")
	}

	d.Running = true
	d.StepMode = StepNone

	d.Println("Continuing...")
	return nil
}

// cmdStep executes a single instruction
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdNext steps over function calls (step to next instruction at same level)
func (d *Debugger) cmdNext(args []string) error {
	d.SetStepOver()
	return nil
}

// cmdFinish runs until a halt, breakpoint or watchpoint (see SetStepOut)
func (d *Debugger) cmdFinish(args []string) error {
	d.SetStepOut()
	return nil
}

// cmdBreak sets a breakpoint
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label> [if <condition>]")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.ToLower(args[1]) == "if" {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.AddBreakpoint(address, false, condition)

	if condition != "" {
		d.Printf("Breakpoint %d at 0x%08x (condition: %s)\n", bp.ID, address, condition)
	} else {
		d.Printf("Breakpoint %d at 0x%08x\n", bp.ID, address)
	}

	return nil
}

// cmdTBreak sets a temporary breakpoint (auto-delete after hit)
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|label>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.AddBreakpoint(address, true, "")
	d.Printf("Temporary breakpoint %d at 0x%08x\n", bp.ID, address)

	return nil
}

// cmdDelete deletes breakpoint(s)
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables breakpoint(s)
func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

// cmdDisable disables breakpoint(s)
func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a watchpoint over a register or memory expression
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <expression>")
	}

	expression := strings.Join(args, " ")

	isRegister, register, address, err := d.parseWatchExpression(expression)
	if err != nil {
		return err
	}

	wp := d.Watchpoints.AddWatchpoint(expression, address, isRegister, register)

	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.Session); err != nil {
		_ = d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}

	d.Printf("Watchpoint %d: %s\n", wp.ID, expression)
	return nil
}

// parseWatchExpression parses a watch expression (register or memory address)
func (d *Debugger) parseWatchExpression(expr string) (isRegister bool, register int, address uint32, err error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	if expr == "pc" {
		return false, 0, 0, fmt.Errorf("pc cannot be watched directly; use a breakpoint instead")
	}
	if reg, ok := abiRegisterNames[expr]; ok {
		return true, int(reg), 0, nil
	}
	if strings.HasPrefix(expr, "x") {
		var regNum int
		if _, scanErr := fmt.Sscanf(expr, "x%d", &regNum); scanErr == nil && regNum >= 0 && regNum <= 31 {
			return true, regNum, 0, nil
		}
	}

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		addrStr := strings.TrimSuffix(strings.TrimPrefix(expr, "["), "]")
		addr, err := d.ResolveAddress(addrStr)
		if err != nil {
			return false, 0, 0, err
		}
		return false, 0, addr, nil
	}

	addr, err := d.ResolveAddress(expr)
	if err != nil {
		return false, 0, 0, fmt.Errorf("invalid watch expression: %s", expr)
	}

	return false, 0, addr, nil
}

// cmdPrint evaluates and prints an expression
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.Session, d.symbolTable())
	if err != nil {
		return err
	}

	if result > uint32(math.MaxInt32) {
		d.Printf("$%d = 0x%08x (out of int32 range: %d)\n", d.Evaluator.GetValueNumber(), result, result)
	} else {
		d.Printf("$%d = 0x%08x (%d)\n", d.Evaluator.GetValueNumber(), result, int32(result))
	}
	return nil
}

// cmdExamine examines memory at an address
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x[/nfu] <address>\n  n: count, f: format (x/d/u/o/t), u: unit size (b/h/w)")
	}

	count := 1
	format := 'x'
	unit := 'w'
	addrArg := args[0]

	if strings.HasPrefix(args[0], "/") {
		formatStr := args[0][1:]
		if len(args) < 2 {
			return fmt.Errorf("missing address")
		}
		addrArg = args[1]

		i := 0
		for i < len(formatStr) && formatStr[i] >= '0' && formatStr[i] <= '9' {
			i++
		}
		if i > 0 {
			if n, err := strconv.Atoi(formatStr[:i]); err == nil {
				count = n
			}
			formatStr = formatStr[i:]
		}

		if len(formatStr) > 0 {
			format = rune(formatStr[0])
			formatStr = formatStr[1:]
		}

		if len(formatStr) > 0 {
			unit = rune(formatStr[0])
		}
	}

	address, err := d.ResolveAddress(addrArg)
	if err != nil {
		return err
	}

	d.Printf("0x%08x:", address)
	for i := 0; i < count; i++ {
		var value uint32

		switch unit {
		case 'b':
			b, _ := d.Session.ReadByte(address)
			value = uint32(b)
			address++
		case 'h':
			lo, _ := d.Session.ReadByte(address)
			hi, _ := d.Session.ReadByte(address + 1)
			value = uint32(lo) | uint32(hi)<<8
			address += 2
		default: // 'w'
			value = d.Session.ReadWord(address)
			address += 4
		}

		switch format {
		case 'x':
			d.Printf(" 0x%08x", value)
		case 'd':
			d.Printf(" %d", int32(value))
		case 'u':
			d.Printf(" %d", value)
		case 'o':
			d.Printf(" %o", value)
		case 't':
			d.Printf(" %b", value)
		default:
			d.Printf(" 0x%08x", value)
		}
	}
	d.Println()

	return nil
}

// cmdInfo displays information about program state
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints|stack|pipeline>")
	}

	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	case "stack", "s":
		return d.showStack()
	case "pipeline", "p":
		return d.showPipeline()
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

var registerDisplayNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// showRegisters displays all 32 general-purpose registers plus pc and signal
func (d *Debugger) showRegisters() error {
	s := d.Session.State()
	d.Println("Registers:")
	for i := 0; i < 32; i += RegisterGroupSize {
		for j := i; j < i+RegisterGroupSize && j < 32; j++ {
			d.Printf("  x%-2d/%-4s = 0x%08x", j, registerDisplayNames[j], s.Register(uint32(j)))
		}
		d.Println()
	}
	d.Printf("  pc = 0x%08x   signal = %s\n", s.PCIf, s.Signal)

	return nil
}

// showPipeline displays the current cycle's Datapath signals
func (d *Debugger) showPipeline() error {
	pd := d.Session.State().Pipeline
	d.Println("Pipeline:")
	d.Printf("  instr_req=%v instr_addr=0x%08x instr_rdata=0x%08x\n", pd.InstrReqO, pd.InstrAddrO, pd.InstrRdataI)
	d.Printf("  pc_set=%v pc_mux=%s\n", pd.PCSet, pd.PCMux)
	if pd.LsuReq {
		d.Printf("  lsu: we=%v addr=0x%08x width=%d signext=%v rd=x%d\n",
			pd.DataWeO, pd.DataAddrO, pd.LsuWidth, pd.LsuSignExt, pd.LsuRd)
	}
	return nil
}

// showBreakpoints displays all breakpoints
func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}

	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		d.Printf("  %s\n", d.Breakpoints.Describe(bp.ID, d.Resolver))
	}

	return nil
}

// showWatchpoints displays all watchpoints
func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}

	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}

		d.Printf("  %d: %s %s (hit %d times, last value: 0x%08x)\n",
			wp.ID, wp.Expression, status, wp.HitCount, wp.LastValue)
	}

	return nil
}

// showStack displays stack contents relative to x2 (sp)
func (d *Debugger) showStack() error {
	sp := d.Session.Register(2)
	d.Printf("Stack (sp = 0x%08x):\n", sp)

	for i := 0; i < StackDisplayWords; i++ {
		addr := sp + uint32(i*4)
		value := d.Session.ReadWord(addr)
		d.Printf("  0x%08x: 0x%08x (%d)\n", addr, value, int32(value))
	}

	return nil
}

// cmdBacktrace shows the current pc and link register; full call-stack
// reconstruction lives in the trace package's CallTrace, which a host can
// attach alongside the debugger and query separately.
func (d *Debugger) cmdBacktrace(args []string) error {
	d.Println("Call stack:")
	d.Printf("  #0  pc=0x%08x\n", d.Session.PC())

	if ra := d.Session.Register(1); ra != 0 {
		d.Printf("  #1  ra=0x%08x\n", ra)
	}
	return nil
}

// cmdList shows source code around current pc_if
func (d *Debugger) cmdList(args []string) error {
	sourceMap := d.Session.Program().SourceMap
	pc := d.Session.PC()

	if line, ok := sourceMap.LineFor(pc); ok {
		d.Printf("=> 0x%08x: line %d\n", pc, line)
	} else {
		d.Printf("=> 0x%08x: <no source>\n", pc)
	}

	for offset := uint32(4); offset <= CodeContextLinesAfterCompact*4; offset += 4 {
		addr := pc + offset
		if line, ok := sourceMap.LineFor(addr); ok {
			d.Printf("   0x%08x: line %d\n", addr, line)
		}
	}

	return nil
}

// cmdHistory prints every command entered so far, oldest first
func (d *Debugger) cmdHistory(args []string) error {
	cmds := d.History.GetAll()
	if len(cmds) == 0 {
		d.Println("No command history")
		return nil
	}
	for i, cmd := range cmds {
		d.Printf("%4d  %s\n", i+1, cmd)
	}
	return nil
}

// cmdSet modifies register or memory values
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: set <register|*address> = <value>")
	}

	if args[1] != "=" {
		return fmt.Errorf("usage: set <register|*address> = <value>")
	}

	target := strings.ToLower(args[0])
	valueStr := args[2]

	value, err := d.Evaluator.EvaluateExpression(valueStr, d.Session, d.symbolTable())
	if err != nil {
		return err
	}

	if strings.HasPrefix(target, "*") {
		addrStr := target[1:]
		address, err := d.ResolveAddress(addrStr)
		if err != nil {
			return err
		}

		d.Session.WriteWord(address, value)
		d.Printf("Memory 0x%08x set to 0x%08x\n", address, value)
		return nil
	}

	var register uint32
	if reg, ok := abiRegisterNames[target]; ok {
		register = reg
	} else if strings.HasPrefix(target, "x") {
		var regNum int
		if _, err := fmt.Sscanf(target, "x%d", &regNum); err != nil || regNum < 0 || regNum > 31 {
			return fmt.Errorf("invalid register: %s", target)
		}
		register = uint32(regNum)
	} else {
		return fmt.Errorf("invalid target: %s", target)
	}

	d.Session.SetRegister(register, value)
	d.Printf("Register %s set to 0x%08x\n", target, value)

	return nil
}

// cmdReset restarts the session from its assembled text section entry point
func (d *Debugger) cmdReset(args []string) error {
	d.Session.Reset()
	d.Running = false
	d.StepMode = StepNone
	d.Println("Session reset")
	return nil
}

// cmdHelp displays help information
func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("riscv32-edu debugger commands:")
	d.Println()
	d.Println("Execution Control:")
	d.Println("  run (r)           - Start program execution")
	d.Println("  continue (c)      - Continue execution")
	d.Println("  step (s, si)      - Execute single instruction")
	d.Println("  next (n)          - Step over function calls")
	d.Println("  finish (fin)      - Run until a halt, breakpoint or watchpoint")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <addr>  - Set breakpoint")
	d.Println("  tbreak (tb) <addr>- Set temporary breakpoint")
	d.Println("  delete (d) [id]   - Delete breakpoint(s)")
	d.Println("  enable <id>       - Enable breakpoint")
	d.Println("  disable <id>      - Disable breakpoint")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <expr>  - Watch a register or memory expression")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>  - Evaluate expression")
	d.Println("  x[/nfu] <addr>    - Examine memory")
	d.Println("  info (i) <what>   - Show information (registers/breakpoints/watchpoints/stack/pipeline)")
	d.Println("  backtrace (bt)    - Show call stack")
	d.Println("  list (l)          - List source lines around pc")
	d.Println("  history           - Show command history")
	d.Println()
	d.Println("Modification:")
	d.Println("  set <var> = <val> - Modify register/memory")
	d.Println()
	d.Println("Control:")
	d.Println("  reset             - Reset the session")
	d.Println("  help (h, ?)       - Show this help")
	d.Println()
	d.Println("Type 'help <command>' for detailed help on a specific command.")

	return nil
}

// showCommandHelp shows detailed help for a specific command
func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break": "break <address|label> [if <condition>]\n  Set a breakpoint at the specified address or label.\n  Optional condition is evaluated each time the breakpoint is reached.",
		"step":  "step\n  Execute a single instruction.",
		"next":  "next\n  Step over function calls (execute until the instruction after a JAL/JALR-with-ra returns).",
		"print": "print <expression>\n  Evaluate and print an expression.\n  Expressions can include registers (x0-x31, abi names), memory, symbols, and arithmetic.",
		"x":     "x[/nfu] <address>\n  Examine memory.\n  n: count, f: format (x/d/u/o/t), u: unit (b/h/w)",
		"info":  "info <registers|breakpoints|watchpoints|stack|pipeline>\n  Display information about program state.",
	}

	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}

	return fmt.Errorf("no help available for command: %s", cmd)
}
