package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI runs the command-line debugger interface
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(riscv32-dbg) ")

		if !scanner.Scan() {
			break
		}

		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("Exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		output := dbg.GetOutput()
		if output != "" {
			fmt.Print(output)
		}

		if dbg.Running {
			for dbg.Running {
				next := dbg.Session.Step()
				if next.Signal.Halting() {
					dbg.Running = false
					dbg.StepMode = StepNone
					fmt.Printf("Program halted: %s\n", next.Signal)
					break
				}

				if shouldBreak, reason := dbg.ShouldBreak(); shouldBreak {
					dbg.Running = false
					fmt.Printf("Stopped: %s at pc=0x%08x\n", reason, dbg.Session.PC())
					break
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}

	return nil
}

// RunTUI runs the TUI (Text User Interface) debugger
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)
	return tui.Run()
}
