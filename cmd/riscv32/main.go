package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lookbusy1344/riscv32-edu/api"
	"github.com/lookbusy1344/riscv32-edu/assembler"
	"github.com/lookbusy1344/riscv32-edu/config"
	"github.com/lookbusy1344/riscv32-edu/debugger"
	"github.com/lookbusy1344/riscv32-edu/emulator"
	"github.com/lookbusy1344/riscv32-edu/image"
	"github.com/lookbusy1344/riscv32-edu/symbols"
	"github.com/lookbusy1344/riscv32-edu/trace"
	"github.com/spf13/cobra"
)

// Version information, overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "riscv32",
		Short:   "RV32I assembler and pipelined emulator",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
	}

	rootCmd.AddCommand(newAssembleCmd(), newRunCmd(), newDebugCmd(), newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAssembleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "assemble <file.s>",
		Short: "Assemble a source file and print or save the program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0]) // #nosec G304 -- user-specified source path
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			prog, err := assembler.Assemble(string(source))
			if err != nil {
				if aerr, ok := err.(*assembler.Error); ok {
					fmt.Fprintf(os.Stderr, "%s:%d: %s\n", args[0], aerr.Line, strings.TrimPrefix(aerr.Error(), fmt.Sprintf("line %d: ", aerr.Line)))
				} else {
					fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
				}
				os.Exit(1)
			}

			var w = os.Stdout
			if output != "" {
				f, ferr := os.Create(output) // #nosec G304 -- user-specified output path
				if ferr != nil {
					return fmt.Errorf("creating %s: %w", output, ferr)
				}
				defer f.Close()
				w = f
			}

			return dumpProgramImage(w, prog)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the program image to this file instead of stdout")

	return cmd
}

func newRunCmd() *cobra.Command {
	cfg := loadConfig()

	var (
		maxCycles   uint64
		stackSize   uint
		verboseMode bool
		traceFile   string
		statsFormat string
		statsFile   string
	)

	cmd := &cobra.Command{
		Use:   "run <file.s>",
		Short: "Assemble and run a program to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0]) // #nosec G304 -- user-specified source path
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			sess, err := emulator.NewSession(string(source))
			if err != nil {
				return reportAssemblyError(args[0], err)
			}
			sess.SetRegister(2, uint32(stackSize)) // x2 = sp

			var execTrace *trace.ExecutionTrace
			var traceWriter *os.File
			if traceFile != "" {
				traceWriter, err = os.Create(traceFile) // #nosec G304 -- user-specified trace path
				if err != nil {
					return fmt.Errorf("creating trace file: %w", err)
				}
				defer traceWriter.Close()
				execTrace = trace.NewExecutionTrace(traceWriter)
				execTrace.Start()
			}

			stats := trace.NewStatistics()
			stats.Start()

			before := sess.State()
			steps := 0
			for i := uint64(0); i < maxCycles; i++ {
				after := sess.Step()
				stats.Record(before, after)
				if execTrace != nil {
					execTrace.Record(after)
				}
				steps++
				before = after
				if after.Signal.Halting() {
					break
				}
			}

			final := sess.State()
			fmt.Printf("Halted after %d cycles: %s\n", steps, final.Signal)
			fmt.Printf("PC = 0x%08x\n", final.PCIf)
			for r := uint32(0); r < 32; r++ {
				fmt.Printf("x%-2d = 0x%08x", r, final.Register(r))
				if r%4 == 3 {
					fmt.Println()
				} else {
					fmt.Print("  ")
				}
			}
			fmt.Println()

			if execTrace != nil {
				if err := execTrace.Flush(); err != nil {
					fmt.Fprintf(os.Stderr, "Error flushing trace: %v\n", err)
				}
				if verboseMode {
					fmt.Printf("Execution trace written to %s (%d entries)\n", traceFile, len(execTrace.Entries()))
				}
			}

			if statsFile != "" {
				sf, err := os.Create(statsFile) // #nosec G304 -- user-specified stats path
				if err != nil {
					return fmt.Errorf("creating stats file: %w", err)
				}
				defer sf.Close()
				if statsFormat == "json" {
					if err := stats.ExportJSON(sf); err != nil {
						return fmt.Errorf("exporting stats: %w", err)
					}
				}
			}
			if verboseMode {
				fmt.Println()
				fmt.Println(stats.String())
			}

			if !final.Signal.Halting() {
				return fmt.Errorf("exceeded max-cycles (%d) without halting", maxCycles)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", cfg.Execution.MaxCycles, "Maximum clock cycles before giving up")
	cmd.Flags().UintVar(&stackSize, "stack-size", cfg.Execution.StackSize, "Initial stack pointer (x2) value")
	cmd.Flags().BoolVarP(&verboseMode, "verbose", "v", false, "Verbose output")
	cmd.Flags().StringVar(&traceFile, "trace-file", "", "Execution trace output file (disabled if empty)")
	cmd.Flags().StringVar(&statsFile, "stats-file", "", "Statistics output file (disabled if empty)")
	cmd.Flags().StringVar(&statsFormat, "stats-format", cfg.Statistics.Format, "Statistics format (json)")

	return cmd
}

func newDebugCmd() *cobra.Command {
	var tuiMode bool

	cmd := &cobra.Command{
		Use:   "debug <file.s>",
		Short: "Assemble and start the interactive debugger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0]) // #nosec G304 -- user-specified source path
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			sess, err := emulator.NewSession(string(source))
			if err != nil {
				return reportAssemblyError(args[0], err)
			}

			dbg := debugger.NewDebugger(sess)

			if tuiMode {
				return debugger.RunTUI(dbg)
			}

			fmt.Println("riscv32 debugger - type 'help' for commands")
			fmt.Printf("Program loaded: %s\n", args[0])
			fmt.Println()
			return debugger.RunCLI(dbg)
		},
	}
	cmd.Flags().BoolVar(&tuiMode, "tui", false, "Use the tcell/tview text UI instead of the line-oriented CLI")

	return cmd
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/websocket observation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(port)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			var shutdownOnce sync.Once
			performShutdown := func() {
				shutdownOnce.Do(func() {
					fmt.Println("\nShutting down API server...")
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := server.Shutdown(ctx); err != nil {
						fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
					}
					fmt.Println("API server stopped")
				})
			}

			errChan := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil {
					errChan <- err
				}
			}()

			select {
			case err := <-errChan:
				return fmt.Errorf("API server error: %w", err)
			case <-sigChan:
				performShutdown()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "API server port")

	return cmd
}

// reportAssemblyError formats an *assembler.Error as file:line: message,
// matching assemble's error reporting, and returns a plain error for cobra.
func reportAssemblyError(file string, err error) error {
	if aerr, ok := err.(*assembler.Error); ok {
		fmt.Fprintf(os.Stderr, "%s:%d: %s\n", file, aerr.Line, strings.TrimPrefix(aerr.Error(), fmt.Sprintf("line %d: ", aerr.Line)))
		os.Exit(1)
	}
	return err
}

// dumpProgramImage writes the assembled program's instruction bytes, data
// bytes, and label table in a simple line-oriented format.
func dumpProgramImage(w *os.File, prog *image.Program) error {
	resolver := symbols.FromProgram(prog)

	fmt.Fprintln(w, "; labels")
	names := make([]string, 0, resolver.Count())
	all := resolver.All()
	for name := range all {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return all[names[i]] < all[names[j]] })
	for _, name := range names {
		fmt.Fprintf(w, ";   %-24s 0x%08x\n", name, all[name])
	}

	fmt.Fprintln(w, "; text")
	textAddrs := make([]uint32, 0, len(prog.InstructionMemory))
	for addr := range prog.InstructionMemory {
		textAddrs = append(textAddrs, addr)
	}
	sort.Slice(textAddrs, func(i, j int) bool { return textAddrs[i] < textAddrs[j] })
	var textLine strings.Builder
	for i, addr := range textAddrs {
		if i%16 == 0 {
			if textLine.Len() > 0 {
				fmt.Fprintln(w, textLine.String())
				textLine.Reset()
			}
			fmt.Fprintf(&textLine, "%08x:", addr)
		}
		fmt.Fprintf(&textLine, " %02x", prog.InstructionMemory[addr])
	}
	if textLine.Len() > 0 {
		fmt.Fprintln(w, textLine.String())
	}

	fmt.Fprintln(w, "; data")
	dataAddrs := make([]uint32, 0, len(prog.DataMemory))
	for addr := range prog.DataMemory {
		dataAddrs = append(dataAddrs, addr)
	}
	sort.Slice(dataAddrs, func(i, j int) bool { return dataAddrs[i] < dataAddrs[j] })
	var dataLine strings.Builder
	for i, addr := range dataAddrs {
		if i%16 == 0 {
			if dataLine.Len() > 0 {
				fmt.Fprintln(w, dataLine.String())
				dataLine.Reset()
			}
			fmt.Fprintf(&dataLine, "%08x:", addr)
		}
		fmt.Fprintf(&dataLine, " %02x", prog.DataMemory[addr])
	}
	if dataLine.Len() > 0 {
		fmt.Fprintln(w, dataLine.String())
	}

	return nil
}

// loadConfig loads the saved configuration file, falling back to defaults
// if none exists or it fails to parse -- run's flag defaults come from here.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}
