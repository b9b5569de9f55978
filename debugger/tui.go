package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TUI is the text user interface for the debugger: a source/pipeline view on
// the left, registers/stack/breakpoints on the right, and an output pane plus
// command line along the bottom.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	SourceView      *tview.TextView
	RegisterView    *tview.TextView
	PipelineView    *tview.TextView
	StackView       *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

// NewTUI creates a text user interface wrapping dbg.
func NewTUI(dbg *Debugger) *TUI {
	t := &TUI{Debugger: dbg, App: tview.NewApplication()}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

// NewTUIWithScreen creates a TUI bound to an explicit tcell.Screen, so tests
// can drive it against a simulation screen instead of a real terminal.
func NewTUIWithScreen(dbg *Debugger, screen tcell.Screen) *TUI {
	t := &TUI{Debugger: dbg, App: tview.NewApplication().SetScreen(screen)}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.SourceView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.SourceView.SetBorder(true).SetTitle(" Source ")

	t.RegisterView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.PipelineView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	t.PipelineView.SetBorder(true).SetTitle(" Pipeline ")

	t.StackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.StackView.SetBorder(true).SetTitle(" Stack ")

	t.BreakpointsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints/Watchpoints ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	t.LeftPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.SourceView, 0, 3, false).
		AddItem(t.PipelineView, 8, 0, false)

	rightTop := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, RegisterViewRows, 0, false).
		AddItem(t.StackView, 0, 1, false)

	t.RightPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(rightTop, 0, 3, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.LeftPanel, 0, 2, false).
		AddItem(t.RightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().AddPage("main", t.MainLayout, true, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF9:
			t.executeCommand("break")
			return nil
		case tcell.KeyF10:
			t.executeCommand("next")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd == "" {
		return
	}
	t.executeCommand(cmd)
	t.CommandInput.SetText("")
}

func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()
	err := t.Debugger.ExecuteCommand(cmd)
	output := t.Debugger.GetOutput()

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output != "" {
		t.WriteOutput(output)
	}

	if t.Debugger.Running {
		for t.Debugger.Running {
			next := t.Debugger.Session.Step()
			if next.Signal.Halting() {
				t.Debugger.Running = false
				t.Debugger.StepMode = StepNone
				t.WriteOutput(fmt.Sprintf("[yellow]Halted:[white] %s\n", next.Signal))
				break
			}
			if shouldBreak, reason := t.Debugger.ShouldBreak(); shouldBreak {
				t.Debugger.Running = false
				t.WriteOutput(fmt.Sprintf("[yellow]Stopped:[white] %s at pc=0x%08x\n", reason, t.Debugger.Session.PC()))
				break
			}
		}
	}

	t.RefreshAll()
}

// WriteOutput writes to the output view
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

// RefreshAll refreshes every view panel
func (t *TUI) RefreshAll() {
	t.UpdateSourceView()
	t.UpdateRegisterView()
	t.UpdatePipelineView()
	t.UpdateStackView()
	t.UpdateBreakpointsView()
	t.App.Draw()
}

func (t *TUI) UpdateSourceView() {
	t.SourceView.Clear()

	sourceMap := t.Debugger.Session.Program().SourceMap
	pc := t.Debugger.Session.PC()

	var startAddr uint32
	if pc > CodeContextLinesBeforeCompact*4 {
		startAddr = pc - CodeContextLinesBeforeCompact*4
	}

	var lines []string
	for addr := startAddr; addr < pc+CodeContextLinesAfterCompact*4; addr += 4 {
		line, ok := sourceMap.LineFor(addr)
		if !ok {
			continue
		}

		marker, color := "  ", "white"
		if addr == pc {
			marker, color = "->", "yellow"
		}
		if t.Debugger.Breakpoints.GetBreakpoint(addr) != nil {
			marker = "* "
		}

		lines = append(lines, fmt.Sprintf("[%s]%s 0x%08x: line %d[white]", color, marker, addr, line))
	}

	if len(lines) == 0 {
		t.SourceView.SetText("[yellow]No source mapped near pc[white]")
		return
	}
	t.SourceView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdateRegisterView() {
	t.RegisterView.Clear()
	s := t.Debugger.Session.State()

	var lines []string
	for i := 0; i < 32; i += RegisterGroupSize {
		var cols []string
		for j := i; j < i+RegisterGroupSize && j < 32; j++ {
			cols = append(cols, fmt.Sprintf("x%-2d/%-4s: 0x%08x", j, registerDisplayNames[j], s.Register(uint32(j))))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	lines = append(lines, "", fmt.Sprintf("pc: 0x%08x  signal: %s", s.PCIf, s.Signal))

	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdatePipelineView() {
	t.PipelineView.Clear()
	pd := t.Debugger.Session.State().Pipeline

	lines := []string{
		fmt.Sprintf("instr_req=%v addr=0x%08x rdata=0x%08x", pd.InstrReqO, pd.InstrAddrO, pd.InstrRdataI),
		fmt.Sprintf("pc_set=%v pc_mux=%s", pd.PCSet, pd.PCMux),
	}
	if pd.LsuReq {
		lines = append(lines, fmt.Sprintf("lsu we=%v addr=0x%08x width=%d rd=x%d", pd.DataWeO, pd.DataAddrO, pd.LsuWidth, pd.LsuRd))
	}
	t.PipelineView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdateStackView() {
	t.StackView.Clear()
	sp := t.Debugger.Session.Register(2)

	var lines []string
	for i := 0; i < StackDisplayWords; i++ {
		addr := sp + uint32(i*4)
		lines = append(lines, fmt.Sprintf("0x%08x: 0x%08x", addr, t.Debugger.Session.ReadWord(addr)))
	}
	t.StackView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) UpdateBreakpointsView() {
	t.BreakpointsView.Clear()

	var lines []string
	for _, bp := range t.Debugger.Breakpoints.GetAllBreakpoints() {
		lines = append(lines, t.Debugger.Breakpoints.Describe(bp.ID, t.Debugger.Resolver))
	}
	for _, wp := range t.Debugger.Watchpoints.GetAllWatchpoints() {
		lines = append(lines, fmt.Sprintf("watch #%d %s = 0x%08x", wp.ID, wp.Expression, wp.LastValue))
	}
	if len(lines) == 0 {
		t.BreakpointsView.SetText("[gray]none[white]")
		return
	}
	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI event loop.
func (t *TUI) Run() error {
	t.RefreshAll()
	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop ends the TUI event loop.
func (t *TUI) Stop() {
	t.App.Stop()
}
