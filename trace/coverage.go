package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lookbusy1344/riscv32-edu/symbols"
)

// CoverageEntry is the per-address execution record kept by CodeCoverage.
type CoverageEntry struct {
	Address        uint32
	ExecutionCount uint64
	FirstCycle     uint64
	LastCycle      uint64
}

// CodeCoverage tracks which instruction addresses have been fetched, over
// what the host considers the code range (the text section).
type CodeCoverage struct {
	Enabled bool
	Writer  io.Writer

	executed  map[uint32]*CoverageEntry
	codeStart uint32
	codeEnd   uint32
	resolver  *symbols.Resolver
}

// NewCodeCoverage creates a coverage tracker writing reports to w.
func NewCodeCoverage(w io.Writer) *CodeCoverage {
	return &CodeCoverage{
		Enabled:  true,
		Writer:   w,
		executed: make(map[uint32]*CoverageEntry),
	}
}

// SetCodeRange bounds the addresses considered part of the program text,
// for coverage-percentage and unexecuted-address reporting.
func (c *CodeCoverage) SetCodeRange(start, end uint32) {
	c.codeStart = start
	c.codeEnd = end
}

// SetResolver attaches a label resolver used to annotate report lines.
func (c *CodeCoverage) SetResolver(r *symbols.Resolver) {
	c.resolver = r
}

// Start resets the tracker.
func (c *CodeCoverage) Start() {
	c.executed = make(map[uint32]*CoverageEntry)
}

// Record marks address as fetched during cycle.
func (c *CodeCoverage) Record(address uint32, cycle uint64) {
	if !c.Enabled {
		return
	}
	if c.codeStart != 0 || c.codeEnd != 0 {
		if address < c.codeStart || address >= c.codeEnd {
			return
		}
	}
	if e, ok := c.executed[address]; ok {
		e.ExecutionCount++
		e.LastCycle = cycle
		return
	}
	c.executed[address] = &CoverageEntry{
		Address:        address,
		ExecutionCount: 1,
		FirstCycle:     cycle,
		LastCycle:      cycle,
	}
}

// Percent returns the fraction of addresses in the code range that were
// fetched at least once, as a percentage.
func (c *CodeCoverage) Percent() float64 {
	if c.codeStart == 0 && c.codeEnd == 0 {
		return 0
	}
	total := (c.codeEnd - c.codeStart) / 4
	if total == 0 {
		return 0
	}
	return float64(len(c.executed)) / float64(total) * 100.0
}

// ExecutedAddresses returns every fetched address, sorted ascending.
func (c *CodeCoverage) ExecutedAddresses() []uint32 {
	out := make([]uint32, 0, len(c.executed))
	for a := range c.executed {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnexecutedAddresses returns every instruction-aligned address within the
// code range that was never fetched.
func (c *CodeCoverage) UnexecutedAddresses() []uint32 {
	if c.codeStart == 0 && c.codeEnd == 0 {
		return nil
	}
	var out []uint32
	for a := c.codeStart; a < c.codeEnd; a += 4 {
		if _, ok := c.executed[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func (c *CodeCoverage) annotate(addr uint32) string {
	if c.resolver == nil {
		return ""
	}
	if name := c.resolver.LookupAddress(addr); name != "" {
		return " [" + name + "]"
	}
	return ""
}

// String renders a short human-readable coverage summary.
func (c *CodeCoverage) String() string {
	var sb strings.Builder
	sb.WriteString("Code coverage\n")
	if c.codeStart != 0 || c.codeEnd != 0 {
		total := (c.codeEnd - c.codeStart) / 4
		fmt.Fprintf(&sb, "range 0x%08x-0x%08x, %d/%d instructions (%.2f%%)\n",
			c.codeStart, c.codeEnd, len(c.executed), total, c.Percent())
	} else {
		fmt.Fprintf(&sb, "%d unique addresses executed\n", len(c.executed))
	}
	return sb.String()
}

// Flush writes a full coverage report, including unexecuted addresses.
func (c *CodeCoverage) Flush() error {
	if c.Writer == nil {
		return nil
	}
	if _, err := io.WriteString(c.Writer, c.String()+"\n"); err != nil {
		return err
	}
	for _, a := range c.ExecutedAddresses() {
		e := c.executed[a]
		line := fmt.Sprintf("0x%08x: %6d times (first %d, last %d)%s\n",
			a, e.ExecutionCount, e.FirstCycle, e.LastCycle, c.annotate(a))
		if _, err := io.WriteString(c.Writer, line); err != nil {
			return err
		}
	}
	unexec := c.UnexecutedAddresses()
	if len(unexec) == 0 {
		return nil
	}
	if _, err := io.WriteString(c.Writer, "\nnot executed:\n"); err != nil {
		return err
	}
	for _, a := range unexec {
		line := fmt.Sprintf("0x%08x%s\n", a, c.annotate(a))
		if _, err := io.WriteString(c.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSON writes the coverage data as JSON.
func (c *CodeCoverage) ExportJSON(w io.Writer) error {
	data := map[string]any{
		"code_start":           c.codeStart,
		"code_end":             c.codeEnd,
		"coverage_percent":     c.Percent(),
		"executed_count":       len(c.executed),
		"unexecuted_count":     len(c.UnexecutedAddresses()),
		"executed_addresses":   c.executed,
		"unexecuted_addresses": c.UnexecutedAddresses(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
