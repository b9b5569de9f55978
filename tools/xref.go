package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lookbusy1344/riscv32-edu/assembler"
)

// ReferenceType indicates how a symbol is used at a given source line
type ReferenceType int

const (
	RefDefinition ReferenceType = iota // the label's own definition line
	RefUse                             // any other line mentioning the label
)

func (r ReferenceType) String() string {
	if r == RefDefinition {
		return "definition"
	}
	return "use"
}

// Reference is a single mention of a symbol
type Reference struct {
	Type   ReferenceType
	Line   int
	Source string
}

// SymbolXRef collects every reference to one symbol
type SymbolXRef struct {
	Name       string
	Address    uint32
	IsData     bool
	References []Reference
}

// CrossReference is the full cross-reference table for one program
type CrossReference struct {
	Symbols map[string]*SymbolXRef
}

// BuildCrossReference assembles source and builds a cross-reference table
// mapping every label to its definition line and every other line that
// mentions it by name.
func BuildCrossReference(source string) (*CrossReference, error) {
	prog, err := assembler.Assemble(source)
	if err != nil {
		return nil, err
	}

	xref := &CrossReference{Symbols: make(map[string]*SymbolXRef)}
	lines := strings.Split(source, "\n")

	addLabel := func(name string, addr uint32, isData bool) {
		xref.Symbols[name] = &SymbolXRef{Name: name, Address: addr, IsData: isData}
	}
	for name, addr := range prog.Labels {
		addLabel(name, addr, false)
	}
	for name, addr := range prog.DataLabels {
		addLabel(name, addr, true)
	}

	for name, sym := range xref.Symbols {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		for i, line := range lines {
			body := stripComment(line)
			if !re.MatchString(body) {
				continue
			}
			trimmed := strings.TrimSpace(body)
			refType := RefUse
			if trimmed == name+":" || strings.HasPrefix(trimmed, name+":") {
				refType = RefDefinition
			}
			sym.References = append(sym.References, Reference{
				Type:   refType,
				Line:   i + 1,
				Source: strings.TrimSpace(line),
			})
		}
	}

	return xref, nil
}

// Unused returns every symbol with no reference beyond its own definition.
func (x *CrossReference) Unused() []*SymbolXRef {
	var out []*SymbolXRef
	for _, sym := range x.Symbols {
		uses := 0
		for _, ref := range sym.References {
			if ref.Type == RefUse {
				uses++
			}
		}
		if uses == 0 {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// sortedNames returns every symbol name in address order, matching how a
// reader scans the program top to bottom.
func (x *CrossReference) sortedNames() []string {
	names := make([]string, 0, len(x.Symbols))
	for name := range x.Symbols {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return x.Symbols[names[i]].Address < x.Symbols[names[j]].Address
	})
	return names
}

// String renders the table as a label-by-label reference listing.
func (x *CrossReference) String() string {
	var b strings.Builder
	for _, name := range x.sortedNames() {
		sym := x.Symbols[name]
		kind := "text"
		if sym.IsData {
			kind = "data"
		}
		fmt.Fprintf(&b, "%s (%s, 0x%08x):\n", sym.Name, kind, sym.Address)
		for _, ref := range sym.References {
			fmt.Fprintf(&b, "  line %d [%s]: %s\n", ref.Line, ref.Type, ref.Source)
		}
	}
	return b.String()
}
