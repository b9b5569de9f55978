package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lookbusy1344/riscv32-edu/assembler"
	"github.com/lookbusy1344/riscv32-edu/image"
)

// LintLevel represents the severity of a lint issue
type LintLevel int

const (
	LintError   LintLevel = iota // assembly failed outright
	LintWarning                  // best-practice violation, likely bug
	LintInfo                     // style suggestion
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue represents a single lint finding
type LintIssue struct {
	Level   LintLevel
	Line    int
	Message string
	Code    string // e.g. "UNUSED_LABEL", "UNREACHABLE", "ZERO_WRITE"
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("line %d: %s: %s [%s]", i.Line, i.Level, i.Message, i.Code)
}

// LintOptions controls linter behavior
type LintOptions struct {
	CheckUnused    bool // flag labels that are defined but never referenced
	CheckReach     bool // flag code immediately following an unconditional jump/halt
	CheckZeroWrite bool // flag instructions that write to x0 (the result is discarded)
	MaxLineLength  int  // 0 disables the check
}

// DefaultLintOptions returns default linter options
func DefaultLintOptions() *LintOptions {
	return &LintOptions{
		CheckUnused:    true,
		CheckReach:     true,
		CheckZeroWrite: true,
		MaxLineLength:  100,
	}
}

// Linter analyzes RV32I assembly source for common mistakes. Unlike
// assembler.Assemble, which stops at the first error, the linter collects
// every issue it can find in one pass so an editor or CI job can report
// them together.
type Linter struct {
	options *LintOptions
}

// NewLinter creates a new linter
func NewLinter(options *LintOptions) *Linter {
	if options == nil {
		options = DefaultLintOptions()
	}
	return &Linter{options: options}
}

// Lint assembles source and, on success, runs style and best-practice
// checks against it. A failed assembly is reported as a single LintError
// issue rather than an error return, so callers always get a uniform
// issue list.
func (l *Linter) Lint(source string) []*LintIssue {
	var issues []*LintIssue

	prog, err := assembler.Assemble(source)
	if err != nil {
		if aerr, ok := err.(*assembler.Error); ok {
			issues = append(issues, &LintIssue{
				Level:   LintError,
				Line:    aerr.Line,
				Message: aerr.Message,
				Code:    aerr.Kind.String(),
			})
		} else {
			issues = append(issues, &LintIssue{Level: LintError, Message: err.Error(), Code: "ASSEMBLE_FAILED"})
		}
		return issues
	}

	lines := strings.Split(source, "\n")

	if l.options.MaxLineLength > 0 {
		issues = append(issues, l.checkLineLength(lines)...)
	}
	issues = append(issues, l.checkWhitespace(lines)...)
	if l.options.CheckUnused {
		issues = append(issues, l.checkUnusedLabels(prog, lines)...)
	}
	if l.options.CheckReach {
		issues = append(issues, l.checkUnreachableCode(lines)...)
	}
	if l.options.CheckZeroWrite {
		issues = append(issues, l.checkZeroWrites(lines)...)
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })
	return issues
}

func (l *Linter) checkLineLength(lines []string) []*LintIssue {
	var issues []*LintIssue
	for i, line := range lines {
		if len(line) > l.options.MaxLineLength {
			issues = append(issues, &LintIssue{
				Level:   LintInfo,
				Line:    i + 1,
				Message: fmt.Sprintf("line length %d exceeds %d characters", len(line), l.options.MaxLineLength),
				Code:    "LINE_TOO_LONG",
			})
		}
	}
	return issues
}

func (l *Linter) checkWhitespace(lines []string) []*LintIssue {
	var issues []*LintIssue
	for i, line := range lines {
		if strings.Contains(line, "\t") {
			issues = append(issues, &LintIssue{
				Level:   LintInfo,
				Line:    i + 1,
				Message: "line contains a tab character; prefer spaces for consistent alignment",
				Code:    "TAB_INDENT",
			})
		}
		if trimmed := strings.TrimRight(line, " \t"); trimmed != line {
			issues = append(issues, &LintIssue{
				Level:   LintInfo,
				Line:    i + 1,
				Message: "trailing whitespace",
				Code:    "TRAILING_WHITESPACE",
			})
		}
	}
	return issues
}

// checkUnusedLabels flags any label bound in the program's tables that
// never appears as an operand on a line other than its own definition.
// The conventional entry label _start is exempt: programs begin there
// without referencing it.
func (l *Linter) checkUnusedLabels(prog *image.Program, lines []string) []*LintIssue {
	var issues []*LintIssue

	allLabels := make(map[string]uint32, len(prog.Labels)+len(prog.DataLabels))
	for name, addr := range prog.Labels {
		allLabels[name] = addr
	}
	for name, addr := range prog.DataLabels {
		allLabels[name] = addr
	}

	names := make([]string, 0, len(allLabels))
	for name := range allLabels {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "_start" {
			continue
		}
		defLine := -1
		uses := 0
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		for i, line := range lines {
			body := stripComment(line)
			if !re.MatchString(body) {
				continue
			}
			if strings.TrimSpace(body) == name+":" || strings.HasPrefix(strings.TrimSpace(body), name+":") {
				if defLine == -1 {
					defLine = i + 1
				}
				continue
			}
			uses++
		}
		if uses == 0 {
			line := defLine
			if line == -1 {
				line = 1
			}
			issues = append(issues, &LintIssue{
				Level:   LintWarning,
				Line:    line,
				Message: fmt.Sprintf("label %q is defined but never referenced", name),
				Code:    "UNUSED_LABEL",
			})
		}
	}
	return issues
}

func (l *Linter) checkUnreachableCode(lines []string) []*LintIssue {
	var issues []*LintIssue
	haltMnemonics := map[string]bool{"jal": true, "jalr": true, "ecall": true, "ebreak": true}

	for i, line := range lines {
		mnemonic := firstMnemonic(line)
		if mnemonic == "" || !haltMnemonics[mnemonic] {
			continue
		}
		// Scan forward for the next non-blank, non-comment-only line.
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(stripComment(lines[j]))
			if next == "" {
				continue
			}
			if strings.HasSuffix(next, ":") {
				// A label means the fallthrough is a legitimate entry point.
				break
			}
			issues = append(issues, &LintIssue{
				Level:   LintWarning,
				Line:    j + 1,
				Message: fmt.Sprintf("code immediately follows an unconditional %s with no intervening label", strings.ToUpper(mnemonic)),
				Code:    "UNREACHABLE",
			})
			break
		}
	}
	return issues
}

// checkZeroWrites flags instructions whose destination register is x0,
// whose writes RV32I silently discards.
func (l *Linter) checkZeroWrites(lines []string) []*LintIssue {
	var issues []*LintIssue
	writesRd := map[string]bool{
		"add": true, "sub": true, "sll": true, "slt": true, "sltu": true, "xor": true,
		"srl": true, "sra": true, "or": true, "and": true,
		"addi": true, "slti": true, "sltiu": true, "xori": true, "ori": true, "andi": true,
		"slli": true, "srli": true, "srai": true, "lui": true, "auipc": true,
		"lb": true, "lh": true, "lw": true, "lbu": true, "lhu": true,
		"jal": true, "jalr": true,
	}

	for i, line := range lines {
		mnemonic := firstMnemonic(line)
		if !writesRd[mnemonic] {
			continue
		}
		rest := strings.TrimSpace(stripComment(line))
		fields := strings.Fields(strings.Replace(rest, ",", " ", -1))
		if len(fields) < 2 {
			continue
		}
		dest := strings.ToLower(fields[1])
		if dest == "x0" || dest == "zero" {
			issues = append(issues, &LintIssue{
				Level:   LintInfo,
				Line:    i + 1,
				Message: fmt.Sprintf("%s writes to x0; the result is discarded", strings.ToUpper(mnemonic)),
				Code:    "ZERO_WRITE",
			})
		}
	}
	return issues
}

// firstMnemonic extracts the lowercase mnemonic from a source line, after
// stripping a label prefix and any comment. Returns "" for blank, label-only,
// or directive lines.
func firstMnemonic(line string) string {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return ""
	}
	if idx := strings.Index(line, ":"); idx >= 0 {
		line = strings.TrimSpace(line[idx+1:])
	}
	if line == "" || strings.HasPrefix(line, ".") {
		return ""
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func stripComment(line string) string {
	if idx := strings.Index(line, "#"); idx >= 0 {
		return line[:idx]
	}
	if idx := strings.Index(line, ";"); idx >= 0 {
		return line[:idx]
	}
	return line
}
