// Package assembler implements the two-pass RV32I assembler: lexing,
// label resolution, and bit-exact instruction encoding into a program
// image.
package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/riscv32-edu/codec"
	"github.com/lookbusy1344/riscv32-edu/image"
	"github.com/lookbusy1344/riscv32-edu/isa"
)

// Default section base addresses. The assembler places .text at address
// zero and reserves a fixed region ahead of .data so the two sections
// never collide regardless of which is assembled first in source order.
const (
	TextBase = 0x00000000
	DataBase = 0x00010000
)

type lineKind int

const (
	lineEmpty lineKind = iota
	lineLabel
	lineDirective
	lineInstruction
	lineMalformed
)

type parsedLine struct {
	lineNo        int
	kind          lineKind
	labelName     string
	directiveName string
	directiveArgs []Token
	mnemonic      string
	operands      []Token
}

func classify(line Line) parsedLine {
	toks := line.Tokens
	p := parsedLine{lineNo: line.Number}
	if len(toks) == 0 {
		p.kind = lineEmpty
		return p
	}
	if len(toks) == 2 && toks[0].Type == TokenIdentifier && toks[1].Type == TokenColon {
		p.kind = lineLabel
		p.labelName = toks[0].Literal
		return p
	}
	for _, t := range toks {
		if t.Type == TokenColon {
			p.kind = lineMalformed
			return p
		}
	}
	switch toks[0].Type {
	case TokenDirective:
		p.kind = lineDirective
		p.directiveName = strings.ToLower(strings.TrimPrefix(toks[0].Literal, "."))
		p.directiveArgs = toks[1:]
	case TokenIdentifier:
		p.kind = lineInstruction
		p.mnemonic = toks[0].Literal
		p.operands = toks[1:]
		if strings.EqualFold(p.mnemonic, "nop") && len(p.operands) == 0 {
			// NOP assembles as its canonical RV32I encoding, ADDI x0, x0, 0.
			ln := toks[0].Line
			p.mnemonic = "ADDI"
			p.operands = []Token{{Type: TokenIdentifier, Literal: "x0", Line: ln}, {Type: TokenIdentifier, Literal: "x0", Line: ln}, {Type: TokenNumber, Literal: "0", Line: ln}}
		}
	default:
		p.kind = lineMalformed
	}
	return p
}

// Assemble translates RV32I assembly source into a program image, or
// returns the first Error encountered.
func Assemble(source string) (*image.Program, error) {
	rawLines := TokenizeLines(source)
	parsed := make([]parsedLine, len(rawLines))
	for i, l := range rawLines {
		parsed[i] = classify(l)
	}

	img := image.New()

	// Pass 1: resolve label addresses and emit data bytes (data directives
	// never depend on a label, so they can be written immediately).
	section := "text"
	textPtr := uint32(TextBase)
	dataPtr := uint32(DataBase)
	for _, p := range parsed {
		switch p.kind {
		case lineEmpty:
			continue
		case lineMalformed:
			return nil, &Error{Kind: EmptyInstruction, Line: p.lineNo, Message: "a line may not contain both a label and an instruction"}
		case lineLabel:
			addr := textPtr
			isData := section == "data"
			if isData {
				addr = dataPtr
			}
			if err := img.AddLabel(p.labelName, addr, isData); err != nil {
				return nil, errDuplicateLabel(p.lineNo, p.labelName)
			}
		case lineDirective:
			switch p.directiveName {
			case "text":
				section = "text"
			case "data":
				section = "data"
			case "byte", "word", "ascii", "string":
				if section != "data" {
					return nil, &Error{Kind: DataDirectiveOutsideData, Line: p.lineNo, Message: fmt.Sprintf(".%s directive outside .data section", p.directiveName)}
				}
				data, err := evalDataDirective(p)
				if err != nil {
					return nil, err
				}
				img.AddData(dataPtr, data)
				dataPtr += uint32(len(data))
			default:
				return nil, &Error{Kind: UnknownDirective, Line: p.lineNo, Message: fmt.Sprintf("unknown directive %q", p.directiveName)}
			}
		case lineInstruction:
			if _, ok := isa.Lookup(p.mnemonic); !ok {
				return nil, &Error{Kind: UnknownMnemonic, Line: p.lineNo, Message: fmt.Sprintf("unknown mnemonic %q", p.mnemonic)}
			}
			textPtr += 4
		}
	}

	// Pass 2: re-walk instruction lines in the same order, now resolving
	// branch/jump/data-label operands against the tables pass 1 built.
	section = "text"
	textPtr = uint32(TextBase)
	for _, p := range parsed {
		switch p.kind {
		case lineDirective:
			switch p.directiveName {
			case "text":
				section = "text"
			case "data":
				section = "data"
			}
		case lineInstruction:
			addr := textPtr
			word, err := encodeInstruction(p, addr, img)
			if err != nil {
				return nil, err
			}
			img.AddInstruction(addr, word, p.lineNo)
			textPtr += 4
		}
	}

	return img, nil
}

func evalDataDirective(p parsedLine) ([]byte, error) {
	switch p.directiveName {
	case "byte":
		var out []byte
		for _, t := range p.directiveArgs {
			v, err := parseImmediateLiteral(t, p.lineNo)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(v))
		}
		return out, nil
	case "word":
		var out []byte
		for _, t := range p.directiveArgs {
			v, err := parseImmediateLiteral(t, p.lineNo)
			if err != nil {
				return nil, err
			}
			u := uint32(v)
			out = append(out, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
		}
		return out, nil
	case "ascii", "string":
		if len(p.directiveArgs) != 1 || p.directiveArgs[0].Type != TokenString {
			return nil, errf(BadImmediate, p.lineNo, ".%s expects a single string literal", p.directiveName)
		}
		out := []byte(unescape(p.directiveArgs[0].Literal))
		if p.directiveName == "string" {
			out = append(out, 0)
		}
		return out, nil
	}
	return nil, nil
}

func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func parseRegister(t Token, line int) (uint32, error) {
	lit := t.Literal
	if t.Type != TokenIdentifier || len(lit) < 2 || (lit[0] != 'x' && lit[0] != 'X') {
		return 0, &Error{Kind: BadRegister, Line: line, Message: fmt.Sprintf("expected register, got %q", lit)}
	}
	n, err := strconv.Atoi(lit[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, &Error{Kind: BadRegister, Line: line, Message: fmt.Sprintf("invalid register %q", lit)}
	}
	return uint32(n), nil
}

func parseImmediateLiteral(t Token, line int) (int32, error) {
	if t.Type != TokenNumber {
		return 0, &Error{Kind: BadImmediate, Line: line, Message: fmt.Sprintf("expected immediate, got %q", t.Literal)}
	}
	lit := t.Literal
	neg := strings.HasPrefix(lit, "-")
	if neg {
		lit = lit[1:]
	}
	var val uint64
	var err error
	if strings.HasPrefix(strings.ToLower(lit), "0x") {
		val, err = strconv.ParseUint(lit[2:], 16, 64)
	} else {
		val, err = strconv.ParseUint(lit, 10, 64)
	}
	if err != nil {
		return 0, &Error{Kind: BadImmediate, Line: line, Message: fmt.Sprintf("invalid immediate %q", t.Literal)}
	}
	v := int64(val)
	if neg {
		v = -v
	}
	if v < -(1<<31) || v > (1<<31)-1 {
		return 0, &Error{Kind: BadImmediate, Line: line, Message: fmt.Sprintf("immediate %q does not fit 32 bits", t.Literal)}
	}
	return int32(v), nil
}

// memOperand is the parsed shape of a load/store operand: either an
// explicit offset(reg) form, or a bare label rewritten against x0.
type memOperand struct {
	explicitOffset int32
	baseReg        uint32
	label          string
	isLabel        bool
}

func parseMemOperand(toks []Token, line int) (memOperand, error) {
	if len(toks) == 1 && toks[0].Type == TokenIdentifier {
		return memOperand{label: toks[0].Literal, isLabel: true}, nil
	}
	if len(toks) == 4 && toks[0].Type == TokenNumber && toks[1].Type == TokenLParen && toks[3].Type == TokenRParen {
		off, err := parseImmediateLiteral(toks[0], line)
		if err != nil {
			return memOperand{}, err
		}
		reg, err := parseRegister(toks[2], line)
		if err != nil {
			return memOperand{}, err
		}
		return memOperand{explicitOffset: off, baseReg: reg}, nil
	}
	return memOperand{}, &Error{Kind: BadMemoryOperand, Line: line, Message: "expected offset(xN) or a data label"}
}

func resolveMemOperand(op memOperand, img *image.Program, line int) (offset int32, base uint32, err error) {
	if !op.isLabel {
		return op.explicitOffset, op.baseReg, nil
	}
	// Data labels are tried first in memory-operand position; a label
	// present in only one table resolves unambiguously either way.
	if addr, ok := img.DataLabels[op.label]; ok {
		return int32(addr), 0, nil
	}
	if addr, ok := img.Labels[op.label]; ok {
		return int32(addr), 0, nil
	}
	return 0, 0, errUndefinedLabel(line, op.label)
}

// resolveTarget parses a branch/jump operand: either a literal
// already-relative offset, or a label resolved to (target - current).
func resolveTarget(t Token, currentAddr uint32, img *image.Program, line int) (int32, error) {
	if t.Type == TokenNumber {
		return parseImmediateLiteral(t, line)
	}
	if t.Type == TokenIdentifier {
		if addr, ok := img.Labels[t.Literal]; ok {
			return int32(addr) - int32(currentAddr), nil
		}
		if addr, ok := img.DataLabels[t.Literal]; ok {
			return int32(addr) - int32(currentAddr), nil
		}
		return 0, errUndefinedLabel(line, t.Literal)
	}
	return 0, &Error{Kind: BadImmediate, Line: line, Message: fmt.Sprintf("expected branch/jump target, got %q", t.Literal)}
}

func encodeInstruction(p parsedLine, addr uint32, img *image.Program) (uint32, error) {
	name := strings.ToUpper(p.mnemonic)
	def, _ := isa.Lookup(name)
	ops := p.operands
	line := p.lineNo

	need := func(n int) error {
		if len(ops) < n {
			return &Error{Kind: BadMemoryOperand, Line: line, Message: fmt.Sprintf("%s expects %d operand(s)", name, n)}
		}
		return nil
	}

	switch name {
	case "ADD", "SUB", "SLL", "SLT", "SLTU", "XOR", "SRL", "SRA", "OR", "AND":
		if err := need(3); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		rs1, err := parseRegister(ops[1], line)
		if err != nil {
			return 0, err
		}
		rs2, err := parseRegister(ops[2], line)
		if err != nil {
			return 0, err
		}
		inst, err := codec.EncodeR(def.Opcode, rd, def.Funct3, rs1, rs2, def.Funct7)
		return uint32(inst), wrapRange(err, line)

	case "ADDI", "SLTI", "SLTIU", "XORI", "ORI", "ANDI":
		if err := need(3); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		rs1, err := parseRegister(ops[1], line)
		if err != nil {
			return 0, err
		}
		imm, err := parseImmediateLiteral(ops[2], line)
		if err != nil {
			return 0, err
		}
		if imm < -2048 || imm > 2047 {
			return 0, errOutOfRange(line, -2048, 2047)
		}
		inst, err := codec.EncodeI(def.Opcode, rd, def.Funct3, rs1, imm)
		return uint32(inst), wrapRange(err, line)

	case "SLLI", "SRLI", "SRAI":
		if err := need(3); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		rs1, err := parseRegister(ops[1], line)
		if err != nil {
			return 0, err
		}
		shamt, err := parseImmediateLiteral(ops[2], line)
		if err != nil {
			return 0, err
		}
		if shamt < 0 || shamt > 31 {
			return 0, errOutOfRange(line, 0, 31)
		}
		inst, err := codec.EncodeIShift(def.Opcode, rd, def.Funct3, rs1, uint32(shamt), def.Funct7)
		return uint32(inst), wrapRange(err, line)

	case "LUI", "AUIPC":
		if err := need(2); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		imm, err := parseImmediateLiteral(ops[1], line)
		if err != nil {
			return 0, err
		}
		if imm < 0 || imm > 0xFFFFF {
			return 0, errOutOfRange(line, 0, 0xFFFFF)
		}
		inst, err := codec.EncodeU(def.Opcode, rd, uint32(imm))
		return uint32(inst), wrapRange(err, line)

	case "JAL":
		if err := need(2); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		off, err := resolveTarget(ops[1], addr, img, line)
		if err != nil {
			return 0, err
		}
		if off%4 != 0 {
			return 0, &Error{Kind: MisalignedTarget, Line: line, Message: "jump target is not 4-byte aligned"}
		}
		if off < -1048576 || off > 1048575 {
			return 0, errOutOfRange(line, -1048576, 1048575)
		}
		inst, err := codec.EncodeJ(def.Opcode, rd, off)
		return uint32(inst), wrapRange(err, line)

	case "JALR":
		if err := need(3); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		rs1, err := parseRegister(ops[1], line)
		if err != nil {
			return 0, err
		}
		imm, err := parseImmediateLiteral(ops[2], line)
		if err != nil {
			return 0, err
		}
		if imm < -2048 || imm > 2047 {
			return 0, errOutOfRange(line, -2048, 2047)
		}
		inst, err := codec.EncodeI(def.Opcode, rd, def.Funct3, rs1, imm)
		return uint32(inst), wrapRange(err, line)

	case "BEQ", "BNE", "BLT", "BGE", "BLTU", "BGEU":
		if err := need(3); err != nil {
			return 0, err
		}
		rs1, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		rs2, err := parseRegister(ops[1], line)
		if err != nil {
			return 0, err
		}
		off, err := resolveTarget(ops[2], addr, img, line)
		if err != nil {
			return 0, err
		}
		if off%4 != 0 {
			return 0, &Error{Kind: MisalignedTarget, Line: line, Message: "branch target is not 4-byte aligned"}
		}
		if off < -4096 || off > 4095 {
			return 0, errOutOfRange(line, -4096, 4095)
		}
		inst, err := codec.EncodeB(def.Opcode, def.Funct3, rs1, rs2, off)
		return uint32(inst), wrapRange(err, line)

	case "LB", "LH", "LW", "LBU", "LHU":
		if err := need(2); err != nil {
			return 0, err
		}
		rd, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		memOp, err := parseMemOperand(ops[1:], line)
		if err != nil {
			return 0, err
		}
		off, base, err := resolveMemOperand(memOp, img, line)
		if err != nil {
			return 0, err
		}
		if off < -2048 || off > 2047 {
			return 0, errOutOfRange(line, -2048, 2047)
		}
		inst, err := codec.EncodeI(def.Opcode, rd, def.Funct3, base, off)
		return uint32(inst), wrapRange(err, line)

	case "SB", "SH", "SW":
		if err := need(2); err != nil {
			return 0, err
		}
		rs2, err := parseRegister(ops[0], line)
		if err != nil {
			return 0, err
		}
		memOp, err := parseMemOperand(ops[1:], line)
		if err != nil {
			return 0, err
		}
		off, base, err := resolveMemOperand(memOp, img, line)
		if err != nil {
			return 0, err
		}
		if off < -2048 || off > 2047 {
			return 0, errOutOfRange(line, -2048, 2047)
		}
		inst, err := codec.EncodeS(def.Opcode, def.Funct3, base, rs2, off)
		return uint32(inst), wrapRange(err, line)

	case "FENCE":
		inst, err := codec.EncodeI(def.Opcode, 0, def.Funct3, 0, 0)
		return uint32(inst), wrapRange(err, line)

	case "ECALL":
		inst, err := codec.EncodeI(def.Opcode, 0, def.Funct3, 0, 0)
		return uint32(inst), wrapRange(err, line)

	case "EBREAK":
		inst, err := codec.EncodeI(def.Opcode, 0, def.Funct3, 0, 1)
		return uint32(inst), wrapRange(err, line)

	default:
		return 0, &Error{Kind: UnknownMnemonic, Line: line, Message: fmt.Sprintf("unknown mnemonic %q", name)}
	}
}

func wrapRange(err error, line int) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: BadImmediate, Line: line, Message: err.Error()}
}
