// Package image holds the assembled program image: byte-addressed
// instruction and data memory, label tables, and the bidirectional
// instruction-address/source-line map.
package image

import "sort"

// SourceMap is two mutually consistent mappings between instruction
// addresses and source line numbers.
type SourceMap struct {
	addrToLine map[uint32]int
	lineToAddr map[int]uint32
}

func newSourceMap() *SourceMap {
	return &SourceMap{
		addrToLine: make(map[uint32]int),
		lineToAddr: make(map[int]uint32),
	}
}

func (m *SourceMap) set(addr uint32, line int) {
	m.addrToLine[addr] = line
	m.lineToAddr[line] = addr
}

// LineFor returns the source line recorded for an instruction address.
func (m *SourceMap) LineFor(addr uint32) (int, bool) {
	line, ok := m.addrToLine[addr]
	return line, ok
}

// AddressFor returns the instruction address recorded for a source line.
func (m *SourceMap) AddressFor(line int) (uint32, bool) {
	addr, ok := m.lineToAddr[line]
	return addr, ok
}

// Addresses returns every instruction address present in the map.
func (m *SourceMap) Addresses() []uint32 {
	out := make([]uint32, 0, len(m.addrToLine))
	for a := range m.addrToLine {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Program is the append-only (within one assembly pass) output of the
// assembler: instruction memory, data memory, label tables, and the
// source map.
type Program struct {
	InstructionMemory map[uint32]byte
	DataMemory        map[uint32]byte
	Labels            map[string]uint32
	DataLabels        map[string]uint32
	SourceMap         *SourceMap
}

// New returns an empty program image.
func New() *Program {
	return &Program{
		InstructionMemory: make(map[uint32]byte),
		DataMemory:        make(map[uint32]byte),
		Labels:            make(map[string]uint32),
		DataLabels:        make(map[string]uint32),
		SourceMap:         newSourceMap(),
	}
}

// AddLabel binds name to address in the text or data label table. A name
// already bound in either table -- including the other one -- is a
// DuplicateLabelError.
func (p *Program) AddLabel(name string, address uint32, isData bool) error {
	if _, exists := p.Labels[name]; exists {
		return &DuplicateLabelError{Name: name}
	}
	if _, exists := p.DataLabels[name]; exists {
		return &DuplicateLabelError{Name: name}
	}
	if isData {
		p.DataLabels[name] = address
	} else {
		p.Labels[name] = address
	}
	return nil
}

// AddInstruction writes the four bytes of word little-endian at address
// and records sourceLine under address in both directions of the source
// map.
func (p *Program) AddInstruction(address uint32, word uint32, sourceLine int) {
	p.InstructionMemory[address] = byte(word)
	p.InstructionMemory[address+1] = byte(word >> 8)
	p.InstructionMemory[address+2] = byte(word >> 16)
	p.InstructionMemory[address+3] = byte(word >> 24)
	p.SourceMap.set(address, sourceLine)
}

// AddData writes data sequentially into data memory starting at address.
func (p *Program) AddData(address uint32, data []byte) {
	for i, b := range data {
		p.DataMemory[address+uint32(i)] = b
	}
}

// TextSectionStart returns the smallest instruction address recorded in
// the source map, or 0 if no instructions have been emitted.
func (p *Program) TextSectionStart() uint32 {
	addrs := p.SourceMap.Addresses()
	if len(addrs) == 0 {
		return 0
	}
	return addrs[0]
}

// DataSectionStart returns the smallest data-memory address, or 0 if no
// data has been emitted.
func (p *Program) DataSectionStart() uint32 {
	if len(p.DataMemory) == 0 {
		return 0
	}
	min := ^uint32(0)
	for a := range p.DataMemory {
		if a < min {
			min = a
		}
	}
	return min
}

// ReadInstructionWord reassembles the little-endian 32-bit word at
// address; ok is false if any of the four bytes is missing.
func (p *Program) ReadInstructionWord(address uint32) (word uint32, ok bool) {
	var b [4]byte
	for i := range b {
		v, present := p.InstructionMemory[address+uint32(i)]
		if !present {
			return 0, false
		}
		b[i] = v
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}
