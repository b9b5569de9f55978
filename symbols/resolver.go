// Package symbols resolves addresses to the labels an assembled program
// defined for them, for use in trace output and the debugger.
package symbols

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/riscv32-edu/image"
)

// Resolver provides address-to-label lookup. It maintains both forward
// (name->address) and reverse (address->name) mappings and can resolve an
// address to the nearest preceding label with an offset.
type Resolver struct {
	symbols         map[string]uint32
	addressToSymbol map[uint32]string
	sortedAddresses []uint32
}

// New builds a Resolver from a label table (name -> address).
func New(table map[string]uint32) *Resolver {
	if table == nil {
		table = make(map[string]uint32)
	}

	addressToSymbol := make(map[uint32]string, len(table))
	for name, addr := range table {
		addressToSymbol[addr] = name
	}

	sortedAddresses := make([]uint32, 0, len(addressToSymbol))
	for addr := range addressToSymbol {
		sortedAddresses = append(sortedAddresses, addr)
	}
	sort.Slice(sortedAddresses, func(i, j int) bool {
		return sortedAddresses[i] < sortedAddresses[j]
	})

	return &Resolver{
		symbols:         table,
		addressToSymbol: addressToSymbol,
		sortedAddresses: sortedAddresses,
	}
}

// FromProgram builds a Resolver covering both a program's text and data
// labels, so a trace can annotate both code and data addresses uniformly.
func FromProgram(prog *image.Program) *Resolver {
	merged := make(map[string]uint32, len(prog.Labels)+len(prog.DataLabels))
	for name, addr := range prog.Labels {
		merged[name] = addr
	}
	for name, addr := range prog.DataLabels {
		merged[name] = addr
	}
	return New(merged)
}

// LookupAddress returns the exact label at address, or "" if none.
func (r *Resolver) LookupAddress(address uint32) string {
	return r.addressToSymbol[address]
}

// LookupSymbol returns the address bound to name.
func (r *Resolver) LookupSymbol(name string) (uint32, bool) {
	addr, ok := r.symbols[name]
	return addr, ok
}

// Resolve finds the nearest label at or before address.
//
//   - address == a label's address -> (label, 0, true)
//   - address between two labels -> (nearest preceding label, offset, true)
//   - address before every label -> ("", 0, false)
func (r *Resolver) Resolve(address uint32) (name string, offset uint32, found bool) {
	if n, ok := r.addressToSymbol[address]; ok {
		return n, 0, true
	}
	if len(r.sortedAddresses) == 0 {
		return "", 0, false
	}
	idx := sort.Search(len(r.sortedAddresses), func(i int) bool {
		return r.sortedAddresses[i] > address
	})
	if idx == 0 {
		return "", 0, false
	}
	nearest := r.sortedAddresses[idx-1]
	return r.addressToSymbol[nearest], address - nearest, true
}

// Format renders address as "label+offset (0x00000000)", or just the hex
// address if no label applies.
func (r *Resolver) Format(address uint32) string {
	name, offset, found := r.Resolve(address)
	if !found {
		return fmt.Sprintf("0x%08x", address)
	}
	if offset == 0 {
		return fmt.Sprintf("%s (0x%08x)", name, address)
	}
	return fmt.Sprintf("%s+%d (0x%08x)", name, offset, address)
}

// FormatCompact renders address as "label+offset" without the hex suffix.
func (r *Resolver) FormatCompact(address uint32) string {
	name, offset, found := r.Resolve(address)
	if !found {
		return fmt.Sprintf("0x%08x", address)
	}
	if offset == 0 {
		return name
	}
	return fmt.Sprintf("%s+%d", name, offset)
}

// HasSymbols reports whether any label was loaded.
func (r *Resolver) HasSymbols() bool {
	return len(r.symbols) > 0
}

// Count returns the number of labels known to the resolver.
func (r *Resolver) Count() int {
	return len(r.symbols)
}

// All returns a copy of the name->address table.
func (r *Resolver) All() map[string]uint32 {
	out := make(map[string]uint32, len(r.symbols))
	for name, addr := range r.symbols {
		out[name] = addr
	}
	return out
}
