package isa_test

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/isa"
)

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"addi", "ADDI", "AdDi"} {
		if _, ok := isa.Lookup(name); !ok {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
}

func TestDecodeDistinguishesShiftVariant(t *testing.T) {
	srli, ok := isa.Lookup("SRLI")
	if !ok {
		t.Fatal("SRLI missing from catalog")
	}
	srai, ok := isa.Lookup("SRAI")
	if !ok {
		t.Fatal("SRAI missing from catalog")
	}

	d, ok := isa.Decode(srli.Opcode, srli.Funct3, srli.Funct7)
	if !ok || d.Name != "SRLI" {
		t.Errorf("expected SRLI, got %+v", d)
	}
	d, ok = isa.Decode(srai.Opcode, srai.Funct3, srai.Funct7)
	if !ok || d.Name != "SRAI" {
		t.Errorf("expected SRAI, got %+v", d)
	}
}

func TestDecodeUFormatIgnoresFunct3Funct7(t *testing.T) {
	d, ok := isa.Decode(0b0110111, 0b111, 0b1111111)
	if !ok || d.Name != "LUI" {
		t.Errorf("expected LUI regardless of funct3/funct7, got %+v, ok=%v", d, ok)
	}
}

func TestDecodeUnknownEncoding(t *testing.T) {
	if _, ok := isa.Decode(0b1111111, 0, 0); ok {
		t.Error("expected no match for an unused opcode")
	}
}
