package image_test

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/image"
)

func TestAddInstructionSourceMapInvariant(t *testing.T) {
	p := image.New()
	p.AddInstruction(0x1000, 0x00000013, 1)

	line, ok := p.SourceMap.LineFor(0x1000)
	if !ok || line != 1 {
		t.Fatalf("expected line 1 at 0x1000, got %d ok=%v", line, ok)
	}
	addr, ok := p.SourceMap.AddressFor(1)
	if !ok || addr != 0x1000 {
		t.Fatalf("expected addr 0x1000 for line 1, got 0x%X ok=%v", addr, ok)
	}
	word, ok := p.ReadInstructionWord(0x1000)
	if !ok || word != 0x00000013 {
		t.Fatalf("expected word 0x13, got 0x%X ok=%v", word, ok)
	}
}

func TestDuplicateLabelAcrossNamespaces(t *testing.T) {
	p := image.New()
	if err := p.AddLabel("loop", 0x1000, false); err != nil {
		t.Fatal(err)
	}
	if err := p.AddLabel("loop", 0x2000, true); err == nil {
		t.Error("expected DuplicateLabelError when reusing a text label name for data")
	}
}

func TestSectionStartsDefaultToZero(t *testing.T) {
	p := image.New()
	if got := p.TextSectionStart(); got != 0 {
		t.Errorf("text start: got %d, want 0", got)
	}
	if got := p.DataSectionStart(); got != 0 {
		t.Errorf("data start: got %d, want 0", got)
	}
}

func TestDataSectionStartTracksMinimum(t *testing.T) {
	p := image.New()
	p.AddData(0x20004, []byte{1, 2})
	p.AddData(0x20000, []byte{9})
	if got := p.DataSectionStart(); got != 0x20000 {
		t.Errorf("got 0x%X, want 0x20000", got)
	}
}
