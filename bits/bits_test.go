package bits_test

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/bits"
)

func TestExtract(t *testing.T) {
	v := uint32(0xABCD1234)
	if got := bits.Extract(v, 0, 8); got != 0x34 {
		t.Errorf("low byte: got 0x%X, want 0x34", got)
	}
	if got := bits.Extract(v, 24, 8); got != 0xAB {
		t.Errorf("top byte: got 0x%X, want 0xAB", got)
	}
}

func TestMask(t *testing.T) {
	if got := bits.Mask(0, 4); got != 0xF {
		t.Errorf("got 0x%X, want 0xF", got)
	}
	if got := bits.Mask(4, 4); got != 0xF0 {
		t.Errorf("got 0x%X, want 0xF0", got)
	}
	if got := bits.Mask(0, 32); got != 0xFFFFFFFF {
		t.Errorf("got 0x%X, want 0xFFFFFFFF", got)
	}
}

func TestRange(t *testing.T) {
	v := uint32(0b1111_0000_1010)
	if got := bits.Range(v, 11, 8); got != 0b1111 {
		t.Errorf("got 0b%b, want 0b1111", got)
	}
}

func TestSignExtend(t *testing.T) {
	if got := bits.SignExtend(0x7FF, 12); got != 2047 {
		t.Errorf("got %d, want 2047", got)
	}
	if got := bits.SignExtend(0x800, 12); got != -2048 {
		t.Errorf("got %d, want -2048", got)
	}
	if got := bits.SignExtend(0xFFF, 12); got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}
