package codec_test

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/codec"
	"github.com/lookbusy1344/riscv32-edu/isa"
)

func TestEncodeIRoundTrip(t *testing.T) {
	inst, err := codec.EncodeI(0b0010011, 5, 0, 6, -1)
	if err != nil {
		t.Fatal(err)
	}
	imm, err := inst.Immediate(isa.FormatI)
	if err != nil {
		t.Fatal(err)
	}
	if imm != -1 {
		t.Errorf("got %d, want -1", imm)
	}
	if inst.Rd() != 5 || inst.Rs1() != 6 {
		t.Errorf("rd/rs1 mismatch: rd=%d rs1=%d", inst.Rd(), inst.Rs1())
	}
}

func TestBranchImmediateParity(t *testing.T) {
	for _, d := range []int32{-4096, -2, 0, 2, 4, 4094} {
		inst, err := codec.EncodeB(0b1100011, 0, 1, 2, d)
		if err != nil {
			t.Fatalf("encode(%d): %v", d, err)
		}
		got, err := inst.Immediate(isa.FormatB)
		if err != nil {
			t.Fatal(err)
		}
		if got != d {
			t.Errorf("branch offset %d: round-trip got %d", d, got)
		}
	}
}

func TestJumpImmediateParity(t *testing.T) {
	for _, d := range []int32{-1048576, -2, 0, 2, 1048574} {
		inst, err := codec.EncodeJ(0b1101111, 1, d)
		if err != nil {
			t.Fatalf("encode(%d): %v", d, err)
		}
		got, err := inst.Immediate(isa.FormatJ)
		if err != nil {
			t.Fatal(err)
		}
		if got != d {
			t.Errorf("jump offset %d: round-trip got %d", d, got)
		}
	}
}

func TestEncodeBRejectsOddOffset(t *testing.T) {
	if _, err := codec.EncodeB(0b1100011, 0, 1, 2, 3); err == nil {
		t.Error("expected error for odd branch offset")
	}
}

func TestEncodeURoundTrip(t *testing.T) {
	inst, err := codec.EncodeU(0b0110111, 1, 0x12345)
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.ImmediateU(); got != 0x12345000 {
		t.Errorf("got 0x%X, want 0x12345000", got)
	}
}

func TestEncodeSRoundTrip(t *testing.T) {
	inst, err := codec.EncodeS(0b0100011, 0b010, 1, 2, -4)
	if err != nil {
		t.Fatal(err)
	}
	imm, err := inst.Immediate(isa.FormatS)
	if err != nil {
		t.Fatal(err)
	}
	if imm != -4 {
		t.Errorf("got %d, want -4", imm)
	}
}

func TestImmediateWrongFormatErrors(t *testing.T) {
	inst, _ := codec.EncodeI(0b0010011, 5, 0, 6, 1)
	if _, err := inst.Immediate(isa.FormatU); err == nil {
		t.Error("expected ImmediateFormatError for U on an I-format instruction")
	}
}

func TestFieldRangeRejected(t *testing.T) {
	if _, err := codec.EncodeI(0b0010011, 5, 0, 6, 4096); err == nil {
		t.Error("expected range error for imm=4096")
	}
	if _, err := codec.EncodeR(0b0110011, 32, 0, 1, 2, 0); err == nil {
		t.Error("expected range error for rd=32")
	}
}
