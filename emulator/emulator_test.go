package emulator_test

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

func mustSession(t *testing.T, src string) *emulator.Session {
	t.Helper()
	sess, err := emulator.NewSession(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return sess
}

func TestAddiZeroRegisterStaysZero(t *testing.T) {
	sess := mustSession(t, "addi x0, x0, 5\n")
	sess.Step()
	if got := sess.Register(0); got != 0 {
		t.Fatalf("x0 = %d, want 0", got)
	}
	if got := sess.PC(); got != 4 {
		t.Fatalf("pc = %d, want 4", got)
	}
}

func TestLuiAuipcComposeUpperImmediate(t *testing.T) {
	sess := mustSession(t, "lui x5, 0x10\nauipc x6, 0x10\n")
	sess.Step()
	if got := sess.Register(5); got != 0x10000 {
		t.Fatalf("x5 = 0x%x, want 0x10000", got)
	}
	sess.Step()
	if got := sess.Register(6); got != 0x10000+4 {
		t.Fatalf("x6 = 0x%x, want 0x%x", got, 0x10000+4)
	}
}

func TestBackwardJalLoops(t *testing.T) {
	src := `
loop:
addi x1, x1, 1
jal x0, loop
`
	sess := mustSession(t, src)
	sess.Step() // addi
	pcAfterAddi := sess.PC()
	sess.Step() // jal back to loop
	if sess.PC() != 0 {
		t.Fatalf("pc after backward jal = %d, want 0", sess.PC())
	}
	if got := sess.Register(1); got != 1 {
		t.Fatalf("x1 = %d, want 1", got)
	}
	_ = pcAfterAddi
}

func TestBranchNotTakenThenTaken(t *testing.T) {
	src := `
addi x1, x0, 1
addi x2, x0, 1
beq x1, x0, target
addi x5, x0, 7
beq x1, x2, target
addi x3, x0, 99
target:
addi x4, x0, 1
`
	sess := mustSession(t, src)
	sess.Run(10)
	if got := sess.Register(5); got != 7 {
		t.Fatalf("x5 = %d, want 7 (first branch should have fallen through)", got)
	}
	if got := sess.Register(3); got != 0 {
		t.Fatalf("x3 = %d, want 0 (branch should have been taken)", got)
	}
	if got := sess.Register(4); got != 1 {
		t.Fatalf("x4 = %d, want 1", got)
	}
}

func TestStoreThenLoadRoundTrips(t *testing.T) {
	src := `
.data
buf:
.word 0
.text
addi x1, x0, 42
sw x1, 0(x0)
lw x2, 0(x0)
`
	sess := mustSession(t, src)
	sess.Run(3)
	if got := sess.Register(2); got != 42 {
		t.Fatalf("x2 = %d, want 42", got)
	}
}

func TestMisalignedJalTargetSignalsWithoutHalting(t *testing.T) {
	// jal to an address that is not a multiple of 4: assembled manually
	// via a label placed on an odd word boundary is rejected at assembly
	// time, so this exercises the runtime path with a computed JALR target
	// instead.
	src := `
addi x1, x0, 2
jalr x5, x1, 0
addi x6, x0, 7
`
	sess := mustSession(t, src)
	sess.Step()
	next := sess.Step()
	if next.Signal != emulator.SignalMisaligned {
		t.Fatalf("signal = %v, want Misaligned", next.Signal)
	}
	if next.Signal.Halting() {
		t.Fatalf("Misaligned must not halt")
	}
	// pc_if still advances by the default +4 since the jump did not commit.
	if next.PCIf != 8 {
		t.Fatalf("pc_if = %d, want 8", next.PCIf)
	}
}

func TestBltuTreatsOperandsAsUnsignedAndNeverWritesRd(t *testing.T) {
	src := `
addi x1, x0, -1
addi x2, x0, 1
bltu x2, x1, target
addi x5, x0, 111
target:
`
	sess := mustSession(t, src)
	sess.Run(10)
	if got := sess.Register(5); got != 0 {
		t.Fatalf("x5 = %d, want 0 (bltu must not write rd and must treat -1 as huge unsigned)", got)
	}
}

func TestEcallSignalsAndHalts(t *testing.T) {
	sess := mustSession(t, "ecall\n")
	sess.Step()
	if sess.State().Signal != emulator.SignalEnvironmentCall {
		t.Fatalf("signal = %v, want EnvironmentCall", sess.State().Signal)
	}
	if !sess.State().Signal.Halting() {
		t.Fatalf("EnvironmentCall must halt")
	}
}

func TestEbreakAssertsDebugRequest(t *testing.T) {
	sess := mustSession(t, "ebreak\n")
	sess.Step()
	if !sess.State().Pipeline.DebugReqI {
		t.Fatalf("DebugReqI not asserted on EBREAK")
	}
	if sess.State().Signal != emulator.SignalBreakpoint {
		t.Fatalf("signal = %v, want Breakpoint", sess.State().Signal)
	}
}

func TestAndUsesBitwiseAndNotOr(t *testing.T) {
	sess := mustSession(t, "addi x1, x0, 12\naddi x2, x0, 10\nand x3, x1, x2\n")
	sess.Run(3)
	if got := sess.Register(3); got != (12 & 10) {
		t.Fatalf("x3 = %d, want %d", got, 12&10)
	}
}

func TestSrliShiftsRightLogically(t *testing.T) {
	sess := mustSession(t, "addi x1, x0, -8\nsrli x2, x1, 1\n")
	sess.Run(2)
	want := uint32(0xFFFFFFF8) >> 1 // -8 as a 32-bit word, shifted in zeros
	if got := sess.Register(2); got != want {
		t.Fatalf("x2 = 0x%x, want 0x%x", got, want)
	}
}

func TestSraiShiftsArithmetically(t *testing.T) {
	sess := mustSession(t, "addi x1, x0, -8\nsrai x2, x1, 1\n")
	sess.Run(2)
	if got := int32(sess.Register(2)); got != -4 {
		t.Fatalf("x2 = %d, want -4", got)
	}
}

func TestLoadFromUnbackedAddressSignalsLoadError(t *testing.T) {
	sess := mustSession(t, "lw x1, 0(x0)\n")
	next := sess.Step()
	if next.Signal != emulator.SignalLoadError {
		t.Fatalf("signal = %v, want LoadError", next.Signal)
	}
}

func TestHistoryStepBack(t *testing.T) {
	sess := mustSession(t, "addi x1, x0, 1\naddi x1, x1, 1\n")
	sess.Step()
	sess.Step()
	if got := sess.Register(1); got != 2 {
		t.Fatalf("x1 = %d, want 2", got)
	}
	prev, ok := sess.StepBack()
	if !ok {
		t.Fatalf("StepBack reported no history")
	}
	if got := prev.X[1]; got != 1 {
		t.Fatalf("after StepBack x1 = %d, want 1", got)
	}
}
