package debugger

import (
	"testing"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

func newWatchTestSession(t *testing.T) *emulator.Session {
	t.Helper()
	sess, err := emulator.NewSession(".text\nnop\n")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return sess
}

func TestWatchpointManager_AddWatchpoint(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.AddWatchpoint("r0", 0, true, 0)

	if wp == nil {
		t.Fatal("AddWatchpoint returned nil")
	}

	if wp.ID != 1 {
		t.Errorf("Expected ID 1, got %d", wp.ID)
	}

	if wp.Expression != "r0" {
		t.Errorf("Expression = %s, want r0", wp.Expression)
	}

	if !wp.IsRegister {
		t.Error("Should be register watchpoint")
	}

	if !wp.Enabled {
		t.Error("Watchpoint should be enabled by default")
	}

	if wp.HitCount != 0 {
		t.Errorf("Initial hit count should be 0, got %d", wp.HitCount)
	}
}

func TestWatchpointManager_AddMultiple(t *testing.T) {
	wm := NewWatchpointManager()

	wp1 := wm.AddWatchpoint("r0", 0, true, 0)
	wp2 := wm.AddWatchpoint("[0x1000]", 0x1000, false, 0)

	if wp1.ID == wp2.ID {
		t.Error("Watchpoint IDs should be unique")
	}

	if len(wm.GetAllWatchpoints()) != 2 {
		t.Errorf("Expected 2 watchpoints, got %d", len(wm.GetAllWatchpoints()))
	}
}

func TestWatchpointManager_DeleteWatchpoint(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.AddWatchpoint("r0", 0, true, 0)

	err := wm.DeleteWatchpoint(wp.ID)
	if err != nil {
		t.Fatalf("DeleteWatchpoint failed: %v", err)
	}

	found := false
	for _, existing := range wm.GetAllWatchpoints() {
		if existing.ID == wp.ID {
			found = true
		}
	}
	if found {
		t.Error("Watchpoint not deleted")
	}

	// Try to delete non-existent watchpoint
	err = wm.DeleteWatchpoint(999)
	if err == nil {
		t.Error("Expected error when deleting non-existent watchpoint")
	}
}

func TestWatchpointManager_CheckWatchpoints_Register(t *testing.T) {
	wm := NewWatchpointManager()
	sess := newWatchTestSession(t)

	// Add register watchpoint (x5/t0; x0 is hardwired to zero and can't be watched)
	wp := wm.AddWatchpoint("t0", 5, true, 5)

	// Initialize watchpoint
	sess.SetRegister(5, 100)
	err := wm.InitializeWatchpoint(wp.ID, sess)
	if err != nil {
		t.Fatalf("InitializeWatchpoint failed: %v", err)
	}

	if wp.LastValue != 100 {
		t.Errorf("LastValue = %d, want 100", wp.LastValue)
	}

	// No change
	triggered, changed := wm.CheckWatchpoints(sess)
	if triggered != nil || changed {
		t.Error("Should not trigger when value hasn't changed")
	}

	// Change value
	sess.SetRegister(5, 200)
	triggered, changed = wm.CheckWatchpoints(sess)
	if triggered == nil || !changed {
		t.Fatal("Should trigger when value changes")
	}

	if triggered.ID != wp.ID {
		t.Errorf("Wrong watchpoint triggered: got %d, want %d", triggered.ID, wp.ID)
	}

	if wp.HitCount != 1 {
		t.Errorf("Hit count = %d, want 1", wp.HitCount)
	}

	if wp.LastValue != 200 {
		t.Errorf("LastValue not updated: got %d, want 200", wp.LastValue)
	}
}

func TestWatchpointManager_CheckWatchpoints_Memory(t *testing.T) {
	wm := NewWatchpointManager()
	sess := newWatchTestSession(t)

	addr := uint32(0x00020000) // Data segment address

	// Add memory watchpoint
	wp := wm.AddWatchpoint("[0x00020000]", addr, false, 0)

	// Initialize watchpoint
	sess.WriteWord(addr, 0x12345678)
	err := wm.InitializeWatchpoint(wp.ID, sess)
	if err != nil {
		t.Fatalf("InitializeWatchpoint failed: %v", err)
	}

	// No change
	triggered, changed := wm.CheckWatchpoints(sess)
	if triggered != nil || changed {
		t.Error("Should not trigger when value hasn't changed")
	}

	// Change value
	sess.WriteWord(addr, 0xABCDEF00)
	triggered, changed = wm.CheckWatchpoints(sess)
	if triggered == nil || !changed {
		t.Fatal("Should trigger when value changes")
	}

	if triggered.ID != wp.ID {
		t.Errorf("Wrong watchpoint triggered: got %d, want %d", triggered.ID, wp.ID)
	}
}

func TestWatchpointManager_GetAllWatchpoints(t *testing.T) {
	wm := NewWatchpointManager()

	wm.AddWatchpoint("r0", 0, true, 0)
	wm.AddWatchpoint("r1", 0, true, 1)
	wm.AddWatchpoint("[0x1000]", 0x1000, false, 0)

	all := wm.GetAllWatchpoints()

	if len(all) != 3 {
		t.Errorf("Expected 3 watchpoints, got %d", len(all))
	}
}

func TestWatchpointManager_Clear(t *testing.T) {
	wm := NewWatchpointManager()

	wm.AddWatchpoint("r0", 0, true, 0)
	wm.AddWatchpoint("r1", 0, true, 1)

	wm.Clear()

	if len(wm.GetAllWatchpoints()) != 0 {
		t.Errorf("Expected 0 watchpoints after clear, got %d", len(wm.GetAllWatchpoints()))
	}
}
