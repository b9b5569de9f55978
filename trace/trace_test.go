package trace_test

import (
	"bytes"
	"testing"

	"github.com/lookbusy1344/riscv32-edu/emulator"
	"github.com/lookbusy1344/riscv32-edu/trace"
)

func TestExecutionTraceRecordsOnlyChangedRegisters(t *testing.T) {
	var buf bytes.Buffer
	et := trace.NewExecutionTrace(&buf)
	et.Start()

	var s emulator.State
	s.X[1] = 5
	et.Record(s)
	s.X[1] = 5
	s.X[2] = 9
	et.Record(s)

	entries := et.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if _, ok := entries[1].RegisterChanges[1]; ok {
		t.Fatalf("x1 should not be reported as changed on the second entry")
	}
	if v, ok := entries[1].RegisterChanges[2]; !ok || v != 9 {
		t.Fatalf("x2 change missing or wrong: %v %v", v, ok)
	}
}

func TestMemoryTraceSkipsNonLsuSteps(t *testing.T) {
	var buf bytes.Buffer
	mt := trace.NewMemoryTrace(&buf)
	mt.Start()

	var s emulator.State
	mt.Record(s)
	if len(mt.Entries()) != 0 {
		t.Fatalf("expected no entries for a non-LSU step")
	}

	s.Pipeline.LsuReq = true
	s.Pipeline.DataWeO = true
	s.Pipeline.DataAddrO = 0x10000
	s.Pipeline.LsuWidth = 4
	s.Pipeline.DataWdataO = 42
	mt.Record(s)
	if len(mt.Entries()) != 1 {
		t.Fatalf("expected one entry for a store")
	}
}

func TestCodeCoveragePercentAndUnexecuted(t *testing.T) {
	cov := trace.NewCodeCoverage(nil)
	cov.SetCodeRange(0, 16)
	cov.Record(0, 1)
	cov.Record(4, 2)

	if got := cov.Percent(); got != 50.0 {
		t.Fatalf("Percent = %v, want 50", got)
	}
	unexec := cov.UnexecutedAddresses()
	if len(unexec) != 2 || unexec[0] != 8 || unexec[1] != 12 {
		t.Fatalf("UnexecutedAddresses = %v", unexec)
	}
}

func TestPipelineSignalTraceOnlyRecordsTransitions(t *testing.T) {
	var buf bytes.Buffer
	pt := trace.NewPipelineSignalTrace(&buf)
	pt.Start()

	pt.Record(emulator.State{Signal: emulator.SignalNone})
	pt.Record(emulator.State{Signal: emulator.SignalNone})
	pt.Record(emulator.State{Signal: emulator.SignalMisaligned})

	entries := pt.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].New != emulator.SignalMisaligned {
		t.Fatalf("entries[0].New = %v", entries[0].New)
	}
	if pt.Count(emulator.SignalNone) != 2 {
		t.Fatalf("Count(None) = %d, want 2", pt.Count(emulator.SignalNone))
	}
}

func TestCallTraceTracksCallAndReturn(t *testing.T) {
	ct := trace.NewCallTrace()

	before := emulator.State{PCIf: 0x100}
	after := before
	after.X[1] = 0x104
	after.PCIf = 0x200
	after.Pipeline.PCSet = true
	after.Pipeline.PCMux = emulator.PCMuxJump
	ct.Observe(before, after)

	if ct.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1 after call", ct.Depth())
	}

	before2 := after
	after2 := before2
	after2.PCIf = 0x104
	after2.Pipeline.PCSet = true
	after2.Pipeline.PCMux = emulator.PCMuxJump
	ct.Observe(before2, after2)

	if ct.Depth() != 0 {
		t.Fatalf("Depth = %d, want 0 after return", ct.Depth())
	}
}

func TestStatisticsAggregatesMemoryTraffic(t *testing.T) {
	stats := trace.NewStatistics()
	stats.Start()

	before := emulator.State{}
	after := before
	after.Pipeline.LsuReq = true
	after.Pipeline.DataWeO = true
	after.Pipeline.LsuWidth = 4
	stats.Record(before, after)

	if stats.MemoryWrites != 1 || stats.BytesWritten != 4 {
		t.Fatalf("MemoryWrites=%d BytesWritten=%d", stats.MemoryWrites, stats.BytesWritten)
	}
	if stats.TotalSteps != 1 {
		t.Fatalf("TotalSteps = %d, want 1", stats.TotalSteps)
	}
}
