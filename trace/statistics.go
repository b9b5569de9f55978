package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

// Statistics aggregates run-level counters: per-signal step counts, branch
// outcomes, memory traffic, and a hot-path histogram. Unlike
// ExecutionTrace it never grows without bound relative to MaxEntries --
// every field is an accumulator or small fixed-size map.
type Statistics struct {
	Enabled bool

	TotalSteps         uint64
	ExecutionTime      time.Duration
	SignalCounts       map[emulator.Signal]uint64
	BranchCount        uint64
	BranchTakenCount   uint64
	MemoryReads        uint64
	MemoryWrites       uint64
	BytesRead          uint64
	BytesWritten       uint64
	HotPath            map[uint32]uint64
	collectHotPath     bool
	startTime          time.Time
}

// NewStatistics creates a statistics collector with hot-path tracking on.
func NewStatistics() *Statistics {
	return &Statistics{
		Enabled:        true,
		SignalCounts:   make(map[emulator.Signal]uint64),
		HotPath:        make(map[uint32]uint64),
		collectHotPath: true,
	}
}

// SetCollectHotPath toggles per-address execution-count tracking.
func (s *Statistics) SetCollectHotPath(on bool) {
	s.collectHotPath = on
}

// Start resets every counter and begins timing from now.
func (s *Statistics) Start() {
	s.startTime = time.Now()
	s.TotalSteps = 0
	s.SignalCounts = make(map[emulator.Signal]uint64)
	s.BranchCount = 0
	s.BranchTakenCount = 0
	s.MemoryReads = 0
	s.MemoryWrites = 0
	s.BytesRead = 0
	s.BytesWritten = 0
	s.HotPath = make(map[uint32]uint64)
}

// Record folds one post-step state into the running aggregates.
func (s *Statistics) Record(before, after emulator.State) {
	if !s.Enabled {
		return
	}
	s.TotalSteps++
	s.SignalCounts[after.Signal]++
	if s.collectHotPath {
		s.HotPath[before.PCIf]++
	}

	pd := after.Pipeline
	if pd.LsuReq {
		if pd.DataWeO {
			s.MemoryWrites++
			s.BytesWritten += uint64(pd.LsuWidth)
		} else {
			s.MemoryReads++
			s.BytesRead += uint64(pd.LsuWidth)
		}
	}
	s.ExecutionTime = time.Since(s.startTime)
}

// RecordBranch records a conditional branch's taken/not-taken outcome,
// since that distinction isn't recoverable from Datapath alone.
func (s *Statistics) RecordBranch(taken bool) {
	if !s.Enabled {
		return
	}
	s.BranchCount++
	if taken {
		s.BranchTakenCount++
	}
}

// InstructionsPerSecond derives throughput from TotalSteps and the
// accumulated wall-clock execution time.
func (s *Statistics) InstructionsPerSecond() float64 {
	secs := s.ExecutionTime.Seconds()
	if secs == 0 {
		return 0
	}
	return float64(s.TotalSteps) / secs
}

// HotPathTop returns the n most frequently fetched addresses, most
// frequent first.
func (s *Statistics) HotPathTop(n int) []HotPathEntry {
	entries := make([]HotPathEntry, 0, len(s.HotPath))
	for addr, count := range s.HotPath {
		entries = append(entries, HotPathEntry{Address: addr, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// HotPathEntry is one address in a hot-path ranking.
type HotPathEntry struct {
	Address uint32
	Count   uint64
}

// String renders a short human-readable summary.
func (s *Statistics) String() string {
	return fmt.Sprintf(
		"steps=%d branches=%d/%d taken reads=%d writes=%d ips=%.1f",
		s.TotalSteps, s.BranchTakenCount, s.BranchCount, s.MemoryReads, s.MemoryWrites, s.InstructionsPerSecond())
}

// ExportJSON writes the full statistics snapshot as JSON.
func (s *Statistics) ExportJSON(w io.Writer) error {
	signalCounts := make(map[string]uint64, len(s.SignalCounts))
	for sig, count := range s.SignalCounts {
		signalCounts[sig.String()] = count
	}
	data := map[string]any{
		"total_steps":        s.TotalSteps,
		"execution_time_ns":  s.ExecutionTime.Nanoseconds(),
		"instructions_per_s": s.InstructionsPerSecond(),
		"signal_counts":      signalCounts,
		"branch_count":       s.BranchCount,
		"branch_taken_count": s.BranchTakenCount,
		"memory_reads":       s.MemoryReads,
		"memory_writes":      s.MemoryWrites,
		"bytes_read":         s.BytesRead,
		"bytes_written":      s.BytesWritten,
		"hot_path_top_20":    s.HotPathTop(20),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
