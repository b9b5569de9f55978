package emulator

// Signal is the run-time error taxonomy, surfaced through pipeline state
// rather than as a Go error return: the clock function never aborts, it
// records a Signal and lets the host decide whether to keep stepping.
type Signal int

const (
	SignalNone Signal = iota
	SignalFetchError
	SignalIllegalInstruction
	SignalMisaligned
	SignalLoadError
	SignalStoreError
	SignalEnvironmentCall
	SignalBreakpoint
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "None"
	case SignalFetchError:
		return "FetchError"
	case SignalIllegalInstruction:
		return "IllegalInstruction"
	case SignalMisaligned:
		return "Misaligned"
	case SignalLoadError:
		return "LoadError"
	case SignalStoreError:
		return "StoreError"
	case SignalEnvironmentCall:
		return "EnvironmentCall"
	case SignalBreakpoint:
		return "Breakpoint"
	default:
		return "Unknown"
	}
}

// Halting reports whether a signal should stop the default run-to-break
// loop (an EnvironmentCall, Breakpoint, FetchError or IllegalInstruction).
// LoadError and StoreError are reported but do not halt. Misaligned does not
// halt fetch/decode of subsequent instructions on its own; it reports
// that the most recent PC-affecting instruction did not take effect.
func (s Signal) Halting() bool {
	switch s {
	case SignalFetchError, SignalIllegalInstruction, SignalEnvironmentCall, SignalBreakpoint:
		return true
	default:
		return false
	}
}
