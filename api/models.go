package api

import (
	"time"

	"github.com/lookbusy1344/riscv32-edu/emulator"
)

// SessionCreateRequest represents a request to assemble a program and create
// a session bound to it.
type SessionCreateRequest struct {
	Source string `json:"source"` // Assembly source code
}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	Errors    []string  `json:"errors,omitempty"`
}

// RunRequest represents a request to run until halt or a step ceiling
type RunRequest struct {
	MaxSteps int `json:"maxSteps,omitempty"` // 0 means use the server default
}

// RunResponse reports how a run terminated
type RunResponse struct {
	Steps   int    `json:"steps"`
	Halted  bool   `json:"halted"`
	Signal  string `json:"signal"`
	State   StateResponse `json:"state"`
}

// StateResponse is the full observable state of a session: registers, PC,
// and pipeline signals, mirroring what the debugger's "registers"/"info
// pipeline" commands show.
type StateResponse struct {
	SessionID  string     `json:"sessionId"`
	PC         uint32     `json:"pc"`
	Registers  [32]uint32 `json:"registers"`
	Signal     string     `json:"signal"`
	Pipeline   PipelineState `json:"pipeline"`
}

// PipelineState mirrors emulator.Datapath's exported signals for remote
// observation.
type PipelineState struct {
	InstrReq   bool   `json:"instrReq"`
	InstrAddr  uint32 `json:"instrAddr"`
	PCSet      bool   `json:"pcSet"`
	PCMux      string `json:"pcMux"`
	LsuReq     bool   `json:"lsuReq"`
	LsuWrite   bool   `json:"lsuWrite"`
	LsuAddr    uint32 `json:"lsuAddr,omitempty"`
}

// MemoryRequest represents a request for a window of data memory
type MemoryRequest struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
}

// MemoryResponse represents memory data
type MemoryResponse struct {
	Address uint32 `json:"address"`
	Data    []byte `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ToStateResponse builds a StateResponse from a session's current state.
func ToStateResponse(sessionID string, sess *emulator.Session) StateResponse {
	s := sess.State()

	var regs [32]uint32
	for i := uint32(0); i < 32; i++ {
		regs[i] = s.Register(i)
	}

	pd := s.Pipeline
	return StateResponse{
		SessionID: sessionID,
		PC:        s.PCIf,
		Registers: regs,
		Signal:    s.Signal.String(),
		Pipeline: PipelineState{
			InstrReq:  pd.InstrReqO,
			InstrAddr: pd.InstrAddrO,
			PCSet:     pd.PCSet,
			PCMux:     pd.PCMux.String(),
			LsuReq:    pd.LsuReq,
			LsuWrite:  pd.DataWeO,
			LsuAddr:   pd.DataAddrO,
		},
	}
}
