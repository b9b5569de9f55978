package api

import (
	"fmt"
	"net/http"
)

// defaultMaxRunSteps bounds POST /sessions/{id}/run when the caller doesn't
// specify maxSteps, so a runaway or infinite-loop program can't tie up the
// server indefinitely.
const defaultMaxRunSteps = 1_000_000

// handleCreateSession handles POST /sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.sessions.CreateSession(req.Source)
	if err != nil {
		response := SessionCreateResponse{Errors: []string{err.Error()}}
		writeJSON(w, http.StatusBadRequest, response)
		return
	}

	debugLog("session %s: created", session.ID)

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// handleListSessions handles GET /sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.ListSessions()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

// handleDestroySession handles DELETE /sessions/{id}
func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "session destroyed"})
}

// handleGetState handles GET /sessions/{id} and GET /sessions/{id}/state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	writeJSON(w, http.StatusOK, ToStateResponse(sessionID, session.Emu))
}

// handleClock handles POST /sessions/{id}/clock: a single clock cycle
func (s *Server) handleClock(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	session.mu.Lock()
	next := session.Emu.Step()
	session.mu.Unlock()

	if next.Signal.Halting() {
		s.broadcaster.BroadcastExecutionEvent(sessionID, "halted", map[string]interface{}{
			"signal": next.Signal.String(),
			"pc":     next.PCIf,
		})
	}
	s.broadcaster.BroadcastState(sessionID, map[string]interface{}{
		"pc":     next.PCIf,
		"signal": next.Signal.String(),
	})

	writeJSON(w, http.StatusOK, ToStateResponse(sessionID, session.Emu))
}

// handleRun handles POST /sessions/{id}/run: step until halt or a ceiling
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req RunRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxRunSteps
	}

	session.mu.Lock()
	steps := session.Emu.Run(maxSteps)
	final := session.Emu.State()
	session.mu.Unlock()

	debugLog("session %s: run completed after %d steps, signal=%s", sessionID, steps, final.Signal)

	s.broadcaster.BroadcastExecutionEvent(sessionID, "run_complete", map[string]interface{}{
		"steps":  steps,
		"signal": final.Signal.String(),
		"pc":     final.PCIf,
	})

	writeJSON(w, http.StatusOK, RunResponse{
		Steps:  steps,
		Halted: final.Signal.Halting(),
		Signal: final.Signal.String(),
		State:  ToStateResponse(sessionID, session.Emu),
	})
}

// handleGetMemory handles GET /sessions/{id}/memory?address=..&length=..
func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var addr, length uint32
	if _, err := fmt.Sscanf(r.URL.Query().Get("address"), "0x%x", &addr); err != nil {
		if _, err := fmt.Sscanf(r.URL.Query().Get("address"), "%d", &addr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid or missing address")
			return
		}
	}
	if _, err := fmt.Sscanf(r.URL.Query().Get("length"), "%d", &length); err != nil || length == 0 {
		writeError(w, http.StatusBadRequest, "invalid or missing length")
		return
	}
	const maxMemoryWindow = 65536
	if length > maxMemoryWindow {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("length exceeds maximum of %d bytes", maxMemoryWindow))
		return
	}

	session.mu.Lock()
	data := make([]byte, length)
	for i := uint32(0); i < length; i++ {
		b, _ := session.Emu.ReadByte(addr + i)
		data[i] = b
	}
	session.mu.Unlock()

	writeJSON(w, http.StatusOK, MemoryResponse{Address: addr, Data: data})
}
