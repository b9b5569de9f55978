package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestServer_CreateSessionAndClock(t *testing.T) {
	s := NewServer(0)

	createBody, _ := json.Marshal(SessionCreateRequest{Source: ".text\naddi x5, x0, 7\nnop\n"})
	req := httptest.NewRequest("POST", "/sessions", bytes.NewReader(createBody))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 201 {
		t.Fatalf("POST /sessions status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created SessionCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	// Step one clock cycle (the addi) and check register state.
	req = httptest.NewRequest("POST", "/sessions/"+created.SessionID+"/clock", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("POST /sessions/{id}/clock status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var state StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state response: %v", err)
	}
	if state.Registers[5] != 7 {
		t.Fatalf("x5 = %d, want 7", state.Registers[5])
	}

	// Delete the session.
	req = httptest.NewRequest("DELETE", "/sessions/"+created.SessionID, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("DELETE /sessions/{id} status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestServer_GetStateUnknownSession(t *testing.T) {
	s := NewServer(0)

	req := httptest.NewRequest("GET", "/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("GET /sessions/{unknown} status = %d, want 404", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	s := NewServer(0)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("GET /health status = %d", rec.Code)
	}
}

func TestServer_RunToHalt(t *testing.T) {
	s := NewServer(0)

	createBody, _ := json.Marshal(SessionCreateRequest{Source: ".text\naddi x5, x0, 1\necall\n"})
	req := httptest.NewRequest("POST", "/sessions", bytes.NewReader(createBody))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var created SessionCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	req = httptest.NewRequest("POST", "/sessions/"+created.SessionID+"/run", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("POST /sessions/{id}/run status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var run RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if !run.Halted {
		t.Fatalf("run.Halted = false, signal = %s", run.Signal)
	}
}
