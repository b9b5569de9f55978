package api

import "testing"

func TestSessionManager_CreateAndGet(t *testing.T) {
	sm := NewSessionManager()

	session, err := sm.CreateSession(".text\nnop\n")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a non-empty session ID")
	}

	got, err := sm.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got != session {
		t.Fatal("GetSession() returned a different session")
	}
}

func TestSessionManager_CreateInvalidSource(t *testing.T) {
	sm := NewSessionManager()

	if _, err := sm.CreateSession("not valid rv32i"); err == nil {
		t.Fatal("expected an assembly error for invalid source")
	}
	if sm.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after a failed assemble", sm.Count())
	}
}

func TestSessionManager_GetMissing(t *testing.T) {
	sm := NewSessionManager()

	if _, err := sm.GetSession("does-not-exist"); err != ErrSessionNotFound {
		t.Fatalf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionManager_Destroy(t *testing.T) {
	sm := NewSessionManager()

	session, err := sm.CreateSession(".text\nnop\n")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := sm.DestroySession(session.ID); err != nil {
		t.Fatalf("DestroySession() error = %v", err)
	}
	if sm.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after destroy", sm.Count())
	}

	if err := sm.DestroySession(session.ID); err != ErrSessionNotFound {
		t.Fatalf("DestroySession() of a missing session error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionManager_ListAndCount(t *testing.T) {
	sm := NewSessionManager()

	if _, err := sm.CreateSession(".text\nnop\n"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.CreateSession(".text\nnop\n"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if sm.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", sm.Count())
	}
	if len(sm.ListSessions()) != 2 {
		t.Fatalf("ListSessions() returned %d IDs, want 2", len(sm.ListSessions()))
	}
}
