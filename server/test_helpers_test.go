package server

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// One SessionStore is created in TestMain and shared. Tests that define
// globals create their own session so they do not see each other's state.
// ---------------------------------------------------------------------------

var testSessions *SessionStore

func TestMain(m *testing.M) {
	testSessions = NewSessionStore()

	code := m.Run()

	testSessions.Close()
	os.Exit(code)
}

func newTestEvalService() *EvalService {
	return NewEvalService(testSessions)
}

func newTestBrowseService() *BrowseService {
	return NewBrowseService(testSessions)
}

// newTestSession creates a session in the shared store and destroys it
// when the test finishes.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	session := testSessions.Create(t.Name())
	t.Cleanup(func() { testSessions.Destroy(session.ID) })
	return session
}

// evalIn evaluates source in a session and fails the test on a transport
// error.
func evalIn(t *testing.T, sessionID, source string) *EvaluateResponse {
	t.Helper()
	resp, err := newTestEvalService().Evaluate(bg(), connectReq(&EvaluateRequest{
		SessionID: sessionID,
		Source:    source,
	}))
	if err != nil {
		t.Fatalf("Evaluate(%q) returned error: %v", source, err)
	}
	return resp.Msg
}

// ---------------------------------------------------------------------------
// Request builder helpers
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

// expectCode fails unless err is a Connect error with the given code.
func expectCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected *connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != code {
		t.Errorf("expected %v, got %v", code, connectErr.Code())
	}
}

func hasMember(info ClassInfo, name string) (MemberInfo, bool) {
	for _, m := range info.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberInfo{}, false
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
