package server

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Evaluate: happy paths
// ---------------------------------------------------------------------------

func TestEvaluate_Arithmetic(t *testing.T) {
	resp := evalIn(t, "", "3 + 4")
	if !resp.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Error)
	}
	if resp.Result != "7" {
		t.Errorf("Result = %q, want %q", resp.Result, "7")
	}
	if resp.ResultType != "Number" {
		t.Errorf("ResultType = %q, want %q", resp.ResultType, "Number")
	}
}

func TestEvaluate_ResultTypes(t *testing.T) {
	tests := []struct {
		source   string
		result   string
		typeName string
	}{
		{"\"hello\"", "hello", "String"},
		{"true", "true", "Boolean"},
		{"null", "null", "Null"},
		{"[1, 2]", "[1, 2]", "List"},
		{"var x = 1", "null", "Null"},
	}
	for _, tc := range tests {
		resp := evalIn(t, "", tc.source)
		if !resp.Success {
			t.Errorf("Evaluate(%q) failed: %s", tc.source, resp.Error)
			continue
		}
		if resp.Result != tc.result || resp.ResultType != tc.typeName {
			t.Errorf("Evaluate(%q) = %q (%s), want %q (%s)",
				tc.source, resp.Result, resp.ResultType, tc.result, tc.typeName)
		}
	}
}

func TestEvaluate_CapturesOutput(t *testing.T) {
	resp := evalIn(t, "", "print(\"hello\")\nprint(1 + 1)")
	if !resp.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Error)
	}
	if resp.Output != "hello\n2\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "hello\n2\n")
	}
}

func TestEvaluate_ScratchRuntimesAreIndependent(t *testing.T) {
	if resp := evalIn(t, "", "var scratch = 1"); !resp.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Error)
	}
	resp := evalIn(t, "", "scratch")
	if resp.Success {
		t.Fatal("a global from another sessionless evaluation should be undefined")
	}
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Kind != "NameError" {
		t.Errorf("Diagnostics = %+v, want one NameError", resp.Diagnostics)
	}
}

// ---------------------------------------------------------------------------
// Evaluate: error paths
// ---------------------------------------------------------------------------

func TestEvaluate_EmptySource(t *testing.T) {
	_, err := newTestEvalService().Evaluate(bg(), connectReq(&EvaluateRequest{Source: ""}))
	expectCode(t, err, connect.CodeInvalidArgument)
}

func TestEvaluate_SyntaxError(t *testing.T) {
	resp := evalIn(t, "", "var = 1")
	// Compile errors come back as Success=false, not as Connect errors
	if resp.Success {
		t.Fatal("Evaluate should not succeed with invalid syntax")
	}
	if resp.Error == "" {
		t.Error("Error should describe the syntax error")
	}
	if len(resp.Diagnostics) == 0 || resp.Diagnostics[0].Kind != "SyntaxError" {
		t.Fatalf("Diagnostics = %+v, want a SyntaxError", resp.Diagnostics)
	}
	if resp.Diagnostics[0].Line != 1 {
		t.Errorf("Line = %d, want 1", resp.Diagnostics[0].Line)
	}
}

func TestEvaluate_ResolveError(t *testing.T) {
	resp := evalIn(t, "", "print(this)")
	if resp.Success {
		t.Fatal("Evaluate should reject 'this' outside a method")
	}
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Kind != "ResolveError" {
		t.Errorf("Diagnostics = %+v, want one ResolveError", resp.Diagnostics)
	}
}

func TestEvaluate_RuntimeErrorKeepsOutput(t *testing.T) {
	resp := evalIn(t, "", "print(\"before\")\nprint(missing)")
	if resp.Success {
		t.Fatal("Evaluate should fail on an undefined variable")
	}
	if resp.Output != "before\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "before\n")
	}
	if len(resp.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %+v, want one entry", resp.Diagnostics)
	}
	d := resp.Diagnostics[0]
	if d.Kind != "NameError" || d.Line != 2 || d.Column != 7 {
		t.Errorf("Diagnostic = %+v, want NameError at 2:7", d)
	}
	if !containsAll(resp.Error, "NameError", "missing") {
		t.Errorf("Error = %q, want the kind and the name", resp.Error)
	}
}

func TestEvaluate_UnknownSession(t *testing.T) {
	_, err := newTestEvalService().Evaluate(bg(), connectReq(&EvaluateRequest{
		SessionID: "no-such-session",
		Source:    "1",
	}))
	expectCode(t, err, connect.CodeNotFound)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestEvaluate_SessionKeepsGlobals(t *testing.T) {
	session := newTestSession(t)

	if resp := evalIn(t, session.ID, "var x = 40\nfunc add2(n) { return n + 2 }"); !resp.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Error)
	}
	resp := evalIn(t, session.ID, "add2(x)")
	if !resp.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Error)
	}
	if resp.Result != "42" {
		t.Errorf("Result = %q, want %q", resp.Result, "42")
	}
}

func TestEvaluate_SessionSurvivesErrors(t *testing.T) {
	session := newTestSession(t)

	evalIn(t, session.ID, "var y = 1")
	if resp := evalIn(t, session.ID, "y.nope()"); resp.Success {
		t.Fatal("calling a missing method should fail")
	}
	resp := evalIn(t, session.ID, "y + 1")
	if !resp.Success || resp.Result != "2" {
		t.Errorf("Evaluate after error = %+v, want success with 2", resp)
	}
}

func TestCreateSession_ReturnsID(t *testing.T) {
	svc := newTestEvalService()

	resp, err := svc.CreateSession(bg(), connectReq(&CreateSessionRequest{Name: "scratchpad"}))
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	t.Cleanup(func() { testSessions.Destroy(resp.Msg.ID) })

	if resp.Msg.ID == "" {
		t.Error("CreateSession should return an ID")
	}
	if resp.Msg.Name != "scratchpad" {
		t.Errorf("Name = %q, want %q", resp.Msg.Name, "scratchpad")
	}
	if _, ok := testSessions.Get(resp.Msg.ID); !ok {
		t.Error("created session should be in the store")
	}
}

func TestDestroySession(t *testing.T) {
	svc := newTestEvalService()
	session := testSessions.Create("doomed")

	if _, err := svc.DestroySession(bg(), connectReq(&DestroySessionRequest{ID: session.ID})); err != nil {
		t.Fatalf("DestroySession returned error: %v", err)
	}
	_, err := svc.DestroySession(bg(), connectReq(&DestroySessionRequest{ID: session.ID}))
	expectCode(t, err, connect.CodeNotFound)

	_, err = svc.Evaluate(bg(), connectReq(&EvaluateRequest{SessionID: session.ID, Source: "1"}))
	expectCode(t, err, connect.CodeNotFound)
}

func TestDestroySession_EmptyID(t *testing.T) {
	_, err := newTestEvalService().DestroySession(bg(), connectReq(&DestroySessionRequest{}))
	expectCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// CheckSyntax
// ---------------------------------------------------------------------------

func TestCheckSyntax_ValidSource(t *testing.T) {
	resp, err := newTestEvalService().CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{
		Source: "class A {\n  m() { return this }\n}\nprint(A().m())",
	}))
	if err != nil {
		t.Fatalf("CheckSyntax returned error: %v", err)
	}
	if !resp.Msg.Valid {
		t.Errorf("CheckSyntax should accept valid source, got %+v", resp.Msg.Diagnostics)
	}
}

func TestCheckSyntax_InvalidSource(t *testing.T) {
	resp, err := newTestEvalService().CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{
		Source: "print(1)\nvar = 2",
	}))
	if err != nil {
		t.Fatalf("CheckSyntax returned error: %v", err)
	}
	if resp.Msg.Valid {
		t.Fatal("CheckSyntax should reject invalid source")
	}
	if len(resp.Msg.Diagnostics) == 0 || resp.Msg.Diagnostics[0].Line != 2 {
		t.Errorf("Diagnostics = %+v, want an error on line 2", resp.Msg.Diagnostics)
	}
}

func TestCheckSyntax_DoesNotExecute(t *testing.T) {
	resp, err := newTestEvalService().CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{
		Source: "print(undefinedAtRuntime)",
	}))
	if err != nil {
		t.Fatalf("CheckSyntax returned error: %v", err)
	}
	if !resp.Msg.Valid {
		t.Errorf("undefined globals are a runtime error, got %+v", resp.Msg.Diagnostics)
	}
}

func TestCheckSyntax_EmptySource(t *testing.T) {
	_, err := newTestEvalService().CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{}))
	expectCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// Evaluate: cancellation
// ---------------------------------------------------------------------------

func TestEvaluate_DeadlineStopsRunawayLoop(t *testing.T) {
	session := newTestSession(t)
	ctx, cancel := context.WithTimeout(bg(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestEvalService().Evaluate(ctx, connectReq(&EvaluateRequest{
		SessionID: session.ID,
		Source:    "while (true) {}",
	}))
	expectCode(t, err, connect.CodeDeadlineExceeded)

	// The session's worker is free again.
	resp := evalIn(t, session.ID, "1 + 1")
	if !resp.Success || resp.Result != "2" {
		t.Errorf("Evaluate after deadline = %+v, want success with 2", resp)
	}
}

func TestEvaluate_CanceledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(bg())
	cancel()

	_, err := newTestEvalService().Evaluate(ctx, connectReq(&EvaluateRequest{
		Source: "print(1)",
	}))
	expectCode(t, err, connect.CodeCanceled)
}
