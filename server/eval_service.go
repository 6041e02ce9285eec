package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/bluejay/compiler"
	"github.com/chazu/bluejay/vm"
)

// EvalService implements the bluejay.v1.EvalService Connect handlers.
type EvalService struct {
	sessions *SessionStore
	log      commonlog.Logger
}

// NewEvalService creates an EvalService.
func NewEvalService(sessions *SessionStore) *EvalService {
	return &EvalService{
		sessions: sessions,
		log:      commonlog.GetLogger("bluejay.server"),
	}
}

// Evaluate runs source in the named session, or in a throwaway runtime
// when no session is given. Compile and runtime errors are reported in
// the response, not as Connect errors.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	worker, release, err := s.workerFor(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.log.Debugf("evaluate in session %q: %d bytes", req.Msg.SessionID, len(source))
	result, err := worker.DoContext(ctx, func(rt *vm.Runtime) any {
		return evaluate(ctx, rt, worker, source)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.log.Noticef("evaluate in session %q interrupted: %v", req.Msg.SessionID, ctxErr)
		return nil, contextError(ctxErr)
	}
	if err != nil {
		return connect.NewResponse(&EvaluateResponse{
			Success: false,
			Error:   err.Error(),
		}), nil
	}

	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// CheckSyntax scans, parses and resolves source without executing it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	diags := checkSource(source)
	return connect.NewResponse(&CheckSyntaxResponse{
		Valid:       len(diags) == 0,
		Diagnostics: toDiagnostics(source, diags),
	}), nil
}

// CreateSession starts a session with its own runtime.
func (s *EvalService) CreateSession(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[CreateSessionResponse], error) {
	session := s.sessions.Create(req.Msg.Name)
	s.log.Infof("session %s created (%q)", session.ID, session.Name)
	return connect.NewResponse(&CreateSessionResponse{
		ID:   session.ID,
		Name: session.Name,
	}), nil
}

// DestroySession stops a session and discards its globals.
func (s *EvalService) DestroySession(
	ctx context.Context,
	req *connect.Request[DestroySessionRequest],
) (*connect.Response[DestroySessionResponse], error) {
	if req.Msg.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("id is required"))
	}
	if !s.sessions.Destroy(req.Msg.ID) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", req.Msg.ID))
	}
	s.log.Infof("session %s destroyed", req.Msg.ID)
	return connect.NewResponse(&DestroySessionResponse{}), nil
}

// workerFor returns the session's worker, or a fresh one for an empty
// ID. release stops a fresh worker and is a no-op for a session's.
func (s *EvalService) workerFor(sessionID string) (*RuntimeWorker, func(), error) {
	return lookupWorker(s.sessions, sessionID)
}

func lookupWorker(sessions *SessionStore, sessionID string) (*RuntimeWorker, func(), error) {
	if sessionID == "" {
		w := newScratchWorker()
		return w, w.Stop, nil
	}
	session, ok := sessions.Get(sessionID)
	if !ok {
		return nil, nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", sessionID))
	}
	return session.worker, func() {}, nil
}

// ---------------------------------------------------------------------------
// Worker-side helpers
// ---------------------------------------------------------------------------

// contextError maps a done request context to its Connect code.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeCanceled, err)
}

// evaluate runs source and builds the response. Must be called on the
// worker goroutine. Running code stops once ctx is done.
func evaluate(ctx context.Context, rt *vm.Runtime, w *RuntimeWorker, source string) *EvaluateResponse {
	if err := ctx.Err(); err != nil {
		return &EvaluateResponse{Error: err.Error()}
	}
	w.TakeOutput()
	value, err := rt.EvalContext(ctx, source)
	resp := &EvaluateResponse{Output: w.TakeOutput()}
	if err != nil {
		resp.Error = formatError(source, err)
		resp.Diagnostics = errorDiagnostics(source, err)
		return resp
	}

	display, err := rt.Stringify(value)
	if err != nil {
		resp.Error = formatError(source, err)
		resp.Diagnostics = errorDiagnostics(source, err)
		return resp
	}
	resp.Success = true
	resp.Result = display
	resp.ResultType = vm.TypeName(value)
	return resp
}

// checkSource runs the front end over source and returns its diagnostics.
func checkSource(source string) compiler.Diagnostics {
	stmts, diags := compiler.ParseSource(source)
	if len(diags) > 0 {
		return diags
	}
	_, diags = compiler.Resolve(stmts)
	return diags
}

func toDiagnostics(source string, diags compiler.Diagnostics) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		line, col := compiler.LineCol(source, d.Token.Offset)
		out = append(out, Diagnostic{
			Kind:    d.Kind.String(),
			Line:    line,
			Column:  col,
			Message: d.Message,
		})
	}
	return out
}

func errorDiagnostics(source string, err error) []Diagnostic {
	var diags compiler.Diagnostics
	if errors.As(err, &diags) {
		return toDiagnostics(source, diags)
	}
	var rerr *vm.Error
	if errors.As(err, &rerr) {
		line, col := rerr.Position(source)
		return []Diagnostic{{Kind: rerr.Kind.String(), Line: line, Column: col, Message: rerr.Message}}
	}
	return []Diagnostic{{Kind: "Error", Message: err.Error()}}
}

// formatError renders err with source positions where it has them.
func formatError(source string, err error) string {
	var diags compiler.Diagnostics
	if errors.As(err, &diags) {
		return diags.Format(source)
	}
	var rerr *vm.Error
	if errors.As(err, &rerr) {
		return rerr.Format(source)
	}
	return err.Error()
}
