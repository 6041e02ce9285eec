package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/bluejay/vm"
)

// BluejayServer serves the evaluation and browsing services over Connect
// (HTTP/JSON).
type BluejayServer struct {
	sessions *SessionStore
	mux      *http.ServeMux
	http     *http.Server
	log      commonlog.Logger
}

// ServerOption configures a BluejayServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	runtimeOpts []vm.Option
}

// WithRuntimeOptions sets options applied to every session runtime.
func WithRuntimeOptions(opts ...vm.Option) ServerOption {
	return func(c *serverConfig) { c.runtimeOpts = append(c.runtimeOpts, opts...) }
}

// New creates a BluejayServer with an empty session store.
func New(opts ...ServerOption) *BluejayServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &BluejayServer{
		sessions: NewSessionStore(cfg.runtimeOpts...),
		mux:      http.NewServeMux(),
		log:      commonlog.GetLogger("bluejay.server"),
	}

	evalSvc := NewEvalService(s.sessions)
	browseSvc := NewBrowseService(s.sessions)

	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, evalSvc.Evaluate, codecOption()))
	s.mux.Handle(CheckSyntaxProc, connect.NewUnaryHandler(CheckSyntaxProc, evalSvc.CheckSyntax, codecOption()))
	s.mux.Handle(CreateSessionProc, connect.NewUnaryHandler(CreateSessionProc, evalSvc.CreateSession, codecOption()))
	s.mux.Handle(DestroySessionProc, connect.NewUnaryHandler(DestroySessionProc, evalSvc.DestroySession, codecOption()))
	s.mux.Handle(ListClassesProc, connect.NewUnaryHandler(ListClassesProc, browseSvc.ListClasses, codecOption()))
	s.mux.Handle(DescribeClassProc, connect.NewUnaryHandler(DescribeClassProc, browseSvc.DescribeClass, codecOption()))

	return s
}

// Sessions returns the server's session store.
func (s *BluejayServer) Sessions() *SessionStore { return s.sessions }

// Handler returns the HTTP handler serving every procedure.
func (s *BluejayServer) Handler() http.Handler { return s.mux }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *BluejayServer) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Noticef("Bluejay server listening on %s", addr)
	s.log.Infof("Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP server and every session.
func (s *BluejayServer) Stop() {
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.log.Warningf("shutdown: %v", err)
		}
	}
	s.sessions.Close()
}
