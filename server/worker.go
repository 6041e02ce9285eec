package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chazu/bluejay/vm"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("runtime worker stopped")

// runtimeRequest represents a unit of work to be executed on the worker goroutine.
type runtimeRequest struct {
	fn   func(*vm.Runtime) any
	done chan runtimeResult
}

// runtimeResult holds the return value from a runtime operation.
type runtimeResult struct {
	value any
	err   error
}

// RuntimeWorker serializes all access to one Runtime through a single
// goroutine. The interpreter is single-threaded; every handler touching
// a session's runtime must go through its worker.
type RuntimeWorker struct {
	rt       *vm.Runtime
	out      *bytes.Buffer
	requests chan runtimeRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewRuntimeWorker creates a Runtime whose print output is captured,
// and starts the processing goroutine.
func NewRuntimeWorker(opts ...vm.Option) *RuntimeWorker {
	out := new(bytes.Buffer)
	opts = append([]vm.Option{vm.WithOutput(out)}, opts...)
	w := &RuntimeWorker{
		rt:       vm.NewRuntime(opts...),
		out:      out,
		requests: make(chan runtimeRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// newScratchWorker creates a worker for a single request. Its runtime
// reads no input.
func newScratchWorker() *RuntimeWorker {
	return NewRuntimeWorker(vm.WithInput(strings.NewReader("")))
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *RuntimeWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the runtime, recovering from panics.
func (w *RuntimeWorker) execute(fn func(*vm.Runtime) any) runtimeResult {
	var result runtimeResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.rt)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *RuntimeWorker) Do(fn func(*vm.Runtime) any) (any, error) {
	return w.DoContext(context.Background(), fn)
}

// DoContext is Do, giving up with ctx.Err() once ctx is done. A function
// already running is not stopped by that; code run through
// Runtime.EvalContext with the same ctx stops on its own.
func (w *RuntimeWorker) DoContext(ctx context.Context, fn func(*vm.Runtime) any) (any, error) {
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}

	req := runtimeRequest{
		fn:   fn,
		done: make(chan runtimeResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TakeOutput returns and clears the captured print output. Call it from
// inside Do.
func (w *RuntimeWorker) TakeOutput() string {
	s := w.out.String()
	w.out.Reset()
	return s
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *RuntimeWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
