package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/bluejay/vm"
)

func TestRuntimeWorker_Do(t *testing.T) {
	w := NewRuntimeWorker()
	defer w.Stop()

	result, err := w.Do(func(rt *vm.Runtime) any {
		v, err := rt.Eval("6 * 7")
		if err != nil {
			return err
		}
		s, _ := rt.Stringify(v)
		return s
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if result != "42" {
		t.Errorf("result = %v, want 42", result)
	}
}

func TestRuntimeWorker_RecoversPanics(t *testing.T) {
	w := NewRuntimeWorker()
	defer w.Stop()

	_, err := w.Do(func(rt *vm.Runtime) any { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Do should report the panic, got %v", err)
	}

	// The worker keeps serving after a panic
	result, err := w.Do(func(rt *vm.Runtime) any { return "ok" })
	if err != nil || result != "ok" {
		t.Errorf("Do after panic = %v, %v", result, err)
	}
}

func TestRuntimeWorker_CapturesOutput(t *testing.T) {
	w := NewRuntimeWorker()
	defer w.Stop()

	out, err := w.Do(func(rt *vm.Runtime) any {
		if err := rt.Run("print(\"a\")\nprint(\"b\")"); err != nil {
			return err.Error()
		}
		first := w.TakeOutput()
		return first + "|" + w.TakeOutput()
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if out != "a\nb\n|" {
		t.Errorf("output = %q, want %q", out, "a\nb\n|")
	}
}

func TestRuntimeWorker_Serializes(t *testing.T) {
	w := NewRuntimeWorker()
	defer w.Stop()

	if _, err := w.Do(func(rt *vm.Runtime) any { return rt.Run("var n = 0") }); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Do(func(rt *vm.Runtime) any { return rt.Run("n += 1") })
		}()
	}
	wg.Wait()

	result, _ := w.Do(func(rt *vm.Runtime) any {
		v, _ := rt.Lookup("n")
		s, _ := rt.Stringify(v)
		return s
	})
	if result != "20" {
		t.Errorf("n = %v, want 20", result)
	}
}

func TestRuntimeWorker_Stop(t *testing.T) {
	w := NewRuntimeWorker()
	w.Stop()
	w.Stop()

	done := make(chan error, 1)
	go func() {
		_, err := w.Do(func(rt *vm.Runtime) any { return nil })
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrWorkerStopped) {
			t.Errorf("Do after Stop = %v, want ErrWorkerStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do after Stop blocked")
	}
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore()
	defer store.Close()

	a := store.Create("a")
	b := store.Create("")
	if a.ID == b.ID {
		t.Fatal("session IDs should be unique")
	}
	if got, ok := store.Get(a.ID); !ok || got != a {
		t.Error("Get should return the created session")
	}

	list := store.List()
	if len(list) != 2 || list[0] != a || list[1] != b {
		t.Errorf("List should return sessions oldest first")
	}

	if !store.Destroy(a.ID) {
		t.Error("Destroy should report an existing session")
	}
	if store.Destroy(a.ID) {
		t.Error("Destroy should report a missing session")
	}
	if _, err := a.Worker().Do(func(rt *vm.Runtime) any { return nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("destroyed session's worker should be stopped, got %v", err)
	}
}

func TestSessionStore_IsolatesGlobals(t *testing.T) {
	store := NewSessionStore()
	defer store.Close()

	a := store.Create("a")
	b := store.Create("b")

	a.Worker().Do(func(rt *vm.Runtime) any { return rt.Run("var only = 1") })
	result, _ := b.Worker().Do(func(rt *vm.Runtime) any {
		_, ok := rt.Lookup("only")
		return ok
	})
	if result != false {
		t.Error("globals should not leak between sessions")
	}
}

func TestSessionStore_InputIsEmpty(t *testing.T) {
	store := NewSessionStore()
	defer store.Close()

	s := store.Create("")
	result, _ := s.Worker().Do(func(rt *vm.Runtime) any {
		v, err := rt.Eval("input(\"> \")")
		if err != nil {
			return err.Error()
		}
		str, _ := rt.Stringify(v)
		return str
	})
	if result != "null" {
		t.Errorf("input() in a session = %v, want null", result)
	}
}

func TestSessionStore_Close(t *testing.T) {
	store := NewSessionStore()
	store.Create("a")
	store.Create("b")
	store.Close()
	if n := len(store.List()); n != 0 {
		t.Errorf("List after Close has %d sessions", n)
	}
}

func TestRuntimeWorker_DoContextGivesUpWhileQueued(t *testing.T) {
	w := NewRuntimeWorker()
	defer w.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go w.Do(func(rt *vm.Runtime) any {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.DoContext(ctx, func(rt *vm.Runtime) any { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("DoContext error = %v, want context.DeadlineExceeded", err)
	}
	close(release)

	// The queued function may still run; the worker stays usable either way.
	if _, err := w.Do(func(rt *vm.Runtime) any { return nil }); err != nil {
		t.Fatalf("Do after timeout: %v", err)
	}
}
