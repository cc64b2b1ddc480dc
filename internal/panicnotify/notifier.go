// Package panicnotify reports goroutine panics to a supervising loop.
//
// A Notifier is handed to code that runs workers on dedicated goroutines.
// Each worker defers Recover so that a panic anywhere in its execution
// scope is logged with a stack trace and signaled on the Done channel
// instead of crashing the process outright. The supervisor selects on
// Done and decides how to wind the process down. Workers never interact
// with the channel directly, so handlers stay decoupled from the
// reporting mechanism.
package panicnotify

import (
	"log/slog"
	"runtime/debug"
)

// Notifier carries panic signals from worker goroutines to a supervisor.
type Notifier struct {
	ch chan struct{}
}

// New returns a Notifier ready to guard worker goroutines.
func New() *Notifier {
	return &Notifier{
		// Buffered so a panicking worker can always record its signal,
		// even when the supervisor is not receiving yet.
		ch: make(chan struct{}, 1),
	}
}

// Done returns the channel that receives a signal after a guarded
// goroutine panics. Repeated panics coalesce into a single signal.
func (n *Notifier) Done() <-chan struct{} {
	return n.ch
}

// Recover is the deferred guard for a worker goroutine. It recovers a
// panic, logs the value and stack, and signals Done. The send never
// blocks: if a signal is already pending, the new one is dropped.
func (n *Notifier) Recover() {
	r := recover()
	if r == nil {
		return
	}

	slog.Error("Worker goroutine panicked",
		"panic", r,
		"stack", string(debug.Stack()))

	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Go runs fn on its own goroutine guarded by Recover. Abnormal exit
// from fn is guaranteed to signal Done.
func (n *Notifier) Go(fn func()) {
	go func() {
		defer n.Recover()
		fn()
	}()
}
