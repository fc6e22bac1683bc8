// Package fiber implements the stackful-coroutine primitive spec.md §4.1
// requires: a suspendable unit of user computation that can be resumed from
// arbitrarily deep call stacks without the caller transforming the user
// code into a state machine.
//
// Go has no native stackful-coroutine type, but a goroutine paired with a
// pair of unbuffered, rendezvous channels gives exactly the contract this
// module needs: at most one side of the pair is ever runnable, and control
// passes deterministically between them. This mirrors the teacher's use of
// a dedicated primitive (akita's ticking components) to drive otherwise
// opaque user-supplied behavior one step at a time.
package fiber

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel wrapped by every fiber contract violation:
// yielding outside a fiber, or resuming a terminated fiber.
var ErrProtocol = errors.New("fiber: protocol violation")

// ProtocolError carries the specific contract violation alongside
// ErrProtocol so callers can match with errors.Is(err, fiber.ErrProtocol)
// while still printing a precise message.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fiber: protocol violation: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// Entry is the function a fiber runs, inside the goroutine Resume starts
// for it. It receives the fiber's own handle, which is how code inside the
// fiber reaches Yield. Go has no goroutine-local storage, so there is no
// implicit "current fiber"; instead Yield checks the handle's state and
// panics with a ProtocolError when that fiber is not currently running.
// See Resume for the checks on resuming a terminated or already-running
// fiber.
type Entry func(self *Fiber)

// state enumerates a fiber's lifecycle.
type state int

const (
	stateNotStarted state = iota
	stateSuspended
	stateRunning
	stateTerminated
)

// Fiber is a single stackful coroutine. The zero value is not usable; use
// Spawn.
type Fiber struct {
	entry Entry

	resumeCh chan struct{}
	yieldCh  chan struct{}

	state state
	// panicVal captures a recovered user panic so Resume can re-raise it to
	// the caller, matching §5's "fiber protocol errors are always fatal"
	// rule for internal violations while letting §7's per-fiber recovery
	// happen at a higher layer (dispatch) for user exceptions.
	panicVal any
}

// Spawn creates a fiber bound to entry and returns its handle. No user code
// runs until the first call to Resume; per spec.md §4.1, spawn only pushes
// an initial suspend point.
func Spawn(entry Entry) *Fiber {
	f := &Fiber{
		entry:    entry,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
		state:    stateNotStarted,
	}
	return f
}

// Terminated reports whether the fiber has run to completion (or panicked)
// and can no longer be resumed.
func (f *Fiber) Terminated() bool {
	return f.state == stateTerminated
}

// Resume transfers control from the caller into the fiber. It returns once
// the fiber next suspends (via Yield) or terminates. Resuming a terminated
// fiber is a protocol violation (spec.md §4.1); resuming a fiber that is
// already running (e.g. a reentrant call from within the fiber itself) is
// likewise a violation.
func (f *Fiber) Resume() error {
	switch f.state {
	case stateTerminated:
		return &ProtocolError{Reason: "resume called on a terminated fiber"}
	case stateRunning:
		return &ProtocolError{Reason: "resume called while the fiber is already running"}
	case stateNotStarted:
		f.state = stateRunning
		go f.run()
	case stateSuspended:
		f.state = stateRunning
		f.resumeCh <- struct{}{}
	}

	<-f.yieldCh

	if f.state == stateTerminated && f.panicVal != nil {
		p := f.panicVal
		f.panicVal = nil
		panic(p)
	}
	return nil
}

// run is the goroutine body backing a spawned fiber. It recovers user
// panics so Resume can re-raise them on the controlling goroutine instead
// of crashing the whole process, then marks the fiber terminated and wakes
// the waiting Resume call exactly once.
func (f *Fiber) run() {
	defer func() {
		if r := recover(); r != nil {
			f.panicVal = r
		}
		f.state = stateTerminated
		f.yieldCh <- struct{}{}
	}()
	f.entry(f)
}

// Yield suspends the calling fiber and returns control to the most recent
// Resume call. It must be called from inside the fiber's own entry
// function (directly or transitively); calling it on a fiber handle from
// outside that fiber's goroutine is undefined by contract, matching the
// "called from inside a fiber" wording of spec.md §4.1 — Go's cooperative
// scheduling makes this safe in practice because only one goroutine ever
// holds the unbuffered yieldCh/resumeCh pair active at a time.
func (f *Fiber) Yield() {
	if f.state != stateRunning {
		panic(&ProtocolError{Reason: "yield_to_caller called outside a running fiber"})
	}
	f.state = stateSuspended
	f.yieldCh <- struct{}{}
	<-f.resumeCh
	f.state = stateRunning
}
