package bgio

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// engine is the state shared by Reader and Writer: a ring guarded by one
// mutex and two conditions. readerWait is where the consuming side of the
// ring waits for bytes; writerWait is where the producing side waits for
// space. Both are always waited on in a loop that re-checks its predicate.
type engine struct {
	mu         sync.Mutex
	readerWait sync.Cond
	writerWait sync.Cond

	ring    *ring
	running bool
	closed  bool
	err     error

	done chan struct{}
	log  *slog.Logger
}

func (e *engine) init(component string, cfg Config) {
	e.ring = newRing(cfg.Capacity)
	e.readerWait.L = &e.mu
	e.writerWait.L = &e.mu
	e.running = true
	e.done = make(chan struct{})
	e.log = cfg.Logger.With("component", component, "id", uuid.NewString())
}

// stopLocked marks the background loop as finished and wakes every waiter.
// The first non-nil err is kept.
func (e *engine) stopLocked(err error) {
	e.running = false
	if e.err == nil && err != nil {
		e.err = err
	}
	e.readerWait.Broadcast()
	e.writerWait.Broadcast()
}

// errLocked returns the error a foreground call should report once the
// background loop has stopped.
func (e *engine) errLocked(fallback error) error {
	if e.closed {
		return ErrClosed
	}
	if e.err != nil {
		return e.err
	}
	return fallback
}

// Buffered returns the number of bytes currently held in the ring.
func (e *engine) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ring.len()
}

// Err returns the error that stopped the background goroutine, if any.
// A Reader that reached the end of its source reports io.EOF.
func (e *engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *engine) logStop(loop string, err error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if err == nil || errors.Is(err, io.EOF) || closed {
		e.log.Debug(loop+" loop stopped", "err", err)
		return
	}
	e.log.Warn(loop+" loop stopped", "err", err)
}

// checkCount guards against transports that break the io contract.
func checkCount(n, limit int, err error) (int, error) {
	if n < 0 || n > limit {
		return 0, errInvalidCount
	}
	return n, err
}
