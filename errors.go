package bgio

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on an engine after Close, or by
	// Write after Stop.
	ErrClosed = errors.New("bgio: engine closed")
	// ErrInvalidConfig is wrapped by constructor errors caused by bad options.
	ErrInvalidConfig = errors.New("bgio: invalid config")
	// ErrShortValue means a fixed-size value was only partially transferred.
	ErrShortValue = errors.New("bgio: short value transfer")

	errInvalidCount = errors.New("bgio: transport returned invalid count")
)

// StreamError reports a failed stream-level operation such as GetLine, Get,
// Put or Print. Err is the underlying cause.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("bgio %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func streamError(op string, err error) error {
	var se *StreamError
	if errors.As(err, &se) && se.Op == op {
		return err
	}
	return &StreamError{Op: op, Err: err}
}
