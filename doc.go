// Package bgio moves blocking I/O onto a background goroutine behind a
// fixed-size ring buffer, so that a single caller can use plain blocking
// Read, ReadLine, Write and Flush calls while transport latency overlaps
// with its own work.
//
// A Reader fills its ring from an io.ReadCloser and is shut down eagerly:
// Close aborts the pending transport read and discards what is buffered.
// A Writer drains its ring into an io.WriteCloser and is shut down
// gracefully: Close returns only after every accepted byte has been written.
//
// Transports for file descriptors, half-duplex sockets and child processes
// live in the fdio and coproc packages; Pipe provides an in-memory one.
package bgio
