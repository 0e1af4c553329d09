package bgio

import (
	"io"
	"sync"
)

var (
	_ io.ReadCloser  = (*PipeReader)(nil)
	_ io.WriteCloser = (*PipeWriter)(nil)
)

// pipe is an in-memory transport: both halves block on a shared ring the
// way a kernel pipe blocks on its buffer.
type pipe struct {
	readerClosedErr error
	writerClosedErr error

	writerWait sync.Cond
	readerWait sync.Cond

	ring *ring
	mu   sync.Mutex

	readerClosed bool
	writerClosed bool
}

func newPipe(size int) *pipe {
	p := &pipe{ring: newRing(size)}
	p.writerWait.L = &p.mu
	p.readerWait.L = &p.mu
	return p
}

func (p *pipe) read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.waitForReadableLocked(); err != nil {
		return 0, err
	}

	n = p.ring.read(b)
	p.writerWait.Signal()
	return n, nil
}

func (p *pipe) write(b []byte) (n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(b) > 0 {
		if err := p.waitForWritableLocked(); err != nil {
			return n, err
		}
		wrote := p.ring.write(b)
		b = b[wrote:]
		n += wrote
		p.readerWait.Signal()
	}
	return n, nil
}

func (p *pipe) closeReader(err error, withErr bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readerClosed = true
	if withErr && p.writerClosedErr == nil {
		if err == nil {
			err = io.ErrClosedPipe
		}
		p.writerClosedErr = err
	}
	p.readerWait.Broadcast()
	p.writerWait.Broadcast()
}

func (p *pipe) closeWriter(err error, withErr bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writerClosed = true
	if withErr && p.readerClosedErr == nil {
		if err == nil {
			err = io.EOF
		}
		p.readerClosedErr = err
	}
	p.readerWait.Broadcast()
	p.writerWait.Broadcast()
}

func (p *pipe) waitForReadableLocked() error {
	for {
		if p.readerClosed {
			if p.writerClosedErr != nil {
				return p.writerClosedErr
			}
			return io.ErrClosedPipe
		}
		if !p.ring.empty {
			return nil
		}
		if p.writerClosed {
			if p.readerClosedErr != nil {
				return p.readerClosedErr
			}
			return io.EOF
		}
		p.readerWait.Wait()
	}
}

func (p *pipe) waitForWritableLocked() error {
	for {
		if p.readerClosed {
			if p.writerClosedErr != nil {
				return p.writerClosedErr
			}
			return io.ErrClosedPipe
		}
		if p.writerClosed {
			return io.ErrClosedPipe
		}
		if !p.ring.full() {
			return nil
		}
		p.writerWait.Wait()
	}
}

// Pipe creates an in-memory transport pair backed by a ring of bufferSize
// bytes. Writes block while the ring is full and reads block while it is
// empty. Closing the reader aborts a blocked Read, which makes the pair a
// convenient stand-in for a socket or a kernel pipe under a Reader or
// Writer.
func Pipe(bufferSize int) (*PipeReader, *PipeWriter) {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	p := newPipe(bufferSize)
	return &PipeReader{p}, &PipeWriter{p}
}

// PipeReader is the read half of a pipe.
type PipeReader struct {
	p *pipe
}

// Read implements io.Reader. It returns as soon as any bytes are available.
func (r *PipeReader) Read(b []byte) (int, error) {
	return r.p.read(b)
}

// Close closes the reader side of the pipe. Pending and future reads fail
// with io.ErrClosedPipe and so do writes.
func (r *PipeReader) Close() error {
	r.p.closeReader(nil, false)
	return nil
}

// CloseWithError closes the reader side of the pipe with an error.
// The error will be returned to future writes on the writer side.
func (r *PipeReader) CloseWithError(err error) error {
	r.p.closeReader(err, true)
	return nil
}

// PipeWriter is the write half of a pipe.
type PipeWriter struct {
	p *pipe
}

// Write implements io.Writer.
func (w *PipeWriter) Write(b []byte) (int, error) {
	return w.p.write(b)
}

// Close closes the writer side of the pipe. The reader sees io.EOF once the
// buffered bytes are consumed.
func (w *PipeWriter) Close() error {
	w.p.closeWriter(nil, false)
	return nil
}

// CloseWithError closes the writer side of the pipe with an error.
// The error will be returned to future reads on the reader side.
func (w *PipeWriter) CloseWithError(err error) error {
	w.p.closeWriter(err, true)
	return nil
}
