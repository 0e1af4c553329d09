package bgio

import (
	"errors"
	"io"
)

var (
	_ io.Writer       = (*Writer)(nil)
	_ io.StringWriter = (*Writer)(nil)
	_ io.ByteWriter   = (*Writer)(nil)
	_ io.ReaderFrom   = (*Writer)(nil)
	_ io.Closer       = (*Writer)(nil)
)

// Writer accepts bytes into a ring and drains them to a transport on a
// background goroutine. The goroutine writes once the backlog exceeds the
// batch size, the ring is full, a Flush is pending, or the Writer is
// stopping. Stopping is lossless: everything accepted by Write reaches the
// transport unless the transport itself fails.
//
// A Writer supports a single foreground caller.
type Writer struct {
	engine
	dst       io.WriteCloser
	batchSize int

	// barrier is the ring position a pending Flush waits for; ring.size()
	// means no flush is pending.
	barrier int
	stopped bool

	closeErr  error
	closeDone chan struct{}
	closing   bool
}

// NewWriter takes ownership of dst and starts draining into it.
func NewWriter(dst io.WriteCloser, opts ...Option) (*Writer, error) {
	w, err := newWriter(dst, opts)
	if err != nil {
		return nil, err
	}
	go w.drain()
	return w, nil
}

// newWriter builds a Writer without starting its goroutine.
func newWriter(dst io.WriteCloser, opts []Option) (*Writer, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	w := &Writer{dst: dst, batchSize: cfg.BatchSize, closeDone: make(chan struct{})}
	w.init("writer", cfg)
	w.barrier = w.ring.size()
	return w, nil
}

func (w *Writer) flushPendingLocked() bool {
	return w.barrier != w.ring.size()
}

// drainReadyLocked reports whether the drain loop has a reason to write.
func (w *Writer) drainReadyLocked() bool {
	return !w.running || w.flushPendingLocked() || w.ring.len() > w.batchSize || w.ring.full()
}

func (w *Writer) drain() {
	defer close(w.done)
	for w.drainOnce() {
	}
	w.logStop("drain", w.Err())
}

// drainOnce writes the contiguous run at the ring's head to the transport.
// It reports whether the loop should continue.
func (w *Writer) drainOnce() bool {
	w.mu.Lock()
	for !w.drainReadyLocked() {
		w.readerWait.Wait()
	}
	if !w.running && w.ring.empty {
		w.mu.Unlock()
		return false
	}
	head := w.ring.head
	span := w.ring.readable()
	w.mu.Unlock()

	n, err := w.dst.Write(span)
	n, err = checkCount(n, len(span), err)
	if err == nil && n == 0 {
		err = io.ErrShortWrite
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if n > 0 {
		w.ring.consume(n)
		w.passBarrierLocked(head, n)
		w.writerWait.Broadcast()
	}
	if err != nil {
		w.stopLocked(err)
		return false
	}
	return true
}

// passBarrierLocked clears a pending flush once the bytes written from
// head cover the barrier position. A barrier at index 0 marks the end of
// the physical buffer.
func (w *Writer) passBarrierLocked(head, n int) {
	if !w.flushPendingLocked() {
		return
	}
	b := w.barrier
	if b == 0 {
		b = w.ring.size()
	}
	if head < b && b <= head+n {
		w.barrier = w.ring.size()
	}
}

// reserve blocks until the ring has free space and returns the contiguous
// free run at its tail.
func (w *Writer) reserve() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.ring.full() && w.running {
		w.writerWait.Wait()
	}
	if !w.running {
		return nil, w.errLocked(ErrClosed)
	}
	return w.ring.writable(), nil
}

func (w *Writer) commit(n int) {
	w.mu.Lock()
	w.ring.commit(n)
	w.readerWait.Signal()
	w.mu.Unlock()
}

// Write copies p into the ring, blocking while it is full. It returns fewer
// than len(p) bytes only when the Writer stops during the call.
func (w *Writer) Write(p []byte) (n int, err error) {
	for n < len(p) {
		span, err := w.reserve()
		if err != nil {
			return n, err
		}
		c := copy(span, p[n:])
		w.commit(c)
		n += c
	}
	return n, nil
}

// WriteString is like Write but takes a string.
func (w *Writer) WriteString(s string) (n int, err error) {
	for n < len(s) {
		span, err := w.reserve()
		if err != nil {
			return n, err
		}
		c := copy(span, s[n:])
		w.commit(c)
		n += c
	}
	return n, nil
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(c byte) error {
	span, err := w.reserve()
	if err != nil {
		return err
	}
	span[0] = c
	w.commit(1)
	return nil
}

// ReadFrom reads from r straight into the ring until io.EOF. It implements
// io.ReaderFrom.
func (w *Writer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		span, err := w.reserve()
		if err != nil {
			return n, err
		}
		rn, rerr := r.Read(span)
		rn, rerr = checkCount(rn, len(span), rerr)
		w.commit(rn)
		n += int64(rn)
		if rerr != nil {
			if rerr == io.EOF {
				return n, nil
			}
			return n, rerr
		}
	}
}

// Flush blocks until every byte accepted before the call has been written
// to the transport. If the transport fails first, Flush returns its error.
// Calling Flush after Stop or Close is a programming error and panics.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		panic("bgio: Flush called on a stopped Writer")
	}
	if w.ring.empty {
		return nil
	}
	if !w.running {
		return w.errLocked(ErrClosed)
	}
	w.barrier = w.ring.tail
	w.readerWait.Signal()
	for w.flushPendingLocked() && w.running {
		w.writerWait.Wait()
	}
	if w.flushPendingLocked() {
		return w.errLocked(ErrClosed)
	}
	return nil
}

// Stop asks the background goroutine to drain what is buffered and exit. It
// does not block and does not close the transport. Writes after Stop fail
// with ErrClosed.
func (w *Writer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.stopLocked(nil)
}

// Wait blocks until the background goroutine has exited and returns the
// transport error that stopped it, if any.
func (w *Writer) Wait() error {
	<-w.done
	return w.Err()
}

// Close stops the Writer, waits until every buffered byte has reached the
// transport, then closes the transport.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		<-w.closeDone
		return w.closeErr
	}
	w.closing = true
	w.mu.Unlock()

	w.Stop()
	werr := w.Wait()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.closeErr = errors.Join(werr, w.dst.Close())
	close(w.closeDone)
	return w.closeErr
}
