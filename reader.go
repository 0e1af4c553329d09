package bgio

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

var (
	_ io.Reader     = (*Reader)(nil)
	_ io.ByteReader = (*Reader)(nil)
	_ io.WriterTo   = (*Reader)(nil)
	_ io.Closer     = (*Reader)(nil)
)

var defaultDelim = []byte("\n")

// Canceler is implemented by transports that can abort a blocked Read from
// another goroutine. Reader.Close prefers it over closing the transport
// underneath a pending Read.
type Canceler interface {
	Cancel() error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader fills a ring from a transport on a background goroutine and serves
// blocking reads out of it. A Reader supports a single foreground caller;
// Close may be called from another goroutine to abort a blocked call.
type Reader struct {
	engine
	src io.ReadCloser

	// line carries a partial delimiter match from one line read to the
	// next, so a delimiter split by a full caller buffer is still found.
	line *matcher

	closeErr  error
	closeDone chan struct{}
	closing   bool
}

// NewReader takes ownership of src and starts filling the ring from it.
func NewReader(src io.ReadCloser, opts ...Option) (*Reader, error) {
	r, err := newReader(src, opts)
	if err != nil {
		return nil, err
	}
	go r.fill()
	return r, nil
}

// newReader builds a Reader without starting its goroutine.
func newReader(src io.ReadCloser, opts []Option) (*Reader, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	r := &Reader{src: src, closeDone: make(chan struct{})}
	r.init("reader", cfg)
	return r, nil
}

func (r *Reader) fill() {
	defer close(r.done)
	for r.fillOnce() {
	}
	r.logStop("fill", r.Err())
}

// fillOnce performs one transport read into the contiguous free run at the
// ring's tail. It reports whether the loop should continue.
func (r *Reader) fillOnce() bool {
	r.mu.Lock()
	span := r.ring.writable()
	for r.running && len(span) == 0 {
		r.writerWait.Wait()
		span = r.ring.writable()
	}
	if !r.running {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	n, err := r.src.Read(span)
	n, err = checkCount(n, len(span), err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.ring.commit(n)
		r.readerWait.Signal()
	}
	if err != nil {
		r.stopLocked(err)
		return false
	}
	return r.running
}

// next blocks until the ring holds data and returns the contiguous readable
// run, or the end-of-stream error once the ring is drained and the fill loop
// has stopped.
func (r *Reader) next() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.ring.empty && r.running {
		r.readerWait.Wait()
	}
	if r.closed {
		return nil, ErrClosed
	}
	if r.ring.empty {
		return nil, r.errLocked(io.EOF)
	}
	return r.ring.readable(), nil
}

func (r *Reader) consume(n int) {
	r.mu.Lock()
	r.ring.consume(n)
	r.writerWait.Signal()
	r.mu.Unlock()
}

// Read blocks until len(p) bytes have been copied or the stream has ended.
// A short count is only returned at the end of the stream; the call after
// that reports io.EOF, or the transport error that ended the stream.
func (r *Reader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		span, err := r.next()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		c := copy(p[n:], span)
		r.consume(c)
		n += c
	}
	return n, nil
}

// ReadByte reads and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	span, err := r.next()
	if err != nil {
		return 0, err
	}
	c := span[0]
	r.consume(1)
	return c, nil
}

// ReadLine copies bytes into p until delim has been copied or p is full, and
// returns the number of bytes written including the delimiter. When p fills
// up first the line is truncated and the rest is left for the next call; a
// delimiter cut in two that way still ends the line in the next call. An
// empty delim means "\n". At the end of the stream ReadLine returns the
// unterminated remainder, then 0 and io.EOF.
func (r *Reader) ReadLine(p []byte, delim []byte) (int, error) {
	n, _, err := r.readLine(p, r.lineMatcher(lineDelim(delim)))
	return n, err
}

func lineDelim(delim []byte) []byte {
	if len(delim) == 0 {
		return defaultDelim
	}
	return delim
}

// lineMatcher returns the matcher for delim, keeping the partial match of
// the previous line read when the delimiter is unchanged.
func (r *Reader) lineMatcher(delim []byte) *matcher {
	if r.line == nil || !bytes.Equal(r.line.delim, delim) {
		r.line = newMatcher(bytes.Clone(delim))
	}
	return r.line
}

func (r *Reader) readLine(p []byte, m *matcher) (n int, found bool, err error) {
	for n < len(p) {
		span, err := r.next()
		if err != nil {
			m.reset()
			if n > 0 {
				return n, false, nil
			}
			return 0, false, err
		}
		span = span[:min(len(span), len(p)-n)]
		k, found := m.scan(span)
		copy(p[n:], span[:k])
		r.consume(k)
		n += k
		if found {
			return n, true, nil
		}
	}
	return n, false, nil
}

// trimDelim drops the delimiter that ends line. Part of it may have been
// returned by an earlier, truncated ReadLine.
func trimDelim(line, delim []byte) []byte {
	return line[:len(line)-min(len(line), len(delim))]
}

// GetLine reads up to and including the next delim and returns the line
// without it. A line longer than the ring is assembled across several
// reads. At the end of the stream the unterminated remainder is returned.
// GetLine fails with a *StreamError when no byte could be read at all.
func (r *Reader) GetLine(delim string) (string, error) {
	d := lineDelim([]byte(delim))
	m := r.lineMatcher(d)
	buf := make([]byte, r.ring.size())
	var line []byte
	for {
		n, found, err := r.readLine(buf, m)
		if err != nil {
			if len(line) == 0 {
				return "", streamError("getline", err)
			}
			return string(line), nil
		}
		line = append(line, buf[:n]...)
		if found {
			return string(trimDelim(line, d)), nil
		}
		if n < len(buf) {
			return string(line), nil
		}
	}
}

// GetLineN is like GetLine but reads at most limit bytes, delimiter
// included. A longer line is returned truncated and the rest is left for
// the next call.
func (r *Reader) GetLineN(limit int, delim string) (string, error) {
	if limit <= 0 {
		return "", streamError("getline", fmt.Errorf("limit must be positive, got %d", limit))
	}
	d := lineDelim([]byte(delim))
	buf := make([]byte, limit)
	n, found, err := r.readLine(buf, r.lineMatcher(d))
	if err != nil {
		return "", streamError("getline", err)
	}
	if found {
		return string(trimDelim(buf[:n], d)), nil
	}
	return string(buf[:n]), nil
}

// WriteTo writes everything the Reader produces to w until the end of the
// stream. It implements io.WriterTo.
func (r *Reader) WriteTo(w io.Writer) (n int64, err error) {
	for {
		span, err := r.next()
		if err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		wn, werr := w.Write(span)
		if wn < 0 || wn > len(span) {
			wn = 0
			if werr == nil {
				werr = errInvalidCount
			}
		}
		r.consume(wn)
		n += int64(wn)
		if werr != nil {
			return n, werr
		}
		if wn != len(span) {
			return n, io.ErrShortWrite
		}
	}
}

// Close stops the background goroutine, aborting a pending transport read,
// and closes the transport. Buffered bytes are discarded. Blocked calls
// return ErrClosed. Close is safe to call more than once and from a
// goroutine other than the one doing reads.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		<-r.closeDone
		return r.closeErr
	}
	r.closing = true
	r.closed = true
	r.stopLocked(nil)
	r.mu.Unlock()

	r.closeErr = r.shutdown()
	close(r.closeDone)
	return r.closeErr
}

// shutdown unblocks the fill goroutine, waits for it and releases the
// transport. Transports that can cancel a read are cancelled and closed only
// after the goroutine is gone; others are closed first so that the pending
// read fails.
func (r *Reader) shutdown() error {
	switch src := r.src.(type) {
	case Canceler:
		cerr := src.Cancel()
		<-r.done
		if err := r.src.Close(); err != nil {
			return err
		}
		return cerr
	case readDeadliner:
		if err := src.SetReadDeadline(aLongTimeAgo); err != nil {
			cerr := r.src.Close()
			<-r.done
			return cerr
		}
		<-r.done
		return r.src.Close()
	default:
		err := r.src.Close()
		<-r.done
		return err
	}
}

var aLongTimeAgo = time.Unix(1, 0)
