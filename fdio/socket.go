//go:build linux

package fdio

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var (
	_ io.ReadCloser  = (*SocketReader)(nil)
	_ io.WriteCloser = (*SocketWriter)(nil)
)

// socket is a File shared by the two halves of a connection. The last half
// to be released closes it.
type socket struct {
	f    *File
	refs atomic.Int32
}

func (s *socket) shutdown(how int) error {
	fd := s.f.Fd()
	if fd < 0 {
		return ErrClosed
	}
	if err := unix.Shutdown(fd, how); err != nil && err != unix.ENOTCONN {
		return os.NewSyscallError("shutdown", err)
	}
	return nil
}

func (s *socket) release() error {
	if s.refs.Add(-1) == 0 {
		return s.f.Close()
	}
	return nil
}

// Split takes ownership of a connected stream socket and returns its read
// and write halves.
func Split(f *File) (*SocketReader, *SocketWriter) {
	s := &socket{f: f}
	s.refs.Store(2)
	return &SocketReader{s: s}, &SocketWriter{s: s}
}

// Socketpair returns two connected Unix stream sockets.
func Socketpair() (a, b *File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, os.NewSyscallError("socketpair", err)
	}
	if a, err = NewFile(fds[0]); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, nil, err
	}
	if b, err = NewFile(fds[1]); err != nil {
		a.Close()
		unix.Close(fds[1])
		return nil, nil, err
	}
	return a, b, nil
}

// SocketReader is the receiving half of a socket.
type SocketReader struct {
	s    *socket
	once sync.Once
	err  error
}

// Read implements io.Reader.
func (r *SocketReader) Read(p []byte) (int, error) {
	return r.s.f.Read(p)
}

// Cancel aborts a blocked Read.
func (r *SocketReader) Cancel() error {
	return r.s.f.Cancel()
}

// Close shuts down the receiving direction and releases this half.
func (r *SocketReader) Close() error {
	r.once.Do(func() {
		err := r.s.shutdown(unix.SHUT_RD)
		if rerr := r.s.release(); err == nil {
			err = rerr
		}
		r.err = err
	})
	return r.err
}

// SocketWriter is the sending half of a socket.
type SocketWriter struct {
	s    *socket
	once sync.Once
	err  error
}

// Write implements io.Writer.
func (w *SocketWriter) Write(p []byte) (int, error) {
	return w.s.f.Write(p)
}

// Close shuts down the sending direction, so the peer reads end of file,
// and releases this half.
func (w *SocketWriter) Close() error {
	w.once.Do(func() {
		err := w.s.shutdown(unix.SHUT_WR)
		if rerr := w.s.release(); err == nil {
			err = rerr
		}
		w.err = err
	})
	return w.err
}
