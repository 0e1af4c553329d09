//go:build linux

package fdio

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	_ io.ReadWriteCloser = (*File)(nil)
)

var (
	// ErrCanceled is returned by Read after Cancel.
	ErrCanceled = errors.New("fdio: read canceled")
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("fdio: file closed")
)

// File owns a file descriptor. Read and Write block; Cancel aborts a
// pending or future Read from another goroutine.
type File struct {
	mu     sync.Mutex // guards closing of fd and wake
	fd     int
	wake   int // eventfd, readable once Cancel has been called
	closed bool
}

// NewFile takes ownership of fd.
func NewFile(fd int) (*File, error) {
	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	return &File{fd: fd, wake: wake}, nil
}

// Pipe returns a connected pair of Files: bytes written to w can be read
// from r.
func Pipe() (r, w *File, err error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, os.NewSyscallError("pipe2", err)
	}
	if r, err = NewFile(p[0]); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, nil, err
	}
	if w, err = NewFile(p[1]); err != nil {
		r.Close()
		unix.Close(p[1])
		return nil, nil, err
	}
	return r, w, nil
}

// Fd returns the descriptor, or -1 once the File is closed.
func (f *File) Fd() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return -1
	}
	return f.fd
}

func (f *File) fds() (fd, wake int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return -1, -1, ErrClosed
	}
	return f.fd, f.wake, nil
}

// Read waits until the descriptor is readable or the File is cancelled,
// then reads once. End of file is reported as io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fd, wake, err := f.fds()
	if err != nil {
		return 0, err
	}
	for {
		if err := waitReadable(fd, wake); err != nil {
			return 0, err
		}
		n, err := unix.Read(fd, p)
		switch {
		case err == unix.EINTR || err == unix.EAGAIN:
			continue
		case err != nil:
			return 0, os.NewSyscallError("read", err)
		case n == 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

func waitReadable(fd, wake int) error {
	fds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(wake), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if fds[1].Revents != 0 {
			return ErrCanceled
		}
		if fds[0].Revents != 0 {
			return nil
		}
	}
}

// Write writes p, retrying after interrupts. It may write fewer bytes than
// len(p) without error, like write(2).
func (f *File) Write(p []byte) (int, error) {
	fd, _, err := f.fds()
	if err != nil {
		return 0, err
	}
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("write", err)
		}
		return n, nil
	}
}

// Cancel makes the pending Read, and every later one, return ErrCanceled.
func (f *File) Cancel() error {
	_, wake, err := f.fds()
	if err != nil {
		return err
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(wake, one[:]); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("write", err)
	}
	return nil
}

// Dup returns an independent File sharing the same open file description.
func (f *File) Dup() (*File, error) {
	fd, _, err := f.fds()
	if err != nil {
		return nil, err
	}
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("fcntl", err)
	}
	dup, err := NewFile(nfd)
	if err != nil {
		unix.Close(nfd)
		return nil, err
	}
	return dup, nil
}

// Close closes the descriptor. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	werr := unix.Close(f.wake)
	if err := unix.Close(f.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	if werr != nil {
		return os.NewSyscallError("close", werr)
	}
	return nil
}
