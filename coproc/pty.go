//go:build linux

package coproc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/jacoelho/bgio/fdio"
)

var errNoTerminal = errors.New("coproc: process has no terminal")

// Window size of a terminal created by StartTerminal.
const (
	DefaultTerminalRows    = 24
	DefaultTerminalColumns = 80
)

// StartTerminal starts the process with descriptors 0, 1 and 2 attached to
// a new pseudo-terminal. Command.Redirects must be empty. The terminal master
// is returned in Process.Terminal; once the child and all its descendants
// have exited, reads from it fail with EIO instead of io.EOF.
func StartTerminal(c Command) (*Process, error) {
	if len(c.Redirects) > 0 {
		return nil, fmt.Errorf("%w: redirects are not allowed with a terminal", ErrBadRedirect)
	}
	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "coproc", "id", uuid.NewString())

	cmd := &exec.Cmd{
		Path: c.Path,
		Args: c.Args,
		Env:  append(append([]string(nil), c.Env...), os.Environ()...),
	}
	master, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: DefaultTerminalRows,
		Cols: DefaultTerminalColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("coproc: start %s on terminal: %w", c.Path, err)
	}
	defer master.Close()

	fd, err := unix.FcntlInt(master.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, os.NewSyscallError("fcntl", err)
	}
	term, err := fdio.NewFile(fd)
	if err != nil {
		unix.Close(fd)
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, err
	}
	log.Debug("process started", "path", c.Path, "pid", cmd.Process.Pid, "terminal", true)

	return &Process{
		Terminal: term,
		proc:     cmd.Process,
		log:      log,
	}, nil
}

// Resize changes the terminal window size of a process started with
// StartTerminal.
func (p *Process) Resize(rows, cols uint16) error {
	if p.Terminal == nil {
		return errNoTerminal
	}
	fd := p.Terminal.Fd()
	if fd < 0 {
		return fdio.ErrClosed
	}
	ws := &unix.Winsize{Row: rows, Col: cols}
	if err := unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, ws); err != nil {
		return os.NewSyscallError("ioctl", err)
	}
	return nil
}

// MakeRaw puts the terminal of a process started with StartTerminal into raw
// mode: no echo, no line editing and no newline translation. The returned
// function restores the previous mode.
func (p *Process) MakeRaw() (restore func() error, err error) {
	if p.Terminal == nil {
		return nil, errNoTerminal
	}
	fd := p.Terminal.Fd()
	if fd < 0 {
		return nil, fdio.ErrClosed
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("coproc: raw terminal: %w", err)
	}
	return func() error { return term.Restore(fd, state) }, nil
}
