//go:build linux

// Package coproc starts child processes whose standard streams, or any other
// descriptors, are connected to the parent through pipes. The parent ends are
// fdio.Files, ready to be wrapped in a bgio.Reader or bgio.Writer.
package coproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/jacoelho/bgio"
	"github.com/jacoelho/bgio/fdio"
)

// Direction says which way bytes flow through a redirected descriptor.
type Direction int

const (
	// Input connects a child descriptor the child reads from; the parent
	// end is writable.
	Input Direction = iota
	// Output connects a child descriptor the child writes to; the parent
	// end is readable.
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Redirect connects child descriptor Fd to a new pipe.
type Redirect struct {
	Fd  int
	Dir Direction
}

// Command describes a process to start.
type Command struct {
	Path      string     // executable path
	Args      []string   // argv, including argv[0]
	Redirects []Redirect // pipes to create, in order
	Env       []string   // KEY=VALUE entries placed before the parent's environment
	Logger    *slog.Logger
}

// Process is a running child.
type Process struct {
	// Files holds the parent end of each pipe, in the order of
	// Command.Redirects. The caller owns them.
	Files []*fdio.File
	// Terminal is the pseudo-terminal master of a process started with
	// StartTerminal, nil otherwise.
	Terminal *fdio.File

	redirects []Redirect
	proc      *os.Process
	log       *slog.Logger
}

var (
	// ErrBadRedirect is returned for negative or repeated redirect
	// descriptors.
	ErrBadRedirect = errors.New("coproc: invalid redirect")
)

// Shell runs command with /bin/sh -c.
func Shell(command string, redirects []Redirect, env []string) (*Process, error) {
	return Start(Command{
		Path:      "/bin/sh",
		Args:      []string{"sh", "-c", command},
		Redirects: redirects,
		Env:       env,
	})
}

// Start creates the requested pipes and starts the process. Descriptors 0,
// 1 and 2 that are not redirected are inherited from the parent; other
// descriptors are not passed to the child.
func Start(c Command) (*Process, error) {
	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "coproc", "id", uuid.NewString())

	nfiles := 3
	seen := make(map[int]bool, len(c.Redirects))
	for _, r := range c.Redirects {
		if r.Fd < 0 || seen[r.Fd] {
			return nil, fmt.Errorf("%w: fd %d", ErrBadRedirect, r.Fd)
		}
		seen[r.Fd] = true
		nfiles = max(nfiles, r.Fd+1)
	}

	files := make([]*os.File, nfiles)
	files[0], files[1], files[2] = os.Stdin, os.Stdout, os.Stderr

	var (
		parent []*fdio.File
		child  []*os.File
	)
	cleanup := func() {
		for _, f := range parent {
			f.Close()
		}
		for _, f := range child {
			f.Close()
		}
	}

	for _, r := range c.Redirects {
		var p [2]int
		if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
			cleanup()
			return nil, os.NewSyscallError("pipe2", err)
		}
		parentFd, childFd := p[1], p[0]
		if r.Dir == Output {
			parentFd, childFd = p[0], p[1]
		}
		cf := os.NewFile(uintptr(childFd), fmt.Sprintf("coproc-%s-%d", r.Dir, r.Fd))
		child = append(child, cf)
		pf, err := fdio.NewFile(parentFd)
		if err != nil {
			unix.Close(parentFd)
			cleanup()
			return nil, err
		}
		parent = append(parent, pf)
		files[r.Fd] = cf
	}

	env := append(append([]string(nil), c.Env...), os.Environ()...)
	proc, err := os.StartProcess(c.Path, c.Args, &os.ProcAttr{Env: env, Files: files})
	for _, f := range child {
		f.Close()
	}
	if err != nil {
		for _, f := range parent {
			f.Close()
		}
		return nil, fmt.Errorf("coproc: start %s: %w", c.Path, err)
	}
	log.Debug("process started", "path", c.Path, "pid", proc.Pid, "redirects", len(c.Redirects))

	return &Process{
		Files:     parent,
		redirects: append([]Redirect(nil), c.Redirects...),
		proc:      proc,
		log:       log,
	}, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.proc.Pid
}

// File returns the parent end of the pipe redirected to child descriptor
// fd, or nil when fd was not redirected.
func (p *Process) File(fd int) *fdio.File {
	for i, r := range p.redirects {
		if r.Fd == fd {
			return p.Files[i]
		}
	}
	return nil
}

// Wait waits for the process to exit and returns its exit status, or -1 if
// it was terminated by a signal.
func (p *Process) Wait() (int, error) {
	state, err := p.proc.Wait()
	if err != nil {
		return -1, fmt.Errorf("coproc: wait: %w", err)
	}
	code := -1
	if state.Exited() {
		code = state.ExitCode()
	}
	p.log.Debug("process exited", "pid", p.proc.Pid, "status", code)
	return code, nil
}

// Kill sends sig to the process.
func (p *Process) Kill(sig unix.Signal) error {
	if err := p.proc.Signal(sig); err != nil {
		return fmt.Errorf("coproc: signal %v: %w", sig, err)
	}
	return nil
}

// Pump copies every output descriptor that has an entry in sinks into that
// writer, concurrently, until each reaches end of file. Cancelling ctx
// aborts the copies. Pump does not close the parent ends.
func (p *Process) Pump(ctx context.Context, sinks map[int]io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range p.redirects {
		sink, ok := sinks[r.Fd]
		if !ok || r.Dir != Output {
			continue
		}
		f := p.Files[i]
		g.Go(func() error {
			stop := context.AfterFunc(ctx, func() { _ = f.Cancel() })
			defer stop()
			if _, err := bgio.Copy(sink, f, 0); err != nil {
				if errors.Is(err, fdio.ErrCanceled) {
					return ctx.Err()
				}
				return fmt.Errorf("coproc: pump fd %d: %w", r.Fd, err)
			}
			return nil
		})
	}
	return g.Wait()
}
