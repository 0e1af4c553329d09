//go:build linux

package coproc_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/jacoelho/bgio"
	"github.com/jacoelho/bgio/coproc"
)

func TestShellOutput(t *testing.T) {
	p, err := coproc.Shell(`printf 'a\nb\n'`, []coproc.Redirect{{Fd: 1, Dir: coproc.Output}}, nil)
	require.NoError(t, err)

	r, err := bgio.NewReader(p.File(1))
	require.NoError(t, err)
	defer r.Close()

	for _, want := range []string{"a", "b"} {
		line, err := r.GetLine("\n")
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}

	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestShellInputOutput(t *testing.T) {
	p, err := coproc.Shell("cat", []coproc.Redirect{
		{Fd: 0, Dir: coproc.Input},
		{Fd: 1, Dir: coproc.Output},
	}, nil)
	require.NoError(t, err)
	require.Len(t, p.Files, 2)

	w, err := bgio.NewWriter(p.File(0))
	require.NoError(t, err)
	r, err := bgio.NewReader(p.File(1))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, bgio.Print(w, "hello ", 42, '\n'))
	require.NoError(t, w.Flush())
	line, err := r.GetLine("\n")
	require.NoError(t, err)
	assert.Equal(t, "hello 42", line)

	require.NoError(t, w.Close(), "closing stdin ends cat")
	_, err = r.GetLine("\n")
	assert.Error(t, err)

	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestShellEnvAndStatus(t *testing.T) {
	p, err := coproc.Shell(`printf '%s' "$GREETING"; exit 3`,
		[]coproc.Redirect{{Fd: 1, Dir: coproc.Output}},
		[]string{"GREETING=hi there"})
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = bgio.Copy(&out, p.File(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "hi there", out.String())
	require.NoError(t, p.File(1).Close())

	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, status)
}

func TestKill(t *testing.T) {
	p, err := coproc.Shell("exec sleep 30", nil, nil)
	require.NoError(t, err)
	assert.Positive(t, p.Pid())

	require.NoError(t, p.Kill(unix.SIGKILL))
	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, -1, status)
}

func TestPump(t *testing.T) {
	p, err := coproc.Shell("echo out; echo err >&2; echo extra >&3", []coproc.Redirect{
		{Fd: 1, Dir: coproc.Output},
		{Fd: 2, Dir: coproc.Output},
		{Fd: 3, Dir: coproc.Output},
	}, nil)
	require.NoError(t, err)
	defer func() {
		for _, f := range p.Files {
			_ = f.Close()
		}
	}()

	var stdout, stderr, extra bytes.Buffer
	err = p.Pump(context.Background(), map[int]io.Writer{1: &stdout, 2: &stderr, 3: &extra})
	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
	assert.Equal(t, "extra\n", extra.String())

	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestPumpCanceled(t *testing.T) {
	p, err := coproc.Shell("exec sleep 30", []coproc.Redirect{{Fd: 1, Dir: coproc.Output}}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Kill(unix.SIGKILL)
		_, _ = p.Wait()
		_ = p.File(1).Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = p.Pump(ctx, map[int]io.Writer{1: io.Discard})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBadRedirect(t *testing.T) {
	_, err := coproc.Shell("true", []coproc.Redirect{{Fd: -1, Dir: coproc.Input}}, nil)
	assert.ErrorIs(t, err, coproc.ErrBadRedirect)

	_, err = coproc.Shell("true", []coproc.Redirect{
		{Fd: 1, Dir: coproc.Output},
		{Fd: 1, Dir: coproc.Input},
	}, nil)
	assert.ErrorIs(t, err, coproc.ErrBadRedirect)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "input", coproc.Input.String())
	assert.Equal(t, "output", coproc.Output.String())
	assert.Equal(t, "Direction(7)", coproc.Direction(7).String())
}

func TestStartTerminal(t *testing.T) {
	p, err := coproc.StartTerminal(coproc.Command{
		Path: "/bin/sh",
		Args: []string{"sh", "-c", "read name; echo \"hi $name\""},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Terminal)
	require.NoError(t, p.Resize(40, 120))

	r, err := bgio.NewReader(p.Terminal)
	require.NoError(t, err)
	defer r.Close()
	w, err := bgio.NewWriter(p.Terminal, bgio.WithBatchSize(0))
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, bgio.Print(w, "bob\n"))
	require.NoError(t, w.Flush())

	// The terminal echoes input and maps "\n" to "\r\n" on output.
	line, err := r.GetLine("\r\n")
	require.NoError(t, err)
	assert.Equal(t, "bob", line)
	line, err = r.GetLine("\r\n")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", line)

	status, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestStartTerminalRejectsRedirects(t *testing.T) {
	_, err := coproc.StartTerminal(coproc.Command{
		Path:      "/bin/true",
		Args:      []string{"true"},
		Redirects: []coproc.Redirect{{Fd: 1, Dir: coproc.Output}},
	})
	assert.ErrorIs(t, err, coproc.ErrBadRedirect)
}

func TestTerminalRawMode(t *testing.T) {
	p, err := coproc.StartTerminal(coproc.Command{Path: "/bin/cat", Args: []string{"cat"}})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.Kill(unix.SIGKILL)
		_, _ = p.Wait()
	})
	assert.True(t, term.IsTerminal(p.Terminal.Fd()))

	restore, err := p.MakeRaw()
	require.NoError(t, err)

	r, err := bgio.NewReader(p.Terminal)
	require.NoError(t, err)
	defer r.Close()

	_, err = p.Terminal.Write([]byte("ping\n"))
	require.NoError(t, err)
	line, err := r.GetLine("\n")
	require.NoError(t, err)
	assert.Equal(t, "ping", line, "raw mode neither echoes nor translates newlines")

	require.NoError(t, restore())
}

func TestTerminalMethodsWithoutTerminal(t *testing.T) {
	p, err := coproc.Shell("true", nil, nil)
	require.NoError(t, err)
	_, err = p.Wait()
	require.NoError(t, err)

	assert.Error(t, p.Resize(10, 10))
	_, err = p.MakeRaw()
	assert.Error(t, err)
}
