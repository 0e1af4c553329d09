package bgio_test

import (
	"bytes"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jacoelho/bgio"
)

// chunkSource serves data in reads of at most chunk bytes.
type chunkSource struct {
	data   []byte
	chunk  int
	err    error // returned instead of io.EOF once data runs out
	closed bool
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := min(len(p), len(s.data))
	if s.chunk > 0 {
		n = min(n, s.chunk)
	}
	copy(p, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}

func (s *chunkSource) Close() error {
	s.closed = true
	return nil
}

// recordingSink collects writes, accepting at most chunk bytes per call and
// failing with err once failAfter bytes have been accepted.
type recordingSink struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	chunk     int
	failAfter int
	err       error
	writes    int
	closed    bool
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil && s.buf.Len() >= s.failAfter {
		return 0, s.err
	}
	if s.chunk > 0 && len(p) > s.chunk {
		p = p[:s.chunk]
	}
	if s.err != nil {
		p = p[:min(len(p), s.failAfter-s.buf.Len())]
	}
	s.writes++
	return s.buf.Write(p)
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func newTestReader(t *testing.T, src io.ReadCloser, opts ...bgio.Option) *bgio.Reader {
	t.Helper()
	r, err := bgio.NewReader(src, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newTestWriter(t *testing.T, dst io.WriteCloser, opts ...bgio.Option) *bgio.Writer {
	t.Helper()
	w, err := bgio.NewWriter(dst, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func newTestPipe(t *testing.T, size int) (*bgio.PipeReader, *bgio.PipeWriter) {
	t.Helper()
	r, w := bgio.Pipe(size)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}
	return b
}

func newRand(t *testing.T) *rand.Rand {
	t.Helper()
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	return rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
}
