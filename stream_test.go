package bgio_test

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/bgio"
)

type header struct {
	Kind uint16
	Tag  [3]byte
	Len  int32
}

func TestPutGetThroughEngines(t *testing.T) {
	pr, pw := newTestPipe(t, 64)
	w := newTestWriter(t, pw, bgio.WithCapacity(16), bgio.WithBatchSize(4))
	r := newTestReader(t, pr, bgio.WithCapacity(16))

	want := header{Kind: 7, Tag: [3]byte{'a', 'b', 'c'}, Len: -42}
	require.NoError(t, bgio.Put(w, int32(-1)))
	require.NoError(t, bgio.Put(w, 3.25))
	require.NoError(t, bgio.Put(w, want))
	require.NoError(t, w.Close())

	i, err := bgio.Get[int32](r)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i)

	f, err := bgio.Get[float64](r)
	require.NoError(t, err)
	assert.Equal(t, 3.25, f)

	h, err := bgio.Get[header](r)
	require.NoError(t, err)
	assert.Equal(t, want, h)

	_, err = bgio.Get[uint64](r)
	var se *bgio.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get", se.Op)
	assert.ErrorIs(t, err, bgio.ErrShortValue)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetShortValue(t *testing.T) {
	r := newTestReader(t, &chunkSource{data: []byte{1, 2}})

	_, err := bgio.Get[uint32](r)
	assert.ErrorIs(t, err, bgio.ErrShortValue)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPutGetRejectVariableSize(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, bgio.Put(&buf, []int{1, 2}))
	assert.Zero(t, buf.Len())

	_, err := bgio.Get[string](&buf)
	assert.Error(t, err)
}

func TestPutShortWrite(t *testing.T) {
	sink := &recordingSink{err: errors.New("full"), failAfter: 2}

	err := bgio.Put(sink, uint64(1))
	var se *bgio.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.ErrorIs(t, err, bgio.ErrShortValue)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestPrint(t *testing.T) {
	sink := &recordingSink{}

	require.NoError(t, bgio.Print(sink, "n=", 42, ' ', int64(-7), uint8(3), []byte("!"), true))
	assert.Equal(t, "n=42 -73!true", sink.String())
	assert.Equal(t, 1, sink.writes, "one write per call")

	require.NoError(t, bgio.Print(sink))
}

func TestPrintShortWrite(t *testing.T) {
	sink := &recordingSink{err: errors.New("full"), failAfter: 2}

	err := bgio.Print(sink, "hello")
	var se *bgio.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "print", se.Op)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestScan(t *testing.T) {
	r := newTestReader(t, &chunkSource{data: []byte("  hello 42\n-7\t18446744073709551615 raw"), chunk: 3})

	var (
		s   string
		i   int
		i64 int64
		u64 uint64
		b   []byte
	)
	require.NoError(t, bgio.Scan(r, &s, &i, &i64, &u64, &b))
	assert.Equal(t, "hello", s)
	assert.Equal(t, 42, i)
	assert.Equal(t, int64(-7), i64)
	assert.Equal(t, uint64(18446744073709551615), u64)
	assert.Equal(t, "raw", string(b))

	err := bgio.Scan(r, &s)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestScanErrors(t *testing.T) {
	var i int
	err := bgio.Scan(bytes.NewReader([]byte("abc")), &i)
	var numErr *strconv.NumError
	assert.ErrorAs(t, err, &numErr)

	var f float64
	err = bgio.Scan(bytes.NewReader([]byte("1.5")), &f)
	var se *bgio.StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "scan", se.Op)
}

// zeroWriter accepts nothing and reports no error.
type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestCopy(t *testing.T) {
	rng := newRand(t)
	data := randomBytes(rng, 20_000)

	t.Run("Plain", func(t *testing.T) {
		var dst bytes.Buffer
		n, err := bgio.Copy(&dst, &chunkSource{data: data, chunk: 100}, 7)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), n)
		assert.Equal(t, data, dst.Bytes())
	})

	t.Run("PartialWrites", func(t *testing.T) {
		dst := &recordingSink{chunk: 3}
		n, err := bgio.Copy(dst, &chunkSource{data: data}, 0)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), n)
		assert.Equal(t, string(data), dst.String())
	})

	t.Run("Engines", func(t *testing.T) {
		r := newTestReader(t, &chunkSource{data: data, chunk: 999}, bgio.WithCapacity(128))
		sink := &recordingSink{}
		w := newTestWriter(t, sink, bgio.WithCapacity(64))

		n, err := bgio.Copy(w, r, 50)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), n)
		require.NoError(t, w.Close())
		assert.Equal(t, string(data), sink.String())
	})

	t.Run("SourceError", func(t *testing.T) {
		boom := errors.New("boom")
		var dst bytes.Buffer
		n, err := bgio.Copy(&dst, &chunkSource{data: []byte("ab"), err: boom}, 0)
		assert.Equal(t, boom, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("NoProgress", func(t *testing.T) {
		_, err := bgio.Copy(zeroWriter{}, &chunkSource{data: []byte("ab")}, 0)
		assert.Equal(t, io.ErrShortWrite, err)
	})
}
