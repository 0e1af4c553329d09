package bgio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Put writes v, a fixed-size value such as an integer, float, array or
// struct of those, in native byte order. A short write fails with a
// *StreamError wrapping ErrShortValue.
func Put[T any](w io.Writer, v T) error {
	buf, err := binary.Append(nil, binary.NativeEndian, v)
	if err != nil {
		return streamError("put", err)
	}
	n, err := w.Write(buf)
	if n != len(buf) {
		if err == nil {
			err = io.ErrShortWrite
		}
		return streamError("put", fmt.Errorf("%w: %w", ErrShortValue, err))
	}
	return nil
}

// Get reads a fixed-size value written by Put. Fewer bytes than the size of
// T fail with a *StreamError wrapping ErrShortValue and the read error.
func Get[T any](r io.Reader) (T, error) {
	var v T
	size := binary.Size(v)
	if size < 0 {
		return v, streamError("get", fmt.Errorf("%T is not a fixed-size value", v))
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return v, streamError("get", fmt.Errorf("%w: %w", ErrShortValue, err))
	}
	if _, err := binary.Decode(buf, binary.NativeEndian, &v); err != nil {
		return v, streamError("get", err)
	}
	return v, nil
}
