package bgio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Print writes the concatenation of args to w in a single Write. Strings
// and byte slices are written as is, runes as UTF-8 characters, other
// integers in decimal; anything else is formatted with fmt. Unlike
// fmt.Fprint no separators are added.
func Print(w io.Writer, args ...any) error {
	var buf []byte
	for _, arg := range args {
		buf = appendValue(buf, arg)
	}
	n, err := w.Write(buf)
	if n != len(buf) {
		if err == nil {
			err = io.ErrShortWrite
		}
		return streamError("print", err)
	}
	return nil
}

func appendValue(buf []byte, arg any) []byte {
	switch v := arg.(type) {
	case string:
		return append(buf, v...)
	case []byte:
		return append(buf, v...)
	case rune:
		return utf8.AppendRune(buf, v)
	case int:
		return strconv.AppendInt(buf, int64(v), 10)
	case int8:
		return strconv.AppendInt(buf, int64(v), 10)
	case int16:
		return strconv.AppendInt(buf, int64(v), 10)
	case int64:
		return strconv.AppendInt(buf, v, 10)
	case uint:
		return strconv.AppendUint(buf, uint64(v), 10)
	case uint8:
		return strconv.AppendUint(buf, uint64(v), 10)
	case uint16:
		return strconv.AppendUint(buf, uint64(v), 10)
	case uint32:
		return strconv.AppendUint(buf, uint64(v), 10)
	case uint64:
		return strconv.AppendUint(buf, v, 10)
	default:
		return fmt.Append(buf, v)
	}
}

// Scan reads whitespace-separated tokens from r into the values pointed to
// by ptrs, which may be *string, *[]byte, *int, *int64 or *uint64.
func Scan(r io.ByteReader, ptrs ...any) error {
	for _, ptr := range ptrs {
		tok, err := scanToken(r)
		if err != nil {
			return streamError("scan", err)
		}
		if err := assignToken(ptr, tok); err != nil {
			return streamError("scan", err)
		}
	}
	return nil
}

// scanToken skips leading whitespace and returns the following run of
// non-space bytes. The byte that ends the token is consumed.
func scanToken(r io.ByteReader) ([]byte, error) {
	var tok []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(tok) > 0 {
				return tok, nil
			}
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if unicode.IsSpace(rune(c)) {
			if len(tok) > 0 {
				return tok, nil
			}
			continue
		}
		tok = append(tok, c)
	}
}

func assignToken(ptr any, tok []byte) error {
	switch p := ptr.(type) {
	case *string:
		*p = string(tok)
	case *[]byte:
		*p = tok
	case *int:
		v, err := strconv.Atoi(string(tok))
		if err != nil {
			return err
		}
		*p = v
	case *int64:
		v, err := strconv.ParseInt(string(tok), 10, 64)
		if err != nil {
			return err
		}
		*p = v
	case *uint64:
		v, err := strconv.ParseUint(string(tok), 10, 64)
		if err != nil {
			return err
		}
		*p = v
	default:
		return fmt.Errorf("unsupported scan target %T", ptr)
	}
	return nil
}
