package bgio

import "io"

// Copy reads src until io.EOF and writes everything to dst through a buffer
// of bufSize bytes (DefaultCapacity when bufSize <= 0). Partial writes are
// retried; a write that makes no progress fails with io.ErrShortWrite.
func Copy(dst io.Writer, src io.Reader, bufSize int) (int64, error) {
	if bufSize <= 0 {
		bufSize = DefaultCapacity
	}
	buf := make([]byte, bufSize)
	var total int64
	for {
		n, rErr := src.Read(buf)
		for p := buf[:n]; len(p) > 0; {
			wn, wErr := dst.Write(p)
			if wn < 0 || wn > len(p) {
				wn = 0
				if wErr == nil {
					wErr = errInvalidCount
				}
			}
			total += int64(wn)
			p = p[wn:]
			if wErr != nil {
				return total, wErr
			}
			if wn == 0 {
				return total, io.ErrShortWrite
			}
		}
		if rErr != nil {
			if rErr != io.EOF {
				return total, rErr
			}
			return total, nil
		}
	}
}
