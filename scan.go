package bgio

import "bytes"

// matcher finds a delimiter in a byte stream delivered in arbitrary chunks.
// It keeps the length of the partial match between calls and falls back
// along the delimiter's prefix function on a mismatch, so delimiters whose
// prefix recurs (such as "aab" in "aaab") are never missed.
type matcher struct {
	delim []byte
	fail  []int
	state int
}

func newMatcher(delim []byte) *matcher {
	fail := make([]int, len(delim))
	for i, k := 1, 0; i < len(delim); i++ {
		for k > 0 && delim[i] != delim[k] {
			k = fail[k-1]
		}
		if delim[i] == delim[k] {
			k++
		}
		fail[i] = k
	}
	return &matcher{delim: delim, fail: fail}
}

// scan feeds p to the matcher. It returns the number of bytes of p up to
// and including the end of the first completed delimiter, or len(p) with
// found false when p holds no complete match.
func (m *matcher) scan(p []byte) (n int, found bool) {
	for n < len(p) {
		if m.state == 0 {
			i := bytes.IndexByte(p[n:], m.delim[0])
			if i < 0 {
				return len(p), false
			}
			n += i
		}
		c := p[n]
		for m.state > 0 && c != m.delim[m.state] {
			m.state = m.fail[m.state-1]
		}
		if c == m.delim[m.state] {
			m.state++
		}
		n++
		if m.state == len(m.delim) {
			m.state = 0
			return n, true
		}
	}
	return n, false
}

func (m *matcher) reset() {
	m.state = 0
}
