package bgio

// ring is a fixed-capacity byte ring shared by one producer and one consumer.
//
// The occupied region is [head, tail) modulo len(buf). Because head == tail
// is both "empty" and "full", the empty flag tells the two apart.
//
// ring is not safe for concurrent use. The engines guard every index change
// with their mutex, but they copy bytes in and out of the spans returned by
// readable and writable without holding it: the consumer only ever advances
// head and the producer only ever advances tail, so the two spans never
// overlap.
type ring struct {
	buf   []byte
	head  int
	tail  int
	empty bool
}

// newRing creates a ring holding exactly capacity bytes.
func newRing(capacity int) *ring {
	return &ring{
		buf:   make([]byte, capacity),
		empty: true,
	}
}

func (r *ring) size() int {
	return len(r.buf)
}

// len returns the number of occupied bytes.
func (r *ring) len() int {
	switch {
	case r.empty:
		return 0
	case r.tail > r.head:
		return r.tail - r.head
	default:
		return len(r.buf) - r.head + r.tail
	}
}

func (r *ring) free() int {
	return len(r.buf) - r.len()
}

func (r *ring) full() bool {
	return !r.empty && r.head == r.tail
}

// readable returns the contiguous occupied run starting at head.
func (r *ring) readable() []byte {
	if r.empty {
		return nil
	}
	if r.tail > r.head {
		return r.buf[r.head:r.tail]
	}
	return r.buf[r.head:]
}

// writable returns the contiguous free run starting at tail.
func (r *ring) writable() []byte {
	if r.empty || r.tail > r.head {
		return r.buf[r.tail:]
	}
	return r.buf[r.tail:r.head]
}

// consume releases n bytes from the front of the readable run.
func (r *ring) consume(n int) {
	if n == 0 {
		return
	}
	if n < 0 || n > len(r.readable()) {
		panic("bgio: ring consume out of range")
	}
	r.head += n
	if r.head == len(r.buf) {
		r.head = 0
	}
	if r.head == r.tail {
		r.empty = true
	}
}

// commit publishes n bytes written into the front of the writable run.
func (r *ring) commit(n int) {
	if n == 0 {
		return
	}
	if n < 0 || n > len(r.writable()) {
		panic("bgio: ring commit out of range")
	}
	r.tail += n
	if r.tail == len(r.buf) {
		r.tail = 0
	}
	r.empty = false
}

// read copies up to len(dst) bytes out of the ring, wrapping if needed.
func (r *ring) read(dst []byte) int {
	var n int
	for n < len(dst) {
		c := copy(dst[n:], r.readable())
		if c == 0 {
			break
		}
		r.consume(c)
		n += c
	}
	return n
}

// write copies up to len(src) bytes into the ring, wrapping if needed.
func (r *ring) write(src []byte) int {
	var n int
	for n < len(src) {
		c := copy(r.writable(), src[n:])
		if c == 0 {
			break
		}
		r.commit(c)
		n += c
	}
	return n
}
