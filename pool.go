package serialstream

// pool is the staging region for incoming data. Chunks handed downstream are
// sub-slices of buf; once the free tail gets too small the whole pool is
// replaced instead of reused, so delivered chunks are never overwritten.
type pool struct {
	buf  []byte
	used int
}

func newPool(size int) *pool {
	return &pool{buf: make([]byte, size)}
}

func (p *pool) free() int {
	return len(p.buf) - p.used
}

// region returns the start offset and length for the next read, asking for
// at most want bytes.
func (p *pool) region(want int) (start, length int) {
	length = p.free()
	if want < length {
		length = want
	}
	return p.used, length
}

// advance marks n more bytes as used and returns them. The returned slice has
// its capacity clipped so appends by a consumer cannot reach the free tail.
func (p *pool) advance(start, n int) []byte {
	p.used += n
	return p.buf[start : start+n : start+n]
}

// ensurePool returns p, or a fresh pool of the given size when p is nil or
// has less than MinPoolSpace bytes left. The bool reports a replacement.
func ensurePool(p *pool, size int) (*pool, bool) {
	if p == nil || p.free() < MinPoolSpace {
		return newPool(size), true
	}
	return p, false
}
