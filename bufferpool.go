package semaphores

// framePool recycles frame buffers between Receive calls. It is channel based
// and safe for concurrent use.
type framePool struct {
	pool    chan []byte
	bufSize int
}

func newFramePool(bufSize, count int) *framePool {
	pool := make(chan []byte, count)
	for i := 0; i < count; i++ {
		pool <- make([]byte, bufSize)
	}
	return &framePool{
		pool:    pool,
		bufSize: bufSize,
	}
}

// get returns a pooled buffer, allocating when the pool is drained.
func (fp *framePool) get() []byte {
	select {
	case buf := <-fp.pool:
		return buf
	default:
		return make([]byte, fp.bufSize)
	}
}

// put hands buf back. Foreign-sized buffers and overflow are dropped.
func (fp *framePool) put(buf []byte) {
	if cap(buf) != fp.bufSize {
		return
	}
	select {
	case fp.pool <- buf[:fp.bufSize]:
	default:
	}
}
