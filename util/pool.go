package util

import "sync"

// EchoBufSize is the per-read chunk size used by echo handlers.
const EchoBufSize = 512

// BufPool provides reusable EchoBufSize buffers so that each accepted
// connection does not allocate its own read buffer.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, EchoBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.  Buffers that were
// resliced to a different length are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || len(*buf) != EchoBufSize {
		return
	}
	BufPool.Put(buf)
}
