package selfenc

import "sync"

// chunkBufferPool pools standard-size plaintext buffers to cut allocations on
// the hot path of encoding/decoding MaxChunkSize chunks. Buffers are
// zeroized before being returned to the pool so stale plaintext never
// lingers in a buffer that gets handed to an unrelated chunk.
var chunkBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, MaxChunkSize)
		return &buf
	},
}

// getChunkBuffer returns a zeroed buffer of exactly MaxChunkSize bytes.
func getChunkBuffer() []byte {
	buf := chunkBufferPool.Get().(*[]byte)
	return (*buf)[:MaxChunkSize]
}

// putChunkBuffer zeroizes and returns buf to the pool. Only buffers obtained
// from getChunkBuffer (capacity exactly MaxChunkSize) are pooled.
func putChunkBuffer(buf []byte) {
	if cap(buf) != MaxChunkSize {
		return
	}
	for i := range buf {
		buf[i] = 0
	}
	buf = buf[:MaxChunkSize]
	chunkBufferPool.Put(&buf)
}
