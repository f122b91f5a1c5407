package selfenc

import "testing"

func TestChunkBufferPool_GetIsZeroedAndRightSize(t *testing.T) {
	buf := getChunkBuffer()
	defer putChunkBuffer(buf)

	if len(buf) != MaxChunkSize {
		t.Fatalf("len = %d, want %d", len(buf), MaxChunkSize)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}
}

func TestChunkBufferPool_PutZeroizesBeforeReuse(t *testing.T) {
	buf := getChunkBuffer()
	for i := range buf {
		buf[i] = 0xAA
	}
	putChunkBuffer(buf)

	reused := getChunkBuffer()
	defer putChunkBuffer(reused)
	for i, b := range reused {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
			break
		}
	}
}

func TestChunkBufferPool_IgnoresWrongSizedBuffers(t *testing.T) {
	// Should not panic or corrupt pool state.
	putChunkBuffer(make([]byte, 10))
}
