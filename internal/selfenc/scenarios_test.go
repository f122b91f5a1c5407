package selfenc

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

var errNoSuchChunk = errors.New("no such chunk")

// countingStorage wraps a Storage and records which names were fetched,
// letting scenario tests assert that only the expected chunks were touched.
type countingStorage struct {
	Storage
	gotNames [][HashSize]byte
}

func (c *countingStorage) Get(ctx context.Context, name []byte) ([]byte, error) {
	var n [HashSize]byte
	copy(n[:], name)
	c.gotNames = append(c.gotNames, n)
	return c.Storage.Get(ctx, name)
}

func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 256)
	}
	return b
}

// S1: empty content closes to None with nothing stored.
func TestScenarioS1_EmptyContent(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	enc, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	dm, cerr := enc.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	if !dm.IsNone() {
		t.Errorf("expected None map, got %+v", dm)
	}
	if store.len() != 0 {
		t.Errorf("expected empty storage, found %d entries", store.len())
	}
}

// S2: 3 bytes closes to inline Content.
func TestScenarioS2_TinyContentInline(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	enc, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	data := []byte{0, 1, 2}
	if werr := enc.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	dm, cerr := enc.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	got, ok := dm.Content()
	if !ok || !bytes.Equal(got, data) {
		t.Errorf("expected Content(%v), got %+v", data, dm)
	}
	if store.len() != 0 {
		t.Errorf("expected empty storage, found %d entries", store.len())
	}
}

// S3: exactly smallContentThreshold bytes splits into 3 equal 1024-byte chunks.
func TestScenarioS3_ThreeWaySplitAtThreshold(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	enc, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	data := patternBytes(smallContentThreshold)
	if werr := enc.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	dm, cerr := enc.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	chunks, ok := dm.Chunks()
	if !ok || len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %+v", dm)
	}
	for i, c := range chunks {
		if c.SourceSize != MinChunkSize {
			t.Errorf("chunk %d: source_size = %d, want %d", i, c.SourceSize, MinChunkSize)
		}
	}
}

// S4: 3 MiB content splits into 3 chunks of exactly MaxChunkSize each.
func TestScenarioS4_ThreeStandardChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	enc, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	data := patternBytes(3 * MaxChunkSize)
	if werr := enc.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	dm, cerr := enc.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	chunks, ok := dm.Chunks()
	if !ok || len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %+v", dm)
	}
	for i, c := range chunks {
		if c.SourceSize != MaxChunkSize {
			t.Errorf("chunk %d: source_size = %d, want %d", i, c.SourceSize, MaxChunkSize)
		}
	}
}

// S5: 4 MiB content splits into 4 chunks of exactly MaxChunkSize each.
func TestScenarioS5_FourStandardChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	enc, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	data := patternBytes(4 * MaxChunkSize)
	if werr := enc.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	dm, cerr := enc.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	chunks, ok := dm.Chunks()
	if !ok || len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %+v", dm)
	}
	for i, c := range chunks {
		if c.SourceSize != MaxChunkSize {
			t.Errorf("chunk %d: source_size = %d, want %d", i, c.SourceSize, MaxChunkSize)
		}
	}
}

// S6: reading 12 bytes straddling the chunk0/chunk1 boundary of a 3 MiB file
// touches only chunks 0 and 1 in storage.
func TestScenarioS6_RandomReadTouchesOnlyOverlappingChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	data := patternBytes(3 * MaxChunkSize)

	writer, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	if werr := writer.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	dm, cerr := writer.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	chunks, _ := dm.Chunks()

	counting := &countingStorage{Storage: store}
	reader, err := NewRandomAccessEncryptor(counting, dm)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, rerr := reader.Read(ctx, MaxChunkSize-6, 12)
	if rerr != nil {
		t.Fatalf("read: %v", rerr)
	}
	want := data[MaxChunkSize-6 : MaxChunkSize+6]
	if !bytes.Equal(got, want) {
		t.Errorf("read bytes mismatch: got %v, want %v", got, want)
	}

	touched := map[[HashSize]byte]bool{}
	for _, n := range counting.gotNames {
		touched[n] = true
	}
	if len(touched) != 2 || !touched[chunks[0].Hash] || !touched[chunks[1].Hash] {
		t.Errorf("expected exactly chunks {0,1} touched, got %d distinct names", len(touched))
	}
	if touched[chunks[2].Hash] {
		t.Error("chunk 2 should not have been fetched")
	}
}

// S7: overwriting 10 bytes spanning chunks 1 and 2 of a 3-chunk (n=3) file
// invalidates every chunk, since with n=3 every chunk is a neighbour of
// every other chunk.
func TestScenarioS7_PartialOverwriteInvalidatesNeighbours(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStorage()
	data := patternBytes(3 * MaxChunkSize)

	writer, err := NewRandomAccessEncryptor(store, DataMap{})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	if werr := writer.Write(ctx, data, 0); werr != nil {
		t.Fatalf("write: %v", werr)
	}
	originalMap, cerr := writer.Close(ctx)
	if cerr != nil {
		t.Fatalf("close: %v", cerr)
	}
	originalChunks, _ := originalMap.Chunks()

	patch := bytes.Repeat([]byte{0xFF}, 10)
	position := uint64(2 * MaxChunkSize - 2) // spans chunks 1 and 2
	editor, err := NewRandomAccessEncryptor(store, originalMap)
	if err != nil {
		t.Fatalf("reopen for edit: %v", err)
	}
	if werr := editor.Write(ctx, patch, position); werr != nil {
		t.Fatalf("patch write: %v", werr)
	}
	updatedMap, cerr := editor.Close(ctx)
	if cerr != nil {
		t.Fatalf("patch close: %v", cerr)
	}
	updatedChunks, _ := updatedMap.Chunks()

	if len(updatedChunks) != 3 {
		t.Fatalf("expected 3 chunks after patch, got %d", len(updatedChunks))
	}
	for i := range originalChunks {
		if updatedChunks[i].Hash == originalChunks[i].Hash {
			t.Errorf("chunk %d expected a new hash after patch, hash unchanged", i)
		}
	}

	reader, err := NewRandomAccessEncryptor(store, updatedMap)
	if err != nil {
		t.Fatalf("reopen for verify: %v", err)
	}
	full, rerr := reader.Read(ctx, 0, uint64(len(data)))
	if rerr != nil {
		t.Fatalf("read all: %v", rerr)
	}

	want := append([]byte(nil), data...)
	copy(want[position:], patch)
	if !bytes.Equal(full, want) {
		t.Error("patched content does not match expected original-with-patch bytes")
	}
}

func newTestMemoryStorage() *testMemoryStorage {
	return &testMemoryStorage{entries: make(map[[HashSize]byte][]byte)}
}

// testMemoryStorage is a minimal Storage implementation local to this
// package's tests, avoiding an import cycle with internal/storage.
type testMemoryStorage struct {
	entries map[[HashSize]byte][]byte
}

func (s *testMemoryStorage) Get(_ context.Context, name []byte) ([]byte, error) {
	var n [HashSize]byte
	copy(n[:], name)
	data, ok := s.entries[n]
	if !ok {
		return nil, errNoSuchChunk
	}
	return append([]byte(nil), data...), nil
}

func (s *testMemoryStorage) Put(_ context.Context, name []byte, data []byte) error {
	var n [HashSize]byte
	copy(n[:], name)
	s.entries[n] = append([]byte(nil), data...)
	return nil
}

func (s *testMemoryStorage) Delete(_ context.Context, name []byte) error {
	var n [HashSize]byte
	copy(n[:], name)
	delete(s.entries, n)
	return nil
}

func (s *testMemoryStorage) len() int { return len(s.entries) }
