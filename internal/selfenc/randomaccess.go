package selfenc

import "context"

// RandomAccessEncryptor is the public façade for random-access read, write,
// truncate and close of a self-encrypted file. It orchestrates the
// sequencer, chunk geometry, pipeline and storage collaborator. Exactly one
// write/read/truncate/close may be in flight at a time; the type itself
// does no internal locking.
type RandomAccessEncryptor struct {
	storage Storage
	seq     *sequencer
	length  uint64
	closed  bool
	hooks   Hooks

	original     []ChunkDetails
	originalGeo  geometry
	resident     []bool
}

// Hooks are optional observability callbacks a caller may set to collect
// metrics without the engine depending on any particular metrics library.
// A nil callback is simply not invoked.
type Hooks struct {
	// OnChunkEncoded is called once per chunk freshly encoded at Close,
	// with the plaintext size of that chunk.
	OnChunkEncoded func(plaintextBytes int)
	// OnChunkReused is called once per chunk kept unchanged across a
	// rewrite instead of being re-encoded.
	OnChunkReused func()
	// OnSequencerPromotion is called once if the session's working buffer
	// crosses MaxInMemorySize and is promoted to a memory-mapped form.
	OnSequencerPromotion func()
}

// NewRandomAccessEncryptor opens a session against storage, optionally
// seeded with a previously returned DataMap. A zero-value DataMap{} or
// EmptyDataMap() starts an empty file.
func NewRandomAccessEncryptor(storage Storage, dataMap DataMap) (*RandomAccessEncryptor, *Error) {
	return NewRandomAccessEncryptorWithHooks(storage, dataMap, Hooks{})
}

// NewRandomAccessEncryptorWithHooks is NewRandomAccessEncryptor with
// observability hooks attached.
func NewRandomAccessEncryptorWithHooks(storage Storage, dataMap DataMap, hooks Hooks) (*RandomAccessEncryptor, *Error) {
	ensureCryptoInitialised()

	e := &RandomAccessEncryptor{storage: storage, seq: newSequencerWithHook(hooks.OnSequencerPromotion), hooks: hooks}

	switch {
	case dataMap.IsContent():
		content, _ := dataMap.Content()
		e.seq.init(content)
		e.length = uint64(len(content))
	case dataMap.IsChunks():
		chunks, _ := dataMap.Chunks()
		e.original = chunks
		e.length = dataMap.Len()
		e.originalGeo = computeGeometry(e.length)
		e.resident = make([]bool, len(chunks))
	}

	return e, nil
}

// Len returns the current logical length of the file.
func (e *RandomAccessEncryptor) Len() uint64 { return e.length }

// materializeRange ensures every original chunk overlapping [start, end)
// (clamped to the original content length) is decoded into the sequencer at
// its correct byte offset.
func (e *RandomAccessEncryptor) materializeRange(ctx context.Context, start, end uint64) *Error {
	if len(e.original) == 0 {
		return nil
	}
	originalLen := e.originalGeo.total
	if start >= originalLen {
		return nil
	}
	if end > originalLen {
		end = originalLen
	}
	if end <= start {
		return nil
	}

	preHashes := make([][HashSize]byte, len(e.original))
	for i, c := range e.original {
		preHashes[i] = c.PreHash
	}

	first, last := e.originalGeo.chunksOverlapping(start, end)
	for i := first; i <= last; i++ {
		if e.resident[i] {
			continue
		}
		chunk := e.original[i]
		ciphertext, err := e.storage.Get(ctx, chunk.Hash[:])
		if err != nil {
			return storageErr(err)
		}
		if hash256(ciphertext) != chunk.Hash {
			return decryptionErr(errChunkTampered)
		}
		pad, key, iv := deriveChunkCrypto(i, preHashes)
		plaintext, derr := decodeChunk(ciphertext, pad, key, iv)
		if derr != nil {
			return derr
		}
		if werr := e.seq.writeAt(int(e.originalGeo.start(i)), plaintext); werr != nil {
			return werr
		}
		e.resident[i] = true
	}
	return nil
}

// Write logically overwrites bytes [position, position+len(data)) with
// data, extending the file if necessary.
func (e *RandomAccessEncryptor) Write(ctx context.Context, data []byte, position uint64) *Error {
	if e.closed {
		return argumentErr("write on closed encryptor")
	}
	newLen := position + uint64(len(data))
	if newLen < position { // overflow
		return argumentErr("write position overflow")
	}
	if newLen > MaxFileSize {
		return argumentErr("write would exceed MAX_FILE_SIZE")
	}

	if err := e.materializeRange(ctx, position, newLen); err != nil {
		return err
	}

	if err := e.seq.writeAt(int(position), data); err != nil {
		return err
	}
	if newLen > e.length {
		e.length = newLen
	}
	return nil
}

// Read returns exactly length bytes starting at position.
func (e *RandomAccessEncryptor) Read(ctx context.Context, position, length uint64) ([]byte, *Error) {
	if e.closed {
		return nil, argumentErr("read on closed encryptor")
	}
	if position+length > e.length {
		return nil, argumentErr("read out of range")
	}
	if length == 0 {
		return []byte{}, nil
	}

	if err := e.materializeRange(ctx, position, position+length); err != nil {
		return nil, err
	}

	out := make([]byte, length)
	copy(out, e.seq.slice(int(position), int(length)))
	return out, nil
}

// Truncate changes the logical length of the file, zero-extending or
// shrinking as needed.
func (e *RandomAccessEncryptor) Truncate(ctx context.Context, newLen uint64) *Error {
	if e.closed {
		return argumentErr("truncate on closed encryptor")
	}
	if newLen > MaxFileSize {
		return argumentErr("truncate would exceed MAX_FILE_SIZE")
	}

	if newLen < e.length {
		// Materialize the chunk containing the cut point so the byte
		// immediately before it is preserved once re-encoded at close.
		if newLen > 0 {
			if err := e.materializeRange(ctx, newLen-1, newLen); err != nil {
				return err
			}
		}
		// Original chunks starting at or past the cut are dropped; marking
		// them resident keeps a later extend or write from decoding them back.
		for i := range e.original {
			if e.originalGeo.start(i) >= newLen {
				e.resident[i] = true
			}
		}
		e.seq.truncate(int(newLen))
	} else if newLen > e.length {
		if err := e.seq.ensure(int(newLen)); err != nil {
			return err
		}
		clear(e.seq.slice(int(e.length), int(newLen-e.length)))
	}

	e.length = newLen
	return nil
}

// Close flushes the session and returns the resulting DataMap. On storage
// failure the session remains open and Close may be retried.
func (e *RandomAccessEncryptor) Close(ctx context.Context) (DataMap, *Error) {
	if e.closed {
		return DataMap{}, argumentErr("close on already-closed encryptor")
	}

	if e.length < smallContentThreshold {
		if err := e.materializeRange(ctx, 0, e.length); err != nil {
			return DataMap{}, err
		}
		var content []byte
		if e.length > 0 {
			content = append([]byte(nil), e.seq.slice(0, int(e.length))...)
		}
		if err := e.deleteAllOriginal(ctx); err != nil {
			return DataMap{}, err
		}
		e.closed = true
		_ = e.seq.close()
		if e.length == 0 {
			return EmptyDataMap(), nil
		}
		return ContentDataMap(content), nil
	}

	newLen := e.length
	if err := e.materializeRange(ctx, 0, newLen); err != nil {
		return DataMap{}, err
	}

	newGeo := computeGeometry(newLen)
	preHashes := make([][HashSize]byte, newGeo.count)
	for i := 0; i < newGeo.count; i++ {
		preHashes[i] = hash256(e.seq.slice(int(newGeo.start(i)), int(newGeo.length(i))))
	}

	sameGeometry := newGeo.count == e.originalGeo.count &&
		newGeo.standardLen == e.originalGeo.standardLen &&
		newGeo.lastLen == e.originalGeo.lastLen

	final := make([]ChunkDetails, newGeo.count)
	keptHashes := make(map[[HashSize]byte]struct{}, newGeo.count)

	for i := 0; i < newGeo.count; i++ {
		if sameGeometry && i < len(e.original) && unchanged(i, newGeo.count, preHashes, e.original) {
			final[i] = e.original[i]
			keptHashes[final[i].Hash] = struct{}{}
			if e.hooks.OnChunkReused != nil {
				e.hooks.OnChunkReused()
			}
			continue
		}

		pad, key, iv := deriveChunkCrypto(i, preHashes)
		plaintext := e.seq.slice(int(newGeo.start(i)), int(newGeo.length(i)))
		ciphertext, err := encodeChunk(plaintext, pad, key, iv)
		if err != nil {
			return DataMap{}, err
		}
		if e.hooks.OnChunkEncoded != nil {
			e.hooks.OnChunkEncoded(len(plaintext))
		}
		name := addressName(e.storage, ciphertext)
		if err := e.storage.Put(ctx, append([]byte(nil), name[:]...), ciphertext); err != nil {
			return DataMap{}, storageErr(err)
		}
		final[i] = ChunkDetails{
			ChunkIndex: uint32(i),
			PreHash:    preHashes[i],
			Hash:       name,
			SourceSize: newGeo.length(i),
		}
		keptHashes[name] = struct{}{}
	}

	for _, c := range e.original {
		if _, ok := keptHashes[c.Hash]; !ok {
			if err := e.storage.Delete(ctx, c.Hash[:]); err != nil {
				return DataMap{}, storageErr(err)
			}
		}
	}

	e.closed = true
	_ = e.seq.close()
	return ChunksDataMap(final), nil
}

// unchanged reports whether chunk i's pre-hash and the pre-hashes of the two
// neighbours its pad/key/iv are derived from are all identical to what they
// were in the original data map, meaning re-encoding it would reproduce the
// same ciphertext and storage name bit for bit.
func unchanged(i, n int, fresh [][HashSize]byte, original []ChunkDetails) bool {
	if i >= len(original) {
		return false
	}
	n1 := (i + n - 1) % n
	n2 := (i + n - 2) % n
	if n1 >= len(original) || n2 >= len(original) {
		return false
	}
	return fresh[i] == original[i].PreHash &&
		fresh[n1] == original[n1].PreHash &&
		fresh[n2] == original[n2].PreHash
}

func (e *RandomAccessEncryptor) deleteAllOriginal(ctx context.Context) *Error {
	for _, c := range e.original {
		if err := e.storage.Delete(ctx, c.Hash[:]); err != nil {
			return storageErr(err)
		}
	}
	return nil
}
