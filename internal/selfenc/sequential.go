package selfenc

import "context"

// SequentialEncryptor is an append-only façade specialised for streaming
// producers. Unlike RandomAccessEncryptor it never seeks backwards: each
// Write call appends to the end of the file, and completed chunks are
// flushed to storage as soon as their identity can no longer change.
//
// A chunk's pad/key/iv depend on its own pre-hash plus its two lexical
// predecessors (chunk i depends on i-1 and i-2) except for chunks 0 and 1,
// whose predecessors wrap around to the *last* two chunks of the file and
// so cannot be known until the final length is known at Close. Every other
// chunk can therefore be flushed as soon as at least two more full standard
// chunks of plaintext are buffered ahead of it, guaranteeing it is not
// secretly the file's variable-length final chunk.
type SequentialEncryptor struct {
	storage Storage
	closed  bool

	total  uint64 // total bytes ever written
	buffer []byte // unfixed tail: stream bytes [fixedCount*MaxChunkSize, total)

	fixedPreHashes [][HashSize]byte   // pre-hash of every boundary-fixed chunk, in order
	headPlain      map[int][]byte     // retained plaintext for fixed-but-unencoded chunks (indices 0, 1)
	storedEarly    map[int]ChunkDetails // already encoded+stored chunks, index >= 2
}

// NewSequentialEncryptor opens an append-only session against storage.
func NewSequentialEncryptor(storage Storage) *SequentialEncryptor {
	ensureCryptoInitialised()
	return &SequentialEncryptor{
		storage:     storage,
		headPlain:   make(map[int][]byte),
		storedEarly: make(map[int]ChunkDetails),
	}
}

// Write appends data to the end of the file.
func (e *SequentialEncryptor) Write(ctx context.Context, data []byte) *Error {
	if e.closed {
		return argumentErr("write on closed encryptor")
	}
	newTotal := e.total + uint64(len(data))
	if newTotal < e.total || newTotal > MaxFileSize {
		return argumentErr("write would exceed MAX_FILE_SIZE")
	}
	e.buffer = append(e.buffer, data...)
	e.total = newTotal
	return e.flushReady(ctx)
}

// flushReady fixes and, where possible, encodes chunk boundaries from the
// front of the buffer while at least two full standard chunks remain
// buffered behind them.
func (e *SequentialEncryptor) flushReady(ctx context.Context) *Error {
	for uint64(len(e.buffer)) > 3*MaxChunkSize {
		i := len(e.fixedPreHashes)
		plaintext := e.buffer[:MaxChunkSize]
		preHash := hash256(plaintext)
		e.fixedPreHashes = append(e.fixedPreHashes, preHash)

		if i < 2 {
			buf := getChunkBuffer()
			copy(buf, plaintext)
			e.headPlain[i] = buf
		} else {
			pad, key, iv := deriveLinearChunkCrypto(i, e.fixedPreHashes)
			ciphertext, err := encodeChunk(plaintext, pad, key, iv)
			if err != nil {
				return err
			}
			name := addressName(e.storage, ciphertext)
			if err := e.storage.Put(ctx, append([]byte(nil), name[:]...), ciphertext); err != nil {
				return storageErr(err)
			}
			e.storedEarly[i] = ChunkDetails{
				ChunkIndex: uint32(i),
				PreHash:    preHash,
				Hash:       name,
				SourceSize: MaxChunkSize,
			}
		}

		e.buffer = e.buffer[MaxChunkSize:]
	}
	return nil
}

// deriveLinearChunkCrypto is deriveChunkCrypto specialised for chunk indices
// i >= 2, whose predecessors are always i-1 and i-2 with no wraparound, so
// it can be evaluated before the final chunk count is known.
func deriveLinearChunkCrypto(i int, preHashes [][HashSize]byte) (pad []byte, key [KeySize]byte, iv [IVSize]byte) {
	var s [2 * HashSize]byte
	copy(s[:HashSize], preHashes[i][:])
	copy(s[HashSize:], preHashes[i-2][:])

	pad = append([]byte(nil), s[:PadSize]...)
	copy(iv[:], s[PadSize:PadSize+IVSize])
	copy(key[:], preHashes[i-1][:KeySize])
	return pad, key, iv
}

// Close flushes the tail of the file using the geometry for the final total
// length, re-encoding any chunk whose identity could only be resolved once
// that length was known, and returns the resulting DataMap.
func (e *SequentialEncryptor) Close(ctx context.Context) (DataMap, *Error) {
	if e.closed {
		return DataMap{}, argumentErr("close on already-closed encryptor")
	}
	e.closed = true

	if e.total < smallContentThreshold {
		if e.total == 0 {
			return EmptyDataMap(), nil
		}
		return ContentDataMap(e.buffer), nil
	}

	geo := computeGeometry(e.total)
	fixedCount := len(e.fixedPreHashes)

	preHashes := make([][HashSize]byte, geo.count)
	copy(preHashes, e.fixedPreHashes)
	for i := fixedCount; i < geo.count; i++ {
		start := geo.start(i) - uint64(fixedCount)*MaxChunkSize
		preHashes[i] = hash256(e.buffer[start : start+geo.length(i)])
	}

	final := make([]ChunkDetails, geo.count)
	for i := 0; i < geo.count; i++ {
		if i >= 2 && i < fixedCount {
			final[i] = e.storedEarly[i]
			continue
		}

		var plaintext []byte
		if i < fixedCount {
			plaintext = e.headPlain[i]
			defer putChunkBuffer(plaintext)
		} else {
			start := geo.start(i) - uint64(fixedCount)*MaxChunkSize
			plaintext = e.buffer[start : start+geo.length(i)]
		}

		pad, key, iv := deriveChunkCrypto(i, preHashes)
		ciphertext, err := encodeChunk(plaintext, pad, key, iv)
		if err != nil {
			return DataMap{}, err
		}
		name := addressName(e.storage, ciphertext)
		if err := e.storage.Put(ctx, append([]byte(nil), name[:]...), ciphertext); err != nil {
			return DataMap{}, storageErr(err)
		}
		final[i] = ChunkDetails{
			ChunkIndex: uint32(i),
			PreHash:    preHashes[i],
			Hash:       name,
			SourceSize: geo.length(i),
		}
	}

	return ChunksDataMap(final), nil
}
