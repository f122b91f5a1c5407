// Package selfenc implements convergent content self-encryption: splitting
// a plaintext into independently addressable encrypted chunks named by the
// hash of their ciphertext, plus a small data map that can reconstruct,
// verify and randomly access the original bytes without any external key
// material.
package selfenc

const (
	// MaxFileSize is the largest plaintext length the engine will accept, in bytes.
	MaxFileSize = 1024 * 1024 * 1024

	// MaxChunkSize is the largest size (before compression) of an individual chunk.
	MaxChunkSize = 1024 * 1024

	// MinChunkSize is the smallest size (before compression) of an individual chunk,
	// and the unit used to derive the small-content threshold (3 * MinChunkSize).
	MinChunkSize = 1024

	// CompressionQuality controls the compression-speed vs compression-density
	// tradeoff used for every chunk. Higher is slower and denser. Range 0-11.
	CompressionQuality = 6

	// MaxInMemorySize is the soft cap on the sequencer's vector representation
	// before it is promoted to a memory-mapped buffer.
	MaxInMemorySize = 50 * 1024 * 1024

	// HashSize is the width, in bytes, of every pre-hash and post-hash.
	HashSize = 32

	// KeySize is the width, in bytes, of the per-chunk symmetric key.
	KeySize = 32

	// IVSize is the width, in bytes, of the per-chunk nonce (XSalsa20's 24-byte nonce).
	IVSize = 24

	// PadSize is the width, in bytes, of the per-chunk XOR pad: whatever is left
	// over from three concatenated pre-hashes once the key and IV are carved out.
	PadSize = 3*HashSize - KeySize - IVSize

	// smallContentThreshold is the plaintext length below which the data map
	// stores the content inline instead of chunking it.
	smallContentThreshold = 3 * MinChunkSize
)
