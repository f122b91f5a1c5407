package selfenc

import "context"

// Storage is the key/value collaborator the engine puts encrypted chunks
// to and gets them back from. Implementations may be in-memory, disk-backed
// or network-backed; the engine never assumes anything about durability or
// latency beyond "eventually completes or returns an error".
type Storage interface {
	// Get fetches a chunk by its storage name (the hash of its ciphertext).
	Get(ctx context.Context, name []byte) ([]byte, error)
	// Put stores a chunk under its storage name.
	Put(ctx context.Context, name []byte, data []byte) error
	// Delete removes a chunk by its storage name. Required to support
	// in-place mutation (write/truncate) of previously closed sessions.
	Delete(ctx context.Context, name []byte) error
}

// AddressNamer is an optional hook a Storage implementation may also satisfy
// to control how chunk ciphertexts are named. When absent, the engine uses
// hash256(data) directly as the storage name.
type AddressNamer interface {
	GenerateAddressName(data []byte) []byte
}

func addressName(s Storage, data []byte) [HashSize]byte {
	if namer, ok := s.(AddressNamer); ok {
		var name [HashSize]byte
		copy(name[:], namer.GenerateAddressName(data))
		return name
	}
	return hash256(data)
}
