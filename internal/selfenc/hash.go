package selfenc

import "golang.org/x/crypto/sha3"

// hash256 is the deployment-wide cryptographic hash used for both
// chunk pre-hashes (plaintext) and post-hashes (ciphertext / storage names).
// SHA3-256 was chosen over the legacy SHA-512-truncated generation; storage
// names are not portable across this choice, see DESIGN.md.
func hash256(data []byte) [HashSize]byte {
	return sha3.Sum256(data)
}
