package selfenc

import "golang.org/x/crypto/nacl/secretbox"

// seal authenticates and encrypts plaintext with XSalsa20-Poly1305, the
// "authenticated stream cipher" the specification asks for (section 6).
func seal(plaintext []byte, key [KeySize]byte, iv [IVSize]byte) []byte {
	return secretbox.Seal(nil, plaintext, &iv, &key)
}

// open verifies and decrypts ciphertext produced by seal. A Decryption
// error is returned on any authentication failure.
func open(ciphertext []byte, key [KeySize]byte, iv [IVSize]byte) ([]byte, *Error) {
	plaintext, ok := secretbox.Open(nil, ciphertext, &iv, &key)
	if !ok {
		return nil, decryptionErr(errAuthenticationFailed)
	}
	return plaintext, nil
}
