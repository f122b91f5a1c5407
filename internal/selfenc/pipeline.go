package selfenc

// encodeChunk runs the single-chunk pipeline: compress, encrypt, XOR-obfuscate.
func encodeChunk(plaintext []byte, pad []byte, key [KeySize]byte, iv [IVSize]byte) ([]byte, *Error) {
	compressed, err := compress(plaintext)
	if err != nil {
		return nil, err
	}
	sealed := seal(compressed, key, iv)
	return xorPad(sealed, pad), nil
}

// decodeChunk is the exact inverse of encodeChunk.
func decodeChunk(ciphertext []byte, pad []byte, key [KeySize]byte, iv [IVSize]byte) ([]byte, *Error) {
	sealed := xorPad(ciphertext, pad)
	compressed, derr := open(sealed, key, iv)
	if derr != nil {
		return nil, derr
	}
	plaintext, err := decompress(compressed)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
