package selfenc

import (
	"bytes"
	"testing"
)

func preHashesFixture(n int, seed byte) [][HashSize]byte {
	out := make([][HashSize]byte, n)
	for i := range out {
		out[i] = hash256([]byte{seed, byte(i)})
	}
	return out
}

func TestEncodeDecodeChunk_RoundTrip(t *testing.T) {
	preHashes := preHashesFixture(4, 1)
	pad, key, iv := deriveChunkCrypto(2, preHashes)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, err := encodeChunk(plaintext, pad, key, iv)
	if err != nil {
		t.Fatalf("encodeChunk: %v", err)
	}

	decoded, derr := decodeChunk(ciphertext, pad, key, iv)
	if derr != nil {
		t.Fatalf("decodeChunk: %v", derr)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", decoded, plaintext)
	}
}

func TestDecodeChunk_WrongKeyFailsAuthentication(t *testing.T) {
	preHashes := preHashesFixture(4, 1)
	pad, key, iv := deriveChunkCrypto(0, preHashes)

	ciphertext, err := encodeChunk([]byte("secret payload"), pad, key, iv)
	if err != nil {
		t.Fatalf("encodeChunk: %v", err)
	}

	otherPreHashes := preHashesFixture(4, 2)
	wrongPad, wrongKey, wrongIV := deriveChunkCrypto(0, otherPreHashes)
	_ = wrongPad

	if _, derr := decodeChunk(ciphertext, pad, wrongKey, wrongIV); derr == nil {
		t.Fatal("expected decryption error with wrong key/iv, got nil")
	} else if derr.Kind != KindDecryption {
		t.Errorf("expected KindDecryption, got %v", derr.Kind)
	}
}

func TestDeriveChunkCrypto_NeighboursEntangleOutput(t *testing.T) {
	base := preHashesFixture(5, 9)
	pad1, key1, iv1 := deriveChunkCrypto(3, base)

	perturbed := append([][HashSize]byte(nil), base...)
	perturbed[1] = hash256([]byte("different"))
	pad2, key2, iv2 := deriveChunkCrypto(3, perturbed)

	if bytes.Equal(pad1, pad2) && key1 == key2 && iv1 == iv2 {
		t.Error("changing a neighbour's pre-hash should change derived pad/key/iv")
	}
}

func TestDeriveChunkCrypto_WrapsCyclically(t *testing.T) {
	preHashes := preHashesFixture(4, 7)
	// Chunk 0's predecessors are chunks 3 and 2 (wrap around).
	_, key0, _ := deriveChunkCrypto(0, preHashes)
	var expectedKey [KeySize]byte
	copy(expectedKey[:], preHashes[3][:KeySize])
	if key0 != expectedKey {
		t.Errorf("chunk 0 key should derive from wrapped predecessor 3, got mismatch")
	}
}

func TestCompressDecompress_RoundTrip(t *testing.T) {
	for _, data := range [][]byte{
		{},
		[]byte("a"),
		bytes.Repeat([]byte("compressible "), 1000),
	} {
		compressed, err := compress(data)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		decompressed, derr := decompress(compressed)
		if derr != nil {
			t.Fatalf("decompress: %v", derr)
		}
		if !bytes.Equal(decompressed, data) {
			t.Errorf("compress round trip mismatch for len=%d", len(data))
		}
	}
}

func TestXorPad_IsSelfInverse(t *testing.T) {
	data := []byte("hello world, this is longer than the pad")
	pad := []byte{1, 2, 3, 4}

	obfuscated := xorPad(data, pad)
	restored := xorPad(obfuscated, pad)
	if !bytes.Equal(restored, data) {
		t.Error("xorPad should be its own inverse")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	var key [KeySize]byte
	var iv [IVSize]byte
	copy(key[:], hash256([]byte("key"))[:])
	copy(iv[:], hash256([]byte("iv"))[:IVSize])

	plaintext := []byte("payload")
	ciphertext := seal(plaintext, key, iv)
	decrypted, err := open(ciphertext, key, iv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("seal/open round trip mismatch")
	}
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	var key [KeySize]byte
	var iv [IVSize]byte
	copy(key[:], hash256([]byte("key"))[:])
	copy(iv[:], hash256([]byte("iv"))[:IVSize])

	ciphertext := seal([]byte("payload"), key, iv)
	ciphertext[0] ^= 0xFF

	if _, err := open(ciphertext, key, iv); err == nil {
		t.Fatal("expected authentication failure on tampered ciphertext")
	}
}
