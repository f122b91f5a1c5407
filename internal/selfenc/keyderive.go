package selfenc

// deriveChunkCrypto computes the (pad, key, iv) triple for chunk i given the
// ordered vector of every chunk's plaintext pre-hash. It entangles each
// chunk with its two lexical predecessors (cyclically), so a single changed
// byte perturbs the storage names of three chunks. Requires len(preHashes) >= 3.
func deriveChunkCrypto(i int, preHashes [][HashSize]byte) (pad []byte, key [KeySize]byte, iv [IVSize]byte) {
	n := len(preHashes)
	n1 := (i + n - 1) % n
	n2 := (i + n - 2) % n

	var s [2 * HashSize]byte
	copy(s[:HashSize], preHashes[i][:])
	copy(s[HashSize:], preHashes[n2][:])

	pad = append([]byte(nil), s[:PadSize]...)
	copy(iv[:], s[PadSize:PadSize+IVSize])
	copy(key[:], preHashes[n1][:KeySize])
	return pad, key, iv
}
