// Package hashutil implements the Blake2 digest oracle the attestation
// validator's message construction depends on (§6 Digest).
package hashutil

import "golang.org/x/crypto/blake2b"

// Blake returns the 32-byte Blake2b-256 digest of data.
func Blake(data []byte) [32]byte {
	return blake2b.Sum256(data)
}
