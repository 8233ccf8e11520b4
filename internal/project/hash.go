package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit content hash, layout-compatible with
// source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by each extra digest in order:
// H( content || d1 || d2 ... ). Callers must pass the extras in a
// deterministic order.
func Combine(content Digest, extras ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range extras {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
