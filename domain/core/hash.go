package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// InputFingerprint hashes the given files in argument order into one digest.
// Two runs over byte-identical inputs carry the same fingerprint, which is
// what lets a rerun be checked for reproducibility after the fact.
func InputFingerprint(paths ...string) (Hash, error) {
	h := sha256.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", err
		}
		f.Close()
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}
