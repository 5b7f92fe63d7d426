package crypto

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"keyscope/internal/errors"
)

// DefaultHash digests messages when the caller names none.
const DefaultHash = "sha256"

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil) // only fails for keys over 64 bytes
	return h
}

func newBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

var hashes = map[string]func() hash.Hash{
	"sha1":        sha1.New,
	"sha224":      sha256.New224,
	"sha256":      sha256.New,
	"sha384":      sha512.New384,
	"sha512":      sha512.New,
	"sha3-256":    sha3.New256,
	"sha3-384":    sha3.New384,
	"sha3-512":    sha3.New512,
	"keccak256":   sha3.NewLegacyKeccak256,
	"blake2b-256": newBlake2b256,
	"blake2b-512": newBlake2b512,
}

// NewHash returns the hash registered under name (case-insensitive).
// keccak256 is the pre-standard Keccak used by Ethereum.
func NewHash(name string) (hash.Hash, error) {
	fn, ok := hashes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.NewUnsupportedError("hash", name, errors.ErrUnknownHash)
	}
	return fn(), nil
}

// Digest hashes message with the named hash.
func Digest(name string, message []byte) ([]byte, error) {
	h, err := NewHash(name)
	if err != nil {
		return nil, err
	}
	h.Write(message)
	return h.Sum(nil), nil
}

// Hashes lists the registered hash names in sorted order.
func Hashes() []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
