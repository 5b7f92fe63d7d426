package keys

import (
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
)

// Ed25519Key holds the 64-byte seed‖public form used by OpenSSH.
type Ed25519Key struct {
	priv ed25519.PrivateKey
}

// NewEd25519Key builds a key from the OpenSSH fields: the 32-byte public key
// and the 64-byte private blob seed‖public. The public halves must agree with
// the key derived from the seed.
func NewEd25519Key(pub, priv []byte) (*Ed25519Key, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key is %d bytes", errors.ErrInvalidKey, len(pub))
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key is %d bytes", errors.ErrInvalidKey, len(priv))
	}

	k, err := NewEd25519FromSeed(priv[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	derived := k.priv[ed25519.SeedSize:]
	if subtle.ConstantTimeCompare(derived, pub) != 1 || subtle.ConstantTimeCompare(derived, priv[ed25519.SeedSize:]) != 1 {
		k.Zero()
		return nil, fmt.Errorf("%w: ed25519 public key does not match seed", errors.ErrInvalidKey)
	}
	return k, nil
}

// NewEd25519FromSeed expands a 32-byte seed.
func NewEd25519FromSeed(seed []byte) (*Ed25519Key, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: ed25519 seed is %d bytes", errors.ErrInvalidKey, len(seed))
	}
	return &Ed25519Key{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateEd25519 creates a key from rand (crypto/rand when nil).
func GenerateEd25519(rand io.Reader) (*Ed25519Key, error) {
	seed, err := crypto.RandomBytes(rand, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureZero(seed)
	return NewEd25519FromSeed(seed)
}

// Seed returns a copy of the 32-byte seed.
func (k *Ed25519Key) Seed() []byte {
	return k.priv.Seed()
}

// PublicKey returns a copy of the 32-byte public key.
func (k *Ed25519Key) PublicKey() []byte {
	out := make([]byte, ed25519.PublicKeySize)
	copy(out, k.priv[ed25519.SeedSize:])
	return out
}

// Bytes returns the 64-byte seed‖public blob. The slice aliases the key.
func (k *Ed25519Key) Bytes() []byte {
	return k.priv
}

// Sign signs message with pure Ed25519.
func (k *Ed25519Key) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// VerifyEd25519 checks an Ed25519 signature.
func VerifyEd25519(pub, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// Zero wipes the key.
func (k *Ed25519Key) Zero() {
	crypto.SecureZero(k.priv)
}
