// Package keys defines the decoded private key union and its public halves.
//
// A PrivateKey holds exactly one of RSA, ECDSA or Ed25519 material. The
// caller owns it and must call Zero when done.
package keys

import (
	"fmt"

	"keyscope/internal/ecc"
	"keyscope/internal/errors"
)

// Algorithm discriminates PrivateKey and PublicKey.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmRSA
	AlgorithmECDSA
	AlgorithmEd25519
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRSA:
		return "RSA"
	case AlgorithmECDSA:
		return "ECDSA"
	case AlgorithmEd25519:
		return "ED25519"
	default:
		return "unknown"
	}
}

// SSH key type names.
const (
	KeyTypeRSA     = "ssh-rsa"
	KeyTypeEd25519 = "ssh-ed25519"
)

// PrivateKey is a decoded private key.
type PrivateKey struct {
	Algorithm Algorithm
	RSA       *RSAKey
	ECDSA     *ecc.PrivateKey
	Ed25519   *Ed25519Key
	Comment   string
}

// NewRSA wraps an RSA key.
func NewRSA(k *RSAKey, comment string) *PrivateKey {
	return &PrivateKey{Algorithm: AlgorithmRSA, RSA: k, Comment: comment}
}

// NewECDSA wraps an EC key.
func NewECDSA(k *ecc.PrivateKey, comment string) *PrivateKey {
	return &PrivateKey{Algorithm: AlgorithmECDSA, ECDSA: k, Comment: comment}
}

// NewEd25519 wraps an Ed25519 key.
func NewEd25519(k *Ed25519Key, comment string) *PrivateKey {
	return &PrivateKey{Algorithm: AlgorithmEd25519, Ed25519: k, Comment: comment}
}

// Validate checks that exactly the variant named by Algorithm is set.
func (k *PrivateKey) Validate() error {
	set := 0
	for _, present := range []bool{k.RSA != nil, k.ECDSA != nil, k.Ed25519 != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %d key variants set", errors.ErrInvalidKey, set)
	}

	switch k.Algorithm {
	case AlgorithmRSA:
		if k.RSA != nil {
			return nil
		}
	case AlgorithmECDSA:
		if k.ECDSA != nil {
			return nil
		}
	case AlgorithmEd25519:
		if k.Ed25519 != nil {
			return nil
		}
	}
	return fmt.Errorf("%w: variant does not match algorithm %s", errors.ErrInvalidKey, k.Algorithm)
}

// KeyType returns the SSH key type name, e.g. "ssh-ed25519".
func (k *PrivateKey) KeyType() string {
	switch k.Algorithm {
	case AlgorithmRSA:
		return KeyTypeRSA
	case AlgorithmECDSA:
		return k.ECDSA.Curve.KeyType()
	case AlgorithmEd25519:
		return KeyTypeEd25519
	default:
		return ""
	}
}

// Bits returns the modulus size for RSA and the curve size otherwise.
func (k *PrivateKey) Bits() int {
	switch k.Algorithm {
	case AlgorithmRSA:
		return k.RSA.N.BitLen()
	case AlgorithmECDSA:
		return k.ECDSA.Curve.BitSize
	case AlgorithmEd25519:
		return 256
	default:
		return 0
	}
}

// Public returns the public half.
func (k *PrivateKey) Public() *PublicKey {
	pub := &PublicKey{Algorithm: k.Algorithm, Comment: k.Comment}
	switch k.Algorithm {
	case AlgorithmRSA:
		pub.RSA = k.RSA.Public()
	case AlgorithmECDSA:
		pub.ECDSA = k.ECDSA.Public()
	case AlgorithmEd25519:
		pub.Ed25519 = k.Ed25519.PublicKey()
	}
	return pub
}

// Zero wipes all private material.
func (k *PrivateKey) Zero() {
	if k == nil {
		return
	}
	if k.RSA != nil {
		k.RSA.Zero()
	}
	if k.ECDSA != nil {
		k.ECDSA.Zero()
	}
	if k.Ed25519 != nil {
		k.Ed25519.Zero()
	}
}
