package ecc

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
)

// PublicKey is an affine point Q on Curve, validated on construction.
type PublicKey struct {
	Curve *Curve
	X, Y  *big.Int
}

// NewPublicKey validates (x, y) and returns the key.
func NewPublicKey(c *Curve, x, y *big.Int) (*PublicKey, error) {
	if !c.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: point not on %s", errors.ErrInvalidKey, c.Name)
	}
	return &PublicKey{Curve: c, X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}, nil
}

// UnmarshalPublicKey decodes a SEC1 point: 0x04‖X‖Y, or 0x02/0x03‖X.
func UnmarshalPublicKey(c *Curve, data []byte) (*PublicKey, error) {
	size := c.FieldByteLen()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty point", errors.ErrInvalidKey)
	}

	switch data[0] {
	case 0x04:
		if len(data) != 1+2*size {
			return nil, fmt.Errorf("%w: uncompressed point is %d bytes, want %d", errors.ErrInvalidKey, len(data), 1+2*size)
		}
		x := new(big.Int).SetBytes(data[1 : 1+size])
		y := new(big.Int).SetBytes(data[1+size:])
		return NewPublicKey(c, x, y)

	case 0x02, 0x03:
		if len(data) != 1+size {
			return nil, fmt.Errorf("%w: compressed point is %d bytes, want %d", errors.ErrInvalidKey, len(data), 1+size)
		}
		x := new(big.Int).SetBytes(data[1:])
		if x.Cmp(c.P) >= 0 {
			return nil, fmt.Errorf("%w: x out of range", errors.ErrInvalidKey)
		}
		y := new(big.Int).ModSqrt(c.rhs(x), c.P)
		if y == nil {
			return nil, fmt.Errorf("%w: x has no square root", errors.ErrInvalidKey)
		}
		if y.Bit(0) != uint(data[0]&1) {
			y.Sub(c.P, y)
		}
		return NewPublicKey(c, x, y)

	default:
		return nil, fmt.Errorf("%w: point format 0x%02x", errors.ErrInvalidKey, data[0])
	}
}

// Marshal encodes the key as an uncompressed SEC1 point.
func (pk *PublicKey) Marshal() []byte {
	size := pk.Curve.FieldByteLen()
	out := make([]byte, 1+2*size)
	out[0] = 0x04
	pk.X.FillBytes(out[1 : 1+size])
	pk.Y.FillBytes(out[1+size:])
	return out
}

// MarshalCompressed encodes the key as a compressed SEC1 point.
func (pk *PublicKey) MarshalCompressed() []byte {
	size := pk.Curve.FieldByteLen()
	out := make([]byte, 1+size)
	out[0] = 0x02 | byte(pk.Y.Bit(0))
	pk.X.FillBytes(out[1:])
	return out
}

// Equal reports whether both keys are the same point on the same curve.
func (pk *PublicKey) Equal(o *PublicKey) bool {
	return o != nil && pk.Curve == o.Curve && pk.X.Cmp(o.X) == 0 && pk.Y.Cmp(o.Y) == 0
}

// ToECDSA converts to the standard library type. Only curves with a
// crypto/elliptic implementation are supported.
func (pk *PublicKey) ToECDSA() (*ecdsa.PublicKey, error) {
	if pk.Curve.std == nil {
		return nil, errors.NewUnsupportedError("curve", pk.Curve.Name, errors.ErrUnknownCurve)
	}
	return &ecdsa.PublicKey{Curve: pk.Curve.std, X: new(big.Int).Set(pk.X), Y: new(big.Int).Set(pk.Y)}, nil
}

// PrivateKey is a scalar d in [1, n-1] with its public point Q = d·G.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// NewPrivateKey derives Q from d.
func NewPrivateKey(c *Curve, d *big.Int) (*PrivateKey, error) {
	if d.Sign() <= 0 || d.Cmp(c.N) >= 0 {
		return nil, fmt.Errorf("%w: private scalar out of range", errors.ErrInvalidKey)
	}
	q, err := ScalarBaseMult(c, d)
	if err != nil {
		return nil, err
	}
	if q.IsInfinity() {
		return nil, fmt.Errorf("%w: public point at infinity", errors.ErrInvalidKey)
	}
	return &PrivateKey{
		PublicKey: PublicKey{Curve: c, X: q.X, Y: q.Y},
		D:         new(big.Int).Set(d),
	}, nil
}

// GenerateKey draws d uniformly from [1, n-1] using rand (crypto/rand when nil).
func GenerateKey(c *Curve, rand io.Reader) (*PrivateKey, error) {
	size := c.ByteLen()
	nMinus1 := new(big.Int).Sub(c.N, big.NewInt(1))
	for range 64 {
		b, err := crypto.RandomBytes(rand, size+8)
		if err != nil {
			return nil, err
		}
		d := new(big.Int).SetBytes(b)
		crypto.SecureZero(b)
		d.Mod(d, nMinus1)
		d.Add(d, big.NewInt(1))
		k, err := NewPrivateKey(c, d)
		crypto.SecureZeroInt(d)
		if err == nil {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: could not generate key", errors.ErrRandFailure)
}

// Public returns the public half.
func (k *PrivateKey) Public() *PublicKey {
	return &k.PublicKey
}

// ToECDSA converts to the standard library type.
func (k *PrivateKey) ToECDSA() (*ecdsa.PrivateKey, error) {
	pub, err := k.PublicKey.ToECDSA()
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).Set(k.D)}, nil
}

// Zero wipes the private scalar.
func (k *PrivateKey) Zero() {
	crypto.SecureZeroInt(k.D)
}

// FromECDSA converts a standard library public key.
func FromECDSA(pub *ecdsa.PublicKey) (*PublicKey, error) {
	for _, c := range curves {
		if c.std != nil && c.std.Params().Name == pub.Curve.Params().Name {
			return NewPublicKey(c, pub.X, pub.Y)
		}
	}
	return nil, errors.NewUnsupportedError("curve", pub.Curve.Params().Name, errors.ErrUnknownCurve)
}
