// Package ecc implements the short-Weierstrass arithmetic used for ECDSA
// verification: a curve registry, Montgomery-domain field arithmetic,
// Jacobian point formulas and pluggable scalar multiplication engines.
//
// Arithmetic is built on math/big and is not constant time. It verifies
// public data; signing goes through crypto/ecdsa or decred's secp256k1.
package ecc

import (
	"crypto/elliptic"
	"math/big"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"keyscope/internal/errors"
)

// SSHKeyTypePrefix precedes the curve identifier in SSH key type names.
const SSHKeyTypePrefix = "ecdsa-sha2-"

// Curve holds the domain parameters of y² = x³ + ax + b over GF(p).
// Curves are immutable once registered.
type Curve struct {
	Name    string // canonical name, e.g. "P-256"
	SSHName string // RFC 5656 identifier: "nistp256", or the OID for other curves
	OID     string // dotted object identifier
	Aliases []string

	P, N, A, B *big.Int
	Gx, Gy     *big.Int
	BitSize    int

	std elliptic.Curve // nil when crypto/elliptic has no implementation

	montOnce sync.Once
	mont     *Montgomery
}

// ByteLen is the byte length of the group order, the width of r and s in
// fixed-size signature encodings.
func (c *Curve) ByteLen() int {
	return (c.N.BitLen() + 7) / 8
}

// FieldByteLen is the byte length of a coordinate.
func (c *Curve) FieldByteLen() int {
	return (c.P.BitLen() + 7) / 8
}

// KeyType is the SSH key type string, e.g. "ecdsa-sha2-nistp256".
func (c *Curve) KeyType() string {
	return SSHKeyTypePrefix + c.SSHName
}

// AIsMinus3 reports whether a ≡ -3 (mod p), which enables the cheaper doubling formula.
func (c *Curve) AIsMinus3() bool {
	t := new(big.Int).Add(c.A, big.NewInt(3))
	return t.Cmp(c.P) == 0 || t.Sign() == 0
}

// Montgomery returns the curve's Montgomery context, built on first use.
func (c *Curve) Montgomery() *Montgomery {
	c.montOnce.Do(func() {
		c.mont = NewMontgomery(c.P)
	})
	return c.mont
}

// MontA returns a in Montgomery form, or nil when a ≡ -3 and the doubling
// fast path applies.
func (c *Curve) MontA() *big.Int {
	if c.AIsMinus3() {
		return nil
	}
	m := c.Montgomery()
	return m.ToMont(new(big.Int).Mod(c.A, c.P))
}

// Stdlib returns the crypto/elliptic implementation, or nil.
func (c *Curve) Stdlib() elliptic.Curve {
	return c.std
}

// IsOnCurve reports whether (x, y) is a valid affine point.
func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	if x.Sign() < 0 || x.Cmp(c.P) >= 0 || y.Sign() < 0 || y.Cmp(c.P) >= 0 {
		return false
	}
	return new(big.Int).Exp(y, big.NewInt(2), c.P).Cmp(c.rhs(x)) == 0
}

// rhs computes x³ + ax + b mod p.
func (c *Curve) rhs(x *big.Int) *big.Int {
	r := new(big.Int).Exp(x, big.NewInt(3), c.P)
	ax := new(big.Int).Mul(c.A, x)
	r.Add(r, ax)
	r.Add(r, c.B)
	return r.Mod(r, c.P)
}

// Generator returns the base point as an affine Point.
func (c *Curve) Generator() *Point {
	return NewAffinePoint(c.Gx, c.Gy)
}

func (c *Curve) String() string {
	return c.Name
}

func fromStdlib(p *elliptic.CurveParams, std elliptic.Curve, name, sshName, oid string, a *big.Int, aliases ...string) *Curve {
	if a == nil {
		a = new(big.Int).Sub(p.P, big.NewInt(3))
	}
	return &Curve{
		Name:    name,
		SSHName: sshName,
		OID:     oid,
		Aliases: aliases,
		P:       p.P,
		N:       p.N,
		A:       a,
		B:       p.B,
		Gx:      p.Gx,
		Gy:      p.Gy,
		BitSize: p.BitSize,
		std:     std,
	}
}

// Registered curves
var (
	P224      = fromStdlib(elliptic.P224().Params(), elliptic.P224(), "P-224", "1.3.132.0.33", "1.3.132.0.33", nil, "nistp224", "secp224r1")
	P256      = fromStdlib(elliptic.P256().Params(), elliptic.P256(), "P-256", "nistp256", "1.2.840.10045.3.1.7", nil, "nistp256", "secp256r1", "prime256v1")
	P384      = fromStdlib(elliptic.P384().Params(), elliptic.P384(), "P-384", "nistp384", "1.3.132.0.34", nil, "nistp384", "secp384r1")
	P521      = fromStdlib(elliptic.P521().Params(), elliptic.P521(), "P-521", "nistp521", "1.3.132.0.35", nil, "nistp521", "secp521r1")
	Secp256k1 = fromStdlib(secp256k1.S256().Params(), nil, "secp256k1", "1.3.132.0.10", "1.3.132.0.10", new(big.Int), "k256")

	curves = []*Curve{P224, P256, P384, P521, Secp256k1}
)

// Curves lists the registry in a fixed order.
func Curves() []*Curve {
	out := make([]*Curve, len(curves))
	copy(out, curves)
	return out
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}

// FindCurve resolves a canonical name, alias, SSH identifier or dotted OID.
// Case, '-', '_' and spaces are ignored.
func FindCurve(name string) (*Curve, error) {
	want := normalize(name)
	if want != "" {
		for _, c := range curves {
			if normalize(c.Name) == want || c.OID == want || normalize(c.SSHName) == want {
				return c, nil
			}
			for _, a := range c.Aliases {
				if normalize(a) == want {
					return c, nil
				}
			}
		}
	}
	return nil, errors.NewUnsupportedError("curve", name, errors.ErrUnknownCurve)
}

// FindCurveByKeyType resolves an "ecdsa-sha2-<identifier>" key type.
func FindCurveByKeyType(keyType string) (*Curve, error) {
	if !strings.HasPrefix(keyType, SSHKeyTypePrefix) {
		return nil, errors.NewUnsupportedError("key type", keyType, errors.ErrUnsupportedKeyType)
	}
	c, err := FindCurve(strings.TrimPrefix(keyType, SSHKeyTypePrefix))
	if err != nil {
		return nil, errors.NewUnsupportedError("curve", keyType, errors.ErrUnknownCurve)
	}
	return c, nil
}
