package signature

import (
	"fmt"
	"math/big"

	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/log"
)

// Verifier checks signatures with a chosen point arithmetic engine.
type Verifier struct {
	engine ecc.Engine
}

// NewVerifier returns a Verifier using e, or ecc.DefaultEngine when e is nil.
func NewVerifier(e ecc.Engine) *Verifier {
	if e == nil {
		e = ecc.DefaultEngine
	}
	return &Verifier{engine: e}
}

var defaultVerifier = NewVerifier(nil)

// Verify checks sig over digest against pub with the default engine.
func Verify(sig []byte, f Format, digest []byte, pub *ecc.PublicKey) (bool, error) {
	return defaultVerifier.Verify(sig, f, digest, pub)
}

// Verify decodes sig in format f and checks it over digest against pub.
//
// A well-formed signature that does not verify returns (false, nil); errors
// are reserved for malformed input, range violations and unsupported formats.
func (v *Verifier) Verify(sig []byte, f Format, digest []byte, pub *ecc.PublicKey) (bool, error) {
	if pub == nil || pub.Curve == nil || pub.X == nil || pub.Y == nil {
		return false, errors.NewValidationError("public key", "missing")
	}

	log.Debug("verifying signature",
		log.String("format", f.String()),
		log.String("curve", pub.Curve.Name),
		log.String("engine", v.engine.Name()),
		log.Int("digest_len", len(digest)),
	)

	s, err := Decode(sig, f, pub.Curve)
	if err != nil {
		return false, err
	}
	return v.VerifyRS(s.R, s.S, digest, pub)
}

// VerifyRS checks an already decoded (r, s).
func (v *Verifier) VerifyRS(r, s *big.Int, digest []byte, pub *ecc.PublicKey) (bool, error) {
	c := pub.Curve
	n := c.N

	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return false, fmt.Errorf("%w: r or s outside [1, n-1]", errors.ErrInvalidSignature)
	}

	e := ReduceDigest(digest, n)

	w := new(big.Int).ModInverse(s, n)
	if w == nil {
		return false, fmt.Errorf("%w: s has no inverse", errors.ErrInvalidSignature)
	}
	u1 := new(big.Int).Mul(e, w)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, n)

	g := c.Generator()
	q := ecc.NewAffinePoint(pub.X, pub.Y)
	ma := c.MontA()

	var (
		point *ecc.Point
		err   error
	)
	if m2, ok := v.engine.(ecc.Mul2Adder); ok {
		point, err = m2.Mul2Add(c, u1, g, u2, q, ma)
	} else {
		point, err = v.mulAdd(c, u1, g, u2, q, ma)
	}
	if err != nil {
		return false, err
	}

	if point.IsInfinity() {
		return false, nil
	}
	x := new(big.Int).Mod(point.X, n)
	return x.Cmp(r) == 0, nil
}

// mulAdd computes k1·P1 + k2·P2 without a fused path.
func (v *Verifier) mulAdd(c *ecc.Curve, k1 *big.Int, p1 *ecc.Point, k2 *big.Int, p2 *ecc.Point, ma *big.Int) (*ecc.Point, error) {
	a, err := v.engine.ScalarMult(c, k1, p1, ma, false)
	if err != nil {
		return nil, err
	}
	b, err := v.engine.ScalarMult(c, k2, p2, ma, false)
	if err != nil {
		return nil, err
	}
	sum, err := v.engine.Add(c, b, a, ma)
	if err != nil {
		return nil, err
	}
	return v.engine.Map(c, sum)
}

// ReduceDigest converts a digest to an integer using its leftmost
// bitlen(n) bits (FIPS 186-4, 6.4).
func ReduceDigest(digest []byte, n *big.Int) *big.Int {
	bits := n.BitLen()
	size := (bits + 7) / 8

	if bits > len(digest)*8 {
		return new(big.Int).SetBytes(digest)
	}
	if bits%8 == 0 {
		return new(big.Int).SetBytes(digest[:size])
	}

	shift := 8 - bits%8
	buf := make([]byte, size)
	var carry byte
	for i := range size {
		buf[i] = carry ^ (digest[i] >> shift)
		carry = digest[i] << (8 - shift)
	}
	return new(big.Int).SetBytes(buf)
}
