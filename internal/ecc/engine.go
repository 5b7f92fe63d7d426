package ecc

import (
	"fmt"
	"math/big"
	"strings"

	"keyscope/internal/errors"
)

// Engine performs the point operations ECDSA verification needs.
//
// ScalarMult takes an affine normal-domain point. With mapped=false it returns
// a Montgomery Jacobian point suitable for Add, otherwise an affine one.
// ma is a in Montgomery form, or nil when a ≡ -3 (see Curve.MontA).
type Engine interface {
	Name() string
	ScalarMult(c *Curve, k *big.Int, p *Point, ma *big.Int, mapped bool) (*Point, error)
	Add(c *Curve, p, q *Point, ma *big.Int) (*Point, error)
	Map(c *Curve, p *Point) (*Point, error)
}

// Mul2Adder is implemented by engines with a fused k1·P1 + k2·P2.
// The result is affine in the normal domain.
type Mul2Adder interface {
	Mul2Add(c *Curve, k1 *big.Int, p1 *Point, k2 *big.Int, p2 *Point, ma *big.Int) (*Point, error)
}

// BasicEngine multiplies with a Montgomery ladder and has no fused path.
type BasicEngine struct{}

// Name implements Engine.
func (BasicEngine) Name() string { return "basic" }

// ScalarMult implements Engine.
func (BasicEngine) ScalarMult(c *Curve, k *big.Int, p *Point, ma *big.Int, mapped bool) (*Point, error) {
	if k.Sign() < 0 {
		return nil, errNegativeScalar
	}
	m := c.Montgomery()

	r0 := Infinity()
	r1 := toMont(m, p)
	for i := k.BitLen() - 1; i >= 0; i-- {
		if k.Bit(i) == 0 {
			r1 = add(m, r0, r1, ma)
			r0 = double(m, r0, ma)
		} else {
			r0 = add(m, r0, r1, ma)
			r1 = double(m, r1, ma)
		}
	}

	if mapped {
		return toAffine(m, r0), nil
	}
	return r0, nil
}

// Add implements Engine.
func (BasicEngine) Add(c *Curve, p, q *Point, ma *big.Int) (*Point, error) {
	return add(c.Montgomery(), p, q, ma), nil
}

// Map implements Engine.
func (BasicEngine) Map(c *Curve, p *Point) (*Point, error) {
	return toAffine(c.Montgomery(), p), nil
}

// ShamirEngine adds an interleaved double-scalar multiplication
// (Shamir's trick) to BasicEngine.
type ShamirEngine struct {
	BasicEngine
}

// Name implements Engine.
func (ShamirEngine) Name() string { return "shamir" }

// Mul2Add implements Mul2Adder.
func (ShamirEngine) Mul2Add(c *Curve, k1 *big.Int, p1 *Point, k2 *big.Int, p2 *Point, ma *big.Int) (*Point, error) {
	if k1.Sign() < 0 || k2.Sign() < 0 {
		return nil, errNegativeScalar
	}
	m := c.Montgomery()

	// table[b1 | b2<<1]
	q1 := toMont(m, p1)
	q2 := toMont(m, p2)
	table := [4]*Point{nil, q1, q2, add(m, q1, q2, ma)}

	bits := max(k1.BitLen(), k2.BitLen())
	r := Infinity()
	for i := bits - 1; i >= 0; i-- {
		r = double(m, r, ma)
		if idx := k1.Bit(i) | k2.Bit(i)<<1; idx != 0 {
			r = add(m, r, table[idx], ma)
		}
	}
	return toAffine(m, r), nil
}

var errNegativeScalar = errors.New("ecc: negative scalar")

// DefaultEngine is used when callers do not choose one.
var DefaultEngine Engine = ShamirEngine{}

// EngineByName returns "basic" or "shamir".
func EngineByName(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shamir":
		return ShamirEngine{}, nil
	case "basic", "ladder":
		return BasicEngine{}, nil
	default:
		return nil, errors.NewValidationError("engine", fmt.Sprintf("unknown engine %q", name))
	}
}

// ScalarBaseMult returns k·G as an affine point using the default engine.
func ScalarBaseMult(c *Curve, k *big.Int) (*Point, error) {
	return DefaultEngine.ScalarMult(c, k, c.Generator(), c.MontA(), true)
}
