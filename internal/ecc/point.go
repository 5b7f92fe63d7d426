package ecc

import "math/big"

// Point is a curve point in Jacobian coordinates (x = X/Z², y = Y/Z³).
// Z = 0 is the point at infinity.
//
// Points given to or returned from an Engine with mapped results are affine
// (Z = 1) in the normal domain. Unmapped intermediates live in the
// Montgomery domain of the curve's field.
type Point struct {
	X, Y, Z *big.Int
}

// NewAffinePoint returns (x, y) with Z = 1.
func NewAffinePoint(x, y *big.Int) *Point {
	return &Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y), Z: big.NewInt(1)}
}

// Infinity returns the point at infinity.
func Infinity() *Point {
	return &Point{X: new(big.Int), Y: new(big.Int), Z: new(big.Int)}
}

// IsInfinity reports whether p is the point at infinity.
func (p *Point) IsInfinity() bool {
	return p.Z.Sign() == 0
}

// Clone returns a deep copy.
func (p *Point) Clone() *Point {
	return &Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Set(p.Y), Z: new(big.Int).Set(p.Z)}
}

// toMont lifts an affine normal-domain point into Montgomery Jacobian form.
func toMont(m *Montgomery, p *Point) *Point {
	if p.IsInfinity() {
		return Infinity()
	}
	return &Point{
		X: m.ToMont(new(big.Int).Mod(p.X, m.P)),
		Y: m.ToMont(new(big.Int).Mod(p.Y, m.P)),
		Z: m.One(),
	}
}

// double computes 2p in the Montgomery domain. ma is a·R mod p, or nil
// when a ≡ -3.
//
//	a = -3:  M = 3(X - Z²)(X + Z²)
//	general: M = 3X² + aZ⁴
//	S = 4XY², X' = M² - 2S, Y' = M(S - X') - 8Y⁴, Z' = 2YZ
func double(m *Montgomery, p *Point, ma *big.Int) *Point {
	if p.IsInfinity() || p.Y.Sign() == 0 {
		return Infinity()
	}

	zz := m.Sqr(p.Z)
	var mm *big.Int
	if ma == nil {
		t1 := m.Sub(p.X, zz)
		t2 := m.Add(p.X, zz)
		mm = m.Mul(t1, t2)
		mm = m.Add(m.Double(mm), mm)
	} else {
		xx := m.Sqr(p.X)
		mm = m.Add(m.Double(xx), xx)
		azzzz := m.Mul(ma, m.Sqr(zz))
		mm = m.Add(mm, azzzz)
	}

	yy := m.Sqr(p.Y)
	s := m.Mul(p.X, yy)
	s = m.Double(m.Double(s))

	x3 := m.Sub(m.Sqr(mm), m.Double(s))

	yyyy8 := m.Sqr(yy)
	yyyy8 = m.Double(m.Double(m.Double(yyyy8)))
	y3 := m.Sub(m.Mul(mm, m.Sub(s, x3)), yyyy8)

	z3 := m.Double(m.Mul(p.Y, p.Z))

	return &Point{X: x3, Y: y3, Z: z3}
}

// add computes p + q in the Montgomery domain, falling back to double when
// the inputs are the same point.
func add(m *Montgomery, p, q *Point, ma *big.Int) *Point {
	if p.IsInfinity() {
		return q.Clone()
	}
	if q.IsInfinity() {
		return p.Clone()
	}

	z1z1 := m.Sqr(p.Z)
	z2z2 := m.Sqr(q.Z)
	u1 := m.Mul(p.X, z2z2)
	u2 := m.Mul(q.X, z1z1)
	s1 := m.Mul(p.Y, m.Mul(q.Z, z2z2))
	s2 := m.Mul(q.Y, m.Mul(p.Z, z1z1))

	h := m.Sub(u2, u1)
	r := m.Sub(s2, s1)
	if h.Sign() == 0 {
		if r.Sign() == 0 {
			return double(m, p, ma)
		}
		return Infinity()
	}

	hh := m.Sqr(h)
	hhh := m.Mul(h, hh)
	v := m.Mul(u1, hh)

	x3 := m.Sub(m.Sub(m.Sqr(r), hhh), m.Double(v))
	y3 := m.Sub(m.Mul(r, m.Sub(v, x3)), m.Mul(s1, hhh))
	z3 := m.Mul(m.Mul(p.Z, q.Z), h)

	return &Point{X: x3, Y: y3, Z: z3}
}

// toAffine maps a Montgomery Jacobian point to affine normal-domain form.
func toAffine(m *Montgomery, p *Point) *Point {
	if p.IsInfinity() {
		return Infinity()
	}
	z := m.FromMont(p.Z)
	zinv := new(big.Int).ModInverse(z, m.P)
	zinv2 := new(big.Int).Mul(zinv, zinv)
	zinv2.Mod(zinv2, m.P)
	zinv3 := new(big.Int).Mul(zinv2, zinv)
	zinv3.Mod(zinv3, m.P)

	x := m.FromMont(p.X)
	x.Mul(x, zinv2).Mod(x, m.P)
	y := m.FromMont(p.Y)
	y.Mul(y, zinv3).Mod(y, m.P)

	return &Point{X: x, Y: y, Z: big.NewInt(1)}
}
