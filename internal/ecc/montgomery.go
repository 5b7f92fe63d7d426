package ecc

import (
	"math/big"
)

// Montgomery holds the constants for Montgomery multiplication modulo an odd p
// with R = 2^k, k the bit length of p rounded up to a whole number of 64-bit words.
//
// Values in the Montgomery domain are x·R mod p and always lie in [0, p).
type Montgomery struct {
	P      *big.Int
	k      uint
	mask   *big.Int // R - 1
	nPrime *big.Int // -p⁻¹ mod R
	rr     *big.Int // R² mod p
	one    *big.Int // R mod p
}

// NewMontgomery precomputes the reduction constants for p. p must be odd.
func NewMontgomery(p *big.Int) *Montgomery {
	k := uint((p.BitLen() + 63) / 64 * 64)
	r := new(big.Int).Lsh(big.NewInt(1), k)

	nPrime := new(big.Int).ModInverse(p, r)
	nPrime.Sub(r, nPrime)

	rr := new(big.Int).Mul(r, r)
	rr.Mod(rr, p)

	return &Montgomery{
		P:      new(big.Int).Set(p),
		k:      k,
		mask:   new(big.Int).Sub(r, big.NewInt(1)),
		nPrime: nPrime,
		rr:     rr,
		one:    new(big.Int).Mod(r, p),
	}
}

// redc returns t·R⁻¹ mod p for 0 <= t < p·R.
func (m *Montgomery) redc(t *big.Int) *big.Int {
	u := new(big.Int).And(t, m.mask)
	u.Mul(u, m.nPrime)
	u.And(u, m.mask)
	u.Mul(u, m.P)
	u.Add(u, t)
	u.Rsh(u, m.k)
	if u.Cmp(m.P) >= 0 {
		u.Sub(u, m.P)
	}
	return u
}

// ToMont maps x (reduced mod p) into the Montgomery domain.
func (m *Montgomery) ToMont(x *big.Int) *big.Int {
	return m.redc(new(big.Int).Mul(x, m.rr))
}

// FromMont maps a Montgomery value back to the normal domain.
func (m *Montgomery) FromMont(x *big.Int) *big.Int {
	return m.redc(new(big.Int).Set(x))
}

// One is R mod p, the Montgomery form of 1.
func (m *Montgomery) One() *big.Int {
	return new(big.Int).Set(m.one)
}

// Mul returns a·b·R⁻¹ mod p.
func (m *Montgomery) Mul(a, b *big.Int) *big.Int {
	return m.redc(new(big.Int).Mul(a, b))
}

// Sqr returns a²·R⁻¹ mod p.
func (m *Montgomery) Sqr(a *big.Int) *big.Int {
	return m.redc(new(big.Int).Mul(a, a))
}

// Add returns a + b mod p. Domain agnostic.
func (m *Montgomery) Add(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	if r.Cmp(m.P) >= 0 {
		r.Sub(r, m.P)
	}
	return r
}

// Sub returns a - b mod p. Domain agnostic.
func (m *Montgomery) Sub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		r.Add(r, m.P)
	}
	return r
}

// Double returns 2a mod p.
func (m *Montgomery) Double(a *big.Int) *big.Int {
	return m.Add(a, a)
}
