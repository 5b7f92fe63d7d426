package keys

import (
	"crypto/rsa"
	"fmt"
	"math/big"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
)

// RSAKey holds an RSA private key in OpenSSH field order plus the derived
// CRT exponents. Qinv is q⁻¹ mod p.
type RSAKey struct {
	N, E, D    *big.Int
	Qinv, P, Q *big.Int
	Dp, Dq     *big.Int
}

// NewRSAKey checks the components and derives Dp = d mod (p-1) and
// Dq = d mod (q-1).
func NewRSAKey(n, e, d, qinv, p, q *big.Int) (*RSAKey, error) {
	for _, v := range []*big.Int{n, e, d, qinv, p, q} {
		if v == nil || v.Sign() <= 0 {
			return nil, fmt.Errorf("%w: missing or non-positive RSA component", errors.ErrInvalidKey)
		}
	}
	if e.BitLen() > 31 {
		return nil, fmt.Errorf("%w: public exponent too large", errors.ErrInvalidKey)
	}
	if p.Cmp(big.NewInt(1)) <= 0 || q.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("%w: prime too small", errors.ErrInvalidKey)
	}
	if new(big.Int).Mul(p, q).Cmp(n) != 0 {
		return nil, fmt.Errorf("%w: p·q does not equal n", errors.ErrInvalidKey)
	}

	k := &RSAKey{
		N:    new(big.Int).Set(n),
		E:    new(big.Int).Set(e),
		D:    new(big.Int).Set(d),
		Qinv: new(big.Int).Set(qinv),
		P:    new(big.Int).Set(p),
		Q:    new(big.Int).Set(q),
	}
	k.derive()

	check := new(big.Int).Mul(k.Q, k.Qinv)
	check.Mod(check, k.P)
	ok := check.Cmp(big.NewInt(1)) == 0
	crypto.SecureZeroInt(check)
	if !ok {
		k.Zero()
		return nil, fmt.Errorf("%w: iqmp is not q⁻¹ mod p", errors.ErrInvalidKey)
	}
	return k, nil
}

// derive fills Dp and Dq. The p-1 and q-1 temporaries are wiped.
func (k *RSAKey) derive() {
	var s crypto.Scratch
	defer s.Close()

	one := big.NewInt(1)
	pm1 := s.Int().Sub(k.P, one)
	qm1 := s.Int().Sub(k.Q, one)

	k.Dp = new(big.Int).Mod(k.D, pm1)
	k.Dq = new(big.Int).Mod(k.D, qm1)
}

// Public returns the public half as a crypto/rsa key.
func (k *RSAKey) Public() *rsa.PublicKey {
	return &rsa.PublicKey{N: new(big.Int).Set(k.N), E: int(k.E.Int64())}
}

// ToCrypto converts to a crypto/rsa key and runs its precomputation.
func (k *RSAKey) ToCrypto() (*rsa.PrivateKey, error) {
	priv := &rsa.PrivateKey{
		PublicKey: *k.Public(),
		D:         new(big.Int).Set(k.D),
		Primes:    []*big.Int{new(big.Int).Set(k.P), new(big.Int).Set(k.Q)},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKey, err)
	}
	priv.Precompute()
	return priv, nil
}

// RSAFromCrypto converts a two-prime crypto/rsa key.
func RSAFromCrypto(priv *rsa.PrivateKey) (*RSAKey, error) {
	if len(priv.Primes) != 2 {
		return nil, fmt.Errorf("%w: %d-prime RSA keys are not supported", errors.ErrInvalidKey, len(priv.Primes))
	}
	p, q := priv.Primes[0], priv.Primes[1]
	qinv := new(big.Int).ModInverse(q, p)
	if qinv == nil {
		return nil, fmt.Errorf("%w: primes are not coprime", errors.ErrInvalidKey)
	}
	return NewRSAKey(priv.N, big.NewInt(int64(priv.E)), priv.D, qinv, p, q)
}

// Zero wipes every component.
func (k *RSAKey) Zero() {
	for _, v := range []*big.Int{k.D, k.Qinv, k.P, k.Q, k.Dp, k.Dq} {
		crypto.SecureZeroInt(v)
	}
}
