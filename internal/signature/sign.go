package signature

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/log"
)

// Sign signs digest with priv and encodes the result in format f.
//
// NIST curves sign through crypto/ecdsa using random (crypto/rand when nil).
// secp256k1 signs deterministically (RFC 6979) through decred; Eth27VRS
// output carries 27 + the recovery id in its leading byte.
func Sign(random io.Reader, priv *ecc.PrivateKey, digest []byte, f Format) ([]byte, error) {
	if priv == nil || priv.D == nil {
		return nil, errors.NewValidationError("private key", "missing")
	}
	c := priv.Curve
	if f == Eth27VRS && c != ecc.Secp256k1 {
		return nil, fmt.Errorf("%w: eth27 signatures need secp256k1, key is %s", errors.ErrCurveMismatch, c.Name)
	}

	log.Debug("signing digest",
		log.String("format", f.String()),
		log.String("curve", c.Name),
	)

	if c == ecc.Secp256k1 {
		return signSecp256k1(priv, digest, f)
	}

	if random == nil {
		random = rand.Reader
	}
	std, err := priv.ToECDSA()
	if err != nil {
		return nil, err
	}
	defer crypto.SecureZeroInt(std.D)

	r, s, err := ecdsa.Sign(random, std, digest)
	if err != nil {
		return nil, errors.NewCryptoError("ecdsa sign", fmt.Errorf("%w: %v", errors.ErrSigning, err))
	}
	return Encode(&Signature{R: r, S: s}, f, c)
}

func signSecp256k1(priv *ecc.PrivateKey, digest []byte, f Format) ([]byte, error) {
	var raw [32]byte
	priv.D.FillBytes(raw[:])
	key := secp256k1.PrivKeyFromBytes(raw[:])
	crypto.SecureZero(raw[:])
	defer key.Zero()

	if f == Eth27VRS {
		return dcrecdsa.SignCompact(key, digest, false), nil
	}

	sig := dcrecdsa.Sign(key, digest)
	r, s := sig.R(), sig.S()
	rb, sb := r.Bytes(), s.Bytes()
	return Encode(&Signature{
		R: new(big.Int).SetBytes(rb[:]),
		S: new(big.Int).SetBytes(sb[:]),
	}, f, ecc.Secp256k1)
}
