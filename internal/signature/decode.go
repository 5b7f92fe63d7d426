package signature

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/sshwire"
)

// eth27Len is v‖r‖s on secp256k1.
const eth27Len = 1 + 32 + 32

// Signature is a decoded (r, s) pair. V carries the leading recovery byte of
// an Eth27VRS signature and is zero otherwise.
type Signature struct {
	R, S *big.Int
	V    byte
}

// Decode parses sig in format f for a key on curve c. It checks the
// encoding only; range checks happen in Verify.
func Decode(sig []byte, f Format, c *ecc.Curve) (*Signature, error) {
	switch f {
	case AnsiX962Der:
		return decodeDER(sig)
	case Rfc7518Raw:
		return decodeRaw(sig, c)
	case Eth27VRS:
		return decodeEth27(sig, c)
	case Rfc5656SSH:
		return decodeSSH(sig, c)
	default:
		return nil, errors.NewUnsupportedError("signature format", f.String(), errors.ErrUnsupportedFormat)
	}
}

func decodeDER(sig []byte) (*Signature, error) {
	var (
		inner cryptobyte.String
		r     = new(big.Int)
		s     = new(big.Int)
	)
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: malformed DER signature", errors.ErrInvalidPacket)
	}
	return &Signature{R: r, S: s}, nil
}

func decodeRaw(sig []byte, c *ecc.Curve) (*Signature, error) {
	size := c.ByteLen()
	if len(sig) != 2*size {
		return nil, fmt.Errorf("%w: raw signature is %d bytes, want %d", errors.ErrInvalidPacket, len(sig), 2*size)
	}
	return &Signature{
		R: new(big.Int).SetBytes(sig[:size]),
		S: new(big.Int).SetBytes(sig[size:]),
	}, nil
}

func decodeEth27(sig []byte, c *ecc.Curve) (*Signature, error) {
	if c != ecc.Secp256k1 {
		return nil, fmt.Errorf("%w: eth27 signatures need secp256k1, key is %s", errors.ErrCurveMismatch, c.Name)
	}
	if len(sig) != eth27Len {
		return nil, fmt.Errorf("%w: eth27 signature is %d bytes, want %d", errors.ErrInvalidPacket, len(sig), eth27Len)
	}
	return &Signature{
		V: sig[0],
		R: new(big.Int).SetBytes(sig[1:33]),
		S: new(big.Int).SetBytes(sig[33:]),
	}, nil
}

func decodeSSH(sig []byte, c *ecc.Curve) (*Signature, error) {
	var (
		name string
		r, s *big.Int
	)
	n, err := sshwire.Decode(sig,
		sshwire.String("signature type", &name, sshwire.MaxNameLen),
		sshwire.MPInt("r", &r),
		sshwire.MPInt("s", &s),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPacket, err)
	}
	if n != len(sig) {
		return nil, fmt.Errorf("%w: %d trailing bytes after ssh signature", errors.ErrInvalidPacket, len(sig)-n)
	}
	if name != c.KeyType() {
		return nil, fmt.Errorf("%w: signature is %q, key is %q", errors.ErrCurveMismatch, name, c.KeyType())
	}
	return &Signature{R: r, S: s}, nil
}

// Encode writes sig in format f for curve c.
func Encode(sig *Signature, f Format, c *ecc.Curve) ([]byte, error) {
	if sig.R.Sign() < 0 || sig.S.Sign() < 0 {
		return nil, errors.NewValidationError("signature", "negative component")
	}

	switch f {
	case AnsiX962Der:
		var b cryptobyte.Builder
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1BigInt(sig.R)
			b.AddASN1BigInt(sig.S)
		})
		return b.Bytes()

	case Rfc7518Raw:
		size := c.ByteLen()
		if sig.R.BitLen() > 8*size || sig.S.BitLen() > 8*size {
			return nil, errors.NewValidationError("signature", "component wider than the group order")
		}
		out := make([]byte, 2*size)
		sig.R.FillBytes(out[:size])
		sig.S.FillBytes(out[size:])
		return out, nil

	case Eth27VRS:
		if c != ecc.Secp256k1 {
			return nil, fmt.Errorf("%w: eth27 signatures need secp256k1, key is %s", errors.ErrCurveMismatch, c.Name)
		}
		if sig.R.BitLen() > 256 || sig.S.BitLen() > 256 {
			return nil, errors.NewValidationError("signature", "component wider than 32 bytes")
		}
		out := make([]byte, eth27Len)
		out[0] = sig.V
		if out[0] < 27 {
			out[0] += 27
		}
		sig.R.FillBytes(out[1:33])
		sig.S.FillBytes(out[33:])
		return out, nil

	case Rfc5656SSH:
		return sshwire.NewEncoder().
			String(c.KeyType()).
			MPInt(sig.R).
			MPInt(sig.S).
			Finish()

	default:
		return nil, errors.NewUnsupportedError("signature format", f.String(), errors.ErrUnsupportedFormat)
	}
}
