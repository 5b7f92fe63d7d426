package container

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"

	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/encoding"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/log"
	"keyscope/internal/sshwire"
)

// keyDecoder handles one family of key types. Entries are tried in order,
// so exact names come before prefixes.
type keyDecoder struct {
	match  func(keyType string) bool
	curve  func(keyType string) (*ecc.Curve, error) // nil when not curve based
	decode func(d *sshwire.Decoder, s *crypto.Scratch, c *ecc.Curve) (*keys.PrivateKey, error)
}

var keyDecoders = []keyDecoder{
	{
		match:  exact(keys.KeyTypeEd25519),
		decode: decodeEd25519,
	},
	{
		match:  exact(keys.KeyTypeRSA),
		decode: decodeRSA,
	},
	{
		match:  prefix(ecc.SSHKeyTypePrefix),
		curve:  ecc.FindCurveByKeyType,
		decode: decodeECDSA,
	},
}

func exact(name string) func(string) bool {
	return func(s string) bool { return s == name }
}

func prefix(p string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, p) }
}

// decodePrivateSection parses a deciphered private section:
//
//	uint32 check1, uint32 check2, string keytype, <key fields>,
//	string comment, padding 1, 2, 3, ...
//
// Buffers and integers that held key material are registered with s.
func decodePrivateSection(section []byte, s *crypto.Scratch) (*keys.PrivateKey, error) {
	d := sshwire.NewDecoder(section)

	// Check words
	var check1, check2 uint32
	if err := d.Decode(
		sshwire.Uint32("check1", &check1),
		sshwire.Uint32("check2", &check2),
	); err != nil {
		return nil, err
	}
	if check1 != check2 {
		return nil, fmt.Errorf("%w: check words differ", errors.ErrIntegrityCheckFailed)
	}

	// Key
	keyType, err := d.String("key type", sshwire.MaxNameLen)
	if err != nil {
		return nil, err
	}
	var dec *keyDecoder
	for i := range keyDecoders {
		if keyDecoders[i].match(keyType) {
			dec = &keyDecoders[i]
			break
		}
	}
	if dec == nil {
		return nil, errors.NewUnsupportedError("key type", keyType, errors.ErrUnsupportedKeyType)
	}

	var curve *ecc.Curve
	if dec.curve != nil {
		if curve, err = dec.curve(keyType); err != nil {
			return nil, err
		}
	}

	log.Debug("decoding private key", log.String("key_type", keyType))

	key, err := dec.decode(d, s, curve)
	if err != nil {
		return nil, err
	}

	// Comment and padding
	comment, err := d.String("comment", sshwire.MaxCommentLen)
	if err != nil {
		key.Zero()
		return nil, err
	}
	if err := encoding.CheckPadding(d.Remaining()); err != nil {
		key.Zero()
		return nil, err
	}
	key.Comment = comment
	return key, nil
}

func decodeEd25519(d *sshwire.Decoder, _ *crypto.Scratch, _ *ecc.Curve) (*keys.PrivateKey, error) {
	pub, err := d.Fixed("ed25519 public key", ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	priv, err := d.Fixed("ed25519 private key", ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	k, err := keys.NewEd25519Key(pub, priv)
	if err != nil {
		return nil, err
	}
	return keys.NewEd25519(k, ""), nil
}

func decodeRSA(d *sshwire.Decoder, s *crypto.Scratch, _ *ecc.Curve) (*keys.PrivateKey, error) {
	var n, e, priv, qinv, p, q *big.Int
	err := d.Decode(
		sshwire.MPInt("rsa n", &n),
		sshwire.MPInt("rsa e", &e),
		sshwire.MPInt("rsa d", &priv),
		sshwire.MPInt("rsa iqmp", &qinv),
		sshwire.MPInt("rsa p", &p),
		sshwire.MPInt("rsa q", &q),
	)
	s.TrackInt(priv, qinv, p, q)
	if err != nil {
		return nil, err
	}
	k, err := keys.NewRSAKey(n, e, priv, qinv, p, q)
	if err != nil {
		return nil, err
	}
	return keys.NewRSA(k, ""), nil
}

func decodeECDSA(d *sshwire.Decoder, s *crypto.Scratch, c *ecc.Curve) (*keys.PrivateKey, error) {
	var (
		curveName string
		point     []byte
		scalar    *big.Int
	)
	err := d.Decode(
		sshwire.String("curve", &curveName, sshwire.MaxNameLen),
		sshwire.Bytes("public point", &point, sshwire.MaxPointLen),
		sshwire.MPInt("private scalar", &scalar),
	)
	s.TrackInt(scalar)
	if err != nil {
		return nil, err
	}
	if curveName != c.SSHName {
		return nil, fmt.Errorf("%w: key type %s carries curve %q", errors.ErrCurveMismatch, c.KeyType(), curveName)
	}

	k, err := ecc.NewPrivateKey(c, scalar)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(k.Public().Marshal(), point) {
		k.Zero()
		return nil, fmt.Errorf("%w: public point does not match private scalar", errors.ErrInvalidKey)
	}
	return keys.NewECDSA(k, ""), nil
}
