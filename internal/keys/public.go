package keys

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"

	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/sshwire"
)

// PublicKey is the public half of a key, as carried in SSH public key blobs.
type PublicKey struct {
	Algorithm Algorithm
	RSA       *rsa.PublicKey
	ECDSA     *ecc.PublicKey
	Ed25519   []byte
	Comment   string
}

// Type returns the SSH key type name.
func (p *PublicKey) Type() string {
	switch p.Algorithm {
	case AlgorithmRSA:
		return KeyTypeRSA
	case AlgorithmECDSA:
		return p.ECDSA.Curve.KeyType()
	case AlgorithmEd25519:
		return KeyTypeEd25519
	default:
		return ""
	}
}

// Bits returns the key size in bits.
func (p *PublicKey) Bits() int {
	switch p.Algorithm {
	case AlgorithmRSA:
		return p.RSA.N.BitLen()
	case AlgorithmECDSA:
		return p.ECDSA.Curve.BitSize
	case AlgorithmEd25519:
		return 256
	default:
		return 0
	}
}

// Marshal encodes the SSH wire public key blob (RFC 4253 6.6, RFC 5656 3.1,
// RFC 8709 4).
func (p *PublicKey) Marshal() ([]byte, error) {
	e := sshwire.NewEncoder().String(p.Type())
	switch p.Algorithm {
	case AlgorithmRSA:
		e.MPInt(big.NewInt(int64(p.RSA.E))).MPInt(p.RSA.N)
	case AlgorithmECDSA:
		e.String(p.ECDSA.Curve.SSHName).Bytes(p.ECDSA.Marshal())
	case AlgorithmEd25519:
		e.Bytes(p.Ed25519)
	default:
		return nil, errors.NewUnsupportedError("key type", p.Algorithm.String(), errors.ErrUnsupportedKeyType)
	}
	return e.Finish()
}

// Fingerprint returns the OpenSSH SHA256 fingerprint, "SHA256:" followed by
// unpadded base64.
func (p *PublicKey) Fingerprint() (string, error) {
	blob, err := p.Marshal()
	if err != nil {
		return "", err
	}
	return FingerprintBlob(blob), nil
}

// FingerprintBlob fingerprints an already encoded public key blob.
func FingerprintBlob(blob []byte) string {
	sum := sha256.Sum256(blob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}

// MarshalAuthorizedKey formats the key as an authorized_keys line with a
// trailing newline.
func (p *PublicKey) MarshalAuthorizedKey() ([]byte, error) {
	blob, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(p.Type())
	b.WriteByte(' ')
	b.WriteString(base64.StdEncoding.EncodeToString(blob))
	if p.Comment != "" {
		b.WriteByte(' ')
		b.WriteString(p.Comment)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// ParsePublicKey decodes an SSH wire public key blob.
func ParsePublicKey(blob []byte) (*PublicKey, error) {
	if len(blob) > sshwire.MaxPublicKeyLen {
		return nil, errors.NewDecodeError("public key", errors.ErrFieldTooLarge)
	}
	d := sshwire.NewDecoder(blob)
	keyType, err := d.String("public key type", sshwire.MaxNameLen)
	if err != nil {
		return nil, err
	}

	var pub *PublicKey
	switch {
	case keyType == KeyTypeRSA:
		pub, err = parseRSAPublic(d)
	case keyType == KeyTypeEd25519:
		pub, err = parseEd25519Public(d)
	case strings.HasPrefix(keyType, ecc.SSHKeyTypePrefix):
		pub, err = parseECDSAPublic(d, keyType)
	default:
		return nil, errors.NewUnsupportedError("key type", keyType, errors.ErrUnsupportedKeyType)
	}
	if err != nil {
		return nil, err
	}
	if !d.Empty() {
		return nil, errors.NewDecodeError("public key", errors.ErrTrailingData)
	}
	return pub, nil
}

func parseRSAPublic(d *sshwire.Decoder) (*PublicKey, error) {
	var e, n *big.Int
	if err := d.Decode(sshwire.MPInt("e", &e), sshwire.MPInt("n", &n)); err != nil {
		return nil, err
	}
	if e.Sign() <= 0 || e.BitLen() > 31 || n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: bad RSA public key", errors.ErrInvalidKey)
	}
	return &PublicKey{Algorithm: AlgorithmRSA, RSA: &rsa.PublicKey{N: n, E: int(e.Int64())}}, nil
}

func parseEd25519Public(d *sshwire.Decoder) (*PublicKey, error) {
	key, err := d.Fixed("ed25519 public key", ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return &PublicKey{Algorithm: AlgorithmEd25519, Ed25519: bytes.Clone(key)}, nil
}

func parseECDSAPublic(d *sshwire.Decoder, keyType string) (*PublicKey, error) {
	c, err := ecc.FindCurveByKeyType(keyType)
	if err != nil {
		return nil, err
	}
	var (
		curveName string
		point     []byte
	)
	if err := d.Decode(
		sshwire.String("curve", &curveName, sshwire.MaxNameLen),
		sshwire.Bytes("public point", &point, sshwire.MaxPointLen),
	); err != nil {
		return nil, err
	}
	if curveName != c.SSHName {
		return nil, fmt.Errorf("%w: key type %s names curve %q", errors.ErrCurveMismatch, keyType, curveName)
	}
	q, err := ecc.UnmarshalPublicKey(c, point)
	if err != nil {
		return nil, err
	}
	return &PublicKey{Algorithm: AlgorithmECDSA, ECDSA: q}, nil
}

// ParseAuthorizedKey parses one authorized_keys style line:
// "<type> <base64 blob> [comment]". Option prefixes are not supported.
func ParseAuthorizedKey(line []byte) (*PublicKey, error) {
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: expected \"<type> <base64> [comment]\"", errors.ErrMalformedContainer)
	}
	blob, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: public key base64: %v", errors.ErrMalformedContainer, err)
	}
	pub, err := ParsePublicKey(blob)
	if err != nil {
		return nil, err
	}
	if pub.Type() != fields[0] {
		return nil, fmt.Errorf("%w: line says %s, blob is %s", errors.ErrMalformedContainer, fields[0], pub.Type())
	}
	pub.Comment = strings.Join(fields[2:], " ")
	return pub, nil
}
