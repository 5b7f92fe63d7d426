package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/yawning/secp256k1-voi/secec"

	"keyscope/internal/ecc"
	"keyscope/internal/errors"
)

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func hexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok, "bad hex %q", s)
	return v
}

// RFC 6979 A.2.5, P-256 with SHA-256 over "sample".
type rfc6979Vector struct {
	pub    *ecc.PublicKey
	digest []byte
	r, s   *big.Int
}

func loadVector(t *testing.T) rfc6979Vector {
	t.Helper()
	pub, err := ecc.NewPublicKey(ecc.P256,
		hexInt(t, "60FED4BA255A9D31C961EB74C6356D68C049B8923B61FA6CE669622E60F29FB6"),
		hexInt(t, "7903FE1008B8BC99A41AE9E95628BC64F2F1B20C2D7E9F5177A3C294D4462299"),
	)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("sample"))
	return rfc6979Vector{
		pub:    pub,
		digest: digest[:],
		r:      hexInt(t, "EFD48B2AACB6A8FD1140DD9CD45E81D69D2C877B56AAF991C34D0EA84EAF3716"),
		s:      hexInt(t, "F7CB1C942D657C41D436C7A1B6E29F65F3E900DBB9AFF4064DC4AB2F843ACDA8"),
	}
}

func engines() map[string]*Verifier {
	return map[string]*Verifier{
		"shamir": NewVerifier(ecc.ShamirEngine{}),
		"basic":  NewVerifier(ecc.BasicEngine{}),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"der", AnsiX962Der, true},
		{"ASN1", AnsiX962Der, true},
		{"raw", Rfc7518Raw, true},
		{"jws", Rfc7518Raw, true},
		{" eth27 ", Eth27VRS, true},
		{"ssh", Rfc5656SSH, true},
		{"pgp", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if !tt.ok {
			assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Contains(t, Formats(), got.String())
	}
}

func TestVerifyRFC6979Vector(t *testing.T) {
	v := loadVector(t)
	raw, err := Encode(&Signature{R: v.r, S: v.s}, Rfc7518Raw, ecc.P256)
	require.NoError(t, err)
	require.Len(t, raw, 64)

	for name, verifier := range engines() {
		t.Run(name, func(t *testing.T) {
			ok, err := verifier.Verify(raw, Rfc7518Raw, v.digest, v.pub)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestVerifyBitFlips(t *testing.T) {
	v := loadVector(t)
	raw, err := Encode(&Signature{R: v.r, S: v.s}, Rfc7518Raw, ecc.P256)
	require.NoError(t, err)

	for bit := 0; bit < len(raw)*8; bit += 13 {
		flipped := append([]byte(nil), raw...)
		flipped[bit/8] ^= 1 << (bit % 8)
		ok, err := Verify(flipped, Rfc7518Raw, v.digest, v.pub)
		require.NoError(t, err, "bit %d", bit)
		assert.False(t, ok, "signature bit %d flipped still verifies", bit)
	}

	for bit := 0; bit < len(v.digest)*8; bit += 29 {
		digest := append([]byte(nil), v.digest...)
		digest[bit/8] ^= 1 << (bit % 8)
		ok, err := Verify(raw, Rfc7518Raw, digest, v.pub)
		require.NoError(t, err)
		assert.False(t, ok, "digest bit %d flipped still verifies", bit)
	}
}

func TestDERMatchesRaw(t *testing.T) {
	v := loadVector(t)
	der, err := Encode(&Signature{R: v.r, S: v.s}, AnsiX962Der, ecc.P256)
	require.NoError(t, err)
	raw, err := Encode(&Signature{R: v.r, S: v.s}, Rfc7518Raw, ecc.P256)
	require.NoError(t, err)

	fromDER, err := Decode(der, AnsiX962Der, ecc.P256)
	require.NoError(t, err)
	fromRaw, err := Decode(raw, Rfc7518Raw, ecc.P256)
	require.NoError(t, err)
	if diff := cmp.Diff(fromRaw, fromDER, bigIntComparer); diff != "" {
		t.Errorf("DER and raw decode differ (-raw +der):\n%s", diff)
	}

	okDER, err := Verify(der, AnsiX962Der, v.digest, v.pub)
	require.NoError(t, err)
	okRaw, err := Verify(raw, Rfc7518Raw, v.digest, v.pub)
	require.NoError(t, err)
	assert.True(t, okDER)
	assert.Equal(t, okRaw, okDER)
}

func TestVerifyStdlibSignatures(t *testing.T) {
	for _, c := range []*ecc.Curve{ecc.P224, ecc.P256, ecc.P384, ecc.P521} {
		t.Run(c.Name, func(t *testing.T) {
			key, err := ecdsa.GenerateKey(c.Stdlib(), rand.Reader)
			require.NoError(t, err)
			pub, err := ecc.FromECDSA(&key.PublicKey)
			require.NoError(t, err)

			digest := sha512.Sum512([]byte("keyscope"))
			for _, d := range [][]byte{digest[:20], digest[:32], digest[:]} {
				der, err := ecdsa.SignASN1(rand.Reader, key, d)
				require.NoError(t, err)
				for name, verifier := range engines() {
					ok, err := verifier.Verify(der, AnsiX962Der, d, pub)
					require.NoError(t, err)
					assert.True(t, ok, "%s with %d-byte digest", name, len(d))
				}
			}
		})
	}
}

// P-521's order is not byte aligned, so a digest longer than the order
// exercises the cross-byte shift.
func TestVerifyP521LongDigest(t *testing.T) {
	key, err := ecdsa.GenerateKey(ecc.P521.Stdlib(), rand.Reader)
	require.NoError(t, err)
	pub, err := ecc.FromECDSA(&key.PublicKey)
	require.NoError(t, err)

	a := sha512.Sum512([]byte("first"))
	b := sha512.Sum512([]byte("second"))
	digest := append(a[:], b[:16]...)

	der, err := ecdsa.SignASN1(rand.Reader, key, digest)
	require.NoError(t, err)
	ok, err := Verify(der, AnsiX962Der, digest, pub)
	require.NoError(t, err)
	assert.True(t, ok)

	digest[70] ^= 0xff // past the leftmost 521 bits
	ok, err = Verify(der, AnsiX962Der, digest, pub)
	require.NoError(t, err)
	assert.True(t, ok)

	digest[0] ^= 0x80
	ok, err = Verify(der, AnsiX962Der, digest, pub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReduceDigest(t *testing.T) {
	ones := make([]byte, 66)
	for i := range ones {
		ones[i] = 0xff
	}
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 521), big.NewInt(1))
	assert.Equal(t, 0, ReduceDigest(ones, ecc.P521.N).Cmp(want))

	short := []byte{0x01, 0x02}
	assert.Equal(t, int64(0x0102), ReduceDigest(short, ecc.P256.N).Int64())

	long := make([]byte, 48)
	long[31], long[32] = 0x07, 0x09
	assert.Equal(t, int64(7), ReduceDigest(long, ecc.P256.N).Int64())

	assert.Equal(t, 0, ReduceDigest(nil, ecc.P256.N).Sign())
}

func TestSignRoundTrip(t *testing.T) {
	digest := sha256.Sum256([]byte("round trip"))

	for _, c := range ecc.Curves() {
		key, err := ecc.GenerateKey(c, nil)
		require.NoError(t, err)

		for _, f := range []Format{AnsiX962Der, Rfc7518Raw, Eth27VRS, Rfc5656SSH} {
			t.Run(c.Name+"/"+f.String(), func(t *testing.T) {
				sig, err := Sign(nil, key, digest[:], f)
				if f == Eth27VRS && c != ecc.Secp256k1 {
					assert.True(t, errors.Is(err, errors.ErrCurveMismatch))
					return
				}
				require.NoError(t, err)

				for name, verifier := range engines() {
					ok, err := verifier.Verify(sig, f, digest[:], key.Public())
					require.NoError(t, err)
					assert.True(t, ok, name)
				}

				other := sha256.Sum256([]byte("other"))
				ok, err := Verify(sig, f, other[:], key.Public())
				require.NoError(t, err)
				assert.False(t, ok)
			})
		}
	}
}

func TestSignVerifiesWithStdlib(t *testing.T) {
	key, err := ecc.GenerateKey(ecc.P384, nil)
	require.NoError(t, err)
	digest := sha512.Sum384([]byte("stdlib"))

	der, err := Sign(rand.Reader, key, digest[:], AnsiX962Der)
	require.NoError(t, err)

	std, err := key.Public().ToECDSA()
	require.NoError(t, err)
	assert.True(t, ecdsa.VerifyASN1(std, digest[:], der))
}

func TestSecp256k1Interop(t *testing.T) {
	digest := sha256.Sum256([]byte("secp256k1"))

	t.Run("voi compact", func(t *testing.T) {
		k, err := secec.GenerateKey()
		require.NoError(t, err)
		pub, err := ecc.UnmarshalPublicKey(ecc.Secp256k1, k.PublicKey().Point().UncompressedBytes())
		require.NoError(t, err)

		sig, err := k.Sign(rand.Reader, digest[:], &secec.ECDSAOptions{
			Hash:     crypto.SHA256,
			Encoding: secec.EncodingCompact,
		})
		require.NoError(t, err)

		ok, err := Verify(sig, Rfc7518Raw, digest[:], pub)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("decred", func(t *testing.T) {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		pub, err := ecc.UnmarshalPublicKey(ecc.Secp256k1, k.PubKey().SerializeUncompressed())
		require.NoError(t, err)

		der := dcrecdsa.Sign(k, digest[:]).Serialize()
		ok, err := Verify(der, AnsiX962Der, digest[:], pub)
		require.NoError(t, err)
		assert.True(t, ok)

		compact := dcrecdsa.SignCompact(k, digest[:], false)
		require.Len(t, compact, 65)
		ok, err = Verify(compact, Eth27VRS, digest[:], pub)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("eth27 recovers", func(t *testing.T) {
		key, err := ecc.GenerateKey(ecc.Secp256k1, nil)
		require.NoError(t, err)
		sig, err := Sign(nil, key, digest[:], Eth27VRS)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sig[0], byte(27))

		recovered, _, err := dcrecdsa.RecoverCompact(sig, digest[:])
		require.NoError(t, err)
		assert.Equal(t, key.Public().Marshal(), recovered.SerializeUncompressed())
	})
}

func TestVerifyErrors(t *testing.T) {
	v := loadVector(t)
	raw, err := Encode(&Signature{R: v.r, S: v.s}, Rfc7518Raw, ecc.P256)
	require.NoError(t, err)
	der, err := Encode(&Signature{R: v.r, S: v.s}, AnsiX962Der, ecc.P256)
	require.NoError(t, err)
	sshSig, err := Encode(&Signature{R: v.r, S: v.s}, Rfc5656SSH, ecc.P256)
	require.NoError(t, err)

	k1, err := ecc.GenerateKey(ecc.Secp256k1, nil)
	require.NoError(t, err)
	k1ssh, err := Encode(&Signature{R: v.r, S: v.s}, Rfc5656SSH, ecc.Secp256k1)
	require.NoError(t, err)

	zeroR := make([]byte, 64)
	v.s.FillBytes(zeroR[32:])
	orderR := make([]byte, 64)
	ecc.P256.N.FillBytes(orderR[:32])
	v.s.FillBytes(orderR[32:])

	tests := []struct {
		name   string
		sig    []byte
		format Format
		pub    *ecc.PublicKey
		want   error
	}{
		{"raw one byte short", raw[:63], Rfc7518Raw, v.pub, errors.ErrInvalidPacket},
		{"raw one byte long", append(append([]byte(nil), raw...), 0), Rfc7518Raw, v.pub, errors.ErrInvalidPacket},
		{"der trailing byte", append(append([]byte(nil), der...), 0), AnsiX962Der, v.pub, errors.ErrInvalidPacket},
		{"der truncated", der[:len(der)-1], AnsiX962Der, v.pub, errors.ErrInvalidPacket},
		{"der empty", nil, AnsiX962Der, v.pub, errors.ErrInvalidPacket},
		{"eth27 on P-256", make([]byte, 65), Eth27VRS, v.pub, errors.ErrCurveMismatch},
		{"eth27 short", make([]byte, 64), Eth27VRS, k1.Public(), errors.ErrInvalidPacket},
		{"ssh curve mismatch", k1ssh, Rfc5656SSH, v.pub, errors.ErrCurveMismatch},
		{"ssh trailing byte", append(append([]byte(nil), sshSig...), 0), Rfc5656SSH, v.pub, errors.ErrInvalidPacket},
		{"ssh truncated", sshSig[:10], Rfc5656SSH, v.pub, errors.ErrInvalidPacket},
		{"r zero", zeroR, Rfc7518Raw, v.pub, errors.ErrInvalidSignature},
		{"r equals n", orderR, Rfc7518Raw, v.pub, errors.ErrInvalidSignature},
		{"unknown format", raw, Format(42), v.pub, errors.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Verify(tt.sig, tt.format, v.digest, tt.pub)
			assert.False(t, ok)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}

	_, err = Verify(raw, Rfc7518Raw, v.digest, nil)
	assert.Error(t, err)
}

func TestEncodeSSHLayout(t *testing.T) {
	v := loadVector(t)
	b, err := Encode(&Signature{R: v.r, S: v.s}, Rfc5656SSH, ecc.P256)
	require.NoError(t, err)

	// string "ecdsa-sha2-nistp256", then r with a leading zero since its top bit is set
	assert.Equal(t, "00000013", hex.EncodeToString(b[:4]))
	assert.Equal(t, "ecdsa-sha2-nistp256", string(b[4:23]))
	assert.Equal(t, "0000002100ef", hex.EncodeToString(b[23:29]))

	dec, err := Decode(b, Rfc5656SSH, ecc.P256)
	require.NoError(t, err)
	assert.Equal(t, 0, dec.R.Cmp(v.r))
	assert.Equal(t, 0, dec.S.Cmp(v.s))
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(&Signature{R: big.NewInt(-1), S: big.NewInt(1)}, AnsiX962Der, ecc.P256)
	assert.Error(t, err)

	wide := new(big.Int).Lsh(big.NewInt(1), 300)
	_, err = Encode(&Signature{R: wide, S: big.NewInt(1)}, Rfc7518Raw, ecc.P256)
	assert.Error(t, err)

	_, err = Encode(&Signature{R: big.NewInt(1), S: big.NewInt(1)}, Eth27VRS, ecc.P256)
	assert.True(t, errors.Is(err, errors.ErrCurveMismatch))
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01}, uint8(0))
	f.Add(make([]byte, 64), uint8(1))
	f.Add(make([]byte, 65), uint8(2))
	f.Add([]byte{0, 0, 0, 1, 'x'}, uint8(3))

	f.Fuzz(func(t *testing.T, data []byte, format uint8) {
		c := ecc.P256
		if format%4 == uint8(Eth27VRS) {
			c = ecc.Secp256k1
		}
		_, _ = Decode(data, Format(format%4), c)
	})
}
