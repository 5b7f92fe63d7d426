package container

import (
	"bytes"
	"crypto/ecdsa"
	stded25519 "crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/ssh"

	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/encoding"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/sshwire"
)

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

var testPassphrase = []byte("correct horse battery staple")

func testEd25519(t *testing.T) *keys.PrivateKey {
	t.Helper()
	k, err := keys.NewEd25519FromSeed(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return keys.NewEd25519(k, "test@keyscope")
}

func publicBlob(t *testing.T, k *keys.PrivateKey) []byte {
	t.Helper()
	b, err := k.Public().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// rawContainer assembles a container from explicit fields.
func rawContainer(t *testing.T, cipher, kdf string, kdfOpts []byte, nkeys uint32, pub, section []byte) []byte {
	t.Helper()
	b, err := sshwire.NewEncoder().
		Raw([]byte(Magic)).
		String(cipher).
		String(kdf).
		Bytes(kdfOpts).
		Uint32(nkeys).
		Bytes(pub).
		Bytes(section).
		Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// ed25519Section builds an unpadded plaintext private section.
func ed25519Section(t *testing.T, k *keys.PrivateKey, check1, check2 uint32, keyType, comment string) []byte {
	t.Helper()
	b, err := sshwire.NewEncoder().
		Uint32(check1).
		Uint32(check2).
		String(keyType).
		Bytes(k.Ed25519.PublicKey()).
		Bytes(k.Ed25519.Bytes()).
		String(comment).
		Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func bcryptOptions(t *testing.T, salt []byte, rounds uint32) []byte {
	t.Helper()
	b, err := sshwire.NewEncoder().Bytes(salt).Uint32(rounds).Finish()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecodeHeader(t *testing.T) {
	k := testEd25519(t)
	pub := publicBlob(t, k)
	section := []byte("opaque section..")
	salt := bytes.Repeat([]byte{0xa5}, 16)
	data := rawContainer(t, "aes256-ctr", "bcrypt", bcryptOptions(t, salt, 16), 1, pub, section)

	h, n, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if want := len(data) - 4 - len(section); n != want {
		t.Errorf("consumed = %d, want %d", n, want)
	}
	if h.CipherName != "aes256-ctr" || h.KdfName != "bcrypt" || h.NumKeys != 1 {
		t.Errorf("header = %+v", h)
	}
	if h.Kdf.Cipher.KeyLen != 32 || h.Kdf.Cipher.BlockLen != 16 || h.Kdf.Name != crypto.KdfBcrypt {
		t.Errorf("kdf = %+v", h.Kdf)
	}
	if !bytes.Equal(h.Kdf.Salt, salt) || h.Kdf.Rounds != 16 {
		t.Errorf("salt = %x rounds = %d", h.Kdf.Salt, h.Kdf.Rounds)
	}
	if !bytes.Equal(h.PublicKey, pub) {
		t.Error("public key blob mismatch")
	}
	if !h.Encrypted() || h.BlockLen() != 16 {
		t.Errorf("Encrypted() = %v, BlockLen() = %d", h.Encrypted(), h.BlockLen())
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	k := testEd25519(t)
	pub := publicBlob(t, k)
	opts := bcryptOptions(t, bytes.Repeat([]byte{1}, 16), 16)
	valid := rawContainer(t, "aes256-ctr", "bcrypt", opts, 1, pub, nil)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no magic", []byte("not a key"), errors.ErrMalformedContainer},
		{"displaced magic", append([]byte{0}, valid...), errors.ErrMalformedContainer},
		{"magic only", []byte(Magic), errors.ErrTruncated},
		{"unknown cipher", rawContainer(t, "chacha20-poly1305@openssh.com", "bcrypt", opts, 1, pub, nil), errors.ErrUnknownCipher},
		{"unknown kdf", rawContainer(t, "aes256-ctr", "scrypt", opts, 1, pub, nil), errors.ErrUnsupportedKdf},
		{"two keys", rawContainer(t, "aes256-ctr", "bcrypt", opts, 2, pub, nil), errors.ErrUnsupportedKeyCount},
		{"zero keys", rawContainer(t, "none", "none", nil, 0, pub, nil), errors.ErrUnsupportedKeyCount},
		{"kdfoptions trailing", rawContainer(t, "aes256-ctr", "bcrypt", append(bytes.Clone(opts), 0), 1, pub, nil), errors.ErrTrailingData},
		{"kdfoptions short", rawContainer(t, "aes256-ctr", "bcrypt", opts[:len(opts)-1], 1, pub, nil), errors.ErrTruncated},
		{"salt too large", rawContainer(t, "aes256-ctr", "bcrypt", bcryptOptions(t, make([]byte, 65), 16), 1, pub, nil), errors.ErrFieldTooLarge},
		{"truncated public key", valid[:len(valid)-10], errors.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeHeader(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeHeader() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeHeaderEveryTruncation(t *testing.T) {
	k := testEd25519(t)
	data := rawContainer(t, "aes256-ctr", "bcrypt", bcryptOptions(t, bytes.Repeat([]byte{1}, 16), 16), 1, publicBlob(t, k), nil)
	data = data[:len(data)-4] // drop the empty private section

	for i := 0; i < len(data); i++ {
		if _, _, err := DecodeHeader(data[:i]); !errors.IsStructural(err) {
			t.Fatalf("DecodeHeader(data[:%d]) error = %v, want a structural error", i, err)
		}
	}
}

func TestDecodeUnencrypted(t *testing.T) {
	k := testEd25519(t)
	section := encoding.Pad(ed25519Section(t, k, 0x01020304, 0x01020304, keys.KeyTypeEd25519, "x"), 8)
	data := rawContainer(t, "none", "none", nil, 1, publicBlob(t, k), section)

	got, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer got.Zero()
	if got.Algorithm != keys.AlgorithmEd25519 || got.Comment != "x" {
		t.Errorf("got %s %q", got.Algorithm, got.Comment)
	}
	if !bytes.Equal(got.Ed25519.Seed(), k.Ed25519.Seed()) {
		t.Error("seed mismatch")
	}

	enc, err := IsEncrypted(data)
	if err != nil || enc {
		t.Errorf("IsEncrypted() = %v, %v", enc, err)
	}
}

func TestDecodePadding(t *testing.T) {
	k := testEd25519(t)
	pub := publicBlob(t, k)
	base := ed25519Section(t, k, 7, 7, keys.KeyTypeEd25519, "x")

	tests := []struct {
		name string
		pad  []byte
		want error
	}{
		{"sequential", []byte{1, 2, 3, 4}, nil},
		{"none", nil, nil},
		{"swapped", []byte{1, 2, 4, 3}, errors.ErrPaddingMismatch},
		{"zeros", []byte{0, 0, 0, 0}, errors.ErrPaddingMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := append(bytes.Clone(base), tt.pad...)
			key, err := Decode(rawContainer(t, "none", "none", nil, 1, pub, section), nil)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				key.Zero()
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if !errors.IsIntegrity(err) {
				t.Errorf("padding error not classed as integrity: %v", err)
			}
		})
	}
}

func TestDecodePrivateSectionErrors(t *testing.T) {
	k := testEd25519(t)
	pub := publicBlob(t, k)
	other, err := keys.NewEd25519FromSeed(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		pub     []byte
		section []byte
		want    error
	}{
		{"check words differ", pub, ed25519Section(t, k, 1, 2, keys.KeyTypeEd25519, ""), errors.ErrIntegrityCheckFailed},
		{"unknown key type", pub, ed25519Section(t, k, 1, 1, "ssh-dss", ""), errors.ErrUnsupportedKeyType},
		{"unknown curve", pub, ed25519Section(t, k, 1, 1, "ecdsa-sha2-nistp999", ""), errors.ErrUnknownCurve},
		{"truncated", pub, ed25519Section(t, k, 1, 1, keys.KeyTypeEd25519, "")[:60], errors.ErrTruncated},
		{"header key differs", publicBlob(t, keys.NewEd25519(other, "")), ed25519Section(t, k, 1, 1, keys.KeyTypeEd25519, ""), errors.ErrIntegrityCheckFailed},
		{"empty", pub, nil, errors.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(rawContainer(t, "none", "none", nil, 1, tt.pub, tt.section), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeEncryptedFlowErrors(t *testing.T) {
	k := testEd25519(t)
	pub := publicBlob(t, k)
	section := make([]byte, 32)
	opts := bcryptOptions(t, bytes.Repeat([]byte{1}, 16), 2)

	_, err := Decode(rawContainer(t, "aes256-ctr", "bcrypt", opts, 1, pub, section), nil)
	if !errors.Is(err, errors.ErrPassphraseRequired) {
		t.Errorf("no passphrase: error = %v", err)
	}

	_, err = Decode(rawContainer(t, "aes256-ctr", "none", nil, 1, pub, section), testPassphrase)
	if !errors.Is(err, errors.ErrUnsupportedKdf) {
		t.Errorf("cipher without kdf: error = %v", err)
	}

	_, err = Decode(rawContainer(t, "aes256-cbc", "bcrypt", opts, 1, pub, section[:31]), testPassphrase)
	if !errors.Is(err, errors.ErrMalformedContainer) {
		t.Errorf("misaligned section: error = %v", err)
	}
}

// Containers written by x/crypto/ssh decode to the same key material.
func TestDecodeSSHGenerated(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	edKey := stded25519.NewKeyFromSeed(bytes.Repeat([]byte{5}, 32))

	tests := []struct {
		name  string
		key   any
		check func(t *testing.T, k *keys.PrivateKey)
	}{
		{"rsa", rsaKey, func(t *testing.T, k *keys.PrivateKey) {
			want := []*big.Int{rsaKey.D, rsaKey.Primes[0], rsaKey.Primes[1], rsaKey.Precomputed.Dp, rsaKey.Precomputed.Dq, rsaKey.Precomputed.Qinv}
			got := []*big.Int{k.RSA.D, k.RSA.P, k.RSA.Q, k.RSA.Dp, k.RSA.Dq, k.RSA.Qinv}
			if diff := cmp.Diff(want, got, bigIntComparer); diff != "" {
				t.Errorf("RSA mismatch (-want +got):\n%s", diff)
			}
		}},
		{"ed25519", edKey, func(t *testing.T, k *keys.PrivateKey) {
			if !bytes.Equal(k.Ed25519.Bytes(), edKey) {
				t.Error("ed25519 key mismatch")
			}
		}},
	}
	for _, c := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		ecKey, err := ecdsa.GenerateKey(c, rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		tests = append(tests, struct {
			name  string
			key   any
			check func(t *testing.T, k *keys.PrivateKey)
		}{"ecdsa " + c.Params().Name, ecKey, func(t *testing.T, k *keys.PrivateKey) {
			if k.ECDSA.D.Cmp(ecKey.D) != 0 || k.ECDSA.X.Cmp(ecKey.X) != 0 {
				t.Error("ecdsa key mismatch")
			}
			if k.ECDSA.Curve.Name != c.Params().Name {
				t.Errorf("curve = %s", k.ECDSA.Curve.Name)
			}
		}})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := ssh.MarshalPrivateKey(tt.key, "plain comment")
			if err != nil {
				t.Fatal(err)
			}
			k, err := Decode(pem.EncodeToMemory(block), nil)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if k.Comment != "plain comment" {
				t.Errorf("Comment = %q", k.Comment)
			}
			tt.check(t, k)
			k.Zero()
		})
	}

	t.Run("encrypted", func(t *testing.T) {
		block, err := ssh.MarshalPrivateKeyWithPassphrase(edKey, "locked", testPassphrase)
		if err != nil {
			t.Fatal(err)
		}
		data := pem.EncodeToMemory(block)

		enc, err := IsEncrypted(data)
		if err != nil || !enc {
			t.Fatalf("IsEncrypted() = %v, %v", enc, err)
		}

		k, err := Decode(data, testPassphrase)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !bytes.Equal(k.Ed25519.Bytes(), edKey) || k.Comment != "locked" {
			t.Error("decrypted key mismatch")
		}

		_, err = Decode(data, []byte("wrong passphrase"))
		if !errors.Is(err, errors.ErrIntegrityCheckFailed) {
			t.Errorf("wrong passphrase: error = %v, want ErrIntegrityCheckFailed", err)
		}
	})
}

// Containers written by Encode are accepted by x/crypto/ssh.
func TestEncodeReadBySSH(t *testing.T) {
	ecKey, err := ecc.GenerateKey(ecc.P256, nil)
	if err != nil {
		t.Fatal(err)
	}
	k := keys.NewECDSA(ecKey, "from keyscope")

	for _, cipher := range []string{"none", "aes256-ctr", "aes256-cbc"} {
		t.Run(cipher, func(t *testing.T) {
			opts := EncodeOptions{Cipher: cipher, Rounds: 4}
			if cipher != "none" {
				opts.Password = testPassphrase
			}
			data, err := EncodeArmored(k, opts)
			if err != nil {
				t.Fatalf("EncodeArmored() error = %v", err)
			}

			var parsed any
			if cipher == "none" {
				parsed, err = ssh.ParseRawPrivateKey(data)
			} else {
				parsed, err = ssh.ParseRawPrivateKeyWithPassphrase(data, testPassphrase)
			}
			if err != nil {
				t.Fatalf("x/crypto/ssh parse error = %v", err)
			}
			std, ok := parsed.(*ecdsa.PrivateKey)
			if !ok {
				t.Fatalf("parsed %T", parsed)
			}
			if std.D.Cmp(ecKey.D) != 0 {
				t.Error("scalar mismatch")
			}
		})
	}
}

func TestEncodeRoundTripAllCiphers(t *testing.T) {
	rsaStd, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	rsaKey, err := keys.RSAFromCrypto(rsaStd)
	if err != nil {
		t.Fatal(err)
	}
	k1, err := ecc.GenerateKey(ecc.Secp256k1, nil)
	if err != nil {
		t.Fatal(err)
	}

	inputs := []*keys.PrivateKey{
		testEd25519(t),
		keys.NewRSA(rsaKey, "rsa"),
		keys.NewECDSA(k1, "k1"),
	}

	for _, cipher := range crypto.Ciphers() {
		for _, in := range inputs {
			t.Run(cipher+"/"+in.KeyType(), func(t *testing.T) {
				opts := EncodeOptions{Cipher: cipher, Rounds: 1}
				if cipher != "none" {
					opts.Password = testPassphrase
				}
				data, err := Encode(in, opts)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}

				c, err := Parse(data)
				if err != nil {
					t.Fatal(err)
				}
				if len(c.Private)%c.Header.BlockLen() != 0 {
					t.Errorf("private section %d bytes is not aligned to %d", len(c.Private), c.Header.BlockLen())
				}

				out, err := c.Decrypt(opts.Password)
				if err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				defer out.Zero()

				if out.KeyType() != in.KeyType() || out.Comment != in.Comment {
					t.Errorf("got %s %q, want %s %q", out.KeyType(), out.Comment, in.KeyType(), in.Comment)
				}
				if !bytes.Equal(publicBlob(t, out), publicBlob(t, in)) {
					t.Error("public key changed")
				}
			})
		}
	}
}

func TestEncodeOptions(t *testing.T) {
	k := testEd25519(t)

	if _, err := Encode(k, EncodeOptions{Cipher: "aes256-ctr"}); !errors.Is(err, errors.ErrPassphraseRequired) {
		t.Errorf("missing passphrase: error = %v", err)
	}
	if _, err := Encode(k, EncodeOptions{Cipher: "rot13"}); !errors.Is(err, errors.ErrUnknownCipher) {
		t.Errorf("unknown cipher: error = %v", err)
	}

	data, err := Encode(k, EncodeOptions{Password: testPassphrase, Rounds: 1, Comment: "override"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.Header.CipherName != DefaultCipher || c.Header.Kdf.Rounds != 1 || len(c.Header.Kdf.Salt) != crypto.SaltSize {
		t.Errorf("header = %+v", c.Header)
	}
	out, err := c.Decrypt(testPassphrase)
	if err != nil {
		t.Fatal(err)
	}
	if out.Comment != "override" {
		t.Errorf("Comment = %q", out.Comment)
	}

	plain, err := Encode(k, EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if enc, _ := IsEncrypted(plain); enc {
		t.Error("empty options produced an encrypted container")
	}
}

func TestParseTrailingData(t *testing.T) {
	data, err := Encode(testEd25519(t), EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(append(data, "trailing"...), nil); err != nil {
		t.Errorf("Decode() with trailing data error = %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	k, err := keys.NewEd25519FromSeed(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		f.Fatal(err)
	}
	seed, err := Encode(keys.NewEd25519(k, "fuzz"), EncodeOptions{})
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte(Magic))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		key, err := Decode(data, nil)
		if err == nil {
			key.Zero()
		}
	})
}
