package crypto

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/dchest/bcrypt_pbkdf"

	"keyscope/internal/errors"
)

// RandomBytes generates n cryptographically secure random bytes from r
// (crypto/rand when r is nil).
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errors.NewCryptoError("rand", fmt.Errorf("%w: %v", errors.ErrRandFailure, err))
	}

	// Sanity check: bytes should not be all zeros
	if n >= 8 && bytes.Equal(b, make([]byte, n)) {
		return nil, errors.NewCryptoError("rand", fmt.Errorf("%w: produced zero bytes", errors.ErrRandFailure))
	}

	return b, nil
}

// KdfName identifies the key derivation function named in a container.
type KdfName int

const (
	KdfNone KdfName = iota
	KdfBcrypt
)

func (k KdfName) String() string {
	switch k {
	case KdfNone:
		return "none"
	case KdfBcrypt:
		return "bcrypt"
	default:
		return "unknown"
	}
}

// ParseKdfName maps a wire KDF name to a KdfName. Matching is exact.
func ParseKdfName(name string) (KdfName, error) {
	switch name {
	case "none":
		return KdfNone, nil
	case "bcrypt":
		return KdfBcrypt, nil
	default:
		return 0, errors.NewUnsupportedError("kdf", name, errors.ErrUnsupportedKdf)
	}
}

// bcrypt_pbkdf parameters
const (
	// MaxSaltSize bounds the salt accepted from a container.
	MaxSaltSize = 64

	// MaxSymKeySize bounds KeyLen+BlockLen derived for one container.
	MaxSymKeySize = 128

	// SaltSize is what Encode writes, matching ssh-keygen.
	SaltSize = 16

	// DefaultRounds is ssh-keygen's default work factor.
	DefaultRounds = 16
)

// KdfOptions are the parameters needed to turn a passphrase into the
// symmetric key and IV of one container. Built once during header decode.
type KdfOptions struct {
	Name     KdfName
	Cipher   *CipherSpec
	Salt     []byte
	Rounds   uint32
	Password []byte
}

// Validate checks the option combination before any work is done.
func (o *KdfOptions) Validate() error {
	if o.Cipher == nil {
		return errors.NewValidationError("cipher", "missing")
	}
	if o.Cipher.Mode == ModeNone {
		return nil
	}
	if o.Name != KdfBcrypt {
		return errors.NewUnsupportedError("kdf", o.Name.String(), errors.ErrUnsupportedKdf)
	}
	if len(o.Password) == 0 {
		return errors.ErrPassphraseRequired
	}
	if len(o.Salt) == 0 {
		return errors.NewValidationError("salt", "empty")
	}
	if len(o.Salt) > MaxSaltSize {
		return errors.NewDecodeError("salt", errors.ErrFieldTooLarge)
	}
	if o.Rounds == 0 {
		return errors.NewValidationError("rounds", "must be positive")
	}
	return nil
}

// DeriveKey runs bcrypt_pbkdf (SHA-512 PRF) and returns n bytes.
//
// CRITICAL: the output layout is key || iv. Callers split at Cipher.KeyLen.
func DeriveKey(password, salt []byte, rounds uint32, n int) ([]byte, error) {
	if n <= 0 || n > MaxSymKeySize {
		return nil, errors.NewCryptoError("bcrypt_pbkdf",
			fmt.Errorf("%w: %d bytes requested, limit %d", errors.ErrKdf, n, MaxSymKeySize))
	}
	if uint64(rounds) > uint64(^uint(0)>>1) {
		return nil, errors.NewCryptoError("bcrypt_pbkdf", fmt.Errorf("%w: rounds overflow", errors.ErrKdf))
	}

	key, err := bcrypt_pbkdf.Key(password, salt, int(rounds), n)
	if err != nil {
		return nil, errors.NewCryptoError("bcrypt_pbkdf", fmt.Errorf("%w: %v", errors.ErrKdf, err))
	}

	if bytes.Equal(key, make([]byte, n)) {
		return nil, errors.NewCryptoError("bcrypt_pbkdf", fmt.Errorf("%w: produced zero key", errors.ErrKdf))
	}
	return key, nil
}

// DeriveSymmetricKey derives key||iv for the options' cipher and returns it
// wrapped in a KeyMaterial the caller must Close.
func DeriveSymmetricKey(o *KdfOptions) (*KeyMaterial, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	n := o.Cipher.KeyLen + o.Cipher.BlockLen
	key, err := DeriveKey(o.Password, o.Salt, o.Rounds, n)
	if err != nil {
		return nil, err
	}
	km := NewKeyMaterial(key)
	SecureZero(key)
	return km, nil
}

// normalizeName lowercases cipher and curve names read from user input.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
