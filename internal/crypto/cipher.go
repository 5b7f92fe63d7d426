package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
	"sort"

	"github.com/Picocrypt/serpent"
	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"

	"keyscope/internal/errors"
)

// Mode is the block cipher mode named by a cipher entry.
type Mode int

const (
	ModeNone Mode = iota
	ModeCBC
	ModeCTR
	ModeStream
	ModeGCM
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCBC:
		return "cbc"
	case ModeCTR:
		return "ctr"
	case ModeStream:
		return "stream"
	case ModeGCM:
		return "gcm"
	default:
		return "unknown"
	}
}

// CipherSpec describes one entry of the cipher registry.
// Entries are static and never mutated.
type CipherSpec struct {
	Name      string // Wire name, e.g. "aes256-ctr"
	Algorithm string // Block cipher, e.g. "aes"
	KeyLen    int    // Key bytes derived from the KDF
	BlockLen  int    // Block size, also the IV length and padding alignment
	Mode      Mode

	newBlock func(key []byte) (cipher.Block, error)
}

// NoneBlockLen is the padding alignment of unencrypted containers.
const NoneBlockLen = 8

func newAES(key []byte) (cipher.Block, error)      { return aes.NewCipher(key) }
func newTripleDES(key []byte) (cipher.Block, error) { return des.NewTripleDESCipher(key) }
func newBlowfish(key []byte) (cipher.Block, error)  { return blowfish.NewCipher(key) }
func newCAST5(key []byte) (cipher.Block, error)     { return cast5.NewCipher(key) }
func newTwofish(key []byte) (cipher.Block, error)   { return twofish.NewCipher(key) }
func newSerpent(key []byte) (cipher.Block, error)   { return serpent.NewCipher(key) }

// cipherTable is the registry of SSH private key ciphers.
// AEAD ciphers (chacha20-poly1305@openssh.com, aes*-gcm@openssh.com) are absent.
var cipherTable = []CipherSpec{
	{Name: "none", Algorithm: "none", BlockLen: NoneBlockLen, Mode: ModeNone},

	{Name: "aes128-cbc", Algorithm: "aes", KeyLen: 16, BlockLen: aes.BlockSize, Mode: ModeCBC, newBlock: newAES},
	{Name: "aes192-cbc", Algorithm: "aes", KeyLen: 24, BlockLen: aes.BlockSize, Mode: ModeCBC, newBlock: newAES},
	{Name: "aes256-cbc", Algorithm: "aes", KeyLen: 32, BlockLen: aes.BlockSize, Mode: ModeCBC, newBlock: newAES},
	{Name: "aes128-ctr", Algorithm: "aes", KeyLen: 16, BlockLen: aes.BlockSize, Mode: ModeCTR, newBlock: newAES},
	{Name: "aes192-ctr", Algorithm: "aes", KeyLen: 24, BlockLen: aes.BlockSize, Mode: ModeCTR, newBlock: newAES},
	{Name: "aes256-ctr", Algorithm: "aes", KeyLen: 32, BlockLen: aes.BlockSize, Mode: ModeCTR, newBlock: newAES},

	{Name: "3des-cbc", Algorithm: "3des", KeyLen: 24, BlockLen: des.BlockSize, Mode: ModeCBC, newBlock: newTripleDES},
	{Name: "blowfish-cbc", Algorithm: "blowfish", KeyLen: 16, BlockLen: blowfish.BlockSize, Mode: ModeCBC, newBlock: newBlowfish},
	{Name: "cast128-cbc", Algorithm: "cast128", KeyLen: cast5.KeySize, BlockLen: cast5.BlockSize, Mode: ModeCBC, newBlock: newCAST5},

	{Name: "twofish-cbc", Algorithm: "twofish", KeyLen: 32, BlockLen: twofish.BlockSize, Mode: ModeCBC, newBlock: newTwofish},
	{Name: "twofish128-cbc", Algorithm: "twofish", KeyLen: 16, BlockLen: twofish.BlockSize, Mode: ModeCBC, newBlock: newTwofish},
	{Name: "twofish192-cbc", Algorithm: "twofish", KeyLen: 24, BlockLen: twofish.BlockSize, Mode: ModeCBC, newBlock: newTwofish},
	{Name: "twofish256-cbc", Algorithm: "twofish", KeyLen: 32, BlockLen: twofish.BlockSize, Mode: ModeCBC, newBlock: newTwofish},

	{Name: "serpent128-cbc", Algorithm: "serpent", KeyLen: 16, BlockLen: 16, Mode: ModeCBC, newBlock: newSerpent},
	{Name: "serpent192-cbc", Algorithm: "serpent", KeyLen: 24, BlockLen: 16, Mode: ModeCBC, newBlock: newSerpent},
	{Name: "serpent256-cbc", Algorithm: "serpent", KeyLen: 32, BlockLen: 16, Mode: ModeCBC, newBlock: newSerpent},
}

// LookupCipher resolves a wire cipher name. Matching is exact; the returned
// spec is a copy and may be kept by the caller.
func LookupCipher(name string) (*CipherSpec, error) {
	for i := range cipherTable {
		if cipherTable[i].Name == name {
			spec := cipherTable[i]
			return &spec, nil
		}
	}
	return nil, errors.NewUnsupportedError("cipher", name, errors.ErrUnknownCipher)
}

// ParseCipher resolves a cipher name typed by a user (case and surrounding
// space are ignored).
func ParseCipher(name string) (*CipherSpec, error) {
	return LookupCipher(normalizeName(name))
}

// Ciphers lists the registered cipher names in sorted order.
func Ciphers() []string {
	names := make([]string, 0, len(cipherTable))
	for _, c := range cipherTable {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Encrypted reports whether the cipher actually transforms data.
func (c *CipherSpec) Encrypted() bool {
	return c.Mode != ModeNone
}

func (c *CipherSpec) block(key, iv []byte) (cipher.Block, error) {
	if c.newBlock == nil {
		return nil, errors.NewCryptoError(c.Name, fmt.Errorf("%w: mode %s not implemented", errors.ErrDecryptionSetup, c.Mode))
	}
	if len(key) != c.KeyLen || len(iv) != c.BlockLen {
		return nil, errors.NewCryptoError(c.Name,
			fmt.Errorf("%w: key %d/%d bytes, iv %d/%d bytes", errors.ErrDecryptionSetup, len(key), c.KeyLen, len(iv), c.BlockLen))
	}
	b, err := c.newBlock(key)
	if err != nil {
		return nil, errors.NewCryptoError(c.Name, fmt.Errorf("%w: %v", errors.ErrDecryptionSetup, err))
	}
	return b, nil
}

// DecryptInPlace decrypts buf with the given key and IV.
// CBC requires len(buf) to be a multiple of the block size.
func DecryptInPlace(c *CipherSpec, key, iv, buf []byte) error {
	return crypt(c, key, iv, buf, false)
}

// EncryptInPlace is the inverse of DecryptInPlace.
func EncryptInPlace(c *CipherSpec, key, iv, buf []byte) error {
	return crypt(c, key, iv, buf, true)
}

func crypt(c *CipherSpec, key, iv, buf []byte, encrypt bool) error {
	switch c.Mode {
	case ModeNone:
		return nil
	case ModeCBC:
		if len(buf)%c.BlockLen != 0 {
			return errors.NewCryptoError(c.Name,
				fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte block", errors.ErrDecryption, len(buf), c.BlockLen))
		}
		b, err := c.block(key, iv)
		if err != nil {
			return err
		}
		if encrypt {
			cipher.NewCBCEncrypter(b, iv).CryptBlocks(buf, buf)
		} else {
			cipher.NewCBCDecrypter(b, iv).CryptBlocks(buf, buf)
		}
		return nil
	case ModeCTR:
		b, err := c.block(key, iv)
		if err != nil {
			return err
		}
		cipher.NewCTR(b, iv).XORKeyStream(buf, buf)
		return nil
	default:
		return errors.NewCryptoError(c.Name, fmt.Errorf("%w: mode %s not supported", errors.ErrDecryptionSetup, c.Mode))
	}
}
