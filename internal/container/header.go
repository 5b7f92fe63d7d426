// Package container reads and writes OpenSSH "openssh-key-v1" private key
// containers (PROTOCOL.key): header decode, bcrypt_pbkdf key derivation,
// block cipher decryption and per-key-type decoding of the private section.
package container

import (
	"bytes"
	"fmt"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
	"keyscope/internal/sshwire"
)

// Magic opens every container.
const Magic = "openssh-key-v1\x00"

// Header is the unencrypted part of a container.
type Header struct {
	CipherName string
	KdfName    string
	NumKeys    uint32

	// Kdf is populated from the cipher and kdfoptions fields. Password is
	// left empty; callers supply it at decrypt time.
	Kdf crypto.KdfOptions

	// PublicKey is the SSH wire public key blob. It aliases the input.
	PublicKey []byte
}

// DecodeHeader parses the container header at the start of data and returns
// it with the number of bytes consumed. The private section follows.
func DecodeHeader(data []byte) (*Header, int, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, 0, errors.NewDecodeError("magic", errors.ErrMalformedContainer)
	}
	d := sshwire.NewDecoder(data[len(Magic):])
	h := &Header{}

	// Cipher
	var err error
	if h.CipherName, err = d.String("ciphername", sshwire.MaxNameLen); err != nil {
		return nil, 0, err
	}
	if h.Kdf.Cipher, err = crypto.LookupCipher(h.CipherName); err != nil {
		return nil, 0, err
	}

	// KDF
	if h.KdfName, err = d.String("kdfname", sshwire.MaxNameLen); err != nil {
		return nil, 0, err
	}
	if h.Kdf.Name, err = crypto.ParseKdfName(h.KdfName); err != nil {
		return nil, 0, err
	}
	kdfOptions, err := d.Bytes("kdfoptions", sshwire.MaxKdfOptionsLen)
	if err != nil {
		return nil, 0, err
	}
	if h.Kdf.Name == crypto.KdfBcrypt {
		if err := decodeBcryptOptions(kdfOptions, &h.Kdf); err != nil {
			return nil, 0, err
		}
	}

	// Keys
	if h.NumKeys, err = d.Uint32("number of keys"); err != nil {
		return nil, 0, err
	}
	if h.NumKeys != 1 {
		return nil, 0, fmt.Errorf("%w: container holds %d keys", errors.ErrUnsupportedKeyCount, h.NumKeys)
	}
	if h.PublicKey, err = d.Bytes("public key", sshwire.MaxPublicKeyLen); err != nil {
		return nil, 0, err
	}

	return h, len(Magic) + d.Consumed(), nil
}

// decodeBcryptOptions reads string(salt) uint32(rounds). The record must be
// consumed exactly.
func decodeBcryptOptions(raw []byte, o *crypto.KdfOptions) error {
	var salt []byte
	n, err := sshwire.Decode(raw,
		sshwire.Bytes("salt", &salt, crypto.MaxSaltSize),
		sshwire.Uint32("rounds", &o.Rounds),
	)
	if err != nil {
		return err
	}
	if n != len(raw) {
		return errors.NewDecodeError("kdfoptions", fmt.Errorf("%w: %d bytes", errors.ErrTrailingData, len(raw)-n))
	}
	o.Salt = bytes.Clone(salt)
	return nil
}

// Encrypted reports whether the private section is enciphered.
func (h *Header) Encrypted() bool {
	return h.Kdf.Cipher.Encrypted()
}

// BlockLen is the alignment of the private section.
func (h *Header) BlockLen() int {
	if !h.Encrypted() {
		return crypto.NoneBlockLen
	}
	return h.Kdf.Cipher.BlockLen
}
