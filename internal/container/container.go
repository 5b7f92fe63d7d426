package container

import (
	"bytes"
	"fmt"

	"keyscope/internal/crypto"
	"keyscope/internal/encoding"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/log"
	"keyscope/internal/sshwire"
)

// Container is a parsed but still encrypted key file.
type Container struct {
	Header *Header

	// Private is the private section as stored, aliasing the input.
	Private []byte
}

// Parse reads the header and locates the private section. data may be the
// binary container or its PEM armor.
func Parse(data []byte) (*Container, error) {
	if encoding.IsArmored(data) {
		raw, err := encoding.Unarmor(data)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	h, n, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	d := sshwire.NewDecoder(data[n:])
	private, err := d.Bytes("private section", sshwire.MaxPrivateSectionLen)
	if err != nil {
		return nil, err
	}
	if !d.Empty() {
		log.Debug("ignoring data after private section", log.Int("bytes", len(d.Remaining())))
	}

	return &Container{Header: h, Private: private}, nil
}

// PublicKey parses the unencrypted public key blob of the header.
func (c *Container) PublicKey() (*keys.PublicKey, error) {
	return keys.ParsePublicKey(c.Header.PublicKey)
}

// Decrypt deciphers and decodes the private key. password is ignored for
// unencrypted containers.
//
// The private section is copied before decryption; the copy and every
// intermediate integer are wiped before Decrypt returns.
func (c *Container) Decrypt(password []byte) (*keys.PrivateKey, error) {
	var s crypto.Scratch
	defer s.Close()

	section := s.Bytes(len(c.Private))
	copy(section, c.Private)

	opts := c.Header.Kdf
	opts.Password = password

	log.Debug("decrypting container",
		log.String("cipher", c.Header.CipherName),
		log.String("kdf", c.Header.KdfName),
		log.Bool("encrypted", c.Header.Encrypted()),
	)

	if err := decryptSection(&opts, section); err != nil {
		return nil, err
	}

	key, err := decodePrivateSection(section, &s)
	if err != nil {
		return nil, err
	}

	pub, err := key.Public().Marshal()
	if err != nil {
		key.Zero()
		return nil, err
	}
	if !bytes.Equal(pub, c.Header.PublicKey) {
		key.Zero()
		return nil, fmt.Errorf("%w: header public key does not match private key", errors.ErrIntegrityCheckFailed)
	}
	return key, nil
}

// Decode parses data and decrypts its single private key with password.
func Decode(data, password []byte) (*keys.PrivateKey, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(password)
}

// IsEncrypted reports whether the container needs a passphrase.
func IsEncrypted(data []byte) (bool, error) {
	c, err := Parse(data)
	if err != nil {
		return false, err
	}
	return c.Header.Encrypted(), nil
}
