package container

import (
	"fmt"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
	"keyscope/internal/log"
)

// decryptSection derives key‖iv from opts and deciphers section in place.
// It is a no-op for the "none" cipher. The derived key is wiped on return.
func decryptSection(opts *crypto.KdfOptions, section []byte) error {
	if !opts.Cipher.Encrypted() {
		return nil
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if len(section)%opts.Cipher.BlockLen != 0 {
		return errors.NewDecodeError("private section",
			fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte block", errors.ErrMalformedContainer, len(section), opts.Cipher.BlockLen))
	}

	log.Debug("deriving key",
		log.String("kdf", opts.Name.String()),
		log.Uint32("rounds", opts.Rounds),
		log.Int("salt_len", len(opts.Salt)),
	)

	km, err := crypto.DeriveSymmetricKey(opts)
	if err != nil {
		return err
	}
	defer km.Close()

	material := km.Bytes()
	key, iv := material[:opts.Cipher.KeyLen], material[opts.Cipher.KeyLen:]
	return crypto.DecryptInPlace(opts.Cipher, key, iv, section)
}

// encryptSection is the inverse of decryptSection.
func encryptSection(opts *crypto.KdfOptions, section []byte) error {
	if !opts.Cipher.Encrypted() {
		return nil
	}
	km, err := crypto.DeriveSymmetricKey(opts)
	if err != nil {
		return err
	}
	defer km.Close()

	material := km.Bytes()
	key, iv := material[:opts.Cipher.KeyLen], material[opts.Cipher.KeyLen:]
	return crypto.EncryptInPlace(opts.Cipher, key, iv, section)
}
