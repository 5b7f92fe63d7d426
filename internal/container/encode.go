package container

import (
	"encoding/binary"
	"io"
	"math/big"

	"keyscope/internal/crypto"
	"keyscope/internal/encoding"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/log"
	"keyscope/internal/sshwire"
)

// DefaultCipher is used for protected containers when none is named.
const DefaultCipher = "aes256-ctr"

// EncodeOptions control Encode.
type EncodeOptions struct {
	// Cipher is a registry name. Empty selects DefaultCipher when Password
	// is set and "none" otherwise.
	Cipher string

	Password []byte

	// Rounds is the bcrypt_pbkdf work factor, crypto.DefaultRounds when zero.
	Rounds uint32

	// Comment overrides the key's own comment when non-empty.
	Comment string

	// Rand supplies the salt and check words, crypto/rand when nil.
	Rand io.Reader
}

// Encode writes key as a binary openssh-key-v1 container.
func Encode(key *keys.PrivateKey, opts EncodeOptions) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	cipherName := opts.Cipher
	if cipherName == "" {
		cipherName = "none"
		if len(opts.Password) > 0 {
			cipherName = DefaultCipher
		}
	}
	spec, err := crypto.ParseCipher(cipherName)
	if err != nil {
		return nil, err
	}

	kdf := crypto.KdfOptions{Name: crypto.KdfNone, Cipher: spec}
	if spec.Encrypted() {
		if len(opts.Password) == 0 {
			return nil, errors.ErrPassphraseRequired
		}
		kdf.Name = crypto.KdfBcrypt
		kdf.Password = opts.Password
		kdf.Rounds = opts.Rounds
		if kdf.Rounds == 0 {
			kdf.Rounds = crypto.DefaultRounds
		}
		if kdf.Salt, err = crypto.RandomBytes(opts.Rand, crypto.SaltSize); err != nil {
			return nil, err
		}
	}

	pub, err := key.Public().Marshal()
	if err != nil {
		return nil, err
	}

	comment := key.Comment
	if opts.Comment != "" {
		comment = opts.Comment
	}
	blockLen := crypto.NoneBlockLen
	if spec.Encrypted() {
		blockLen = spec.BlockLen
	}
	section, err := encodePrivateSection(key, comment, blockLen, opts.Rand)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureZero(section)

	log.Debug("encoding container",
		log.String("cipher", spec.Name),
		log.String("kdf", kdf.Name.String()),
		log.Uint32("rounds", kdf.Rounds),
		log.String("key_type", key.KeyType()),
	)

	if err := encryptSection(&kdf, section); err != nil {
		return nil, err
	}

	var kdfOptions []byte
	if kdf.Name == crypto.KdfBcrypt {
		if kdfOptions, err = sshwire.NewEncoder().Bytes(kdf.Salt).Uint32(kdf.Rounds).Finish(); err != nil {
			return nil, err
		}
	}

	return sshwire.NewEncoder().
		Raw([]byte(Magic)).
		String(spec.Name).
		String(kdf.Name.String()).
		Bytes(kdfOptions).
		Uint32(1).
		Bytes(pub).
		Bytes(section).
		Finish()
}

// EncodeArmored is Encode followed by PEM armor.
func EncodeArmored(key *keys.PrivateKey, opts EncodeOptions) ([]byte, error) {
	raw, err := Encode(key, opts)
	if err != nil {
		return nil, err
	}
	return encoding.Armor(raw), nil
}

// encodePrivateSection lays out the plaintext private section in the order
// decodePrivateSection reads it, padded to blockLen.
func encodePrivateSection(key *keys.PrivateKey, comment string, blockLen int, rand io.Reader) ([]byte, error) {
	check, err := crypto.RandomBytes(rand, 4)
	if err != nil {
		return nil, err
	}
	checkWord := binary.BigEndian.Uint32(check)

	e := sshwire.NewEncoder().
		Uint32(checkWord).
		Uint32(checkWord).
		String(key.KeyType())

	switch key.Algorithm {
	case keys.AlgorithmRSA:
		k := key.RSA
		for _, v := range []*big.Int{k.N, k.E, k.D, k.Qinv, k.P, k.Q} {
			e.MPInt(v)
		}
	case keys.AlgorithmECDSA:
		k := key.ECDSA
		e.String(k.Curve.SSHName).Bytes(k.Public().Marshal()).MPInt(k.D)
	case keys.AlgorithmEd25519:
		k := key.Ed25519
		e.Bytes(k.PublicKey()).Bytes(k.Bytes())
	default:
		return nil, errors.NewUnsupportedError("key type", key.Algorithm.String(), errors.ErrUnsupportedKeyType)
	}

	section, err := e.String(comment).Finish()
	if err != nil {
		return nil, err
	}
	return encoding.Pad(section, blockLen), nil
}
