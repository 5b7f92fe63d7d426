package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"keyscope/internal/container"
	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/log"
)

// passwordFlags are shared by commands that open a private container.
type passwordFlags struct {
	password string
	stdin    bool
}

// openContainer reads and parses the private key container at path.
func openContainer(path string) (*container.Container, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return container.Parse(data)
}

// decryptContainer asks for a passphrase only when c is encrypted.
func decryptContainer(c *container.Container, pf passwordFlags) (*keys.PrivateKey, error) {
	var password []byte
	if c.Header.Encrypted() {
		pw, err := resolvePassword(pf.password, pf.stdin, "Passphrase: ", false)
		if err != nil {
			return nil, err
		}
		password = pw
		defer crypto.SecureZero(password)
	}
	return c.Decrypt(password)
}

// loadPublicKey reads an authorized_keys line or the public half of a
// private container. The container is not decrypted.
func loadPublicKey(path string) (*keys.PublicKey, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(data, []byte(container.Magic)) || bytes.Contains(data, []byte("-----BEGIN")) {
		c, err := container.Parse(data)
		if err != nil {
			return nil, err
		}
		return c.PublicKey()
	}
	return keys.ParseAuthorizedKey(firstLine(data))
}

// firstLine returns the first non-empty, non-comment line of data.
func firstLine(data []byte) []byte {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] != '#' {
			return line
		}
	}
	return nil
}

// ecdsaPublic returns the ECDSA point of pub or an unsupported error.
func ecdsaPublic(pub *keys.PublicKey) (*ecc.PublicKey, error) {
	if pub.Algorithm != keys.AlgorithmECDSA {
		return nil, errors.NewUnsupportedError("signature key", pub.Type(), errors.ErrUnsupportedKeyType)
	}
	return pub.ECDSA, nil
}

// digestFlags select the message digest of sign and verify.
type digestFlags struct {
	digestHex string
	input     string
	hash      string
}

// resolveDigest returns the hex digest, or hashes the input file.
func resolveDigest(df digestFlags) ([]byte, error) {
	switch {
	case df.digestHex != "" && df.input != "":
		return nil, fmt.Errorf("--digest and --input are mutually exclusive")
	case df.digestHex != "":
		digest, err := decodeHex(df.digestHex)
		if err != nil {
			return nil, fmt.Errorf("invalid --digest: %w", err)
		}
		if len(digest) == 0 {
			return nil, fmt.Errorf("--digest is empty")
		}
		return digest, nil
	case df.input != "":
		message, err := readInput(df.input)
		if err != nil {
			return nil, err
		}
		name := df.hash
		if name == "" {
			name = crypto.DefaultHash
		}
		log.Debug("hashing message", log.String("hash", name), log.Int("bytes", len(message)))
		return crypto.Digest(name, message)
	default:
		return nil, fmt.Errorf("a digest (--digest) or message (--input) is required")
	}
}

// decodeHex accepts an optional 0x prefix and surrounding whitespace.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
