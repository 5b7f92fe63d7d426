// keyscope reads OpenSSH private key containers and verifies ECDSA
// signatures:
//   - openssh-key-v1 header decoding with bcrypt_pbkdf and CBC/CTR ciphers
//   - RSA, ECDSA and Ed25519 private key decoding with integrity checks
//   - ECDSA verification in DER, raw, Ethereum and SSH signature formats
//   - re-encryption of keys under a new passphrase

package main

import (
	"os"

	"keyscope/internal/cli"
)

// version is reported by --version.
const version = "v0.3.0"

func main() {
	os.Exit(cli.Execute(version))
}
