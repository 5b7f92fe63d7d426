package cli

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"

	"keyscope/internal/crypto"
	"keyscope/internal/errors"
	"keyscope/internal/keys"
	"keyscope/internal/signature"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a digest with an ECDSA private key",
	Long: `Sign a digest with the ECDSA key of an openssh-key-v1 container and print
the signature as hex.

Signature formats: ` + strings.Join(signature.Formats(), ", ") + `

Examples:
  keyscope sign -k id_ecdsa --digest 9f86d0... --format raw
  keyscope sign -k k1_key --input msg --hash keccak256 --format eth27`,
	RunE: runSign,
}

// Sign flags
var (
	signKey      string
	signPassword passwordFlags
	signFormat   string
	signDigest   digestFlags
)

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVarP(&signKey, "key", "k", "", "Private key file")
	signCmd.Flags().StringVarP(&signPassword.password, "password", "p", "", "Passphrase")
	signCmd.Flags().BoolVarP(&signPassword.stdin, "password-stdin", "P", false, "Read passphrase from stdin")
	signCmd.Flags().StringVarP(&signFormat, "format", "f", signature.AnsiX962Der.String(), "Signature format")
	signCmd.Flags().StringVar(&signDigest.digestHex, "digest", "", "Message digest as hex")
	signCmd.Flags().StringVarP(&signDigest.input, "input", "i", "", "Message file to hash")
	signCmd.Flags().StringVar(&signDigest.hash, "hash", crypto.DefaultHash, "Hash for --input")
}

func runSign(cmd *cobra.Command, _ []string) error {
	format, err := signature.ParseFormat(signFormat)
	if err != nil {
		return err
	}
	digest, err := resolveDigest(signDigest)
	if err != nil {
		return err
	}

	c, err := openContainer(signKey)
	if err != nil {
		return err
	}
	key, err := decryptContainer(c, signPassword)
	if err != nil {
		return err
	}
	defer key.Zero()
	if key.Algorithm != keys.AlgorithmECDSA {
		return errors.NewUnsupportedError("signature key", key.KeyType(), errors.ErrUnsupportedKeyType)
	}

	sig, err := signature.Sign(nil, key.ECDSA, digest, format)
	if err != nil {
		return err
	}
	NewReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), false).Result("%s", hex.EncodeToString(sig))
	return nil
}
