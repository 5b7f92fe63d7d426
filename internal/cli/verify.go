package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/signature"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an ECDSA signature",
	Long: `Verify an ECDSA signature over a digest. The public key is read from an
authorized_keys line or from the header of a private key container, which is
not decrypted.

Signature formats: ` + strings.Join(signature.Formats(), ", ") + `
Hashes for --input: ` + strings.Join(crypto.Hashes(), ", ") + `

The exit status is 0 for a valid signature and 1 otherwise.

Examples:
  # DER signature over a precomputed digest
  keyscope verify --pubkey id_ecdsa.pub --sig sig.der --digest 9f86d0...

  # Ethereum-style signature over a message hashed with keccak256
  keyscope verify --pubkey k1.pub --format eth27 --sig-hex 1b... --input msg --hash keccak256`,
	RunE: runVerify,
}

// Verify flags
var (
	verPubkey string
	verSig    string
	verSigHex string
	verFormat string
	verDigest digestFlags
	verQuiet  bool
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verPubkey, "pubkey", "", "Public key (authorized_keys line or private key container)")
	verifyCmd.Flags().StringVar(&verSig, "sig", "", "Signature file")
	verifyCmd.Flags().StringVar(&verSigHex, "sig-hex", "", "Signature as hex")
	verifyCmd.Flags().StringVarP(&verFormat, "format", "f", signature.AnsiX962Der.String(), "Signature format")
	verifyCmd.Flags().StringVar(&verDigest.digestHex, "digest", "", "Message digest as hex")
	verifyCmd.Flags().StringVarP(&verDigest.input, "input", "i", "", "Message file to hash")
	verifyCmd.Flags().StringVar(&verDigest.hash, "hash", crypto.DefaultHash, "Hash for --input")
	verifyCmd.Flags().BoolVarP(&verQuiet, "quiet", "q", false, "Report through the exit status only")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	if verPubkey == "" {
		return fmt.Errorf("public key is required (--pubkey)")
	}
	format, err := signature.ParseFormat(verFormat)
	if err != nil {
		return err
	}
	sig, err := readSignature()
	if err != nil {
		return err
	}
	digest, err := resolveDigest(verDigest)
	if err != nil {
		return err
	}

	pub, err := loadPublicKey(verPubkey)
	if err != nil {
		return err
	}
	point, err := ecdsaPublic(pub)
	if err != nil {
		return err
	}

	eng, err := ecc.EngineByName(settings.Engine)
	if err != nil {
		return err
	}
	ok, err := signature.NewVerifier(eng).Verify(sig, format, digest, point)
	if err != nil {
		return err
	}

	r := NewReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), verQuiet)
	if !ok {
		if !verQuiet {
			r.Result("Signature INVALID")
		}
		return errSignatureInvalid
	}
	if !verQuiet {
		r.Result("Signature OK")
	}
	return nil
}

func readSignature() ([]byte, error) {
	switch {
	case verSig != "" && verSigHex != "":
		return nil, fmt.Errorf("--sig and --sig-hex are mutually exclusive")
	case verSig != "":
		return readInput(verSig)
	case verSigHex != "":
		sig, err := decodeHex(verSigHex)
		if err != nil {
			return nil, fmt.Errorf("invalid --sig-hex: %w", err)
		}
		return sig, nil
	default:
		return nil, fmt.Errorf("signature is required (--sig or --sig-hex)")
	}
}
