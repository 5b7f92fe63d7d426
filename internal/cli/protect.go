package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/spf13/cobra"

	"keyscope/internal/container"
	"keyscope/internal/crypto"
	"keyscope/internal/util"
)

// minPassphraseScore is the lowest zxcvbn score accepted without a warning.
const minPassphraseScore = 3

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Re-encrypt a private key under a new passphrase",
	Long: `Decrypt an openssh-key-v1 container and write it again under a new
passphrase, cipher and bcrypt round count. The output is readable by
ssh-keygen and ssh when an aes cipher is chosen.

Ciphers: ` + strings.Join(crypto.Ciphers(), ", ") + `

Examples:
  # Change the passphrase, prompting for old and new
  keyscope protect -i id_ed25519 -o id_ed25519.new

  # Generate a random passphrase and raise the work factor
  keyscope protect -i id_ecdsa -o id_ecdsa.new --generate --rounds 64

  # Remove the passphrase
  keyscope protect -i id_rsa -o id_rsa.plain --cipher none`,
	RunE: runProtect,
}

// Protect flags
var (
	protInput       string
	protOutput      string
	protPassword    passwordFlags
	protNewPassword string
	protCipher      string
	protRounds      uint32
	protComment     string
	protGenerate    bool
	protBinary      bool
	protYes         bool
	protQuiet       bool
)

func init() {
	rootCmd.AddCommand(protectCmd)

	// Input/Output
	protectCmd.Flags().StringVarP(&protInput, "input", "i", "", "Private key file")
	protectCmd.Flags().StringVarP(&protOutput, "output", "o", "", "Output file")

	// Credentials
	protectCmd.Flags().StringVarP(&protPassword.password, "password", "p", "", "Current passphrase")
	protectCmd.Flags().BoolVarP(&protPassword.stdin, "password-stdin", "P", false, "Read current passphrase from stdin")
	protectCmd.Flags().StringVar(&protNewPassword, "new-password", "", "New passphrase")
	protectCmd.Flags().BoolVar(&protGenerate, "generate", false, "Generate a random new passphrase")

	// Encoding
	protectCmd.Flags().StringVar(&protCipher, "cipher", "", "Cipher (default from config, aes256-ctr)")
	protectCmd.Flags().Uint32Var(&protRounds, "rounds", 0, "bcrypt_pbkdf rounds (default from config, 16)")
	protectCmd.Flags().StringVar(&protComment, "comment", "", "Replace the key comment")
	protectCmd.Flags().BoolVar(&protBinary, "binary", false, "Write the binary container without PEM armor")

	// Other
	protectCmd.Flags().BoolVarP(&protYes, "yes", "y", false, "Overwrite output file without prompting")
	protectCmd.Flags().BoolVarP(&protQuiet, "quiet", "q", false, "Suppress warnings")
}

func runProtect(cmd *cobra.Command, _ []string) error {
	if protOutput == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if protOutput == protInput {
		return fmt.Errorf("output must differ from input")
	}
	if protGenerate && protNewPassword != "" {
		return fmt.Errorf("--generate and --new-password are mutually exclusive")
	}

	cipherName := protCipher
	if cipherName == "" {
		cipherName = settings.Cipher
	}
	spec, err := crypto.ParseCipher(cipherName)
	if err != nil {
		return err
	}
	rounds := protRounds
	if rounds == 0 {
		rounds = settings.BcryptRounds
	}

	c, err := openContainer(protInput)
	if err != nil {
		return err
	}

	if _, err := os.Stat(protOutput); err == nil && !protYes {
		fmt.Fprintf(os.Stderr, "Output file %s already exists. Overwrite? [y/N]: ", protOutput)
		response, _ := readLine()
		answer := strings.TrimSpace(strings.ToLower(string(response)))
		if answer != "y" && answer != "yes" {
			return fmt.Errorf("operation cancelled")
		}
	}

	key, err := decryptContainer(c, protPassword)
	if err != nil {
		return err
	}
	defer key.Zero()

	r := NewReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), protQuiet)

	var password []byte
	if spec.Encrypted() {
		if password, err = newPassphrase(r); err != nil {
			return err
		}
		defer crypto.SecureZero(password)
	}

	opts := container.EncodeOptions{
		Cipher:   spec.Name,
		Password: password,
		Rounds:   rounds,
		Comment:  protComment,
	}
	var out []byte
	if protBinary {
		out, err = container.Encode(key, opts)
	} else {
		out, err = container.EncodeArmored(key, opts)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(protOutput, out, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", protOutput, err)
	}

	written, err := container.Parse(out)
	if err != nil {
		return err
	}
	r.PrintSuccess("%s (%s) -> %s (%s)", protInput, containerSummary(c), protOutput, containerSummary(written))
	return nil
}

// newPassphrase generates, takes or prompts for the new passphrase and
// warns when it is weak.
func newPassphrase(r *Reporter) ([]byte, error) {
	if protGenerate {
		pass, err := util.GenPassphrase(nil, util.DefaultPassgen)
		if err != nil {
			return nil, err
		}
		// stderr only, so redirected stdout never captures it
		fmt.Fprintf(r.errOut, "Generated passphrase: %s\n", pass)
		return []byte(pass), nil
	}

	var (
		password []byte
		err      error
	)
	if protNewPassword != "" {
		password = []byte(protNewPassword)
	} else if password, err = ReadPasswordInteractive("New passphrase: ", true); err != nil {
		return nil, err
	}

	if score := zxcvbn.PasswordStrength(string(password), nil).Score; score < minPassphraseScore {
		r.Warn("weak passphrase (strength %d of 4)", score)
	}
	return password, nil
}
