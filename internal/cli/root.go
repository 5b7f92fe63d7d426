package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"keyscope/internal/config"
	"keyscope/internal/errors"
	"keyscope/internal/log"
	"keyscope/internal/util"
)

// Version is set by main.go
var Version = "dev"

// errSignatureInvalid is returned by verify for a well-formed signature
// that does not verify. It maps to exit status 1 without an error message.
var errSignatureInvalid = errors.New("signature invalid")

// Global flags
var (
	cfgFile   string
	logLevel  string
	logFormat string
	engine    string
)

// settings holds the resolved configuration for the running command.
var settings = config.Defaults()

// rootCmd is the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "keyscope",
	Short: "Inspect OpenSSH private keys and verify ECDSA signatures",
	Long: `keyscope reads openssh-key-v1 private key containers and checks ECDSA
signatures in several wire formats:
  - bcrypt_pbkdf key derivation with AES, 3DES, Blowfish, CAST-128, Twofish
    and Serpent in CBC or CTR mode
  - RSA, ECDSA (P-224, P-256, P-384, P-521, secp256k1) and Ed25519 keys
  - DER, raw r||s, Ethereum v||r||s and SSH signature encodings

Settings may come from a config file (--config) or KEYSCOPE_* environment
variables. Any flag can also be set as KEYSCOPE_<COMMAND>_<FLAG>.`,
	Version:           Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&engine, "engine", "", "Point arithmetic engine: shamir or basic")
}

// initConfig fills unset flags from the environment, loads settings and
// installs the logger before any subcommand runs.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.ApplyEnv(cmd); err != nil {
		return err
	}

	s, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		s.LogLevel = logLevel
	}
	if logFormat != "" {
		s.LogFormat = logFormat
	}
	if engine != "" {
		s.Engine = engine
	}
	if err := s.Validate(); err != nil {
		return err
	}
	settings = s

	return log.Configure(s.LogLevel, s.LogFormat)
}

// Execute runs the CLI and returns the process exit status.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSignatureInvalid):
		return 1
	default:
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", describeError(err))
		return 1
	}
}

// describeError adds a hint for the failures users hit most.
func describeError(err error) string {
	switch {
	case errors.Is(err, errors.ErrIntegrityCheckFailed):
		return fmt.Sprintf("%v\nThe passphrase is probably wrong.", err)
	case errors.IsIntegrity(err):
		return fmt.Sprintf("%v\nThe key file is corrupt.", err)
	case errors.IsUnsupported(err):
		return fmt.Sprintf("%v\nkeyscope does not support this input.", err)
	default:
		return err.Error()
	}
}

// readInput reads path ("-" for stdin) up to the configured size limit.
func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("input file is required")
	}

	var r io.Reader
	if path == "-" {
		r = bufferedStdin()
	} else {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input must be a file, not a directory: %s", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	limit := settings.MaxInputSize
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds the %s input limit", path, util.Sizeify(limit))
	}
	return data, nil
}
