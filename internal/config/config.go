// Package config loads keyscope settings from KEYSCOPE_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"keyscope/internal/crypto"
	"keyscope/internal/ecc"
	"keyscope/internal/errors"
	"keyscope/internal/log"
	"keyscope/internal/util"
)

// EnvPrefix is the prefix of every environment variable keyscope reads.
const EnvPrefix = "keyscope"

const (
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyMaxInputSize = "max_input_size"
	KeyBcryptRounds = "bcrypt_rounds"
	KeyCipher       = "cipher"
	KeyEngine       = "engine"
)

// Defaults
const (
	DefaultMaxInputSize = 1 * util.MiB
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultEngine       = "shamir"
	DefaultCipher       = "aes256-ctr"
)

// Settings is the resolved configuration.
type Settings struct {
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	MaxInputSize int64  `mapstructure:"max_input_size"`
	BcryptRounds uint32 `mapstructure:"bcrypt_rounds"`
	Cipher       string `mapstructure:"cipher"`
	Engine       string `mapstructure:"engine"`
}

// New returns a viper instance with keyscope defaults and environment
// binding. Environment keys are KEYSCOPE_ followed by the upper-cased
// setting name.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyMaxInputSize, DefaultMaxInputSize)
	v.SetDefault(KeyBcryptRounds, crypto.DefaultRounds)
	v.SetDefault(KeyCipher, DefaultCipher)
	v.SetDefault(KeyEngine, DefaultEngine)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Defaults returns the settings used when nothing is configured.
func Defaults() *Settings {
	return &Settings{
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		MaxInputSize: DefaultMaxInputSize,
		BcryptRounds: crypto.DefaultRounds,
		Cipher:       DefaultCipher,
		Engine:       DefaultEngine,
	}
}

// Load resolves settings from defaults, the environment and, when path is
// not empty, the config file at path. The file format follows its extension.
func Load(path string) (*Settings, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every setting against the values keyscope accepts.
func (s *Settings) Validate() error {
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return errors.NewValidationError(KeyLogLevel, err.Error())
	}
	switch log.Format(s.LogFormat) {
	case log.FormatText, log.FormatJSON:
	default:
		return errors.NewValidationError(KeyLogFormat, fmt.Sprintf("unknown format %q", s.LogFormat))
	}
	if s.MaxInputSize <= 0 {
		return errors.NewValidationError(KeyMaxInputSize, "must be positive")
	}
	if s.BcryptRounds == 0 {
		return errors.NewValidationError(KeyBcryptRounds, "must be at least 1")
	}
	if _, err := crypto.ParseCipher(s.Cipher); err != nil {
		return errors.NewValidationError(KeyCipher, err.Error())
	}
	if _, err := ecc.EngineByName(s.Engine); err != nil {
		return err
	}
	return nil
}

// ApplyEnv sets every flag of command that was not given on the command
// line from KEYSCOPE_<COMMAND>_<FLAG>, or KEYSCOPE_<FLAG> for the root
// command. Dashes in flag names become underscores.
func ApplyEnv(command *cobra.Command) error {
	v := viper.New()
	v.AutomaticEnv()
	if !command.HasParent() {
		v.SetEnvPrefix(EnvPrefix)
	} else {
		v.SetEnvPrefix(fmt.Sprintf("%s_%s", EnvPrefix, command.Name()))
	}

	var errs []string
	command.Flags().VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		if f.Changed || !v.IsSet(name) {
			return
		}
		if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(name))); err != nil {
			errs = append(errs, err.Error())
		}
	})
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("mapping environment variables to flags: %s", strings.Join(errs, "; "))
}
