// Package errors provides typed errors for keyscope operations.
// This enables callers to use errors.Is() and errors.As() for specific error handling.
//
// Every sentinel belongs to exactly one class, queried with IsStructural,
// IsIntegrity, IsUnsupported or IsCryptoFailure. A signature that fails the
// verification equation is not an error at all.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
// Use errors.Is(err, errors.ErrTruncated) to check for specific errors.
var (
	// Structural decode errors
	ErrMalformedContainer  = errors.New("malformed key container")
	ErrTruncated           = errors.New("input truncated")
	ErrFieldTooLarge       = errors.New("field exceeds maximum length")
	ErrUnsupportedKeyCount = errors.New("container must hold exactly one key")
	ErrTrailingData        = errors.New("unused trailing data")
	ErrInvalidPacket       = errors.New("invalid signature packet")
	ErrInvalidSignature    = errors.New("signature component out of range")
	ErrInvalidKey          = errors.New("invalid key encoding")

	// Integrity errors
	ErrIntegrityCheckFailed = errors.New("check words differ (wrong passphrase or corrupt key)")
	ErrPaddingMismatch      = errors.New("private section padding mismatch")

	// Unsupported feature errors
	ErrUnknownCipher       = errors.New("unknown cipher")
	ErrUnsupportedKdf      = errors.New("unsupported KDF")
	ErrUnsupportedKeyType  = errors.New("unsupported key type")
	ErrUnknownCurve        = errors.New("unknown curve")
	ErrCurveMismatch       = errors.New("signature format does not match key curve")
	ErrUnsupportedFormat   = errors.New("unsupported signature format")
	ErrPassphraseRequired  = errors.New("container is encrypted and no passphrase was given")
	ErrUnknownHash         = errors.New("unknown hash")

	// Crypto primitive errors
	ErrKdf             = errors.New("key derivation failed")
	ErrDecryptionSetup = errors.New("cipher setup failed")
	ErrDecryption      = errors.New("decryption failed")
	ErrRandFailure     = errors.New("crypto/rand failure")
	ErrSigning         = errors.New("signing failed")
)

var (
	structural = []error{
		ErrMalformedContainer, ErrTruncated, ErrFieldTooLarge, ErrUnsupportedKeyCount,
		ErrTrailingData, ErrInvalidPacket, ErrInvalidSignature, ErrInvalidKey,
	}
	integrity   = []error{ErrIntegrityCheckFailed, ErrPaddingMismatch}
	unsupported = []error{
		ErrUnknownCipher, ErrUnsupportedKdf, ErrUnsupportedKeyType, ErrUnknownCurve,
		ErrCurveMismatch, ErrUnsupportedFormat, ErrPassphraseRequired, ErrUnknownHash,
	}
	cryptoFailure = []error{ErrKdf, ErrDecryptionSetup, ErrDecryption, ErrRandFailure, ErrSigning}
)

// CryptoError represents an error during cryptographic operations.
// It wraps the underlying error with operation context.
type CryptoError struct {
	Op  string // Operation name: "bcrypt_pbkdf", "cbc", "ctr", "rand", "sign"
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto %s failed", e.Op)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// DecodeError represents an error while decoding a named wire field.
type DecodeError struct {
	Field string // Field that caused the error
	Err   error  // Underlying error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s: invalid", e.Field)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}

// UnsupportedError names the cipher, KDF, key type or curve that was rejected.
type UnsupportedError struct {
	Kind string // "cipher", "kdf", "key type", "curve", "format"
	Name string
	Err  error
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *UnsupportedError) Unwrap() error {
	return e.Err
}

// NewUnsupportedError creates a new UnsupportedError.
func NewUnsupportedError(kind, name string, err error) *UnsupportedError {
	return &UnsupportedError{Kind: kind, Name: name, Err: err}
}

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Is checks if target matches any of our sentinel errors.
// This is a convenience function for common error checks.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error with the given text. Exposed so callers that import
// this package under the name "errors" keep access to the standard constructor.
func New(text string) error {
	return errors.New(text)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func isAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsStructural reports malformed, truncated or oversized input.
func IsStructural(err error) bool {
	return isAny(err, structural)
}

// IsIntegrity reports check-word or padding failures. After a decrypt this
// almost always means the passphrase was wrong.
func IsIntegrity(err error) bool {
	return isAny(err, integrity)
}

// IsUnsupported reports a well-formed input naming something keyscope does not implement.
func IsUnsupported(err error) bool {
	return isAny(err, unsupported)
}

// IsCryptoFailure reports a failure inside a KDF, cipher or RNG primitive.
func IsCryptoFailure(err error) bool {
	return isAny(err, cryptoFailure)
}
