// Package signature verifies and produces ECDSA signatures in the four wire
// encodings keyscope understands: ASN.1 DER (ANSI X9.62), raw fixed-width
// r‖s (RFC 7518), Ethereum-style v‖r‖s and the SSH wire format (RFC 5656).
package signature

import (
	"strings"

	"keyscope/internal/errors"
)

// Format selects a signature encoding.
type Format int

const (
	// AnsiX962Der is SEQUENCE { INTEGER r, INTEGER s } in strict DER.
	AnsiX962Der Format = iota
	// Rfc7518Raw is r‖s, each left-padded to the byte length of the group order.
	Rfc7518Raw
	// Eth27VRS is v‖r‖s with 32-byte r and s; secp256k1 only.
	Eth27VRS
	// Rfc5656SSH is string(key type) mpint(r) mpint(s).
	Rfc5656SSH
)

var formatNames = map[Format]string{
	AnsiX962Der: "der",
	Rfc7518Raw:  "raw",
	Eth27VRS:    "eth27",
	Rfc5656SSH:  "ssh",
}

var formatAliases = map[string]Format{
	"der":     AnsiX962Der,
	"asn1":    AnsiX962Der,
	"x962":    AnsiX962Der,
	"raw":     Rfc7518Raw,
	"rfc7518": Rfc7518Raw,
	"jws":     Rfc7518Raw,
	"eth27":   Eth27VRS,
	"eth":     Eth27VRS,
	"vrs":     Eth27VRS,
	"ssh":     Rfc5656SSH,
	"rfc5656": Rfc5656SSH,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat resolves a format name such as "der", "raw", "eth27" or "ssh".
func ParseFormat(name string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return 0, errors.NewUnsupportedError("signature format", name, errors.ErrUnsupportedFormat)
}

// Formats lists the canonical format names.
func Formats() []string {
	return []string{"der", "raw", "eth27", "ssh"}
}
