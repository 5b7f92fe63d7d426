package util

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// PassgenOptions configures GenPassphrase.
//
// At least one character set must be enabled.
type PassgenOptions struct {
	Length  int  // characters, excluding group separators
	Group   int  // insert '-' every Group characters; 0 disables grouping
	Upper   bool // A-Z
	Lower   bool // a-z
	Numbers bool // 0-9
	Symbols bool // -=_+!@#$^&()?<>
}

// DefaultPassgen produces 24 alphanumeric characters in groups of six,
// about 142 bits of entropy.
var DefaultPassgen = PassgenOptions{
	Length:  24,
	Group:   6,
	Upper:   true,
	Lower:   true,
	Numbers: true,
}

var errNoCharset = errors.New("passgen: no character set enabled")

func (o PassgenOptions) charset() string {
	var b strings.Builder
	if o.Upper {
		b.WriteString("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	if o.Lower {
		b.WriteString("abcdefghijklmnopqrstuvwxyz")
	}
	if o.Numbers {
		b.WriteString("1234567890")
	}
	if o.Symbols {
		b.WriteString("-=_+!@#$^&()?<>")
	}
	return b.String()
}

// GenPassphrase draws a passphrase uniformly from the enabled character
// sets using random, or crypto/rand when random is nil.
func GenPassphrase(random io.Reader, opts PassgenOptions) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	chars := opts.charset()
	if chars == "" {
		return "", errNoCharset
	}
	if opts.Length <= 0 {
		return "", fmt.Errorf("passgen: invalid length %d", opts.Length)
	}

	var b strings.Builder
	n := big.NewInt(int64(len(chars)))
	for i := range opts.Length {
		if opts.Group > 0 && i > 0 && i%opts.Group == 0 {
			b.WriteByte('-')
		}
		j, err := rand.Int(random, n)
		if err != nil {
			return "", fmt.Errorf("passgen: %w", err)
		}
		b.WriteByte(chars[j.Int64()])
	}
	return b.String(), nil
}
