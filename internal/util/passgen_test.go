package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenPassphrase(t *testing.T) {
	opts := PassgenOptions{
		Length:  32,
		Upper:   true,
		Lower:   true,
		Numbers: true,
		Symbols: true,
	}

	pass, err := GenPassphrase(nil, opts)
	if err != nil {
		t.Fatalf("GenPassphrase failed: %v", err)
	}
	if len(pass) != 32 {
		t.Errorf("GenPassphrase length = %d; want 32", len(pass))
	}

	pass2, err := GenPassphrase(nil, opts)
	if err != nil {
		t.Fatalf("GenPassphrase failed: %v", err)
	}
	if pass == pass2 {
		t.Error("GenPassphrase generated identical passphrases (unlikely if random)")
	}
}

func TestGenPassphraseCharacterSets(t *testing.T) {
	tests := []struct {
		name  string
		opts  PassgenOptions
		valid string
	}{
		{"upper", PassgenOptions{Length: 100, Upper: true}, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
		{"lower", PassgenOptions{Length: 100, Lower: true}, "abcdefghijklmnopqrstuvwxyz"},
		{"numbers", PassgenOptions{Length: 100, Numbers: true}, "1234567890"},
		{"symbols", PassgenOptions{Length: 100, Symbols: true}, "-=_+!@#$^&()?<>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, err := GenPassphrase(nil, tt.opts)
			if err != nil {
				t.Fatalf("GenPassphrase failed: %v", err)
			}
			for _, c := range pass {
				if !strings.ContainsRune(tt.valid, c) {
					t.Fatalf("unexpected character %q in %q", c, pass)
				}
			}
		})
	}
}

func TestGenPassphraseGrouping(t *testing.T) {
	pass, err := GenPassphrase(nil, DefaultPassgen)
	if err != nil {
		t.Fatalf("GenPassphrase failed: %v", err)
	}
	groups := strings.Split(pass, "-")
	if len(groups) != 4 {
		t.Fatalf("got %d groups in %q; want 4", len(groups), pass)
	}
	for _, g := range groups {
		if len(g) != 6 {
			t.Errorf("group %q has length %d; want 6", g, len(g))
		}
	}
}

func TestGenPassphraseErrors(t *testing.T) {
	if _, err := GenPassphrase(nil, PassgenOptions{Length: 16}); err == nil {
		t.Error("expected error with no character set")
	}
	if _, err := GenPassphrase(nil, PassgenOptions{Length: 0, Lower: true}); err == nil {
		t.Error("expected error for zero length")
	}
	if _, err := GenPassphrase(bytes.NewReader(nil), PassgenOptions{Length: 4, Lower: true}); err == nil {
		t.Error("expected error from exhausted reader")
	}
}
