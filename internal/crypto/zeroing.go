// Package crypto provides the KDF, cipher registry and memory hygiene used to
// open OpenSSH private key containers.
// This file contains memory zeroing utilities for secure cleanup of sensitive data.

package crypto

import (
	"crypto/subtle"
	"math/big"
)

// SecureZero overwrites a byte slice with zeros to prevent sensitive data
// from persisting in memory.
//
// ⚠️ SECURITY NOTE: Due to Go's garbage collector and potential compiler
// optimizations, this function cannot guarantee complete erasure. It shortens
// the window during which keys are recoverable from RAM.
//
// The function uses subtle.ConstantTimeCopy so the compiler cannot drop the
// write as dead.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// SecureZeroMultiple zeros multiple byte slices in a single call.
func SecureZeroMultiple(slices ...[]byte) {
	for _, s := range slices {
		SecureZero(s)
	}
}

// SecureZeroInt overwrites the limbs of x and sets it to zero.
// Copies math/big made internally during earlier arithmetic are out of reach.
func SecureZeroInt(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}

// KeyMaterial wraps sensitive key data with automatic zeroing on Close().
// Use this for temporary key storage that must be cleaned up.
//
// Example:
//
//	km := NewKeyMaterial(derived)
//	defer km.Close()
//	key, iv := km.Bytes()[:32], km.Bytes()[32:]
type KeyMaterial struct {
	data   []byte
	closed bool
}

// NewKeyMaterial creates a new KeyMaterial wrapper.
// The data is copied to prevent modification of the original slice.
func NewKeyMaterial(data []byte) *KeyMaterial {
	if data == nil {
		return &KeyMaterial{}
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &KeyMaterial{data: copied}
}

// Bytes returns the underlying key data.
// Returns nil if the KeyMaterial has been closed.
func (km *KeyMaterial) Bytes() []byte {
	if km.closed {
		return nil
	}
	return km.data
}

// Len returns the length of the key data.
func (km *KeyMaterial) Len() int {
	if km.closed || km.data == nil {
		return 0
	}
	return len(km.data)
}

// Close securely zeros the key data and marks it as closed.
// This method is idempotent - multiple calls are safe.
func (km *KeyMaterial) Close() {
	if km.closed {
		return
	}
	SecureZero(km.data)
	km.data = nil
	km.closed = true
}

// IsClosed returns whether the KeyMaterial has been closed.
func (km *KeyMaterial) IsClosed() bool {
	return km.closed
}

// Scratch tracks every buffer and big integer that held plaintext key
// material during one decode, and wipes them all on Close.
// Defer Close immediately after creating it so error paths are covered.
type Scratch struct {
	bufs   [][]byte
	ints   []*big.Int
	closed bool
}

// Bytes allocates a tracked, zero-filled buffer of length n.
func (s *Scratch) Bytes(n int) []byte {
	b := make([]byte, n)
	s.bufs = append(s.bufs, b)
	return b
}

// Track registers an existing buffer for zeroing and returns it.
func (s *Scratch) Track(b []byte) []byte {
	s.bufs = append(s.bufs, b)
	return b
}

// Int allocates a tracked big integer.
func (s *Scratch) Int() *big.Int {
	x := new(big.Int)
	s.ints = append(s.ints, x)
	return x
}

// TrackInt registers existing big integers for zeroing.
func (s *Scratch) TrackInt(xs ...*big.Int) {
	s.ints = append(s.ints, xs...)
}

// Close wipes everything tracked. Idempotent.
func (s *Scratch) Close() {
	if s.closed {
		return
	}
	SecureZeroMultiple(s.bufs...)
	for _, x := range s.ints {
		SecureZeroInt(x)
	}
	s.bufs = nil
	s.ints = nil
	s.closed = true
}
