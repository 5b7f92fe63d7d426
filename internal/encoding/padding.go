// Package encoding handles the byte-level framing around key containers:
// the deterministic padding of the private section and the PEM armor.
package encoding

import (
	"fmt"

	"keyscope/internal/errors"
)

// Pad appends OpenSSH deterministic padding (0x01, 0x02, 0x03, ...) until
// len(data) is a multiple of blockSize. Aligned input gets no padding.
//
// Example: 13 bytes, block 8 → 16 bytes (01 02 03 appended)
func Pad(data []byte, blockSize int) []byte {
	if blockSize <= 0 {
		return data
	}
	for i := 0; len(data)%blockSize != 0; i++ {
		data = append(data, byte(i+1))
	}
	return data
}

// CheckPadding verifies that pad is exactly 1, 2, 3, ... len(pad).
// Counting wraps at 255 the same way a byte counter does.
func CheckPadding(pad []byte) error {
	for i, b := range pad {
		if b != byte(i+1) {
			return fmt.Errorf("%w: byte %d is 0x%02x, want 0x%02x", errors.ErrPaddingMismatch, i, b, byte(i+1))
		}
	}
	return nil
}

// PaddingLen returns how many bytes Pad would append.
func PaddingLen(n, blockSize int) int {
	if blockSize <= 0 || n%blockSize == 0 {
		return 0
	}
	return blockSize - n%blockSize
}
