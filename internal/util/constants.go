// Package util holds size constants, human-readable formatting and the
// passphrase generator used by the keyscope CLI.
package util

// Size constants for byte calculations
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)
