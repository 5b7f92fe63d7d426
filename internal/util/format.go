package util

import "fmt"

// Sizeify renders a byte count for messages about input limits.
func Sizeify(size int64) string {
	switch {
	case size >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(size)/GiB)
	case size >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(size)/MiB)
	case size >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(size)/KiB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
