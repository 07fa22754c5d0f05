// Package units provides binary size unit multipliers (1024-based) and
// conversions between mebibytes and bytes.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// MiBToBytes converts a mebibyte count to bytes.
func MiBToBytes(mib int64) int64 {
	return mib * MiB
}

// BytesToMiB converts a byte count to fractional mebibytes.
func BytesToMiB(n int64) float64 {
	return float64(n) / float64(MiB)
}
