package srt

import (
	"fmt"
	"math"
)

// zeroTimestamp is returned for inputs that are not a usable offset.
const zeroTimestamp = "00:00:00,000"

// FormatTimestamp renders a millisecond offset as HH:MM:SS,mmm. Whole seconds
// and the millisecond remainder are truncated, not rounded. NaN, infinite and
// negative inputs yield 00:00:00,000.
func FormatTimestamp(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return zeroTimestamp
	}
	totalSeconds := int64(ms / 1000)
	millis := int64(math.Mod(ms, 1000))
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}
