package tool

import "fmt"

// DefaultPreviewLimit is the number of runes of each shell output stream
// returned to the model.
const DefaultPreviewLimit = 4000

// MinPreviewLimit is the smallest limit that always leaves room for the
// truncation marker and a head and tail rune.
const MinPreviewLimit = 64

func truncationMarker(n int) string {
	return fmt.Sprintf("\n... [%d chars truncated] ...\n", n)
}

// Truncate shortens s to at most limit runes. It keeps equal sized head and
// tail segments around a marker telling how many runes were dropped. Limits
// below MinPreviewLimit may not hold the marker, then s is cut to its first
// limit runes.
func Truncate(s string, limit int) (string, bool) {
	r := []rune(s)
	if limit < 0 {
		limit = 0
	}
	if len(r) <= limit {
		return s, false
	}

	// The marker for len(r) is never shorter than the final one.
	markerLen := len([]rune(truncationMarker(len(r))))
	keep := limit - markerLen
	if keep < 2 {
		return string(r[:limit]), true
	}

	half := keep / 2
	dropped := len(r) - 2*half
	return string(r[:half]) + truncationMarker(dropped) + string(r[len(r)-half:]), true
}
