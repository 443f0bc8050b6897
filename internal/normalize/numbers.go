package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// parseFloatOr reads the leading number of an attribute value, ignoring any
// trailing unit suffix ("10px", "50%"). Missing or non-finite values yield fallback.
func parseFloatOr(value string, fallback float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	match := leadingNumber.FindString(value)
	if match == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return fallback
	}
	return parsed
}

// formatNumber prints the shortest decimal that round-trips, without rounding.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeAttr escapes a string for use inside a double-quoted attribute.
func escapeAttr(value string) string {
	return attrEscaper.Replace(value)
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)
