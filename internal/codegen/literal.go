package codegen

import (
	"strconv"
	"strings"
)

// FormatFloat renders v as the shortest literal that parses back to the
// same float64. Integral values keep a ".0" so every backend reads them
// as floating point.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
