package domain

import (
	"regexp"
	"strings"
)

const idLength = 11

var (
	controlChars  = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
	packageIDRun  = regexp.MustCompile(`4\d{10}`)
	nonDigitChars = regexp.MustCompile(`\D`)
)

// NormalizeCode cleans raw scanner or keyboard input into a canonical package
// identifier.
//
// A contiguous 11-digit run starting with 4 wins (first occurrence). Otherwise
// all non-digits are dropped and the first 11 remaining digits are used.
// ok is false when neither rule yields an identifier; callers treat that as a
// no-op.
func NormalizeCode(raw string) (id string, ok bool) {
	s := controlChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return "", false
	}

	if m := packageIDRun.FindString(s); m != "" {
		return m, true
	}

	digits := nonDigitChars.ReplaceAllString(s, "")
	if len(digits) >= idLength {
		return digits[:idLength], true
	}

	return "", false
}
