package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrCountryInvalidChars is returned when a country name contains disallowed characters.
var ErrCountryInvalidChars = errors.New("country contains invalid characters")

// ErrCountryUnknown is returned when a country is not present in the dataset.
var ErrCountryUnknown = errors.New("unknown country")

// ErrLimitInvalid is returned when limit is not a positive integer.
var ErrLimitInvalid = errors.New("limit must be a positive integer")

// ErrLimitTooLarge is returned when limit exceeds the configured maximum.
var ErrLimitTooLarge = errors.New("limit too large")

// maxCountryLen bounds a single country name in runes.
const maxCountryLen = 64

// ValidateCountries trims each input, splits comma-separated values, drops empties
// and duplicates, and canonicalizes each name case-insensitively against known.
// Returns nil when no country was selected (meaning all countries).
// Errors wrap ErrCountryInvalidChars or ErrCountryUnknown and are suitable for
// 400 INVALID_COUNTRY responses.
func ValidateCountries(inputs []string, known []string) ([]string, error) {
	canonical := make(map[string]string, len(known))
	for _, k := range known {
		canonical[strings.ToLower(k)] = k
	}

	var out []string
	seen := make(map[string]struct{})
	for _, in := range inputs {
		for _, part := range strings.Split(in, ",") {
			s := strings.TrimSpace(part)
			if s == "" {
				continue
			}
			if !validCountryName(s) {
				return nil, fmt.Errorf("%w: %q", ErrCountryInvalidChars, s)
			}
			c, ok := canonical[strings.ToLower(s)]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrCountryUnknown, s)
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// validCountryName allows letters (Unicode), space, hyphen, apostrophe, period and underscore.
func validCountryName(s string) bool {
	r := []rune(s)
	if len(r) > maxCountryLen {
		return false
	}
	for _, c := range r {
		if unicode.IsLetter(c) {
			continue
		}
		switch c {
		case ' ', '-', '\'', '.', '_':
			continue
		}
		return false
	}
	return true
}

// ValidateLimit parses a row limit. Empty input returns def; max <= 0 disables
// the upper bound.
func ValidateLimit(input string, def, max int) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, ErrLimitInvalid
	}
	if max > 0 && n > max {
		return 0, ErrLimitTooLarge
	}
	return n, nil
}
