package catalog

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxNameRunes = 255

var (
	stripPolicy = bluemonday.StrictPolicy()

	// Leading decimal such as "9.99" in "9.99 TL" or "1.5E2" in "1.5E2 TL".
	decimalPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	integerPrefix = regexp.MustCompile(`^[+-]?\d+`)
)

func cleanText(s string) string {
	return strings.TrimSpace(s)
}

// Removes all html tags from the string. The policy escapes what it leaves
// behind, so entities are decoded again afterwards.
func cleanMarkup(s string) string {
	s = strings.TrimSpace(s)
	s = stripPolicy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(s))
}

func cleanName(s string) string {
	s = cleanMarkup(s)
	if utf8.RuneCountInString(s) > maxNameRunes {
		s = string([]rune(s)[:maxNameRunes])
	}
	return s
}

// Best effort: a whole float is taken as is, otherwise the leading number is
// used, anything else is 0. Never negative.
func coercePrice(s string) float64 {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		m := decimalPrefix.FindString(s)
		if m == "" {
			return 0
		}
		if f, err = strconv.ParseFloat(m, 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Integers, then whole floats truncated ("1e2" is 100), then the leading
// integer. Never negative.
func coerceStock(s string) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		switch {
		case ferr == nil && !math.IsNaN(f) && f < math.MaxInt32 && f > -1:
			n, err = int(f), nil
		case ferr == nil:
			return 0
		default:
			m := integerPrefix.FindString(s)
			if m == "" {
				return 0
			}
			if n, err = strconv.Atoi(m); err != nil {
				return 0
			}
		}
	}
	if n < 0 {
		return 0
	}
	return n
}
