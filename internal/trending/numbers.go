package trending

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidHexColor reports whether s is a #RGB or #RRGGBB color.
func ValidHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// ParseFormattedCount converts display-formatted counts into integers:
// "1,234" -> 1234, "1.2k" -> 1200, "10k" -> 10000. Unparsable or empty
// input yields 0; the trending page omits counts often enough that a
// missing number must not abort a scrape.
func ParseFormattedCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
		if err != nil {
			return 0
		}
		return int(math.Round(f * 1000))
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
