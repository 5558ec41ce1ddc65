// Package duration parses tracker duration strings of the form
// "<N>h <M>m" ("1h 30m", "2h", "45m"). JIRA consumes these strings
// verbatim; the Lark work-hour service wants decimal hours.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultHours is used when a duration string carries neither unit.
const DefaultHours = 1.0

var (
	hoursRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*h`)
	minutesRe = regexp.MustCompile(`(\d+)\s*m`)
)

// ParseHours converts "<N>h <M>m" to decimal hours. A missing unit
// contributes 0; a string with neither unit yields DefaultHours.
func ParseHours(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	hours := 0.0
	found := false
	if m := hoursRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			hours += v
			found = true
		}
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			hours += v / 60
			found = true
		}
	}
	if !found {
		return DefaultHours
	}
	return hours
}

// FormatHours renders decimal hours back into "<N>h <M>m" form, the
// shape the panel shows and JIRA accepts.
func FormatHours(hours float64) string {
	if hours <= 0 {
		return "0m"
	}
	totalMinutes := int(hours*60 + 0.5)
	h := totalMinutes / 60
	m := totalMinutes % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
