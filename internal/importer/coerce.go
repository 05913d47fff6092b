package importer

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultRating      = 4.0
	DefaultDescription = "No description available"
)

// parseBool is true only for true, 1 or yes, case-insensitive
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseFloat parses a finite number
func parseFloat(value string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloatDefault(value string, def float64) float64 {
	if f, ok := parseFloat(value); ok {
		return f
	}
	return def
}

// parseCount parses a non-negative integer. Negative values clamp to zero.
func parseCount(value string) int {
	value = strings.TrimSpace(value)
	n, err := strconv.Atoi(value)
	if err != nil {
		f, ok := parseFloat(value)
		if !ok {
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// splitList splits a comma-separated cell, keeping order and duplicates
func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// Slugify lowercases s and reduces it to hyphen-separated ASCII letters and digits
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}
