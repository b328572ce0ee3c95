package models

import "regexp"

// DefaultColor is the accent used for chart series without a color
const DefaultColor = "#2563eb"

var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// ValidColor reports whether s is a #RGB or #RRGGBB hex color
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}
