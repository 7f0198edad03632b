package catalog

import "strings"

// DefaultColorHex is the neutral fallback for color names outside the table.
const DefaultColorHex = "#808080"

// colorTable maps common lowercase color names to display hex values.
var colorTable = map[string]string{
	"black":  "#000000",
	"white":  "#FFFFFF",
	"red":    "#FF0000",
	"green":  "#008000",
	"blue":   "#0000FF",
	"yellow": "#FFFF00",
	"purple": "#800080",
	"pink":   "#FFC0CB",
	"orange": "#FFA500",
	"gray":   "#808080",
	"grey":   "#808080",
	"brown":  "#A52A2A",
}

// ColorHex resolves a free-text color name to a display hex value. Unknown
// names resolve to DefaultColorHex. Pure function, cannot fail.
func ColorHex(name string) string {
	if hex, ok := colorTable[strings.ToLower(strings.TrimSpace(name))]; ok {
		return hex
	}
	return DefaultColorHex
}
