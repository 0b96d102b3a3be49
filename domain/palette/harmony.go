// Package palette scores how well a set of garment colors work together,
// grounded on github.com/lucasb-eyer/go-colorful's CIE Lab conversion.
package palette

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// neutralPrior is the harmony score returned whenever fewer than two
// colors resolve.
const neutralPrior = 0.6

// named maps common garment color words to hex codes. Anything not found
// here falls back to parsing the string as "#RRGGBB".
var named = map[string]string{
	"black":  "#000000",
	"white":  "#FFFFFF",
	"gray":   "#808080",
	"grey":   "#808080",
	"navy":   "#000080",
	"blue":   "#1E3A8A",
	"red":    "#B91C1C",
	"green":  "#15803D",
	"olive":  "#556B2F",
	"khaki":  "#C3B091",
	"beige":  "#D9C9A5",
	"tan":    "#D2B48C",
	"brown":  "#6B4423",
	"cream":  "#FFFDD0",
	"ivory":  "#FFFFF0",
	"yellow": "#EAB308",
	"orange": "#EA580C",
	"pink":   "#EC4899",
	"purple": "#7E22CE",
	"maroon": "#7F1D1D",
	"denim":  "#3B5998",
	"charcoal": "#36454F",
	"mustard":  "#D4A017",
	"coral":    "#FF7F50",
}

// resolve converts a garment color string into a go-colorful Color,
// checking the name table first and falling back to hex parsing.
func resolve(color string) (colorful.Color, bool) {
	key := strings.ToLower(strings.TrimSpace(color))
	if key == "" {
		return colorful.Color{}, false
	}
	if hex, ok := named[key]; ok {
		c, err := colorful.Hex(hex)
		return c, err == nil
	}
	c, err := colorful.Hex(color)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

// Harmony returns a [0,1] score for how well the given garment colors
// work together. Fewer than two resolved colors returns the flat neutral
// prior. Otherwise it averages pairwise ΔE2000 (go-colorful's
// DistanceCIEDE2000) across all pairs, maps it into [0,1] via
// 1 - clip(avg/100, 0, 1), and blends that into a 0.4 base score.
func Harmony(colors []string) float64 {
	var resolved []colorful.Color
	for _, c := range colors {
		if col, ok := resolve(c); ok {
			resolved = append(resolved, col)
		}
	}
	if len(resolved) < 2 {
		return neutralPrior
	}

	var total float64
	var pairs int
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			// go-colorful reports CIEDE2000 on its 0..1-scaled Lab, so the
			// distance is multiplied by 100 to get conventional ΔE units.
			total += resolved[i].DistanceCIEDE2000(resolved[j]) * 100
			pairs++
		}
	}
	if pairs == 0 {
		return neutralPrior
	}
	avg := total / float64(pairs)

	normalized := 1 - clip(avg/100, 0, 1)
	return 0.4 + 0.6*normalized
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
