package display

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

var logoLines = []string{
	"█▀▄ █ █ ▄▀█ █     ▄▀█ █",
	"█▄▀ █▄█ █▀█ █▄▄   █▀█ █",
}

// renderLogo draws the logo with a horizontal mauve to blue gradient.
func renderLogo() string {
	out := make([]string, len(logoLines))
	for i, line := range logoLines {
		out[i] = applyGradient(line, colorMauve, colorBlue)
	}
	return strings.Join(out, "\n")
}

// applyGradient colors each rune of text along a gradient from a to b.
func applyGradient(text, a, b string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range runes {
		pos := 0.0
		if len(runes) > 1 {
			pos = float64(i) / float64(len(runes)-1)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(interpolateColor(a, b, pos)))
		sb.WriteString(style.Render(string(r)))
	}
	return sb.String()
}

// interpolateColor blends two #RRGGBB colors; pos runs from 0 (a) to 1 (b).
func interpolateColor(a, b string, pos float64) string {
	r1, g1, b1 := parseHexColor(a)
	r2, g2, b2 := parseHexColor(b)
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x)*(1-pos) + float64(y)*pos)
	}
	return fmt.Sprintf("#%02x%02x%02x", mix(r1, r2), mix(g1, g2), mix(b1, b2))
}

func parseHexColor(hex string) (r, g, b uint8) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 6 {
		_, _ = fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	}
	return r, g, b
}
