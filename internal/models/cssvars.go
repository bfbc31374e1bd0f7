package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DeriveCSSVariables maps hex tokens onto the "H S% L%" triples the
// stylesheet consumes. Tokens that are not plain hex colors are skipped.
func DeriveCSSVariables(tokens Tokens) map[string]string {
	vars := make(map[string]string)

	set := func(name, color string) {
		if triple, ok := hslTriple(color); ok {
			vars[name] = triple
		}
	}
	setForeground := func(name, background string) {
		text, _, err := BestTextColor(background)
		if err != nil {
			return
		}
		set(name, text)
	}

	set("--background", tokens.SurfaceBackground)
	set("--foreground", tokens.TextPrimary)
	set("--card", tokens.SurfaceCard)
	set("--card-foreground", tokens.TextPrimary)
	set("--primary", tokens.BrandPrimary)
	setForeground("--primary-foreground", tokens.BrandPrimary)
	set("--secondary", tokens.BrandSecondary)
	setForeground("--secondary-foreground", tokens.BrandSecondary)
	set("--success", tokens.StatusSuccess)
	set("--warning", tokens.StatusWarning)
	set("--destructive", tokens.StatusError)
	set("--muted-foreground", tokens.TextMuted)

	return vars
}

func hslTriple(color string) (string, bool) {
	color = strings.TrimSpace(color)
	if !IsHexColor(color) {
		return "", false
	}
	c, err := colorful.Hex(color)
	if err != nil {
		return "", false
	}
	h, s, l := c.Hsl()
	return fmt.Sprintf("%.0f %.0f%% %.0f%%", math.Mod(math.Round(h), 360), s*100, l*100), true
}
