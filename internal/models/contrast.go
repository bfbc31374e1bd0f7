package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	wcagAAMinContrastRatio  = 4.5
	wcagAAAMinContrastRatio = 7.0
	darkTextColor           = "#000000"
	lightTextColor          = "#FFFFFF"
)

var ErrInvalidColor = errors.New("invalid hex color")

var contrastInputRegex = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// ColorError reports a value the contrast evaluator cannot decode.
type ColorError struct {
	Value string
}

func (e *ColorError) Error() string {
	return fmt.Sprintf("invalid hex color %q: expected 6 hex digits like #AABBCC", e.Value)
}

func (e *ColorError) Unwrap() error {
	return ErrInvalidColor
}

type Level string

const (
	LevelAA  Level = "AA"
	LevelAAA Level = "AAA"
)

// Grade is the editor badge for a contrast pair.
type Grade string

const (
	GradeAAA     Grade = "AAA"
	GradeAA      Grade = "AA"
	GradeFail    Grade = "Fail"
	GradeInvalid Grade = "Invalid"
)

// MeetsWCAG treats any level other than AAA as AA.
func MeetsWCAG(ratio float64, level Level) bool {
	if level == LevelAAA {
		return ratio >= wcagAAAMinContrastRatio
	}
	return ratio >= wcagAAMinContrastRatio
}

func GradeFor(ratio float64) Grade {
	switch {
	case MeetsWCAG(ratio, LevelAAA):
		return GradeAAA
	case MeetsWCAG(ratio, LevelAA):
		return GradeAA
	default:
		return GradeFail
	}
}

// ContrastRatio is symmetric in its arguments and always >= 1.
func ContrastRatio(color1, color2 string) (float64, error) {
	l1, err := RelativeLuminance(color1)
	if err != nil {
		return 0, err
	}
	l2, err := RelativeLuminance(color2)
	if err != nil {
		return 0, err
	}
	lightest := math.Max(l1, l2)
	darkest := math.Min(l1, l2)
	return (lightest + 0.05) / (darkest + 0.05), nil
}

func RelativeLuminance(hexColor string) (float64, error) {
	r, g, b, err := parseHexColor(hexColor)
	if err != nil {
		return 0, err
	}
	return 0.2126*srgbToLinear(r) + 0.7152*srgbToLinear(g) + 0.0722*srgbToLinear(b), nil
}

// BestTextColor picks black or white text, whichever contrasts more with background.
func BestTextColor(background string) (string, float64, error) {
	bestRatio := 0.0
	bestText := ""
	for _, textColor := range []string{darkTextColor, lightTextColor} {
		ratio, err := ContrastRatio(textColor, background)
		if err != nil {
			return "", 0, err
		}
		if ratio > bestRatio {
			bestRatio = ratio
			bestText = textColor
		}
	}
	return bestText, bestRatio, nil
}

// ContrastCheck is one foreground/background pair shown in the editor.
type ContrastCheck struct {
	Label      string  `json:"label"`
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	Ratio      float64 `json:"ratio"`
	Grade      Grade   `json:"grade"`
	Error      string  `json:"error,omitempty"`
}

// CheckContrast grades the text and primary colors against the page
// background. A pair with an undecodable color is graded Invalid.
func CheckContrast(tokens Tokens) []ContrastCheck {
	pairs := []struct {
		label string
		fg    string
		bg    string
	}{
		{label: "Text/Background", fg: tokens.TextPrimary, bg: tokens.SurfaceBackground},
		{label: "Primary/Background", fg: tokens.BrandPrimary, bg: tokens.SurfaceBackground},
	}

	checks := make([]ContrastCheck, 0, len(pairs))
	for _, pair := range pairs {
		check := ContrastCheck{Label: pair.label, Foreground: pair.fg, Background: pair.bg}
		ratio, err := ContrastRatio(pair.fg, pair.bg)
		if err != nil {
			check.Grade = GradeInvalid
			check.Error = err.Error()
		} else {
			check.Ratio = ratio
			check.Grade = GradeFor(ratio)
		}
		checks = append(checks, check)
	}
	return checks
}

func parseHexColor(hexColor string) (float64, float64, float64, error) {
	trimmed := strings.TrimSpace(hexColor)
	if !contrastInputRegex.MatchString(trimmed) {
		return 0, 0, 0, &ColorError{Value: hexColor}
	}

	value, err := strconv.ParseUint(strings.TrimPrefix(trimmed, "#"), 16, 32)
	if err != nil {
		return 0, 0, 0, &ColorError{Value: hexColor}
	}

	r := float64((value >> 16) & 0xFF)
	g := float64((value >> 8) & 0xFF)
	b := float64(value & 0xFF)

	return r / 255, g / 255, b / 255, nil
}

func srgbToLinear(value float64) float64 {
	if value <= 0.03928 {
		return value / 12.92
	}
	return math.Pow((value+0.055)/1.055, 2.4)
}
