package models

import (
	"errors"
	"fmt"
)

var ErrUnknownToken = errors.New("unknown token key")

// Token keys, in editor order.
const (
	TokenBrandPrimary      = "brand.primary"
	TokenBrandSecondary    = "brand.secondary"
	TokenStatusSuccess     = "status.success"
	TokenStatusWarning     = "status.warning"
	TokenStatusError       = "status.error"
	TokenTextPrimary       = "text.primary"
	TokenTextMuted         = "text.muted"
	TokenSurfaceBackground = "surface.background"
	TokenSurfaceCard       = "surface.card"
	TokenSurfaceElevated   = "surface.elevated"
	TokenBorderDefault     = "border.default"
	TokenFocusRing         = "focus.ring"
)

// Tokens holds one value per semantic color role. Values are hex colors or
// CSS color-function strings.
type Tokens struct {
	BrandPrimary      string `json:"brand.primary" yaml:"brand.primary"`
	BrandSecondary    string `json:"brand.secondary" yaml:"brand.secondary"`
	StatusSuccess     string `json:"status.success" yaml:"status.success"`
	StatusWarning     string `json:"status.warning" yaml:"status.warning"`
	StatusError       string `json:"status.error" yaml:"status.error"`
	TextPrimary       string `json:"text.primary" yaml:"text.primary"`
	TextMuted         string `json:"text.muted" yaml:"text.muted"`
	SurfaceBackground string `json:"surface.background" yaml:"surface.background"`
	SurfaceCard       string `json:"surface.card" yaml:"surface.card"`
	SurfaceElevated   string `json:"surface.elevated" yaml:"surface.elevated"`
	BorderDefault     string `json:"border.default" yaml:"border.default"`
	FocusRing         string `json:"focus.ring" yaml:"focus.ring"`
}

var tokenKeys = []string{
	TokenBrandPrimary,
	TokenBrandSecondary,
	TokenStatusSuccess,
	TokenStatusWarning,
	TokenStatusError,
	TokenTextPrimary,
	TokenTextMuted,
	TokenSurfaceBackground,
	TokenSurfaceCard,
	TokenSurfaceElevated,
	TokenBorderDefault,
	TokenFocusRing,
}

// TokenKeys returns the closed set of token keys in a fixed order.
func TokenKeys() []string {
	keys := make([]string, len(tokenKeys))
	copy(keys, tokenKeys)
	return keys
}

func IsTokenKey(key string) bool {
	var t Tokens
	return t.field(key) != nil
}

func DefaultTokens() Tokens {
	return Tokens{
		BrandPrimary:      "#35E0B8",
		BrandSecondary:    "#6CA8FF",
		StatusSuccess:     "#15C27E",
		StatusWarning:     "#FFB020",
		StatusError:       "#E25555",
		TextPrimary:       "#E8EEF4",
		TextMuted:         "#A7B4C2",
		SurfaceBackground: "#0B0F14",
		SurfaceCard:       "#0F141B",
		SurfaceElevated:   "#121923",
		BorderDefault:     "rgba(255,255,255,0.12)",
		FocusRing:         "0 0 0 3px rgba(53,224,184,0.35)",
	}
}

func (t Tokens) Get(key string) (string, bool) {
	field := t.field(key)
	if field == nil {
		return "", false
	}
	return *field, true
}

func (t *Tokens) Set(key, value string) error {
	field := t.field(key)
	if field == nil {
		return fmt.Errorf("%w: %s", ErrUnknownToken, key)
	}
	*field = value
	return nil
}

// Missing lists keys whose value is empty.
func (t Tokens) Missing() []string {
	var missing []string
	for _, key := range tokenKeys {
		if value, _ := t.Get(key); value == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Map returns the tokens keyed by their dotted names.
func (t Tokens) Map() map[string]string {
	out := make(map[string]string, len(tokenKeys))
	for _, key := range tokenKeys {
		value, _ := t.Get(key)
		out[key] = value
	}
	return out
}

func (t *Tokens) field(key string) *string {
	switch key {
	case TokenBrandPrimary:
		return &t.BrandPrimary
	case TokenBrandSecondary:
		return &t.BrandSecondary
	case TokenStatusSuccess:
		return &t.StatusSuccess
	case TokenStatusWarning:
		return &t.StatusWarning
	case TokenStatusError:
		return &t.StatusError
	case TokenTextPrimary:
		return &t.TextPrimary
	case TokenTextMuted:
		return &t.TextMuted
	case TokenSurfaceBackground:
		return &t.SurfaceBackground
	case TokenSurfaceCard:
		return &t.SurfaceCard
	case TokenSurfaceElevated:
		return &t.SurfaceElevated
	case TokenBorderDefault:
		return &t.BorderDefault
	case TokenFocusRing:
		return &t.FocusRing
	}
	return nil
}
