// internal/models/themes.go
package models

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"
)

// DefaultThemeID is the preset the active pointer falls back to.
const DefaultThemeID = "mint"

const maxThemeNameLength = 100

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(strings.TrimSpace(value))
}

// Theme is a named palette. Presets carry no timestamps; custom themes
// always have CreatedAt and UpdatedAt, and DeletedAt once soft-deleted.
type Theme struct {
	ID           string            `json:"id" yaml:"id"`
	DisplayName  string            `json:"displayName" yaml:"displayName"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tokens       Tokens            `json:"tokens" yaml:"tokens"`
	CSSVariables map[string]string `json:"cssVariables" yaml:"cssVariables"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty" yaml:"-"`
	DeletedAt    *time.Time        `json:"deletedAt,omitempty" yaml:"-"`
}

func (t Theme) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone returns a deep copy so callers cannot alias stored maps or timestamps.
func (t Theme) Clone() Theme {
	out := t
	if t.CSSVariables != nil {
		out.CSSVariables = maps.Clone(t.CSSVariables)
	}
	out.CreatedAt = cloneTime(t.CreatedAt)
	out.UpdatedAt = cloneTime(t.UpdatedAt)
	out.DeletedAt = cloneTime(t.DeletedAt)
	return out
}

// DefaultTheme is the starting point for a brand-new theme in the editor.
func DefaultTheme() Theme {
	tokens := DefaultTokens()
	return Theme{
		DisplayName:  "New Theme",
		Tokens:       tokens,
		CSSVariables: DeriveCSSVariables(tokens),
	}
}

func (t Theme) Validate() error {
	trimmedName := strings.TrimSpace(t.DisplayName)
	if trimmedName == "" {
		return fmt.Errorf("displayName is required")
	}
	if trimmedName != t.DisplayName {
		return fmt.Errorf("displayName must not have leading or trailing whitespace")
	}
	if len(trimmedName) > maxThemeNameLength {
		return fmt.Errorf("displayName must be %d characters or fewer", maxThemeNameLength)
	}

	if missing := t.Tokens.Missing(); len(missing) > 0 {
		return fmt.Errorf("tokens missing: %s", strings.Join(missing, ", "))
	}

	// Only values written as hex are checked; color functions pass through.
	for _, key := range TokenKeys() {
		value, _ := t.Tokens.Get(key)
		if strings.HasPrefix(strings.TrimSpace(value), "#") && !IsHexColor(value) {
			return fmt.Errorf("%s must be a 6-digit hex color like #AABBCC", key)
		}
	}

	for name := range t.CSSVariables {
		if !strings.HasPrefix(name, "--") {
			return fmt.Errorf("css variable %q must start with --", name)
		}
	}

	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
