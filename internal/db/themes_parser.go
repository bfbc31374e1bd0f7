package db

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/adhikaar-ai/adhikaar/assets"
	"github.com/adhikaar-ai/adhikaar/internal/models"
)

var defaultPresetID string

type presetFile struct {
	Themes []presetEntry `yaml:"themes"`
}

type presetEntry struct {
	models.Theme `yaml:",inline"`
	Default      bool `yaml:"default"`
}

// DefaultPresetID returns the id of the preset flagged default by the last
// successful ParseThemesFile call.
func DefaultPresetID() string {
	return defaultPresetID
}

// ParseThemesFile reads the embedded preset catalog and returns the presets in order.
func ParseThemesFile() ([]models.Theme, error) {
	file, err := assets.ThemesFS.Open(assets.ThemesPath)
	if err != nil {
		return nil, fmt.Errorf("open embedded themes file: %w", err)
	}
	defer file.Close()

	themes, defaultID, err := parseThemes(file)
	if err != nil {
		return nil, err
	}
	defaultPresetID = defaultID
	return themes, nil
}

func parseThemes(r io.Reader) ([]models.Theme, string, error) {
	var catalog presetFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil {
		return nil, "", fmt.Errorf("parse themes file: %w", err)
	}
	if len(catalog.Themes) == 0 {
		return nil, "", fmt.Errorf("themes file defines no presets")
	}

	themes := make([]models.Theme, 0, len(catalog.Themes))
	seen := make(map[string]struct{}, len(catalog.Themes))
	defaultID := ""
	for i, entry := range catalog.Themes {
		theme := entry.Theme
		if theme.ID == "" {
			return nil, "", fmt.Errorf("theme id missing at entry %d", i+1)
		}
		if _, dup := seen[theme.ID]; dup {
			return nil, "", fmt.Errorf("duplicate theme id %q", theme.ID)
		}
		seen[theme.ID] = struct{}{}

		if entry.Default {
			if defaultID != "" {
				return nil, "", fmt.Errorf("multiple default themes: %q and %q", defaultID, theme.ID)
			}
			defaultID = theme.ID
		}

		if err := theme.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid theme %q: %w", theme.ID, err)
		}

		themes = append(themes, theme)
	}

	if defaultID == "" {
		return nil, "", fmt.Errorf("themes file has no default theme")
	}
	return themes, defaultID, nil
}
