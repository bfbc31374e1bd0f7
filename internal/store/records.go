package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

const (
	activeThemeKey = "adhikaar_active_theme"
	themeModeKey   = "adhikaar_theme_mode"
	themesKey      = "adhikaar_themes"

	// Layout written by the browser front end: live and deleted themes in
	// separate keys. Read once and folded into themesKey on the next write.
	legacyCustomThemesKey  = "adhikaar_custom_themes"
	legacyDeletedThemesKey = "adhikaar_deleted_themes"

	recordsVersion = "1.0.0"
)

// themeRecords is the value stored under themesKey. Live and soft-deleted
// custom themes share one list so every transition is a single write.
type themeRecords struct {
	Version string         `json:"version"`
	Themes  []models.Theme `json:"themes"`
}

func (s *Store) loadRecords(ctx context.Context) ([]models.Theme, error) {
	raw, ok, err := s.storage.Get(ctx, themesKey)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: themesKey, Err: err}
	}
	if !ok {
		return s.foldLegacyRecords(ctx)
	}

	var records themeRecords
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, &StorageError{Op: "decode", Key: themesKey, Err: err}
	}
	return records.Themes, nil
}

func (s *Store) writeRecords(ctx context.Context, themes []models.Theme) error {
	if themes == nil {
		themes = []models.Theme{}
	}
	data, err := json.Marshal(themeRecords{Version: recordsVersion, Themes: themes})
	if err != nil {
		return &StorageError{Op: "encode", Key: themesKey, Err: err}
	}
	if err := s.storage.Set(ctx, themesKey, string(data)); err != nil {
		return &StorageError{Op: "set", Key: themesKey, Err: err}
	}
	return nil
}

// foldLegacyRecords moves the two-key layout under themesKey on first load
// so fallback deletedAt stamps are stored once. A failed write is retried
// on the next load.
func (s *Store) foldLegacyRecords(ctx context.Context) ([]models.Theme, error) {
	records, err := s.loadLegacyRecords(ctx)
	if err != nil || records == nil {
		return records, err
	}
	if err := s.writeRecords(ctx, records); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to persist folded legacy themes")
	}
	return records, nil
}

func (s *Store) loadLegacyRecords(ctx context.Context) ([]models.Theme, error) {
	custom, err := s.loadLegacyList(ctx, legacyCustomThemesKey)
	if err != nil {
		return nil, err
	}
	deleted, err := s.loadLegacyList(ctx, legacyDeletedThemesKey)
	if err != nil {
		return nil, err
	}
	if len(custom) == 0 && len(deleted) == 0 {
		return nil, nil
	}

	// An id in both lists was caught between the copy and the removal of
	// the old two-step delete; the delete wins.
	deletedIDs := make(map[string]struct{}, len(deleted))
	for _, theme := range deleted {
		deletedIDs[theme.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(custom)+len(deleted))
	records := make([]models.Theme, 0, len(custom)+len(deleted))
	for _, theme := range custom {
		if _, ok := deletedIDs[theme.ID]; ok {
			continue
		}
		if _, dup := seen[theme.ID]; dup || theme.ID == "" {
			continue
		}
		seen[theme.ID] = struct{}{}
		theme.DeletedAt = nil
		records = append(records, theme)
	}
	for _, theme := range deleted {
		if _, dup := seen[theme.ID]; dup || theme.ID == "" {
			continue
		}
		seen[theme.ID] = struct{}{}
		if theme.DeletedAt == nil {
			theme.DeletedAt = legacyDeletedAt(theme, s.now())
		}
		records = append(records, theme)
	}

	log.Ctx(ctx).Info().
		Int("custom", len(custom)).
		Int("deleted", len(deleted)).
		Msg("Loaded themes from legacy storage layout")
	return records, nil
}

func (s *Store) loadLegacyList(ctx context.Context, key string) ([]models.Theme, error) {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var themes []models.Theme
	if err := json.Unmarshal([]byte(raw), &themes); err != nil {
		return nil, &StorageError{Op: "decode", Key: key, Err: err}
	}
	return themes, nil
}

// legacyDeletedAt dates a legacy deleted record that carries no deletedAt
// by its last update, then its creation.
func legacyDeletedAt(theme models.Theme, now time.Time) *time.Time {
	switch {
	case theme.UpdatedAt != nil:
		return timePtr(*theme.UpdatedAt)
	case theme.CreatedAt != nil:
		return timePtr(*theme.CreatedAt)
	default:
		return timePtr(now.UTC())
	}
}

func findRecord(records []models.Theme, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func findLive(records []models.Theme, id string) int {
	idx := findRecord(records, id)
	if idx >= 0 && records[idx].IsDeleted() {
		return -1
	}
	return idx
}

func timePtr(t time.Time) *time.Time {
	return &t
}
