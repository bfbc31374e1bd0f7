// Package store persists theme records and the active selection on top of
// a key-value Storage.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

const (
	CustomIDPrefix   = "custom_"
	ImportedIDPrefix = "imported_"
	copyIDInfix      = "_copy_"
	copyNameSuffix   = " (Copy)"
)

var (
	ErrPresetReadOnly = errors.New("preset themes are read-only")
	ErrMissingID      = errors.New("theme id is required")
)

// Store is the theme repository. It assumes a single logical writer and
// serializes its own read-modify-write cycles.
type Store struct {
	storage     Storage
	presets     []models.Theme
	presetIndex map[string]int
	defaultID   string
	defaultMode models.Mode
	now         func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps and generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithDefaultID sets the preset the active pointer falls back to.
func WithDefaultID(id string) Option {
	return func(s *Store) {
		s.defaultID = id
	}
}

func WithDefaultMode(mode models.Mode) Option {
	return func(s *Store) {
		s.defaultMode = mode
	}
}

func New(storage Storage, presets []models.Theme, opts ...Option) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("theme store requires storage")
	}
	if len(presets) == 0 {
		return nil, fmt.Errorf("theme store requires at least one preset")
	}

	s := &Store{
		storage:     storage,
		presets:     make([]models.Theme, 0, len(presets)),
		presetIndex: make(map[string]int, len(presets)),
		defaultID:   models.DefaultThemeID,
		defaultMode: models.DefaultMode,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, preset := range presets {
		if _, dup := s.presetIndex[preset.ID]; dup {
			return nil, fmt.Errorf("duplicate preset id %q", preset.ID)
		}
		s.presetIndex[preset.ID] = len(s.presets)
		s.presets = append(s.presets, preset.Clone())
	}
	if _, ok := s.presetIndex[s.defaultID]; !ok {
		return nil, fmt.Errorf("default theme %q is not a preset", s.defaultID)
	}
	if _, err := models.ParseMode(string(s.defaultMode)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) DefaultID() string {
	return s.defaultID
}

func (s *Store) IsPreset(id string) bool {
	_, ok := s.presetIndex[id]
	return ok
}

// Presets returns the built-in themes in their fixed order.
func (s *Store) Presets() []models.Theme {
	out := make([]models.Theme, 0, len(s.presets))
	for _, preset := range s.presets {
		out = append(out, preset.Clone())
	}
	return out
}

// ActiveID returns the persisted active id, or the default id when it is
// unset or no longer resolves to a live theme.
func (s *Store) ActiveID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIDLocked(ctx)
}

// SetActive persists id as active. An id that does not resolve to a live
// theme is replaced by the default so the pointer never dangles.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if !s.IsPreset(id) {
		records, err := s.loadRecords(ctx)
		if err != nil {
			return err
		}
		if findLive(records, id) < 0 {
			log.Ctx(ctx).Warn().Str("theme_id", id).Str("default_id", s.defaultID).Msg("Active theme not found, using default")
			id = s.defaultID
		}
	}
	return s.setActiveLocked(ctx, id)
}

// Active resolves the active theme, falling back to the default preset.
func (s *Store) Active(ctx context.Context) (models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.activeIDLocked(ctx)
	if err != nil {
		return models.Theme{}, err
	}
	theme, err := s.getLocked(ctx, id)
	if err != nil {
		return models.Theme{}, err
	}
	if theme == nil {
		return s.presets[s.presetIndex[s.defaultID]].Clone(), nil
	}
	return *theme, nil
}

func (s *Store) Mode(ctx context.Context) (models.Mode, error) {
	raw, ok, err := s.storage.Get(ctx, themeModeKey)
	if err != nil {
		return "", &StorageError{Op: "get", Key: themeModeKey, Err: err}
	}
	if !ok {
		return s.defaultMode, nil
	}
	mode, err := models.ParseMode(raw)
	if err != nil {
		log.Ctx(ctx).Warn().Str("mode", raw).Msg("Ignoring unknown persisted theme mode")
		return s.defaultMode, nil
	}
	return mode, nil
}

func (s *Store) SetMode(ctx context.Context, mode models.Mode) error {
	if _, err := models.ParseMode(string(mode)); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, themeModeKey, string(mode)); err != nil {
		return &StorageError{Op: "set", Key: themeModeKey, Err: err}
	}
	return nil
}

// ListCustom returns live custom themes in insertion order.
func (s *Store) ListCustom(ctx context.Context) ([]models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCustomLocked(ctx)
}

// ListAll returns the presets followed by the live custom themes.
func (s *Store) ListAll(ctx context.Context) ([]models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.listCustomLocked(ctx)
	if err != nil {
		return nil, err
	}
	return append(s.Presets(), custom...), nil
}

// ListDeleted returns soft-deleted themes, oldest deletion first.
func (s *Store) ListDeleted(ctx context.Context) ([]models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	deleted := []models.Theme{}
	for _, record := range records {
		if record.IsDeleted() {
			deleted = append(deleted, record.Clone())
		}
	}
	slices.SortStableFunc(deleted, func(a, b models.Theme) int {
		return a.DeletedAt.Compare(*b.DeletedAt)
	})
	return deleted, nil
}

// Get looks up presets first, then live custom themes. A missing id is a
// nil theme, not an error.
func (s *Store) Get(ctx context.Context, id string) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

// Save upserts a custom theme by id. Updating keeps the stored createdAt and
// refreshes updatedAt; inserting sets both to now.
func (s *Store) Save(ctx context.Context, theme models.Theme) (models.Theme, error) {
	if strings.TrimSpace(theme.ID) == "" {
		return models.Theme{}, ErrMissingID
	}
	if s.IsPreset(theme.ID) {
		return models.Theme{}, fmt.Errorf("%w: %s", ErrPresetReadOnly, theme.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return models.Theme{}, err
	}

	now := s.now().UTC()
	saved := theme.Clone()
	saved.DeletedAt = nil
	saved.UpdatedAt = timePtr(now)

	idx := findRecord(records, theme.ID)
	switch {
	case idx >= 0 && !records[idx].IsDeleted():
		if records[idx].CreatedAt != nil {
			saved.CreatedAt = timePtr(*records[idx].CreatedAt)
		} else {
			saved.CreatedAt = timePtr(now)
		}
		records[idx] = saved
	case idx >= 0:
		// Saving over a deleted record replaces it with a fresh insert.
		saved.CreatedAt = timePtr(now)
		records[idx] = saved
	default:
		saved.CreatedAt = timePtr(now)
		records = append(records, saved)
	}

	if err := s.writeRecords(ctx, records); err != nil {
		return models.Theme{}, err
	}
	log.Ctx(ctx).Debug().Str("theme_id", saved.ID).Msg("Theme saved")
	return saved.Clone(), nil
}

// Insert stores theme under a new id made of idPrefix and a millisecond
// timestamp, unique across presets, live and deleted themes.
func (s *Store) Insert(ctx context.Context, idPrefix string, theme models.Theme) (models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return models.Theme{}, err
	}
	return s.insertLocked(ctx, records, idPrefix, theme)
}

// Duplicate clones a preset or live custom theme under a new id with a
// "(Copy)" name. A missing source yields nil.
func (s *Store) Duplicate(ctx context.Context, id string) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.getLocked(ctx, id)
	if err != nil || source == nil {
		return nil, err
	}

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}

	clone := source.Clone()
	clone.DisplayName = source.DisplayName + copyNameSuffix
	created, err := s.insertLocked(ctx, records, source.ID+copyIDInfix, clone)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SoftDelete marks a live custom theme deleted in one write. Presets,
// unknown ids and already-deleted themes are ignored. Deleting the active
// theme moves the active pointer to the default.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	logger := log.Ctx(ctx)
	if s.IsPreset(id) {
		logger.Debug().Str("theme_id", id).Msg("Ignoring delete of preset theme")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return err
	}
	idx := findLive(records, id)
	if idx < 0 {
		return nil
	}

	records[idx].DeletedAt = timePtr(s.now().UTC())
	if err := s.writeRecords(ctx, records); err != nil {
		return err
	}
	logger.Info().Str("theme_id", id).Msg("Theme soft-deleted")

	activeRaw, _, err := s.storage.Get(ctx, activeThemeKey)
	if err != nil {
		return &StorageError{Op: "get", Key: activeThemeKey, Err: err}
	}
	if strings.TrimSpace(activeRaw) == id {
		return s.setActiveLocked(ctx, s.defaultID)
	}
	return nil
}

// Restore brings a soft-deleted theme back, keeping createdAt and
// refreshing updatedAt. An id not in the deleted set yields nil.
func (s *Store) Restore(ctx context.Context, id string) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRecord(records, id)
	if idx < 0 || !records[idx].IsDeleted() {
		return nil, nil
	}

	now := s.now().UTC()
	restored := records[idx].Clone()
	restored.DeletedAt = nil
	restored.UpdatedAt = timePtr(now)
	if restored.CreatedAt == nil {
		restored.CreatedAt = timePtr(now)
	}
	records[idx] = restored

	if err := s.writeRecords(ctx, records); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("theme_id", id).Msg("Theme restored")
	out := restored.Clone()
	return &out, nil
}

// PurgeDeleted permanently drops deleted themes whose deletedAt is before
// olderThan and returns how many were removed.
func (s *Store) PurgeDeleted(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(ctx)
	if err != nil {
		return 0, err
	}
	kept := records[:0:0]
	for _, record := range records {
		if record.IsDeleted() && record.DeletedAt.Before(olderThan) {
			continue
		}
		kept = append(kept, record)
	}
	purged := len(records) - len(kept)
	if purged == 0 {
		return 0, nil
	}
	if err := s.writeRecords(ctx, kept); err != nil {
		return 0, err
	}
	return purged, nil
}

func (s *Store) activeIDLocked(ctx context.Context) (string, error) {
	raw, ok, err := s.storage.Get(ctx, activeThemeKey)
	if err != nil {
		return "", &StorageError{Op: "get", Key: activeThemeKey, Err: err}
	}
	id := strings.TrimSpace(raw)
	if !ok || id == "" {
		return s.defaultID, nil
	}
	if s.IsPreset(id) {
		return id, nil
	}

	records, err := s.loadRecords(ctx)
	if err != nil {
		return "", err
	}
	if findLive(records, id) < 0 {
		log.Ctx(ctx).Debug().Str("theme_id", id).Msg("Persisted active theme no longer exists")
		return s.defaultID, nil
	}
	return id, nil
}

func (s *Store) setActiveLocked(ctx context.Context, id string) error {
	if err := s.storage.Set(ctx, activeThemeKey, id); err != nil {
		return &StorageError{Op: "set", Key: activeThemeKey, Err: err}
	}
	log.Ctx(ctx).Debug().Str("theme_id", id).Msg("Active theme set")
	return nil
}

func (s *Store) getLocked(ctx context.Context, id string) (*models.Theme, error) {
	if idx, ok := s.presetIndex[id]; ok {
		preset := s.presets[idx].Clone()
		return &preset, nil
	}

	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	idx := findLive(records, id)
	if idx < 0 {
		return nil, nil
	}
	theme := records[idx].Clone()
	return &theme, nil
}

func (s *Store) listCustomLocked(ctx context.Context) ([]models.Theme, error) {
	records, err := s.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	custom := []models.Theme{}
	for _, record := range records {
		if !record.IsDeleted() {
			custom = append(custom, record.Clone())
		}
	}
	return custom, nil
}

func (s *Store) insertLocked(ctx context.Context, records []models.Theme, idPrefix string, theme models.Theme) (models.Theme, error) {
	now := s.now().UTC()
	created := theme.Clone()
	created.ID = s.uniqueID(records, idPrefix, now)
	created.CreatedAt = timePtr(now)
	created.UpdatedAt = timePtr(now)
	created.DeletedAt = nil

	if err := s.writeRecords(ctx, append(records, created)); err != nil {
		return models.Theme{}, err
	}
	log.Ctx(ctx).Debug().Str("theme_id", created.ID).Msg("Theme created")
	return created.Clone(), nil
}

func (s *Store) uniqueID(records []models.Theme, prefix string, now time.Time) string {
	taken := make(map[string]struct{}, len(records))
	for _, record := range records {
		taken[record.ID] = struct{}{}
	}
	for stamp := now.UnixMilli(); ; stamp++ {
		id := prefix + strconv.FormatInt(stamp, 10)
		if s.IsPreset(id) {
			continue
		}
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}
