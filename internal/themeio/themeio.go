// Package themeio converts themes to and from portable export files.
package themeio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

const (
	FormatVersion = "1.0.0"
	FileSuffix    = ".adhikaar-theme.json"

	ImportIDPrefix = "imported_"
	MaxImportSize  = 1 << 20
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Repository is the part of the theme store the serializer needs.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Theme, error)
	Insert(ctx context.Context, idPrefix string, theme models.Theme) (models.Theme, error)
}

type Serializer struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Serializer)

func WithClock(now func() time.Time) Option {
	return func(s *Serializer) {
		s.now = now
	}
}

func New(repo Repository, opts ...Option) *Serializer {
	s := &Serializer{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type exportedTheme struct {
	models.Theme
	ExportedAt time.Time `json:"exportedAt"`
}

type exportEnvelope struct {
	Version string        `json:"version"`
	Theme   exportedTheme `json:"theme"`
}

// ExportFile is a rendered export ready to be downloaded or written out.
type ExportFile struct {
	Filename string
	Data     []byte
}

func (f *ExportFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Data)
	return int64(n), err
}

// SaveToDir writes the export into dir and returns the full path.
func (f *ExportFile) SaveToDir(dir string) (string, error) {
	path := filepath.Join(dir, f.Filename)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}

// Export renders the theme with the given id. An unknown id yields nil.
func (s *Serializer) Export(ctx context.Context, id string) (*ExportFile, error) {
	theme, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if theme == nil {
		log.Ctx(ctx).Debug().Str("theme_id", id).Msg("Export skipped, theme not found")
		return nil, nil
	}

	exported := theme.Clone()
	exported.DeletedAt = nil
	data, err := json.MarshalIndent(exportEnvelope{
		Version: FormatVersion,
		Theme: exportedTheme{
			Theme:      exported,
			ExportedAt: s.now().UTC(),
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode theme %s: %w", id, err)
	}

	return &ExportFile{
		Filename: ExportFilename(theme.ID),
		Data:     data,
	}, nil
}

func ExportFilename(id string) string {
	return unsafeFilenameChars.ReplaceAllString(id, "_") + FileSuffix
}

// Import reads an export file and stores it as a new custom theme. Nothing
// is written when the payload is rejected.
func (s *Serializer) Import(ctx context.Context, r io.Reader) (models.Theme, error) {
	logger := log.Ctx(ctx)

	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return models.Theme{}, fmt.Errorf("read theme file: %w", err)
	}
	if len(data) > MaxImportSize {
		return models.Theme{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxImportSize)
	}

	theme, coerced, err := decodeExport(data)
	if err != nil {
		return models.Theme{}, err
	}
	if len(coerced) > 0 {
		logger.Warn().Strs("tokens", coerced).Msg("Imported theme has non-string token values")
	}

	unknown, missing := inspectTokens(data)
	if len(unknown) > 0 {
		logger.Warn().Strs("tokens", unknown).Msg("Dropping unknown tokens from imported theme")
	}
	if len(missing) > 0 {
		logger.Warn().Strs("tokens", missing).Msg("Imported theme is missing tokens")
	}

	theme.ID = ""
	theme.CreatedAt = nil
	theme.UpdatedAt = nil
	theme.DeletedAt = nil

	created, err := s.repo.Insert(ctx, ImportIDPrefix, theme)
	if err != nil {
		return models.Theme{}, err
	}
	logger.Info().Str("theme_id", created.ID).Msg("Theme imported")
	return created, nil
}

// decodeExport checks the envelope and decodes the theme. Token values that
// are not strings are stringified (numbers, booleans) or dropped, and their
// keys returned.
func decodeExport(data []byte) (models.Theme, []string, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.Theme{}, nil, &ParseError{Err: err}
	}
	if _, ok := probe.(map[string]any); !ok {
		return models.Theme{}, nil, &FormatError{Reason: "expected a JSON object"}
	}

	var envelope struct {
		Version any             `json:"version"`
		Theme   json.RawMessage `json:"theme"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return models.Theme{}, nil, &FormatError{Reason: err.Error()}
	}

	version, _ := envelope.Version.(string)
	if version == "" {
		return models.Theme{}, nil, &FormatError{Reason: "missing version"}
	}
	trimmed := bytes.TrimSpace(envelope.Theme)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.Theme{}, nil, &FormatError{Reason: "missing theme"}
	}
	if trimmed[0] != '{' {
		return models.Theme{}, nil, &FormatError{Reason: "theme must be an object"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return models.Theme{}, nil, &FormatError{Reason: fmt.Sprintf("theme: %v", err)}
	}
	var coerced []string
	if raw, ok := fields["tokens"]; ok {
		tokens, keys := stringTokens(raw)
		coerced = keys
		encoded, err := json.Marshal(tokens)
		if err != nil {
			return models.Theme{}, nil, fmt.Errorf("encode tokens: %w", err)
		}
		fields["tokens"] = encoded
	}
	normalized, err := json.Marshal(fields)
	if err != nil {
		return models.Theme{}, nil, fmt.Errorf("encode theme: %w", err)
	}

	// exportedAt is not a Theme field and is dropped here.
	var theme models.Theme
	if err := json.Unmarshal(normalized, &theme); err != nil {
		return models.Theme{}, nil, &FormatError{Reason: fmt.Sprintf("theme: %v", err)}
	}
	return theme, coerced, nil
}

// stringTokens keeps string token values as-is. A tokens value that is not
// an object yields an empty map.
func stringTokens(raw json.RawMessage) (map[string]string, []string) {
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return map[string]string{}, []string{"tokens"}
	}

	tokens := make(map[string]string, len(values))
	var coerced []string
	for key, value := range values {
		switch v := value.(type) {
		case string:
			tokens[key] = v
		case float64:
			tokens[key] = strconv.FormatFloat(v, 'f', -1, 64)
			coerced = append(coerced, key)
		case bool:
			tokens[key] = strconv.FormatBool(v)
			coerced = append(coerced, key)
		default:
			coerced = append(coerced, key)
		}
	}
	slices.Sort(coerced)
	return tokens, coerced
}

// inspectTokens reports token keys that the fixed token set drops or lacks.
func inspectTokens(data []byte) (unknown, missing []string) {
	var envelope struct {
		Theme struct {
			Tokens map[string]json.RawMessage `json:"tokens"`
		} `json:"theme"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil
	}
	for key := range envelope.Theme.Tokens {
		if !models.IsTokenKey(key) {
			unknown = append(unknown, key)
		}
	}
	for _, key := range models.TokenKeys() {
		if _, ok := envelope.Theme.Tokens[key]; !ok {
			missing = append(missing, key)
		}
	}
	slices.Sort(unknown)
	return unknown, missing
}
