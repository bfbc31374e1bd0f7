// internal/api/themes/handlers.go
package themes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhikaar-ai/adhikaar/internal/api/apiutil"
	"github.com/adhikaar-ai/adhikaar/internal/api/htmx"
	"github.com/adhikaar-ai/adhikaar/internal/models"
	"github.com/adhikaar-ai/adhikaar/internal/store"
	"github.com/adhikaar-ai/adhikaar/internal/templates/layouts"
	"github.com/adhikaar-ai/adhikaar/internal/themeio"
)

const (
	themeQueryTimeout = 5 * time.Second
	themeIDParam      = "id"
	importFileField   = "file"
)

var (
	themeStore *store.Store
	serializer *themeio.Serializer
	initOnce   sync.Once
)

type themeRequest struct {
	DisplayName  string            `json:"displayName" validate:"required,max=100"`
	Description  string            `json:"description" validate:"max=500"`
	Tokens       map[string]string `json:"tokens"`
	CSSVariables map[string]string `json:"cssVariables"`
}

type activeRequest struct {
	ID string `json:"id" validate:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=light dark system high_contrast"`
}

type contrastRequest struct {
	Foreground string            `json:"foreground" validate:"required_without=Tokens"`
	Background string            `json:"background" validate:"required_without=Tokens"`
	Level      string            `json:"level" validate:"omitempty,oneof=AA AAA"`
	Tokens     map[string]string `json:"tokens"`
}

type themeResponse struct {
	models.Theme
	Preset bool `json:"preset"`
}

type contrastResponse struct {
	Ratio float64      `json:"ratio"`
	AA    bool         `json:"aa"`
	AAA   bool         `json:"aaa"`
	Grade models.Grade `json:"grade"`
	Meets *bool        `json:"meets,omitempty"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *store.Store, ser *themeio.Serializer) {
	if s == nil || ser == nil {
		return
	}
	initOnce.Do(func() {
		themeStore = s
		serializer = ser
	})
}

func RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/themes", HandleThemesList)
	mux.HandleFunc("POST /api/v1/themes", HandleThemeCreate)
	mux.HandleFunc("GET /api/v1/themes/deleted", HandleDeletedThemesList)
	mux.HandleFunc("POST /api/v1/themes/import", HandleThemeImport)
	mux.HandleFunc("POST /api/v1/themes/contrast", HandleContrast)
	mux.HandleFunc("GET /api/v1/themes/active", HandleActiveGet)
	mux.HandleFunc("PUT /api/v1/themes/active", HandleActiveSet)
	mux.HandleFunc("GET /api/v1/themes/mode", HandleModeGet)
	mux.HandleFunc("PUT /api/v1/themes/mode", HandleModeSet)
	mux.HandleFunc("GET /api/v1/themes/{id}", HandleThemeDetail)
	mux.HandleFunc("PUT /api/v1/themes/{id}", HandleThemeUpdate)
	mux.HandleFunc("DELETE /api/v1/themes/{id}", HandleThemeDelete)
	mux.HandleFunc("POST /api/v1/themes/{id}/restore", HandleThemeRestore)
	mux.HandleFunc("POST /api/v1/themes/{id}/duplicate", HandleThemeDuplicate)
	mux.HandleFunc("GET /api/v1/themes/{id}/export", HandleThemeExport)
	mux.HandleFunc("GET /theme.css", HandleStylesheet)
}

// GET /api/v1/themes
func HandleThemesList(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	all, err := s.ListAll(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load themes"))
		return
	}
	activeID, err := s.ActiveID(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load active theme"))
		return
	}
	mode, err := s.Mode(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme mode"))
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"themes":   toResponses(s, all),
		"activeId": activeID,
		"mode":     mode,
	})
}

// GET /api/v1/themes/deleted
func HandleDeletedThemesList(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	deleted, err := s.ListDeleted(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load deleted themes"))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"themes": toResponses(s, deleted)})
}

// GET /api/v1/themes/{id}
func HandleThemeDetail(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	theme, err := s.Get(ctx, r.PathValue(themeIDParam))
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme"))
		return
	}
	if theme == nil {
		apiutil.WriteError(w, r, notFound())
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(s, *theme))
}

// POST /api/v1/themes
func HandleThemeCreate(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	req, err := decodeThemeRequest(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	theme := models.DefaultTheme()
	if err := req.applyTo(&theme); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	created, err := s.Insert(ctx, store.CustomIDPrefix, theme)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to create theme"))
		return
	}
	writeJSON(w, r, http.StatusCreated, toResponse(s, created))
}

// PUT /api/v1/themes/{id}
func HandleThemeUpdate(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	themeID := r.PathValue(themeIDParam)
	if s.IsPreset(themeID) {
		apiutil.WriteError(w, r, readOnly(themeID))
		return
	}

	req, err := decodeThemeRequest(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	existing, err := s.Get(ctx, themeID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme"))
		return
	}
	if existing == nil {
		apiutil.WriteError(w, r, notFound())
		return
	}

	theme := existing.Clone()
	if err := req.applyTo(&theme); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	saved, err := s.Save(ctx, theme)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to update theme"))
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(s, saved))
}

// DELETE /api/v1/themes/{id}
func HandleThemeDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	themeID := r.PathValue(themeIDParam)
	if s.IsPreset(themeID) {
		apiutil.WriteError(w, r, readOnly(themeID))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	existing, err := s.Get(ctx, themeID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme"))
		return
	}
	if existing == nil {
		apiutil.WriteError(w, r, notFound())
		return
	}

	if err := s.SoftDelete(ctx, themeID); err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to delete theme"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/themes/{id}/restore
func HandleThemeRestore(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	restored, err := s.Restore(ctx, r.PathValue(themeIDParam))
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to restore theme"))
		return
	}
	if restored == nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Deleted theme not found"})
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(s, *restored))
}

// POST /api/v1/themes/{id}/duplicate
func HandleThemeDuplicate(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	copied, err := s.Duplicate(ctx, r.PathValue(themeIDParam))
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to duplicate theme"))
		return
	}
	if copied == nil {
		apiutil.WriteError(w, r, notFound())
		return
	}
	writeJSON(w, r, http.StatusCreated, toResponse(s, *copied))
}

// GET /api/v1/themes/{id}/export
func HandleThemeExport(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStore(w, r); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	file, err := serializer.Export(ctx, r.PathValue(themeIDParam))
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to export theme"))
		return
	}
	if file == nil {
		apiutil.WriteError(w, r, notFound())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := file.WriteTo(w); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("filename", file.Filename).Msg("Failed to write theme export")
	}
}

// POST /api/v1/themes/import
func HandleThemeImport(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, themeio.MaxImportSize+64<<10)
	body, closeBody, err := importBody(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	defer closeBody()

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	imported, err := serializer.Import(ctx, body)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to import theme"))
		return
	}
	writeJSON(w, r, http.StatusCreated, toResponse(s, imported))
}

// GET /api/v1/themes/active
func HandleActiveGet(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	active, err := s.Active(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load active theme"))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"activeId": active.ID,
		"theme":    toResponse(s, active),
	})
}

// PUT /api/v1/themes/active
func HandleActiveSet(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	var req activeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	if err := s.SetActive(ctx, req.ID); err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to update active theme"))
		return
	}
	activeID, err := s.ActiveID(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load active theme"))
		return
	}
	htmx.Trigger(w, r, htmx.ThemeChangedEvent)
	writeJSON(w, r, http.StatusOK, map[string]any{"activeId": activeID})
}

// GET /api/v1/themes/mode
func HandleModeGet(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	mode, err := s.Mode(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme mode"))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"mode": mode})
}

// PUT /api/v1/themes/mode
func HandleModeSet(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	var req modeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	if err := s.SetMode(ctx, models.Mode(req.Mode)); err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to update theme mode"))
		return
	}
	htmx.Trigger(w, r, htmx.ThemeChangedEvent)
	writeJSON(w, r, http.StatusOK, map[string]any{"mode": req.Mode})
}

// POST /api/v1/themes/contrast
func HandleContrast(w http.ResponseWriter, r *http.Request) {
	var req contrastRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if len(req.Tokens) > 0 {
		tokens := models.DefaultTokens()
		if err := setTokens(&tokens, req.Tokens); err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"checks": models.CheckContrast(tokens)})
		return
	}

	ratio, err := models.ContrastRatio(req.Foreground, req.Background)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to evaluate contrast"))
		return
	}
	resp := contrastResponse{
		Ratio: ratio,
		AA:    models.MeetsWCAG(ratio, models.LevelAA),
		AAA:   models.MeetsWCAG(ratio, models.LevelAAA),
		Grade: models.GradeFor(ratio),
	}
	if req.Level != "" {
		meets := models.MeetsWCAG(ratio, models.Level(req.Level))
		resp.Meets = &meets
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GET /theme.css
func HandleStylesheet(w http.ResponseWriter, r *http.Request) {
	s, ok := requireStore(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), themeQueryTimeout)
	defer cancel()

	active, err := s.Active(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load active theme"))
		return
	}
	mode, err := s.Mode(ctx)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err, "Failed to load theme mode"))
		return
	}

	root := layouts.NewRoot()
	layouts.Apply(root, active, mode)

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Theme-Id", active.ID)
	w.Header().Set("X-Theme-Mode-Class", root.Class())
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, root.Stylesheet()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write theme stylesheet")
	}
}

func (req themeRequest) applyTo(theme *models.Theme) error {
	theme.DisplayName = strings.TrimSpace(req.DisplayName)
	theme.Description = strings.TrimSpace(req.Description)
	if err := setTokens(&theme.Tokens, req.Tokens); err != nil {
		return err
	}

	if req.CSSVariables != nil {
		theme.CSSVariables = req.CSSVariables
	} else {
		theme.CSSVariables = models.DeriveCSSVariables(theme.Tokens)
	}

	if err := theme.Validate(); err != nil {
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
	return nil
}

func setTokens(tokens *models.Tokens, values map[string]string) error {
	for key, value := range values {
		if err := tokens.Set(key, strings.TrimSpace(value)); err != nil {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
		}
	}
	return nil
}

func decodeThemeRequest(r *http.Request) (themeRequest, error) {
	var req themeRequest
	return req, decodeAndValidate(r, &req)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if !apiutil.IsJSONRequest(r) {
		return apiutil.HandlerError{Status: http.StatusUnsupportedMediaType, Message: "Expected a JSON body"}
	}
	if err := apiutil.DecodeJSON(r, dst); err != nil {
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: fmt.Sprintf("Invalid JSON body: %v", err), Err: err}
	}
	return apiutil.ValidateStruct(dst)
}

// importBody accepts either a multipart upload in the "file" field or the
// export document as the raw request body.
func importBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile(importFileField)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return nil, nil, mapError(err, "Failed to read theme upload")
	}
	if err != nil {
		return nil, nil, apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Missing %q upload", importFileField),
			Err:     err,
		}
	}
	return file, func() { file.Close() }, nil
}

func mapError(err error, message string) error {
	var parseErr *themeio.ParseError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrPresetReadOnly):
		return apiutil.HandlerError{Status: http.StatusForbidden, Message: "Preset themes are read-only", Err: err}
	case errors.Is(err, themeio.ErrTooLarge), errors.As(err, &maxBytesErr):
		return apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "Theme file is too large", Err: err}
	case errors.Is(err, themeio.ErrInvalidFormat):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.As(err, &parseErr):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, models.ErrInvalidColor), errors.Is(err, models.ErrInvalidMode), errors.Is(err, models.ErrUnknownToken):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return apiutil.HandlerError{Status: http.StatusGatewayTimeout, Message: message, Err: err}
	default:
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: message, Err: err}
	}
}

func notFound() error {
	return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Theme not found"}
}

func readOnly(id string) error {
	return mapError(fmt.Errorf("%w: %s", store.ErrPresetReadOnly, id), "")
}

func toResponse(s *store.Store, theme models.Theme) themeResponse {
	return themeResponse{Theme: theme, Preset: s.IsPreset(theme.ID)}
}

func toResponses(s *store.Store, themes []models.Theme) []themeResponse {
	out := make([]themeResponse, 0, len(themes))
	for _, theme := range themes {
		out = append(out, toResponse(s, theme))
	}
	return out
}

func requireStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s := loadStore()
	if s == nil || serializer == nil {
		log.Ctx(r.Context()).Error().Msg("Theme handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write themes response")
	}
}

func loadStore() *store.Store {
	return themeStore
}
