package themes

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adhikaar-ai/adhikaar/internal/store"
	"github.com/adhikaar-ai/adhikaar/internal/testutil"
	"github.com/adhikaar-ai/adhikaar/internal/themeio"
)

var handlerTime = time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC)

type listResponse struct {
	Themes []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Preset      bool   `json:"preset"`
	} `json:"themes"`
	ActiveID string `json:"activeId"`
	Mode     string `json:"mode"`
}

type themeBody struct {
	ID           string            `json:"id"`
	DisplayName  string            `json:"displayName"`
	Tokens       map[string]string `json:"tokens"`
	CSSVariables map[string]string `json:"cssVariables"`
	Preset       bool              `json:"preset"`
	DeletedAt    *time.Time        `json:"deletedAt"`
}

func setupThemeHandlers(t *testing.T) *http.ServeMux {
	t.Helper()

	clock := func() time.Time { return handlerTime }
	s := testutil.NewThemeStore(t, store.WithClock(clock))

	themeStore = nil
	serializer = nil
	initOnce = sync.Once{}
	InitHandlers(s, themeio.New(s, themeio.WithClock(clock)))

	t.Cleanup(func() {
		themeStore = nil
		serializer = nil
		initOnce = sync.Once{}
	})

	mux := http.NewServeMux()
	RegisterRoutes(mux)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
}

func createTheme(t *testing.T, mux *http.ServeMux, name string) themeBody {
	t.Helper()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes", `{"displayName":"`+name+`","tokens":{"brand.primary":"#3366FF"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created themeBody
	decodeBody(t, rec, &created)
	return created
}

func TestHandleThemesListDefaults(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/themes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp listResponse
	decodeBody(t, rec, &resp)
	if resp.ActiveID != "mint" {
		t.Fatalf("activeId = %q, want mint", resp.ActiveID)
	}
	if resp.Mode != "dark" {
		t.Fatalf("mode = %q, want dark", resp.Mode)
	}
	want := []string{"mint", "success", "indigo", "warning"}
	if len(resp.Themes) != len(want) {
		t.Fatalf("got %d themes, want %d", len(resp.Themes), len(want))
	}
	for i, id := range want {
		if resp.Themes[i].ID != id || !resp.Themes[i].Preset {
			t.Fatalf("theme[%d] = %+v, want preset %s", i, resp.Themes[i], id)
		}
	}
}

func TestHandleThemeCreateDerivesCSSVariables(t *testing.T) {
	mux := setupThemeHandlers(t)

	created := createTheme(t, mux, "Ocean")
	if !strings.HasPrefix(created.ID, store.CustomIDPrefix) {
		t.Fatalf("id = %q, want custom_ prefix", created.ID)
	}
	if created.Preset {
		t.Fatalf("expected custom theme to not be a preset")
	}
	if created.Tokens["brand.primary"] != "#3366FF" {
		t.Fatalf("brand.primary = %q", created.Tokens["brand.primary"])
	}
	if created.CSSVariables["--primary"] != "225 100% 60%" {
		t.Fatalf("--primary = %q", created.CSSVariables["--primary"])
	}
}

func TestHandleThemeCreateValidation(t *testing.T) {
	mux := setupThemeHandlers(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "missing name", body: `{"tokens":{}}`, want: http.StatusBadRequest},
		{name: "unknown token", body: `{"displayName":"X","tokens":{"brand.tertiary":"#000000"}}`, want: http.StatusBadRequest},
		{name: "bad hex", body: `{"displayName":"X","tokens":{"brand.primary":"#12345"}}`, want: http.StatusBadRequest},
		{name: "unknown field", body: `{"displayName":"X","extra":true}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{"displayName":`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleThemeUpdate(t *testing.T) {
	mux := setupThemeHandlers(t)
	created := createTheme(t, mux, "Ocean")

	rec := doRequest(t, mux, http.MethodPut, "/api/v1/themes/"+created.ID, `{"displayName":"Deep Ocean","tokens":{"surface.background":"#001122"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated themeBody
	decodeBody(t, rec, &updated)
	if updated.DisplayName != "Deep Ocean" {
		t.Fatalf("displayName = %q", updated.DisplayName)
	}
	if updated.Tokens["brand.primary"] != "#3366FF" {
		t.Fatalf("expected untouched tokens to be kept, got %q", updated.Tokens["brand.primary"])
	}
	if updated.Tokens["surface.background"] != "#001122" {
		t.Fatalf("surface.background = %q", updated.Tokens["surface.background"])
	}

	rec = doRequest(t, mux, http.MethodPut, "/api/v1/themes/mint", `{"displayName":"Hijack"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("preset update status = %d, want 403", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodPut, "/api/v1/themes/custom_missing", `{"displayName":"Ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing update status = %d, want 404", rec.Code)
	}
}

func TestHandleThemeDeleteAndRestore(t *testing.T) {
	mux := setupThemeHandlers(t)
	created := createTheme(t, mux, "Ocean")

	rec := doRequest(t, mux, http.MethodPut, "/api/v1/themes/active", `{"id":"`+created.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/v1/themes/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/active", "")
	var active struct {
		ActiveID string `json:"activeId"`
	}
	decodeBody(t, rec, &active)
	if active.ActiveID != "mint" {
		t.Fatalf("activeId after delete = %q, want mint", active.ActiveID)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/deleted", "")
	var deleted listResponse
	decodeBody(t, rec, &deleted)
	if len(deleted.Themes) != 1 || deleted.Themes[0].ID != created.ID {
		t.Fatalf("deleted = %+v", deleted.Themes)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/"+created.ID+"/restore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body %s", rec.Code, rec.Body.String())
	}
	var restored themeBody
	decodeBody(t, rec, &restored)
	if restored.DeletedAt != nil || restored.DisplayName != "Ocean" {
		t.Fatalf("restored = %+v", restored)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/"+created.ID+"/restore", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second restore status = %d, want 404", rec.Code)
	}
}

func TestHandleThemeDeletePreset(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodDelete, "/api/v1/themes/mint", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/mint", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preset lookup status = %d", rec.Code)
	}
}

func TestHandleThemeDuplicate(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes/mint/duplicate", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var copied themeBody
	decodeBody(t, rec, &copied)
	if copied.DisplayName != "Adhikaar Mint (Copy)" {
		t.Fatalf("displayName = %q", copied.DisplayName)
	}
	if !strings.HasPrefix(copied.ID, "mint_copy_") || copied.Preset {
		t.Fatalf("copy = %+v", copied)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/nope/duplicate", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing duplicate status = %d, want 404", rec.Code)
	}
}

func TestHandleThemeExportImport(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/themes/indigo/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=indigo.adhikaar-theme.json" {
		t.Fatalf("Content-Disposition = %q", got)
	}
	exported := rec.Body.String()

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/import", exported)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	var imported themeBody
	decodeBody(t, rec, &imported)
	if !strings.HasPrefix(imported.ID, themeio.ImportIDPrefix) {
		t.Fatalf("imported id = %q", imported.ID)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "indigo.adhikaar-theme.json")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(exported)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/themes/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("multipart import status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/nope/export", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing export status = %d, want 404", rec.Code)
	}
}

func TestHandleThemeImportRejectsBadFiles(t *testing.T) {
	mux := setupThemeHandlers(t)

	for _, body := range []string{`{oops`, `{"theme":{}}`, `{"version":"1.0.0"}`} {
		rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes/import", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("import %s status = %d, want 400", body, rec.Code)
		}
	}

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/themes", "")
	var resp listResponse
	decodeBody(t, rec, &resp)
	if len(resp.Themes) != 4 {
		t.Fatalf("expected no themes added, got %d", len(resp.Themes))
	}
}

func TestHandleThemeImportTooLarge(t *testing.T) {
	mux := setupThemeHandlers(t)
	oversized := `{"version":"1.0.0","theme":{"displayName":"Big","description":"` + strings.Repeat("a", 2<<20) + `"}}`
	justOver := `{"version":"1.0.0","theme":{"displayName":"Big","description":"` + strings.Repeat("a", themeio.MaxImportSize) + `"}}`

	for name, payload := range map[string]string{"over body cap": oversized, "over file limit": justOver} {
		rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes/import", payload)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("raw %s status = %d, want 413 (body %s)", name, rec.Code, rec.Body.String())
		}

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", "big.adhikaar-theme.json")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(payload)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close multipart: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/themes/import", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("multipart %s status = %d, want 413 (body %s)", name, rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/themes", "")
	var resp listResponse
	decodeBody(t, rec, &resp)
	if len(resp.Themes) != 4 {
		t.Fatalf("expected no themes added, got %d", len(resp.Themes))
	}
}

func TestHandleModeAndActive(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodPut, "/api/v1/themes/mode", `{"mode":"high_contrast"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("mode status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, mux, http.MethodPut, "/api/v1/themes/mode", `{"mode":"sepia"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid mode status = %d, want 400", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodGet, "/api/v1/themes/mode", "")
	var mode struct {
		Mode string `json:"mode"`
	}
	decodeBody(t, rec, &mode)
	if mode.Mode != "high_contrast" {
		t.Fatalf("mode = %q", mode.Mode)
	}

	rec = doRequest(t, mux, http.MethodPut, "/api/v1/themes/active", `{"id":"ghost"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d", rec.Code)
	}
	var active struct {
		ActiveID string `json:"activeId"`
	}
	decodeBody(t, rec, &active)
	if active.ActiveID != "mint" {
		t.Fatalf("activeId = %q, want fallback mint", active.ActiveID)
	}
}

func TestHandleActiveSetTriggersHTMXEvent(t *testing.T) {
	mux := setupThemeHandlers(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/themes/active", strings.NewReader(`{"id":"indigo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("HX-Trigger"); got != "theme-changed" {
		t.Fatalf("HX-Trigger = %q, want theme-changed", got)
	}

	rec = doRequest(t, mux, http.MethodPut, "/api/v1/themes/active", `{"id":"mint"}`)
	if got := rec.Header().Get("HX-Trigger"); got != "" {
		t.Fatalf("HX-Trigger on JSON client = %q, want empty", got)
	}
}

func TestHandleContrast(t *testing.T) {
	mux := setupThemeHandlers(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/themes/contrast", `{"foreground":"#000000","background":"#FFFFFF","level":"AAA"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Ratio float64 `json:"ratio"`
		AA    bool    `json:"aa"`
		AAA   bool    `json:"aaa"`
		Grade string  `json:"grade"`
		Meets *bool   `json:"meets"`
	}
	decodeBody(t, rec, &resp)
	if resp.Ratio < 20.99 || resp.Ratio > 21.01 || !resp.AA || !resp.AAA || resp.Grade != "AAA" {
		t.Fatalf("unexpected contrast response %+v", resp)
	}
	if resp.Meets == nil || !*resp.Meets {
		t.Fatalf("expected meets=true for AAA")
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/contrast", `{"foreground":"rgba(0,0,0,1)","background":"#FFFFFF"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid color status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/themes/contrast", `{"tokens":{"text.primary":"#FFFFFF","surface.background":"#000000"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("tokens status = %d, body %s", rec.Code, rec.Body.String())
	}
	var checks struct {
		Checks []struct {
			Label string `json:"label"`
			Grade string `json:"grade"`
		} `json:"checks"`
	}
	decodeBody(t, rec, &checks)
	if len(checks.Checks) != 2 || checks.Checks[0].Label != "Text/Background" || checks.Checks[0].Grade != "AAA" {
		t.Fatalf("checks = %+v", checks.Checks)
	}
}

func TestHandleStylesheet(t *testing.T) {
	mux := setupThemeHandlers(t)

	doRequest(t, mux, http.MethodPut, "/api/v1/themes/mode", `{"mode":"light"}`)
	rec := doRequest(t, mux, http.MethodGet, "/theme.css", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/css") {
		t.Fatalf("Content-Type = %q", got)
	}
	if rec.Header().Get("X-Theme-Mode-Class") != "light" {
		t.Fatalf("mode class = %q", rec.Header().Get("X-Theme-Mode-Class"))
	}
	css := rec.Body.String()
	if !strings.HasPrefix(css, ":root{") || !strings.Contains(css, "--primary:167 74% 54%;") {
		t.Fatalf("stylesheet = %q", css)
	}
}

func TestHandlersRequireInit(t *testing.T) {
	themeStore = nil
	serializer = nil
	initOnce = sync.Once{}

	mux := http.NewServeMux()
	RegisterRoutes(mux)
	rec := doRequest(t, mux, http.MethodGet, "/api/v1/themes", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
