package apiutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type samplePayload struct {
	Name string `json:"displayName" validate:"required,max=5"`
	Mode string `json:"mode" validate:"omitempty,oneof=light dark"`
}

func TestDecodeJSONRejectsUnknownAndTrailing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"displayName":"Ok"}`},
		{name: "unknown field", body: `{"displayName":"Ok","extra":1}`, wantErr: true},
		{name: "trailing data", body: `{"displayName":"Ok"}{}`, wantErr: true},
		{name: "malformed", body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var payload samplePayload
			err := DecodeJSON(req, &payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(samplePayload{Name: "Ok", Mode: "dark"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := ValidateStruct(samplePayload{Name: "", Mode: "sepia"})
	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) || handlerErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 HandlerError, got %v", err)
	}
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %T", handlerErr.Err)
	}
	fields := fieldErrs.Map()
	if fields["displayName"] != "is required" {
		t.Fatalf("displayName reason = %q", fields["displayName"])
	}
	if !strings.HasPrefix(fields["mode"], "must be one of") {
		t.Fatalf("mode reason = %q", fields["mode"])
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	WriteError(rec, req, HandlerError{Status: http.StatusNotFound, Message: "Theme not found"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Theme not found" {
		t.Fatalf("error = %v", body["error"])
	}

	rec = httptest.NewRecorder()
	WriteError(rec, req, errors.New("disk on fire"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Fatalf("internal error leaked to client: %s", rec.Body.String())
	}
}
