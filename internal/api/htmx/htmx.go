package htmx

import (
	"net/http"
	"strings"
)

// ThemeChangedEvent tells htmx pages to reload /theme.css.
const ThemeChangedEvent = "theme-changed"

func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// Trigger adds event to the HX-Trigger response header of an htmx request.
// Non-htmx requests are left untouched.
func Trigger(w http.ResponseWriter, r *http.Request, event string) {
	if !IsRequest(r) {
		return
	}
	if existing := w.Header().Get("HX-Trigger"); existing != "" {
		event = existing + ", " + event
	}
	w.Header().Set("HX-Trigger", event)
}
