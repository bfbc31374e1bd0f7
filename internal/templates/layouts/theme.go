package layouts

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

var cssVarNameRegex = regexp.MustCompile(`^--[A-Za-z0-9-]+$`)

// Surface is the styled document root a theme is projected onto.
type Surface interface {
	SetProperty(name, value string)
	SetModeClass(class string)
}

// Apply writes every css variable of theme onto s and then sets the single
// mode class. Properties set by an earlier theme are not cleared.
func Apply(s Surface, theme models.Theme, mode models.Mode) {
	for _, name := range slices.Sorted(maps.Keys(theme.CSSVariables)) {
		s.SetProperty(name, theme.CSSVariables[name])
	}
	s.SetModeClass(mode.Class())
}

// Root is an in-memory document root. The zero value is ready to use.
type Root struct {
	mu         sync.RWMutex
	properties map[string]string
	class      string
}

func NewRoot() *Root {
	return &Root{}
}

func (r *Root) SetProperty(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.properties == nil {
		r.properties = make(map[string]string)
	}
	r.properties[name] = value
}

// SetModeClass replaces the current mode class, so at most one is present.
func (r *Root) SetModeClass(class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.class = class
}

func (r *Root) Property(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.properties[name]
	return value, ok
}

func (r *Root) Class() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.class
}

// Reset drops every property and the mode class.
func (r *Root) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties = nil
	r.class = ""
}

// Stylesheet renders the properties as a :root rule in name order. Names or
// values that could break out of the declaration block are skipped.
func (r *Root) Stylesheet() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString(":root{")
	for _, name := range slices.Sorted(maps.Keys(r.properties)) {
		value := strings.TrimSpace(r.properties[name])
		if !cssVarNameRegex.MatchString(name) || !safeCSSValue(value) {
			continue
		}
		fmt.Fprintf(&b, "%s:%s;", name, value)
	}
	b.WriteString("}")
	return b.String()
}

func safeCSSValue(value string) bool {
	return value != "" && !strings.ContainsAny(value, ";{}<>\\")
}
