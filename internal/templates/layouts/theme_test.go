package layouts

import (
	"testing"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

func TestApplySetsVariablesAndModeClass(t *testing.T) {
	root := NewRoot()
	theme := models.Theme{
		ID: "custom_1",
		CSSVariables: map[string]string{
			"--primary":    "167 74% 54%",
			"--background": "213 29% 6%",
		},
	}

	Apply(root, theme, models.ModeLight)

	if got, _ := root.Property("--primary"); got != "167 74% 54%" {
		t.Fatalf("--primary = %q", got)
	}
	if got := root.Class(); got != "light" {
		t.Fatalf("class = %q, want light", got)
	}
}

func TestApplyModeClasses(t *testing.T) {
	tests := []struct {
		mode models.Mode
		want string
	}{
		{mode: models.ModeLight, want: "light"},
		{mode: models.ModeDark, want: "dark"},
		{mode: models.ModeSystem, want: "dark"},
		{mode: models.ModeHighContrast, want: "high-contrast"},
	}

	root := NewRoot()
	for _, tt := range tests {
		Apply(root, models.Theme{}, tt.mode)
		if got := root.Class(); got != tt.want {
			t.Fatalf("Apply(%s) class = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestApplyKeepsStaleProperties(t *testing.T) {
	root := NewRoot()
	Apply(root, models.Theme{CSSVariables: map[string]string{"--only-first": "1 1% 1%", "--primary": "1 1% 1%"}}, models.ModeDark)
	Apply(root, models.Theme{CSSVariables: map[string]string{"--primary": "2 2% 2%"}}, models.ModeDark)

	if got, ok := root.Property("--only-first"); !ok || got != "1 1% 1%" {
		t.Fatalf("--only-first = %q, %v; want kept", got, ok)
	}
	if got, _ := root.Property("--primary"); got != "2 2% 2%" {
		t.Fatalf("--primary = %q, want last write", got)
	}

	root.Reset()
	if _, ok := root.Property("--only-first"); ok {
		t.Fatalf("expected Reset to clear properties")
	}
	if root.Class() != "" {
		t.Fatalf("expected Reset to clear class")
	}
}

func TestStylesheet(t *testing.T) {
	root := NewRoot()
	root.SetProperty("--primary", "167 74% 54%")
	root.SetProperty("--background", "213 29% 6%")
	root.SetProperty("--evil", "red;}body{display:none")
	root.SetProperty("color", "red")
	root.SetProperty("--empty", " ")

	want := ":root{--background:213 29% 6%;--primary:167 74% 54%;}"
	if got := root.Stylesheet(); got != want {
		t.Fatalf("Stylesheet() = %q, want %q", got, want)
	}
}

func TestZeroRootIsUsable(t *testing.T) {
	var root Root
	root.SetProperty("--primary", "1 1% 1%")
	if got := root.Stylesheet(); got != ":root{--primary:1 1% 1%;}" {
		t.Fatalf("Stylesheet() = %q", got)
	}
}
