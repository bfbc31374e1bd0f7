package models

import "testing"

func TestDeriveCSSVariables(t *testing.T) {
	tokens := DefaultTokens()
	tokens.SurfaceBackground = "#FFFFFF"
	tokens.TextPrimary = "#000000"
	tokens.BrandPrimary = "#FF0000"

	vars := DeriveCSSVariables(tokens)

	tests := map[string]string{
		"--background":         "0 0% 100%",
		"--foreground":         "0 0% 0%",
		"--card-foreground":    "0 0% 0%",
		"--primary":            "0 100% 50%",
		"--primary-foreground": "0 0% 0%",
	}
	for name, want := range tests {
		if got := vars[name]; got != want {
			t.Fatalf("%s = %q, want %q", name, got, want)
		}
	}
	for _, name := range []string{"--card", "--secondary", "--secondary-foreground", "--success", "--warning", "--destructive", "--muted-foreground"} {
		if vars[name] == "" {
			t.Fatalf("%s not derived", name)
		}
	}
}

func TestDeriveCSSVariablesSkipsNonHex(t *testing.T) {
	tokens := DefaultTokens()
	tokens.BrandPrimary = "hsl(167 74% 54%)"

	vars := DeriveCSSVariables(tokens)
	if _, ok := vars["--primary"]; ok {
		t.Fatalf("--primary derived from non-hex token: %q", vars["--primary"])
	}
	if _, ok := vars["--primary-foreground"]; ok {
		t.Fatalf("--primary-foreground derived from non-hex token")
	}
	if vars["--background"] == "" {
		t.Fatalf("--background missing")
	}
}
