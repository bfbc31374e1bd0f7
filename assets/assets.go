// assets/assets.go
package assets

import "embed"

// ThemesPath is the location of the preset theme catalog inside ThemesFS.
const ThemesPath = "themes.yaml"

//go:embed themes.yaml
var ThemesFS embed.FS
