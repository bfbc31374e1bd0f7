package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMode = errors.New("invalid theme mode")

// Mode is the persisted display mode.
type Mode string

const (
	ModeLight        Mode = "light"
	ModeDark         Mode = "dark"
	ModeSystem       Mode = "system"
	ModeHighContrast Mode = "high_contrast"

	DefaultMode = ModeDark
)

func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.TrimSpace(raw)); mode {
	case ModeLight, ModeDark, ModeSystem, ModeHighContrast:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q (want light, dark, system or high_contrast)", ErrInvalidMode, raw)
}

// Class is the root class name the mode projects to. There is no OS
// preference detection, so system renders as dark.
func (m Mode) Class() string {
	switch m {
	case ModeLight:
		return "light"
	case ModeHighContrast:
		return "high-contrast"
	default:
		return "dark"
	}
}
