package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

const tablePadding = 2

var (
	gradeStyles = map[models.Grade]lipgloss.Style{
		models.GradeAAA:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#15C27E")),
		models.GradeAA:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#35E0B8")),
		models.GradeFail:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E25555")),
		models.GradeInvalid: lipgloss.NewStyle().Faint(true),
	}
	activeStyle = lipgloss.NewStyle().Bold(true)
)

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(out, 0, 0, tablePadding, ' ', tabwriter.StripEscape)
	if len(headers) > 0 {
		fmt.Fprintln(writer, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	return writer.Flush()
}

func writeJSON(out io.Writer, payload any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func gradeBadge(grade models.Grade) string {
	style, ok := gradeStyles[grade]
	if !ok {
		return string(grade)
	}
	return style.Render(string(grade))
}

// contrastSummary renders the editor checks as "AAA/AA" style badges.
func contrastSummary(tokens models.Tokens) string {
	checks := models.CheckContrast(tokens)
	badges := make([]string, 0, len(checks))
	for _, check := range checks {
		badges = append(badges, gradeBadge(check.Grade))
	}
	return strings.Join(badges, "/")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func kindOf(preset bool) string {
	if preset {
		return "preset"
	}
	return "custom"
}
