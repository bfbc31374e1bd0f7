package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

func newListCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presets and custom themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				all, err := s.themes.ListAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list themes: %w", err)
				}
				activeID, err := s.themes.ActiveID(ctx)
				if err != nil {
					return fmt.Errorf("failed to load active theme: %w", err)
				}
				mode, err := s.themes.Mode(ctx)
				if err != nil {
					return fmt.Errorf("failed to load theme mode: %w", err)
				}

				if app.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"themes":   all,
						"activeId": activeID,
						"mode":     mode,
					})
				}

				rows := make([][]string, 0, len(all))
				for _, theme := range all {
					marker := ""
					if theme.ID == activeID {
						marker = activeStyle.Render("*")
					}
					rows = append(rows, []string{
						marker,
						theme.ID,
						theme.DisplayName,
						kindOf(s.themes.IsPreset(theme.ID)),
						contrastSummary(theme.Tokens),
					})
				}
				if err := writeTable(cmd.OutOrStdout(), []string{"", "ID", "NAME", "KIND", "CONTRAST"}, rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nmode: %s\n", mode)
				return nil
			})
		},
	}
}

func newDeletedCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "deleted",
		Short: "List soft-deleted themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				deleted, err := s.themes.ListDeleted(ctx)
				if err != nil {
					return fmt.Errorf("failed to list deleted themes: %w", err)
				}
				if app.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), deleted)
				}
				if len(deleted) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No deleted themes.")
					return nil
				}

				rows := make([][]string, 0, len(deleted))
				for _, theme := range deleted {
					rows = append(rows, []string{theme.ID, theme.DisplayName, formatTime(theme.DeletedAt)})
				}
				return writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "DELETED"}, rows)
			})
		},
	}
}

func newShowCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a theme and its contrast checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				theme, err := s.themes.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to load theme: %w", err)
				}
				if theme == nil {
					return fmt.Errorf("%w: %s", errThemeNotFound, args[0])
				}

				checks := models.CheckContrast(theme.Tokens)
				if app.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"theme":    theme,
						"preset":   s.themes.IsPreset(theme.ID),
						"contrast": checks,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s, %s)\n", theme.DisplayName, theme.ID, kindOf(s.themes.IsPreset(theme.ID)))
				if theme.Description != "" {
					fmt.Fprintln(out, theme.Description)
				}
				fmt.Fprintln(out)

				rows := make([][]string, 0, len(models.TokenKeys()))
				for _, key := range models.TokenKeys() {
					value, _ := theme.Tokens.Get(key)
					rows = append(rows, []string{key, value})
				}
				if err := writeTable(out, []string{"TOKEN", "VALUE"}, rows); err != nil {
					return err
				}
				fmt.Fprintln(out)

				rows = rows[:0]
				for _, check := range checks {
					ratio := fmt.Sprintf("%.2f:1", check.Ratio)
					if check.Error != "" {
						ratio = check.Error
					}
					rows = append(rows, []string{check.Label, ratio, gradeBadge(check.Grade)})
				}
				return writeTable(out, []string{"PAIR", "RATIO", "GRADE"}, rows)
			})
		},
	}
}

func newActivateCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a theme the active theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.themes.SetActive(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to activate theme: %w", err)
				}
				activeID, err := s.themes.ActiveID(ctx)
				if err != nil {
					return fmt.Errorf("failed to load active theme: %w", err)
				}
				if activeID != args[0] {
					return fmt.Errorf("%w: %s (active theme is %s)", errThemeNotFound, args[0], activeID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active theme: %s\n", activeID)
				return nil
			})
		},
	}
}

func newModeCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mode [light|dark|system|high_contrast]",
		Short: "Show or set the display mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				if len(args) == 1 {
					mode, err := models.ParseMode(args[0])
					if err != nil {
						return err
					}
					if err := s.themes.SetMode(ctx, mode); err != nil {
						return fmt.Errorf("failed to set mode: %w", err)
					}
				}
				mode, err := s.themes.Mode(ctx)
				if err != nil {
					return fmt.Errorf("failed to load mode: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", mode)
				return nil
			})
		},
	}
}

func newDuplicateCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a theme into a new custom theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				copied, err := s.themes.Duplicate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to duplicate theme: %w", err)
				}
				if copied == nil {
					return fmt.Errorf("%w: %s", errThemeNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", copied.ID, copied.DisplayName)
				return nil
			})
		},
	}
}

func newDeleteCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Move a custom theme to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				id := args[0]
				if s.themes.IsPreset(id) {
					return fmt.Errorf("%s is a preset theme and cannot be deleted", id)
				}
				theme, err := s.themes.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to load theme: %w", err)
				}
				if theme == nil {
					return fmt.Errorf("%w: %s", errThemeNotFound, id)
				}
				if err := s.themes.SoftDelete(ctx, id); err != nil {
					return fmt.Errorf("failed to delete theme: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (restore with: themectl restore %s)\n", id, id)
				return nil
			})
		},
	}
}

func newRestoreCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a soft-deleted theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				restored, err := s.themes.Restore(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to restore theme: %w", err)
				}
				if restored == nil {
					return fmt.Errorf("%w in trash: %s", errThemeNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (%s)\n", restored.ID, restored.DisplayName)
				return nil
			})
		},
	}
}

func newExportCmd(app *cli) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a theme to <id>.adhikaar-theme.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				file, err := s.serializer.Export(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to export theme: %w", err)
				}
				if file == nil {
					return fmt.Errorf("%w: %s", errThemeNotFound, args[0])
				}
				if outDir == "-" {
					_, err := file.WriteTo(cmd.OutOrStdout())
					return err
				}
				path, err := file.SaveToDir(outDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", `output directory, or "-" for stdout`)
	return cmd
}

func newImportCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a theme export file as a new custom theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return app.run(cmd, func(ctx context.Context, s *session) error {
				imported, err := s.serializer.Import(ctx, f)
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", imported.ID, imported.DisplayName)
				return nil
			})
		},
	}
}

func newContrastCmd(app *cli) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "contrast <foreground> <background>",
		Short: "Compute the WCAG contrast ratio of two hex colors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratio, err := models.ContrastRatio(args[0], args[1])
			if err != nil {
				return err
			}
			grade := models.GradeFor(ratio)
			if app.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"ratio": ratio,
					"grade": grade,
					"meets": models.MeetsWCAG(ratio, models.Level(level)),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f:1 %s\n", ratio, gradeBadge(grade))
			if !models.MeetsWCAG(ratio, models.Level(level)) {
				return fmt.Errorf("contrast %.2f:1 does not meet WCAG %s", ratio, level)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", string(models.LevelAA), "required WCAG level (AA or AAA)")
	return cmd
}

func newPurgeCmd(app *cli) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove themes deleted longer ago than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, s *session) error {
				retention := olderThan
				if retention <= 0 {
					retention = s.cfg.Retention()
				}
				purged, err := s.themes.PurgeDeleted(ctx, app.now().Add(-retention))
				if err != nil {
					return fmt.Errorf("failed to purge themes: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d theme(s)\n", purged)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention period (defaults to the configured retention_days)")
	return cmd
}
