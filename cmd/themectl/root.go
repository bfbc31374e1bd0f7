package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/adhikaar-ai/adhikaar/internal/config"
	"github.com/adhikaar-ai/adhikaar/internal/db"
	"github.com/adhikaar-ai/adhikaar/internal/store"
	"github.com/adhikaar-ai/adhikaar/internal/themeio"
)

const configPathEnv = "ADHIKAAR_CONFIG"

var errThemeNotFound = errors.New("theme not found")

// cli carries the flags shared by every subcommand.
type cli struct {
	configPath string
	dbPath     string
	jsonOutput bool
	verbose    bool
	now        func() time.Time
}

// session is an open store for the duration of one command.
type session struct {
	cfg        *config.Config
	themes     *store.Store
	serializer *themeio.Serializer
	close      func() error
}

func newRootCmd() *cobra.Command {
	app := &cli{now: time.Now}

	rootCmd := &cobra.Command{
		Use:           "themectl",
		Short:         "Manage Adhikaar themes",
		Long:          "Inspect, activate, duplicate, delete, restore, import and export Adhikaar themes.",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if app.verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", os.Getenv(configPathEnv), "path to the server config file")
	flags.StringVar(&app.dbPath, "db", "", "SQLite database file (overrides the config)")
	flags.BoolVar(&app.jsonOutput, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newListCmd(app),
		newDeletedCmd(app),
		newShowCmd(app),
		newActivateCmd(app),
		newModeCmd(app),
		newDuplicateCmd(app),
		newDeleteCmd(app),
		newRestoreCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newContrastCmd(app),
		newPurgeCmd(app),
	)
	return rootCmd
}

func (c *cli) open() (*session, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Filename = c.dbPath
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("themectl needs a sqlite database, config uses %q", cfg.Database.Driver)
	}

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	presets, err := db.ParseThemesFile()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("load theme presets: %w", err)
	}
	themes, err := store.New(database, presets,
		store.WithDefaultID(db.DefaultPresetID()),
		store.WithDefaultMode(cfg.DefaultMode()),
		store.WithClock(c.now),
	)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &session{
		cfg:        cfg,
		themes:     themes,
		serializer: themeio.New(themes, themeio.WithClock(c.now)),
		close:      database.Close,
	}, nil
}

// run opens a session, hands it to fn and always closes it.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := c.open()
	if err != nil {
		return err
	}
	defer s.close()

	ctx := log.Logger.WithContext(cmd.Context())
	return fn(ctx, s)
}
