package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/moody/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a config template if none exists, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if loaded, err := shared.LoadConfig(configPath); err == nil {
				loaded.ApplyEnv()
				config = loaded
			}
		}
	} else if cmd.IsSet("config") {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		loaded.ApplyEnv()
		config = loaded
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", config.Database.Path, len(applied))
	r.writePlain("Next: fill in credentials in %s or .env, then run `moody spotify auth`\n", configPath)
	return nil
}

// SetupCheck reports which collaborators a run would use.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	check := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	creds := r.config.Credentials
	r.writePlainHeader("moody configuration")
	r.writePlain("%s Spotify app credentials\n", check(creds.Spotify.ClientID != "" && creds.Spotify.ClientSecret != ""))
	r.writePlain("%s Spotify token (moody spotify auth)\n", check(creds.Spotify.HasToken()))
	r.writePlain("%s Google Custom Search\n", check(creds.Google.APIKey != "" && creds.Google.CSEID != ""))
	r.writePlain("%s Completion endpoint %s (model %s)\n", check(r.config.LLM.Endpoint != "" || r.config.LLM.APIKey != ""), r.config.LLM.Endpoint, r.config.LLM.Model)
	r.writePlain("  Notes directory: %s\n", r.config.Notes.Dir)
	r.writePlain("  History database: %s\n", r.config.Database.Path)

	if err := r.config.Validate(); err != nil {
		r.writePlainln("Not ready: %v", err)
		return err
	}
	r.writePlainln("Ready to brew.")
	return nil
}
