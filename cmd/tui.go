package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/desertthunder/moody/internal/tasks"
	"github.com/desertthunder/moody/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/moody-tui.log"

// tuiLogPath is logging.file when configured, otherwise a file beside the working directory.
func tuiLogPath(cfg shared.LoggingConfig) string {
	if cfg.File != "" {
		return cfg.File
	}
	return defaultTUILog
}

// TUI launches the interactive mood playlist UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(r.config.Pipeline)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(tuiLogPath(r.config.Logging))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))

	previous := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(previous)

	notes, err := tasks.ListNotes(r.config.Notes.Dir)
	if err != nil {
		r.logger.Warn("notes unavailable", "error", err)
	}

	model := ui.NewModel(ctx, engine, ui.Options{
		Notes: notes,
		OnFinish: func(req tasks.MoodRequest, result *tasks.PlaylistResult, err error) {
			r.recordRun(req, result, err)
		},
	})

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
