package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moody/internal/formatter"
	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		switch models.RunStatus(status) {
		case models.RunSucceeded, models.RunPartial, models.RunFailed:
			criteria["status"] = status
		default:
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	switch strings.ToLower(cmd.String("format")) {
	case formatter.FormatJSON:
		data, err := formatter.RunsToJSON(runs)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", data)
	case formatter.FormatCSV:
		data, err := formatter.RunsToCSV(runs)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case "", formatter.FormatText:
	default:
		return fmt.Errorf("%w: unknown format %q (want text, json or csv)", shared.ErrInvalidArgument, cmd.String("format"))
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet. Try: moody create \"rainy sunday coffee\"\n")
	}

	for _, run := range runs {
		name := run.PlaylistName
		if name == "" {
			name = "-"
		}
		status := string(run.Status)
		if run.FailureKind != "" {
			status = fmt.Sprintf("%s (%s)", status, run.FailureKind)
		}
		r.writePlain("#%-4d %s  %-28s %-32s %2d tracks  %s\n",
			run.Sequence(),
			run.CreatedAt().Local().Format(time.DateTime),
			status,
			shared.Truncate(run.MoodPrompt, 32),
			run.TrackCount(),
			name,
		)
	}
	return nil
}

// HistoryShow prints one run in the requested format.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	run, err := r.lookupRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	data, err := formatter.Render(run, cmd.String("format"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// HistoryExport writes one run to a file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	run, err := r.lookupRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	path, err := formatter.WriteRunExport(run, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("run exported", "sequence", run.Sequence(), "path", path)
	return r.writePlain("✓ Run #%d exported to %s\n", run.Sequence(), path)
}

// HistoryDelete soft-deletes one run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	run, err := r.lookupRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}
	if err := repo.Delete(run.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Run #%d removed from history\n", run.Sequence())
}

// lookupRun accepts a run sequence number or ID.
func (r *Runner) lookupRun(ref string) (*models.Run, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return nil, fmt.Errorf("%w: run sequence or ID is required", shared.ErrMissingArgument)
	}

	repo, err := r.runRepository()
	if err != nil {
		return nil, err
	}
	if seq, convErr := strconv.Atoi(ref); convErr == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}
