package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/huh/spinner"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/desertthunder/moody/internal/tasks"
	"github.com/urfave/cli/v3"
)

// createOutput is the --json shape of `moody create`.
type createOutput struct {
	Status      string                `json:"status"`
	Sequence    int                   `json:"sequence,omitempty"`
	Result      *tasks.PlaylistResult `json:"result,omitempty"`
	FailureKind string                `json:"failure_kind,omitempty"`
	Error       string                `json:"error,omitempty"`
	PlaylistID  string                `json:"playlist_id,omitempty"`
	Diagnostics *tasks.Diagnostics    `json:"diagnostics,omitempty"`
}

// Create runs the pipeline once for the mood given as arguments.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	mood := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if mood == "" {
		return fmt.Errorf("%w: a mood prompt is required, e.g. moody create \"rainy sunday coffee\"", shared.ErrMissingArgument)
	}

	pipeline := r.config.Pipeline
	if n := cmd.Int("queries"); n > 0 {
		pipeline.QueryCount = n
	}
	if n := cmd.Int("workers"); n > 0 {
		pipeline.ResolveWorkers = n
	}
	if n := cmd.Int("attempts"); n > 0 {
		pipeline.MaxAttempts = n
	}
	if cmd.Bool("dedupe") {
		pipeline.DedupeTracks = true
	}

	engine, err := r.engine(pipeline)
	if err != nil {
		return err
	}

	req := tasks.MoodRequest{MoodPrompt: mood, NotesPath: cmd.String("notes")}
	logger := shared.WithLogger(r.logger, "mood", shared.Truncate(mood, 40))
	logger.Info("starting playlist run", "notes", req.NotesPath, "queries", pipeline.QueryCount, "workers", pipeline.ResolveWorkers)

	progress := make(chan tasks.ProgressUpdate, 64)
	var drained sync.WaitGroup
	drained.Add(1)
	go func() {
		defer drained.Done()
		for update := range progress {
			if update.Phase == tasks.PhaseFailed {
				logger.Warn(update.Message, "phase", update.Phase)
				continue
			}
			logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	var result *tasks.PlaylistResult
	brew := func(ctx context.Context) error {
		var runErr error
		result, runErr = engine.RunWithRetry(ctx, req, progress)
		return runErr
	}

	if r.spinners && !cmd.Bool("json") {
		err = spinner.New().Title(fmt.Sprintf("Brewing a playlist for %q...", mood)).Context(ctx).ActionWithErr(brew).Run()
	} else {
		err = brew(ctx)
	}
	close(progress)
	drained.Wait()

	if err != nil && !isRunOutcome(err) {
		return err
	}

	sequence := 0
	if !cmd.Bool("no-history") {
		sequence = r.recordRun(req, result, err)
	}

	if cmd.Bool("json") {
		if jsonErr := r.writeJSON(newCreateOutput(sequence, result, err), cmd.Bool("pretty")); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	if err != nil {
		r.printFailure(err)
		return err
	}

	logger.Info("playlist created", "id", result.PlaylistID, "tracks", result.TrackCount)
	r.printResult(sequence, result)
	return nil
}

// isRunOutcome reports whether err came out of a pipeline run rather than input or setup.
func isRunOutcome(err error) bool {
	_, ok := tasks.AsFailure(err)
	return ok
}

func newCreateOutput(sequence int, result *tasks.PlaylistResult, err error) createOutput {
	if err == nil {
		return createOutput{Status: "succeeded", Sequence: sequence, Result: result}
	}

	out := createOutput{Status: "failed", Sequence: sequence, Error: err.Error()}
	if f, ok := tasks.AsFailure(err); ok {
		out.FailureKind = string(f.Kind)
		out.PlaylistID = f.PlaylistID
		out.Diagnostics = &f.Diagnostics
		if f.Partial() {
			out.Status = "partial"
		}
	}
	return out
}

func (r *Runner) printResult(sequence int, result *tasks.PlaylistResult) {
	r.writePlainHeader(result.PlaylistName)
	r.writePlain("Mood:     %s\n", result.MoodPrompt)
	r.writePlain("Playlist: https://open.spotify.com/playlist/%s\n", result.PlaylistID)
	r.writePlain("Tracks:   %d\n", result.TrackCount)
	if sequence > 0 {
		r.writePlain("Run:      #%d (moody history show %d)\n", sequence, sequence)
	}

	r.writePlain("\n")
	for i, t := range result.Diagnostics.Tracks {
		if t.Title != "" {
			r.writePlain("%2d. %s - %s\n", i+1, t.Artist, t.Title)
		} else {
			r.writePlain("%2d. %s\n", i+1, t.ID)
		}
		r.writePlain("    ← %s\n", t.Query)
	}
}

func (r *Runner) printFailure(err error) {
	f, ok := tasks.AsFailure(err)
	if !ok {
		return
	}

	r.writePlainln("✗ Run failed: %s", f.Kind)
	r.writePlain("  Reached: %s\n", f.Phase)
	if f.Err != nil {
		r.writePlain("  Cause:   %v\n", f.Err)
	}
	if f.Partial() {
		r.writePlain("  A playlist was created but is incomplete: https://open.spotify.com/playlist/%s\n", f.PlaylistID)
	}
	if errors.Is(err, tasks.ErrNoTracksFound) && len(f.Diagnostics.Queries) > 0 {
		r.writePlain("  Queries tried:\n")
		for _, q := range f.Diagnostics.Queries {
			r.writePlain("    - %s\n", q)
		}
	}
}
