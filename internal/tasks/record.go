package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/moody/internal/models"
)

// NewRunRecord converts the outcome of [MoodEngine.Run] into a history record.
// Exactly one of result and err is expected to be non-nil.
func NewRunRecord(req MoodRequest, result *PlaylistResult, err error) (*models.Run, error) {
	var (
		run  *models.Run
		diag Diagnostics
	)

	switch f, isFailure := AsFailure(err); {
	case err == nil && result != nil:
		run = models.NewRun(0, req.MoodPrompt, req.NotesPath, models.RunSucceeded)
		run.PlaylistID = result.PlaylistID
		run.PlaylistName = result.PlaylistName
		run.TrackIDs = result.TrackIDs
		diag = result.Diagnostics
	case isFailure:
		status := models.RunFailed
		if f.Partial() {
			status = models.RunPartial
		}
		run = models.NewRun(0, req.MoodPrompt, req.NotesPath, status)
		run.FailureKind = string(f.Kind)
		run.Error = f.Error()
		run.PlaylistID = f.PlaylistID
		if f.Title() != "" {
			run.PlaylistName = f.Title()
		}
		for _, t := range f.Diagnostics.Tracks {
			run.TrackIDs = append(run.TrackIDs, t.ID)
		}
		diag = f.Diagnostics
	case err != nil:
		return nil, fmt.Errorf("run did not reach the pipeline: %w", err)
	default:
		return nil, fmt.Errorf("no result or error to record")
	}

	data, mErr := json.Marshal(diag)
	if mErr != nil {
		return nil, fmt.Errorf("failed to encode diagnostics: %w", mErr)
	}
	run.Diagnostics = data
	return run, nil
}
