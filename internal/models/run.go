package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the terminal state of a playlist run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	// RunPartial means the playlist exists but attaching tracks failed.
	RunPartial RunStatus = "partial"
)

// Run is the persisted record of one pipeline invocation, kept for history only.
type Run struct {
	id           string
	sequence     int
	MoodPrompt   string
	NotesPath    string
	Status       RunStatus
	FailureKind  string
	Error        string
	PlaylistID   string
	PlaylistName string
	TrackIDs     []string
	Diagnostics  json.RawMessage
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

var _ Model = (*Run)(nil)

// NewRun creates a run record for the given prompt.
func NewRun(sequence int, moodPrompt, notesPath string, status RunStatus) *Run {
	now := time.Now().UTC()
	return &Run{
		sequence:   sequence,
		MoodPrompt: moodPrompt,
		NotesPath:  notesPath,
		Status:     status,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *Run) ID() string { return r.id }
func (r *Run) Sequence() int { return r.sequence }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time { return r.deletedAt }

func (r *Run) SetID(id string) { r.id = id }
func (r *Run) SetSequence(seq int) { r.sequence = seq }
func (r *Run) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *Run) IsDeleted() bool { return r.deletedAt != nil }
func (r *Run) TrackCount() int { return len(r.TrackIDs) }
func (r *Run) HasPlaylist() bool { return r.PlaylistID != "" }
func (r *Run) Succeeded() bool { return r.Status == RunSucceeded }
func (r *Run) Failed() bool { return r.Status != RunSucceeded }

// Validate checks required fields and status consistency.
func (r *Run) Validate() error {
	if strings.TrimSpace(r.MoodPrompt) == "" {
		return fmt.Errorf("mood prompt is required")
	}
	switch r.Status {
	case RunSucceeded, RunPartial:
		if r.PlaylistID == "" {
			return fmt.Errorf("%s run requires a playlist id", r.Status)
		}
	case RunFailed:
		if r.FailureKind == "" {
			return fmt.Errorf("failed run requires a failure kind")
		}
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if len(r.Diagnostics) > 0 && !json.Valid(r.Diagnostics) {
		return fmt.Errorf("diagnostics must be valid JSON")
	}
	return nil
}
