package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
)

// RunRepository implements models.Repository[*models.Run] for run history.
//
// Runs are written once per pipeline invocation and never read back into a run.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, sequence, mood_prompt, notes_path, status, failure_kind, error, playlist_id, playlist_name,
		track_ids, diagnostics, created_at, updated_at, deleted_at`

// Create inserts a new run with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	trackIDs, diagnostics, err := encodeRunJSON(run)
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.MoodPrompt,
		run.NotesPath,
		string(run.Status),
		run.FailureKind,
		run.Error,
		run.PlaylistID,
		run.PlaylistName,
		trackIDs,
		diagnostics,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number, as shown in history listings
func (r *RunRepository) GetBySequence(sequence int) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update rewrites a run's outcome fields
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	trackIDs, diagnostics, err := encodeRunJSON(run)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, failure_kind = ?, error = ?, playlist_id = ?, playlist_name = ?,
			track_ids = ?, diagnostics = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status),
		run.FailureKind,
		run.Error,
		run.PlaylistID,
		run.PlaylistName,
		trackIDs,
		diagnostics,
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return expectOneRow(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves runs newest first. Supported criteria: "status" (string) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scan(row scanner) (*models.Run, error) {
	var (
		id           string
		sequence     int
		moodPrompt   string
		notesPath    string
		status       string
		failureKind  string
		errMsg       string
		playlistID   string
		playlistName string
		trackIDs     string
		diagnostics  string
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &moodPrompt, &notesPath, &status, &failureKind, &errMsg, &playlistID,
		&playlistName, &trackIDs, &diagnostics, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(sequence, moodPrompt, notesPath, models.RunStatus(status))
	run.SetID(id)
	run.FailureKind = failureKind
	run.Error = errMsg
	run.PlaylistID = playlistID
	run.PlaylistName = playlistName
	run.Diagnostics = json.RawMessage(diagnostics)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	if err := json.Unmarshal([]byte(trackIDs), &run.TrackIDs); err != nil {
		return nil, fmt.Errorf("failed to decode track ids for run %s: %w", id, err)
	}

	return run, nil
}

func encodeRunJSON(run *models.Run) (string, string, error) {
	ids := run.TrackIDs
	if ids == nil {
		ids = []string{}
	}
	trackIDs, err := json.Marshal(ids)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode track ids: %w", err)
	}

	diagnostics := "{}"
	if len(run.Diagnostics) > 0 {
		diagnostics = string(run.Diagnostics)
	}
	return string(trackIDs), diagnostics, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}
