// package formatter renders run history records as plain text, Markdown, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatCSV      = "csv"
)

// runJSON is the exported shape of a run.
type runJSON struct {
	ID           string          `json:"id"`
	Sequence     int             `json:"sequence"`
	MoodPrompt   string          `json:"mood_prompt"`
	NotesPath    string          `json:"notes_path,omitempty"`
	Status       string          `json:"status"`
	FailureKind  string          `json:"failure_kind,omitempty"`
	Error        string          `json:"error,omitempty"`
	PlaylistID   string          `json:"playlist_id,omitempty"`
	PlaylistName string          `json:"playlist_name,omitempty"`
	TrackIDs     []string        `json:"track_ids"`
	Diagnostics  json.RawMessage `json:"diagnostics,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toJSON(run *models.Run) runJSON {
	ids := run.TrackIDs
	if ids == nil {
		ids = []string{}
	}
	return runJSON{
		ID:           run.ID(),
		Sequence:     run.Sequence(),
		MoodPrompt:   run.MoodPrompt,
		NotesPath:    run.NotesPath,
		Status:       string(run.Status),
		FailureKind:  run.FailureKind,
		Error:        run.Error,
		PlaylistID:   run.PlaylistID,
		PlaylistName: run.PlaylistName,
		TrackIDs:     ids,
		Diagnostics:  run.Diagnostics,
		CreatedAt:    run.CreatedAt(),
	}
}

// RunToJSON renders a run, diagnostics included, as indented JSON.
func RunToJSON(run *models.Run) ([]byte, error) {
	return shared.MarshalJSON(toJSON(run), true)
}

// RunsToJSON renders a list of runs as an indented JSON array.
func RunsToJSON(runs []*models.Run) ([]byte, error) {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, toJSON(r))
	}
	return shared.MarshalJSON(out, true)
}

// RunToText renders a run as plain text.
func RunToText(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run #%d (%s)\n", run.Sequence(), run.ID())
	fmt.Fprintf(&buf, "Mood: %s\n", run.MoodPrompt)
	if run.NotesPath != "" {
		fmt.Fprintf(&buf, "Notes: %s\n", run.NotesPath)
	}
	fmt.Fprintf(&buf, "Status: %s\n", run.Status)
	if run.FailureKind != "" {
		fmt.Fprintf(&buf, "Failure: %s\n", run.FailureKind)
	}
	if run.Error != "" {
		fmt.Fprintf(&buf, "Error: %s\n", run.Error)
	}
	if run.HasPlaylist() {
		fmt.Fprintf(&buf, "Playlist: %s (ID: %s)\n", run.PlaylistName, run.PlaylistID)
	}
	fmt.Fprintf(&buf, "Created: %s\n", run.CreatedAt().Local().Format(time.DateTime))
	fmt.Fprintf(&buf, "Tracks: %d\n", run.TrackCount())

	for i, id := range run.TrackIDs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, id)
	}

	return buf.Bytes(), nil
}

// RunToMarkdown renders a run as Markdown with its diagnostics in a fenced block.
func RunToMarkdown(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	title := run.PlaylistName
	if title == "" {
		title = run.MoodPrompt
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Mood**: %s\n\n", run.MoodPrompt)
	fmt.Fprintf(&buf, "**Status**: %s\n", run.Status)
	if run.FailureKind != "" {
		fmt.Fprintf(&buf, "**Failure**: %s (%s)\n", run.FailureKind, run.Error)
	}
	if run.HasPlaylist() {
		fmt.Fprintf(&buf, "**Playlist**: [%s](https://open.spotify.com/playlist/%s)\n", run.PlaylistID, run.PlaylistID)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", run.TrackCount())

	if len(run.TrackIDs) > 0 {
		buf.WriteString("## Tracks\n\n")
		for i, id := range run.TrackIDs {
			fmt.Fprintf(&buf, "%d. [%s](https://open.spotify.com/track/%s)\n", i+1, id, id)
		}
		buf.WriteString("\n")
	}

	if len(run.Diagnostics) > 0 && string(run.Diagnostics) != "{}" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, run.Diagnostics, "", "  "); err != nil {
			return nil, fmt.Errorf("failed to format diagnostics: %w", err)
		}
		buf.WriteString("## Diagnostics\n\n```json\n")
		buf.Write(pretty.Bytes())
		buf.WriteString("\n```\n")
	}

	return buf.Bytes(), nil
}

// RunsToCSV renders run summaries with columns: Sequence, ID, Created, Status, Failure, Mood, Playlist ID, Playlist Name, Tracks
func RunsToCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Created", "Status", "Failure", "Mood", "Playlist ID", "Playlist Name", "Tracks"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			strconv.Itoa(run.Sequence()),
			run.ID(),
			run.CreatedAt().UTC().Format(time.RFC3339),
			string(run.Status),
			run.FailureKind,
			run.MoodPrompt,
			run.PlaylistID,
			run.PlaylistName,
			strconv.Itoa(run.TrackCount()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Render formats a single run by format name.
func Render(run *models.Run, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return RunToText(run)
	case FormatMarkdown, "md":
		return RunToMarkdown(run)
	case FormatJSON:
		return RunToJSON(run)
	case FormatCSV:
		return RunsToCSV([]*models.Run{run})
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, markdown, json or csv)", shared.ErrInvalidArgument, format)
	}
}

// WriteRunExport renders run and writes it to path.
//
// Defaults to run-{sequence}.{ext} in the working directory.
func WriteRunExport(run *models.Run, format, path string) (string, error) {
	data, err := Render(run, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("run-%d.%s", run.Sequence(), extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "txt"
	}
}
