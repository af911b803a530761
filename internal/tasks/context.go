package tasks

import (
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
)

// DefaultContextChars bounds the search context handed to the model.
const DefaultContextChars = 800

// MoodRequest is one invocation of the pipeline.
type MoodRequest struct {
	MoodPrompt string `json:"mood_prompt"`
	NotesPath  string `json:"notes_path,omitempty"` // optional free-text notes file
}

// Validate requires a non-blank mood prompt.
func (r MoodRequest) Validate() error {
	if strings.TrimSpace(r.MoodPrompt) == "" {
		return fmt.Errorf("%w: mood prompt is required", shared.ErrInvalidInput)
	}
	return nil
}

// PipelineContext is the fused research context for one run.
type PipelineContext struct {
	MoodPrompt    string `json:"mood_prompt"`
	SearchContext string `json:"search_context"`
	NotesContext  string `json:"notes_context"`
}

// Block renders the context as the text shared by both prompts.
func (pc PipelineContext) Block() string {
	return fmt.Sprintf("Mood prompt: %s\n\nGoogle context: %s\n\nThoughts: %s", pc.MoodPrompt, pc.SearchContext, pc.NotesContext)
}

// BuildContext fuses the request, search snippets and notes file into a [PipelineContext].
//
// The only error is an unreadable notes file; with no notes path the call always succeeds.
func BuildContext(req MoodRequest, snippets []models.Snippet, limit int) (PipelineContext, error) {
	notes, err := ReadNotes(req.NotesPath)
	if err != nil {
		return PipelineContext{}, err
	}
	return PipelineContext{
		MoodPrompt:    req.MoodPrompt,
		SearchContext: ShortenSnippets(snippets, limit),
		NotesContext:  notes,
	}, nil
}

// ShortenSnippets joins "title: snippet" lines and cuts the whole string to limit characters.
// A limit of zero or less uses [DefaultContextChars].
func ShortenSnippets(snippets []models.Snippet, limit int) string {
	if len(snippets) == 0 {
		return ""
	}
	if limit <= 0 {
		limit = DefaultContextChars
	}

	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, s.Title+": "+s.Snippet)
	}
	return shared.Truncate(strings.Join(lines, "\n"), limit)
}

// NormalizeNotes collapses every whitespace run to one space and trims the ends.
func NormalizeNotes(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ReadNotes reads and normalizes a notes file. An empty path yields "".
func ReadNotes(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read notes file %s: %w", path, err)
	}
	return NormalizeNotes(string(data)), nil
}
