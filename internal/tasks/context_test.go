package tasks

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	mocks "github.com/desertthunder/moody/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortenSnippets(t *testing.T) {
	t.Run("joins title and snippet lines", func(t *testing.T) {
		got := ShortenSnippets([]models.Snippet{
			{Title: "Rainy days", Snippet: "Soft songs"},
			{Title: "Coffee", Snippet: "Jazz"},
		}, 800)
		assert.Equal(t, "Rainy days: Soft songs\nCoffee: Jazz", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", ShortenSnippets(nil, 800))
	})

	t.Run("truncates after concatenation to exactly the limit", func(t *testing.T) {
		snippets := make([]models.Snippet, 10)
		for i := range snippets {
			snippets[i] = models.Snippet{Title: "title", Snippet: strings.Repeat("x", 200)}
		}

		got := ShortenSnippets(snippets, 800)
		assert.Len(t, got, 800)

		full := ShortenSnippets(snippets, 100000)
		assert.Equal(t, full[:800], got, "truncation must not re-wrap or pad")
	})

	t.Run("cut may land mid snippet", func(t *testing.T) {
		got := ShortenSnippets([]models.Snippet{{Title: "a", Snippet: "bcdefgh"}}, 5)
		assert.Equal(t, "a: bc", got)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		got := ShortenSnippets([]models.Snippet{{Title: "café", Snippet: "naïve ☕ rêverie"}}, 9)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, 9, utf8.RuneCountInString(got))
		assert.Equal(t, "café: naï", got)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		got := ShortenSnippets([]models.Snippet{{Title: "t", Snippet: strings.Repeat("y", 2000)}}, 0)
		assert.Len(t, got, DefaultContextChars)
	})
}

func TestNormalizeNotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses mixed whitespace", "line one\n\n  line   two\t\tend", "line one line two end"},
		{"trims ends", "  \n hello \t", "hello"},
		{"only whitespace", " \n\t ", ""},
		{"already normal", "a b c", "a b c"},
		{"windows newlines", "a\r\nb", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeNotes(tt.in))
		})
	}
}

func TestReadNotes(t *testing.T) {
	t.Run("no path is empty and safe", func(t *testing.T) {
		got, err := ReadNotes("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reads and normalizes", func(t *testing.T) {
		path := mocks.WriteFile(t, "notes.txt", "line one\n\n  line   two\t\tend\n")
		got, err := ReadNotes(path)
		require.NoError(t, err)
		assert.Equal(t, "line one line two end", got)
	})

	t.Run("missing file surfaces the error", func(t *testing.T) {
		_, err := ReadNotes(t.TempDir() + "/nope.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}

func TestBuildContext(t *testing.T) {
	snippets := []models.Snippet{{Title: "Rain", Snippet: "Grey skies"}}

	t.Run("without notes", func(t *testing.T) {
		pc, err := BuildContext(MoodRequest{MoodPrompt: "rainy sunday coffee"}, snippets, 800)
		require.NoError(t, err)
		assert.Equal(t, "rainy sunday coffee", pc.MoodPrompt)
		assert.Equal(t, "Rain: Grey skies", pc.SearchContext)
		assert.Empty(t, pc.NotesContext)
		assert.Equal(t, "Mood prompt: rainy sunday coffee\n\nGoogle context: Rain: Grey skies\n\nThoughts: ", pc.Block())
	})

	t.Run("with notes", func(t *testing.T) {
		path := mocks.WriteFile(t, "thoughts.md", "slow\n\nmornings")
		pc, err := BuildContext(MoodRequest{MoodPrompt: "m", NotesPath: path}, nil, 800)
		require.NoError(t, err)
		assert.Equal(t, "slow mornings", pc.NotesContext)
		assert.Empty(t, pc.SearchContext)
	})

	t.Run("unreadable notes fails", func(t *testing.T) {
		_, err := BuildContext(MoodRequest{MoodPrompt: "m", NotesPath: t.TempDir()}, snippets, 800)
		require.Error(t, err)
	})
}

func TestMoodRequestValidate(t *testing.T) {
	assert.NoError(t, MoodRequest{MoodPrompt: "calm"}.Validate())
	assert.ErrorIs(t, MoodRequest{MoodPrompt: "   "}.Validate(), shared.ErrInvalidInput)
	assert.ErrorIs(t, MoodRequest{}.Validate(), shared.ErrInvalidInput)
}
