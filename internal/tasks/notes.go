package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// NoteFile is a reflection notes file offered to the user.
type NoteFile struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

var noteExtensions = []string{".txt", ".md", ".markdown"}

// ListNotes returns the text notes directly inside dir, newest first.
// A missing directory yields no notes.
func ListNotes(dir string) ([]NoteFile, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read notes directory %s: %w", dir, err)
	}

	notes := make([]NoteFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !slices.Contains(noteExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		notes = append(notes, NoteFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortStableFunc(notes, func(a, b NoteFile) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return notes, nil
}
