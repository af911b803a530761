package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moody/internal/tasks"
)

var _ list.Item = noteItem{}

// noteItem wraps [tasks.NoteFile] to implement [list.Item]. The zero value means "no notes".
type noteItem struct {
	note tasks.NoteFile
}

func (i noteItem) FilterValue() string { return i.note.Name }

func (i noteItem) Title() string {
	if i.note.Path == "" {
		return "No notes"
	}
	return i.note.Name
}

func (i noteItem) Description() string {
	if i.note.Path == "" {
		return "Brew from the mood and web search only"
	}
	return fmt.Sprintf("%d bytes • edited %s", i.note.Size, i.note.ModTime.Format(time.DateTime))
}

func noteItems(notes []tasks.NoteFile) []list.Item {
	items := make([]list.Item, 0, len(notes)+1)
	items = append(items, noteItem{})
	for _, n := range notes {
		items = append(items, noteItem{note: n})
	}
	return items
}
