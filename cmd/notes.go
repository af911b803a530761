package main

import (
	"context"
	"time"

	"github.com/desertthunder/moody/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Notes lists reflection notes files in the configured notes directory.
func (r *Runner) Notes(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Notes.Dir
	}

	notes, err := tasks.ListNotes(dir)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if notes == nil {
			notes = []tasks.NoteFile{}
		}
		return r.writeJSON(notes, true)
	}

	if len(notes) == 0 {
		return r.writePlain("No notes in %s (.txt, .md)\n", dir)
	}

	r.writePlain("Notes in %s:\n\n", dir)
	for _, n := range notes {
		r.writePlain("  %-32s %6d bytes  %s\n", n.Name, n.Size, n.ModTime.Local().Format(time.DateTime))
	}
	r.writePlain("\nUse one with: moody create --notes %s \"<mood>\"\n", notes[0].Path)
	return nil
}
