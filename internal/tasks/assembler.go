package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/services"
)

// Assembler owns the side effects of a run: creating the playlist and attaching tracks.
type Assembler struct {
	music       services.MusicService
	callTimeout time.Duration
}

func NewAssembler(music services.MusicService, callTimeout time.Duration) *Assembler {
	return &Assembler{music: music, callTimeout: callTimeout}
}

// AttachError reports that the playlist exists but adding tracks to it failed.
type AttachError struct {
	Playlist *models.Playlist
	Err      error
}

func (e *AttachError) Error() string {
	return "add tracks to " + e.Playlist.ID + ": " + e.Err.Error()
}

func (e *AttachError) Unwrap() error { return e.Err }

// Assemble creates the playlist named after title and adds trackIDs in one call, in order.
//
// A create failure returns the collaborator error. An add failure returns the created playlist
// together with an [*AttachError]; the playlist is not deleted.
func (a *Assembler) Assemble(ctx context.Context, userID, title, moodPrompt string, trackIDs []string) (*models.Playlist, error) {
	pl, err := withTimeout(ctx, a.callTimeout, func(ctx context.Context) (*models.Playlist, error) {
		return a.music.CreatePlaylist(ctx, userID, PlaylistName(title), PlaylistDescription(moodPrompt))
	})
	if err != nil {
		return nil, err
	}

	_, err = withTimeout(ctx, a.callTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.music.AddTracks(ctx, pl.ID, trackIDs)
	})
	if err != nil {
		return pl, &AttachError{Playlist: pl, Err: err}
	}

	pl.TrackCount = len(trackIDs)
	return pl, nil
}

// PlaylistName trims raw and strips one surrounding pair of double quotes.
func PlaylistName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = name[1 : len(name)-1]
	}
	return name
}

// PlaylistDescription is the description every generated playlist carries.
func PlaylistDescription(moodPrompt string) string {
	return "Moody playlist: " + moodPrompt
}

// withTimeout runs fn under its own deadline when d is positive.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
