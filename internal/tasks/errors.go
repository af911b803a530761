package tasks

import (
	"errors"
	"fmt"
)

// FailureKind tags why a run ended without a complete playlist.
type FailureKind string

const (
	KindSearch         FailureKind = "search"
	KindContextRead    FailureKind = "context_read"
	KindCompletion     FailureKind = "completion"
	KindUserLookup     FailureKind = "user_lookup"
	KindTrackSearch    FailureKind = "track_search"
	KindNoTracksFound  FailureKind = "no_tracks_found"
	KindPlaylistCreate FailureKind = "playlist_create"
	KindTrackAttach    FailureKind = "track_attach"
	KindTimeout        FailureKind = "timeout"
)

// Sentinels for errors.Is against a [*Failure].
var (
	ErrSearch         = errors.New("web search failed")
	ErrContextRead    = errors.New("notes file unreadable")
	ErrCompletion     = errors.New("completion failed")
	ErrUserLookup     = errors.New("current user lookup failed")
	ErrTrackSearch    = errors.New("track search failed")
	ErrNoTracksFound  = errors.New("no tracks found for generated queries")
	ErrPlaylistCreate = errors.New("playlist creation failed")
	ErrTrackAttach    = errors.New("adding tracks to playlist failed")
	ErrTimeout        = errors.New("external call timed out")
)

var kindSentinels = map[FailureKind]error{
	KindSearch:         ErrSearch,
	KindContextRead:    ErrContextRead,
	KindCompletion:     ErrCompletion,
	KindUserLookup:     ErrUserLookup,
	KindTrackSearch:    ErrTrackSearch,
	KindNoTracksFound:  ErrNoTracksFound,
	KindPlaylistCreate: ErrPlaylistCreate,
	KindTrackAttach:    ErrTrackAttach,
	KindTimeout:        ErrTimeout,
}

// Failure is the terminal error of a run. It carries the phase the run had reached,
// the diagnostics gathered so far, and for [KindTrackAttach] the playlist that was left behind.
type Failure struct {
	Kind        FailureKind
	Phase       Phase
	PlaylistID  string
	Diagnostics Diagnostics
	Err         error
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if s, ok := kindSentinels[f.Kind]; ok {
		msg = s.Error()
	}
	if f.PlaylistID != "" {
		msg = fmt.Sprintf("%s (playlist %s)", msg, f.PlaylistID)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s after %s: %v", msg, f.Phase, f.Err)
	}
	return fmt.Sprintf("%s after %s", msg, f.Phase)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel for the failure's kind.
func (f *Failure) Is(target error) bool {
	s, ok := kindSentinels[f.Kind]
	return ok && s == target
}

// Partial reports whether a playlist exists despite the failure.
func (f *Failure) Partial() bool {
	return f.PlaylistID != ""
}

// Title is the playlist name the run had generated, if it got that far.
func (f *Failure) Title() string {
	return PlaylistName(f.Diagnostics.TitleResponse)
}

// Retryable reports whether re-running could succeed without duplicating side effects.
// Failures after a playlist was created, and ones caused by bad input, are not retryable.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindPlaylistCreate, KindTrackAttach, KindContextRead:
		return false
	case KindTimeout:
		return f.Phase < PhaseTracksResolved
	default:
		return true
	}
}

// AsFailure extracts a [*Failure] from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
