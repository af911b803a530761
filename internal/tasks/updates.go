package tasks

import (
	"fmt"

	"github.com/desertthunder/moody/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // State the run just entered (or is working in)
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the states of a mood playlist run.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseContextBuilt
	PhasePromptsComposed
	PhaseTitleGenerated
	PhaseQueriesGenerated
	PhaseTracksResolved
	PhasePlaylistCreated
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseContextBuilt:
		return "context_built"
	case PhasePromptsComposed:
		return "prompts_composed"
	case PhaseTitleGenerated:
		return "title_generated"
	case PhaseQueriesGenerated:
		return "queries_generated"
	case PhaseTracksResolved:
		return "tracks_resolved"
	case PhasePlaylistCreated:
		return "playlist_created"
	case PhaseFailed:
		return "failed"
	default:
		return ""
	}
}

// Phases lists the success path in order.
func Phases() []Phase {
	return []Phase{
		PhaseStart,
		PhaseContextBuilt,
		PhasePromptsComposed,
		PhaseTitleGenerated,
		PhaseQueriesGenerated,
		PhaseTracksResolved,
		PhasePlaylistCreated,
	}
}

// totalSteps is the number of transitions on the success path.
const totalSteps = 6

func startUpdate(req MoodRequest, user *models.User) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseStart,
		Step:    0,
		Total:   totalSteps,
		Message: fmt.Sprintf("Starting run for %q as %s", req.MoodPrompt, user.ID),
		Data:    user,
	}
}

func contextBuiltUpdate(pc PipelineContext, snippets int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseContextBuilt,
		Step:    1,
		Total:   totalSteps,
		Message: fmt.Sprintf("Built context from %d search results (%d notes chars)", snippets, len([]rune(pc.NotesContext))),
		Data:    pc,
	}
}

func promptsComposedUpdate(p Prompts) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePromptsComposed,
		Step:    2,
		Total:   totalSteps,
		Message: "Composed title and query prompts",
		Data:    p,
	}
}

func titleGeneratedUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseTitleGenerated,
		Step:    3,
		Total:   totalSteps,
		Message: fmt.Sprintf("Playlist name: %s", name),
		Data:    name,
	}
}

func queriesGeneratedUpdate(queries []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseQueriesGenerated,
		Step:    4,
		Total:   totalSteps,
		Message: fmt.Sprintf("Generated %d search queries", len(queries)),
		Data:    queries,
	}
}

func tracksResolvedUpdate(tracks []models.ResolvedTrack, queries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseTracksResolved,
		Step:    5,
		Total:   totalSteps,
		Message: fmt.Sprintf("Resolved %d of %d queries", len(tracks), queries),
		Data:    tracks,
	}
}

func playlistCreatedUpdate(result *PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePlaylistCreated,
		Step:    6,
		Total:   totalSteps,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s, %d tracks)", result.PlaylistName, result.PlaylistID, result.TrackCount),
		Data:    result,
	}
}

func failedUpdate(f *Failure) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFailed,
		Step:    int(f.Phase),
		Total:   totalSteps,
		Message: f.Error(),
		Data:    f,
	}
}

// resolveUpdate reports one query during resolution; track is nil on a miss.
func resolveUpdate(step, total int, query string, track *models.ResolvedTrack) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: no match", step, total, query)
	if track != nil {
		msg = fmt.Sprintf("[%d/%d] %s -> %s", step, total, query, track.ID)
		if track.Title != "" {
			msg = fmt.Sprintf("[%d/%d] %s -> %s - %s", step, total, query, track.Artist, track.Title)
		}
	}
	return ProgressUpdate{
		Phase:   PhaseQueriesGenerated,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    track,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
