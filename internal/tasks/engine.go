package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/services"
	"github.com/desertthunder/moody/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultSearchResults is how many web results feed the context.
const DefaultSearchResults = 5

// Diagnostics records everything a run saw and produced, for debugging and run history.
type Diagnostics struct {
	NotesPath     string                 `json:"notes_path,omitempty"`
	SearchContext string                 `json:"search_context"`
	NotesContext  string                 `json:"notes_context"`
	LLMContext    string                 `json:"llm_context"`
	TitlePrompt   CompletionRequest      `json:"title_prompt"`
	QueryPrompt   CompletionRequest      `json:"query_prompt"`
	TitleResponse string                 `json:"title_response,omitempty"`
	QueryResponse string                 `json:"query_response,omitempty"`
	Queries       []string               `json:"queries,omitempty"`
	Tracks        []models.ResolvedTrack `json:"tracks,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
}

// PlaylistResult is the outcome of a successful run.
type PlaylistResult struct {
	PlaylistID   string      `json:"playlist_id"`
	PlaylistName string      `json:"playlist_name"`
	TrackCount   int         `json:"track_count"`
	TrackIDs     []string    `json:"track_ids"`
	MoodPrompt   string      `json:"mood_prompt"`
	Diagnostics  Diagnostics `json:"diagnostics"`
}

// EngineOptions tunes a [MoodEngine]. Zero values fall back to the defaults.
type EngineOptions struct {
	SearchResults  int
	ContextChars   int
	QueryCount     int
	CallTimeout    time.Duration
	ResolveWorkers int
	DedupeTracks   bool
	MaxAttempts    int
	Limiter        *rate.Limiter // paces parallel track searches
}

// EngineOptionsFromConfig maps the [pipeline] config section onto [EngineOptions].
func EngineOptionsFromConfig(cfg shared.PipelineConfig) EngineOptions {
	opts := EngineOptions{
		SearchResults:  cfg.SearchResults,
		ContextChars:   cfg.ContextChars,
		QueryCount:     cfg.QueryCount,
		CallTimeout:    cfg.CallTimeout(),
		ResolveWorkers: cfg.ResolveWorkers,
		DedupeTracks:   cfg.DedupeTracks,
		MaxAttempts:    cfg.MaxAttempts,
	}
	if cfg.RequestsPerSecond > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	return opts
}

// MoodEngine runs the mood playlist pipeline against its collaborators.
//
// Runs are serialized: the engine holds one authenticated music session and never
// drives two runs through it at once.
type MoodEngine struct {
	search     services.SearchService
	completion services.CompletionService
	music      services.MusicService
	opts       EngineOptions
	mu         sync.Mutex
}

// NewMoodEngine creates an engine over already-authenticated collaborators.
func NewMoodEngine(search services.SearchService, completion services.CompletionService, music services.MusicService, opts EngineOptions) *MoodEngine {
	if opts.SearchResults <= 0 {
		opts.SearchResults = DefaultSearchResults
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = DefaultContextChars
	}
	if opts.QueryCount <= 0 {
		opts.QueryCount = DefaultQueryCount
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &MoodEngine{search: search, completion: completion, music: music, opts: opts}
}

// Run executes one pipeline run. The error, when not an input error, is a [*Failure].
//
// Every state transition is reported on progress without blocking; progress may be nil.
func (e *MoodEngine) Run(ctx context.Context, req MoodRequest, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.search == nil || e.completion == nil || e.music == nil {
		return nil, fmt.Errorf("%w: engine collaborators not initialized", shared.ErrServiceUnavailable)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r := &run{engine: e, progress: progress, diag: Diagnostics{NotesPath: req.NotesPath}}
	return r.execute(ctx, req)
}

// RunWithRetry re-runs the whole pipeline while the failure is retryable, up to MaxAttempts runs.
func (e *MoodEngine) RunWithRetry(ctx context.Context, req MoodRequest, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		result, err := e.Run(ctx, req, progress)
		if err == nil {
			return result, nil
		}
		lastErr = err

		f, ok := AsFailure(err)
		if !ok || !f.Retryable() || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// run carries the state of one invocation.
type run struct {
	engine   *MoodEngine
	progress chan<- ProgressUpdate
	diag     Diagnostics
	phase    Phase
}

func (r *run) enter(update ProgressUpdate) {
	r.phase = update.Phase
	sendProgress(r.progress, update)
}

// fail builds the terminal failure. Deadline errors become [KindTimeout] unless a playlist was left behind.
func (r *run) fail(kind FailureKind, err error, playlistID string) *Failure {
	if playlistID == "" && isTimeout(err) {
		kind = KindTimeout
	}
	f := &Failure{
		Kind:        kind,
		Phase:       r.phase,
		PlaylistID:  playlistID,
		Diagnostics: r.diag,
		Err:         err,
	}
	sendProgress(r.progress, failedUpdate(f))
	return f
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, shared.ErrTimeout)
}

func (r *run) execute(ctx context.Context, req MoodRequest) (*PlaylistResult, error) {
	e := r.engine
	timeout := e.opts.CallTimeout
	r.phase = PhaseStart

	user, err := withTimeout(ctx, timeout, e.music.CurrentUser)
	if err != nil {
		return nil, r.fail(KindUserLookup, err, "")
	}
	r.diag.UserID = user.ID
	r.enter(startUpdate(req, user))

	snippets, err := withTimeout(ctx, timeout, func(ctx context.Context) ([]models.Snippet, error) {
		return e.search.Search(ctx, req.MoodPrompt, e.opts.SearchResults)
	})
	if err != nil {
		return nil, r.fail(KindSearch, err, "")
	}

	pc, err := BuildContext(req, snippets, e.opts.ContextChars)
	if err != nil {
		return nil, r.fail(KindContextRead, err, "")
	}
	r.diag.SearchContext = pc.SearchContext
	r.diag.NotesContext = pc.NotesContext
	r.diag.LLMContext = pc.Block()
	r.enter(contextBuiltUpdate(pc, len(snippets)))

	prompts := ComposePrompts(pc, e.opts.QueryCount)
	r.diag.TitlePrompt = prompts.Title
	r.diag.QueryPrompt = prompts.Queries
	r.enter(promptsComposedUpdate(prompts))

	invoker := NewInvoker(e.completion)
	title, err := withTimeout(ctx, timeout, func(ctx context.Context) (string, error) {
		return invoker.Invoke(ctx, prompts.Title)
	})
	if err != nil {
		return nil, r.fail(KindCompletion, err, "")
	}
	r.diag.TitleResponse = title
	name := PlaylistName(title)
	if name == "" {
		return nil, r.fail(KindCompletion, fmt.Errorf("%w: title was only quotes", shared.ErrEmptyCompletion), "")
	}
	r.enter(titleGeneratedUpdate(name))

	raw, err := withTimeout(ctx, timeout, func(ctx context.Context) (string, error) {
		return invoker.Invoke(ctx, prompts.Queries)
	})
	if err != nil {
		return nil, r.fail(KindCompletion, err, "")
	}
	r.diag.QueryResponse = raw
	queries := ParseQueries(raw)
	r.diag.Queries = queries
	r.enter(queriesGeneratedUpdate(queries))

	resolver := NewResolver(e.music, ResolverOptions{
		Workers:     e.opts.ResolveWorkers,
		Dedupe:      e.opts.DedupeTracks,
		CallTimeout: timeout,
		Limiter:     e.opts.Limiter,
		OnResult: func(step, total int, query string, track *models.ResolvedTrack) {
			sendProgress(r.progress, resolveUpdate(step, total, query, track))
		},
	})
	tracks, err := resolver.Resolve(ctx, queries)
	if err != nil {
		if errors.Is(err, ErrNoTracksFound) {
			return nil, r.fail(KindNoTracksFound, err, "")
		}
		return nil, r.fail(KindTrackSearch, err, "")
	}
	r.diag.Tracks = tracks
	r.enter(tracksResolvedUpdate(tracks, len(queries)))

	trackIDs := make([]string, len(tracks))
	for i, t := range tracks {
		trackIDs[i] = t.ID
	}

	assembler := NewAssembler(e.music, timeout)
	pl, err := assembler.Assemble(ctx, user.ID, title, req.MoodPrompt, trackIDs)
	if err != nil {
		var attachErr *AttachError
		if errors.As(err, &attachErr) {
			return nil, r.fail(KindTrackAttach, attachErr.Err, attachErr.Playlist.ID)
		}
		return nil, r.fail(KindPlaylistCreate, err, "")
	}

	result := &PlaylistResult{
		PlaylistID:   pl.ID,
		PlaylistName: name,
		TrackCount:   len(trackIDs),
		TrackIDs:     trackIDs,
		MoodPrompt:   req.MoodPrompt,
		Diagnostics:  r.diag,
	}
	r.enter(playlistCreatedUpdate(result))
	return result, nil
}
