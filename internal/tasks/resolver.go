package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/services"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ResolverOptions tunes a [Resolver]. The zero value resolves one query at a time with no deadline.
type ResolverOptions struct {
	Workers     int           // parallel searches; <= 1 is sequential
	Dedupe      bool          // drop repeat track IDs, keeping the first
	CallTimeout time.Duration // deadline per search call; zero means none
	Limiter     *rate.Limiter // optional pacing shared by all workers

	// OnResult is called once per query as its search finishes; calls never overlap. track is nil on a miss.
	OnResult func(step, total int, query string, track *models.ResolvedTrack)
}

// Resolver maps each query to the first track the music service returns for it.
type Resolver struct {
	music services.MusicService
	opts  ResolverOptions
}

func NewResolver(music services.MusicService, opts ResolverOptions) *Resolver {
	return &Resolver{music: music, opts: opts}
}

// Resolve searches every query with limit 1 and returns the hits in query order.
// Misses are skipped. An empty result is [ErrNoTracksFound]; a search error aborts resolution.
func (r *Resolver) Resolve(ctx context.Context, queries []string) ([]models.ResolvedTrack, error) {
	slots := make([]*models.ResolvedTrack, len(queries))

	var err error
	if r.opts.Workers > 1 && len(queries) > 1 {
		err = r.resolveParallel(ctx, queries, slots)
	} else {
		err = r.resolveSequential(ctx, queries, slots)
	}
	if err != nil {
		return nil, err
	}

	tracks := make([]models.ResolvedTrack, 0, len(queries))
	seen := make(map[string]bool)
	for _, slot := range slots {
		if slot == nil {
			continue
		}
		if r.opts.Dedupe {
			if seen[slot.ID] {
				continue
			}
			seen[slot.ID] = true
		}
		tracks = append(tracks, *slot)
	}

	if len(tracks) == 0 {
		return nil, ErrNoTracksFound
	}
	return tracks, nil
}

func (r *Resolver) resolveSequential(ctx context.Context, queries []string, slots []*models.ResolvedTrack) error {
	for i, q := range queries {
		track, err := r.resolveOne(ctx, q)
		if err != nil {
			return err
		}
		slots[i] = track
		r.report(i+1, len(queries), q, track)
	}
	return nil
}

// resolveParallel fans searches out to a bounded number of workers. Each result is written
// to its query's slot so the caller sees query order regardless of completion order.
// OnResult fires as each search finishes, with steps numbered in finishing order.
func (r *Resolver) resolveParallel(ctx context.Context, queries []string, slots []*models.ResolvedTrack) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	var (
		mu   sync.Mutex
		step int
	)
	for i, q := range queries {
		g.Go(func() error {
			track, err := r.resolveOne(gctx, q)
			if err != nil {
				return err
			}
			slots[i] = track

			mu.Lock()
			defer mu.Unlock()
			step++
			r.report(step, len(queries), q, track)
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) resolveOne(ctx context.Context, query string) (*models.ResolvedTrack, error) {
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	callCtx := ctx
	if r.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
	}

	hits, err := r.music.SearchTracks(callCtx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	first := hits[0]
	return &models.ResolvedTrack{ID: first.ID, Query: query, Title: first.Title, Artist: first.Artist}, nil
}

func (r *Resolver) report(step, total int, query string, track *models.ResolvedTrack) {
	if r.opts.OnResult != nil {
		r.opts.OnResult(step, total, query, track)
	}
}
