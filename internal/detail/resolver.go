// Package detail hydrates partial match views into full Pokédex records,
// memoizing fetches for the lifetime of the session.
package detail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/rotomdex/internal/pokedex"
)

// PokemonFetcher abstracts the single-record lookup the Resolver needs.
// Implemented by api.Client.
type PokemonFetcher interface {
	FetchPokemon(ctx context.Context, id int) (pokedex.Pokemon, error)
}

// Resolver caches fully-hydrated Pokémon records by id. Entries are added
// on first fetch and kept for the session; there is no eviction.
type Resolver struct {
	fetcher PokemonFetcher

	mu    sync.RWMutex
	cache map[int]pokedex.Pokemon
}

// New creates a Resolver backed by the given fetcher.
func New(fetcher PokemonFetcher) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   make(map[int]pokedex.Pokemon),
	}
}

// Cached returns the cached record for id, if present.
func (r *Resolver) Cached(id int) (pokedex.Pokemon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.cache[id]
	return p, ok
}

// Resolve returns a hydrated copy of view, fetching the full record on
// first use and serving from cache afterwards. The similarity percentage
// from the originating match context is carried forward. On failure the
// original view is returned unchanged alongside the error, so callers can
// keep showing the partial data.
func (r *Resolver) Resolve(ctx context.Context, view pokedex.MatchView) (pokedex.MatchView, error) {
	if p, ok := r.Cached(view.ID); ok {
		return pokedex.HydrateView(view, p), nil
	}

	p, err := r.fetcher.FetchPokemon(ctx, view.ID)
	if err != nil {
		return view, fmt.Errorf("fetching pokémon %d: %w", view.ID, err)
	}

	r.mu.Lock()
	r.cache[p.ID] = p
	r.mu.Unlock()

	return pokedex.HydrateView(view, p), nil
}

// Prefetch warms the cache for the given ids concurrently. Already-cached
// ids are skipped. Individual failures are logged and do not abort the
// remaining fetches.
func (r *Resolver) Prefetch(ctx context.Context, ids []int) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid hammering the backend.

	for _, id := range ids {
		if _, ok := r.Cached(id); ok {
			continue
		}
		id := id
		g.Go(func() error {
			p, err := r.fetcher.FetchPokemon(gCtx, id)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				slog.Warn("prefetch failed, skipping", "id", id, "error", err)
				return nil
			}
			r.mu.Lock()
			r.cache[p.ID] = p
			r.mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}
