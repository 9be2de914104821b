package detail

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kalambet/rotomdex/internal/pokedex"
)

// --- Mock fetcher ---

type mockFetcher struct {
	mu      sync.Mutex
	calls   map[int]int
	records map[int]pokedex.Pokemon
	err     error
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		calls: make(map[int]int),
		records: map[int]pokedex.Pokemon{
			94: {
				ID:          94,
				Name:        "gengar",
				Types:       []string{"ghost", "poison"},
				Description: "Hides in shadows.",
				Genus:       "Shadow Pokémon",
				Height:      1.5,
				Weight:      40.5,
				Stats:       &pokedex.Stats{HP: 60, Attack: 65, Speed: 110},
			},
			133: {ID: 133, Name: "eevee", Types: []string{"normal"}},
		},
	}
}

func (m *mockFetcher) FetchPokemon(_ context.Context, id int) (pokedex.Pokemon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
	if m.err != nil {
		return pokedex.Pokemon{}, m.err
	}
	p, ok := m.records[id]
	if !ok {
		return pokedex.Pokemon{}, errors.New("unknown pokémon")
	}
	return p, nil
}

func (m *mockFetcher) callCount(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

// --- Tests ---

func TestResolve_HydratesAndCarriesSimilarity(t *testing.T) {
	f := newMockFetcher()
	r := New(f)

	partial := pokedex.MatchView{ID: 94, Name: "gengar", Similarity: 77}
	got, err := r.Resolve(context.Background(), partial)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Hydrated {
		t.Error("resolved view should be hydrated")
	}
	if got.Similarity != 77 {
		t.Errorf("Similarity = %d, want 77 carried from match", got.Similarity)
	}
	if got.Genus != "Shadow Pokémon" || got.Height != "1.5 m" {
		t.Errorf("detail fields missing: %+v", got)
	}
}

func TestResolve_SecondCallServesFromCache(t *testing.T) {
	f := newMockFetcher()
	r := New(f)
	view := pokedex.MatchView{ID: 94, Name: "gengar", Similarity: 50}

	if _, err := r.Resolve(context.Background(), view); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := r.Resolve(context.Background(), view); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if n := f.callCount(94); n != 1 {
		t.Errorf("fetch count = %d, want at most one network fetch per id", n)
	}
}

func TestResolve_FailureReturnsOriginalView(t *testing.T) {
	f := newMockFetcher()
	f.err = errors.New("backend down")
	r := New(f)

	partial := pokedex.MatchView{ID: 94, Name: "gengar", Similarity: 42, Types: []string{"ghost"}}
	got, err := r.Resolve(context.Background(), partial)
	if err == nil {
		t.Fatal("expected error")
	}
	if got.Hydrated || got.Name != "gengar" || got.Similarity != 42 {
		t.Errorf("failed resolve should leave the partial view unchanged, got %+v", got)
	}

	// Nothing cached on failure; a later attempt fetches again.
	f.err = nil
	if _, err := r.Resolve(context.Background(), partial); err != nil {
		t.Fatalf("retry Resolve: %v", err)
	}
	if n := f.callCount(94); n != 2 {
		t.Errorf("fetch count = %d, want a retry after failure", n)
	}
}

func TestPrefetch_SkipsCachedAndToleratesFailures(t *testing.T) {
	f := newMockFetcher()
	r := New(f)

	if _, err := r.Resolve(context.Background(), pokedex.MatchView{ID: 94}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// 999 is unknown and fails; the rest must still land in the cache.
	if err := r.Prefetch(context.Background(), []int{94, 133, 999}); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}

	if n := f.callCount(94); n != 1 {
		t.Errorf("cached id refetched %d times", n)
	}
	if _, ok := r.Cached(133); !ok {
		t.Error("prefetched id missing from cache")
	}
	if _, ok := r.Cached(999); ok {
		t.Error("failed id should not be cached")
	}
}

func TestPrefetch_CancelledContext(t *testing.T) {
	f := newMockFetcher()
	r := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.err = ctx.Err()

	if err := r.Prefetch(ctx, []int{94}); !errors.Is(err, context.Canceled) {
		t.Errorf("Prefetch on cancelled ctx = %v, want context.Canceled", err)
	}
}
