package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/detail"
	"github.com/kalambet/rotomdex/internal/history"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

// --- Fakes ---

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result pokedex.AnalysisResult
	err    error

	block chan struct{} // when set, Analyze waits until closed
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ api.Image, _ int) (pokedex.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return pokedex.AnalysisResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return pokedex.AnalysisResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	rec   pokedex.Pokemon
	err   error
}

func (f *fakeFetcher) FetchPokemon(_ context.Context, id int) (pokedex.Pokemon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return pokedex.Pokemon{}, f.err
	}
	rec := f.rec
	rec.ID = id
	return rec, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) GetState(key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeKV) SetState(key, value string) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) DeleteState(key string) error {
	delete(f.data, key)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func sampleResult() pokedex.AnalysisResult {
	return pokedex.AnalysisResult{
		ID: "res-1",
		Matches: []pokedex.Match{
			{Pokemon: pokedex.Pokemon{ID: 25, Name: "pikachu", Types: []string{"electric"}}, SimilarityScore: 0.9167, Rank: 1},
			{Pokemon: pokedex.Pokemon{ID: 26, Name: "raichu", Types: []string{"electric"}}, SimilarityScore: 0.71, Rank: 2},
			{Pokemon: pokedex.Pokemon{ID: 172, Name: "pichu", Types: []string{"electric"}}, SimilarityScore: 0.55, Rank: 3},
		},
		ProcessingTimeMS: 120,
	}
}

func newTestSession(analyzer *fakeAnalyzer, fetcher *fakeFetcher) *Session {
	hist := history.New(&fakeKV{data: make(map[string]string)}, 6)
	res := detail.New(fetcher)
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(analyzer, res, hist, 5, clock)
}

func captured() *capture.CapturedImage {
	return &capture.CapturedImage{
		Data:        []byte("jpegbytes"),
		MIMEType:    "image/jpeg",
		Filename:    "capture.jpg",
		PreviewPath: "/tmp/preview-1.jpg",
	}
}

// --- Tests ---

func TestSubmit_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestSession(analyzer, &fakeFetcher{})

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	matches := s.Matches()
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(matches))
	}
	if matches[0].Similarity != 92 {
		t.Errorf("top similarity = %d, want 92 (round half up of 0.9167)", matches[0].Similarity)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches out of rank order at %d", i)
		}
	}

	sel, ok := s.Selected()
	if !ok || sel.Name != "pikachu" {
		t.Errorf("selected = %+v, want top match", sel)
	}
	if s.Nav().Current() != ScreenResults {
		t.Errorf("screen = %v, want results", s.Nav().Current())
	}
	if s.Busy() {
		t.Error("busy flag must clear after completion")
	}

	entries := s.History().Entries()
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	head := entries[0]
	if head.PokemonName != "pikachu" || head.ID != "res-1" {
		t.Errorf("history head = %+v, want built from top match", head)
	}
	if head.Timestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %q", head.Timestamp)
	}
	if len(head.Matches) != 3 {
		t.Errorf("history match list = %d, want full ranked list", len(head.Matches))
	}
}

func TestSubmit_FailureKeepsStateAndSetsBanner(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestSession(analyzer, &fakeFetcher{})

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	analyzer.err = &api.RequestError{StatusCode: 503, Message: "model warming up"}
	if err := s.Submit(context.Background(), captured()); err == nil {
		t.Fatal("expected error")
	}

	if got := s.Nav().Banner(); got != "model warming up" {
		t.Errorf("banner = %q, want extracted message", got)
	}
	if len(s.Matches()) != 3 {
		t.Error("failed analysis must not mutate result state")
	}
	if s.Nav().Current() != ScreenResults {
		t.Error("failed analysis must not navigate")
	}
	if len(s.History().Entries()) != 1 {
		t.Error("failed analysis must not add history")
	}
	if s.Busy() {
		t.Error("busy flag must clear after failure")
	}
}

func TestSubmit_RecordsPreviewAtStart(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestSession(analyzer, &fakeFetcher{})

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The preview follows the pending capture even when the analysis
	// itself fails.
	analyzer.err = &api.RequestError{StatusCode: 503, Message: "model warming up"}
	img := captured()
	img.PreviewPath = "/tmp/preview-2.jpg"
	if err := s.Submit(context.Background(), img); err == nil {
		t.Fatal("expected error")
	}

	if got := s.PreviewPath(); got != "/tmp/preview-2.jpg" {
		t.Errorf("preview = %q, want the pending capture's preview", got)
	}
	if len(s.Matches()) != 3 {
		t.Error("failed analysis must not mutate result state")
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult(), block: make(chan struct{})}
	s := newTestSession(analyzer, &fakeFetcher{})

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), captured()) }()

	// Wait for the in-flight call to start.
	for i := 0; i < 100 && !s.Busy(); i++ {
		time.Sleep(time.Millisecond)
	}
	if !s.Busy() {
		t.Fatal("first submission never became busy")
	}

	if err := s.Submit(context.Background(), captured()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit = %v, want ErrBusy", err)
	}

	close(analyzer.block)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if analyzer.callCount() != 1 {
		t.Errorf("Analyze calls = %d, want 1", analyzer.callCount())
	}
}

func TestSubmit_CancellationIsSilent(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult(), block: make(chan struct{})}
	s := newTestSession(analyzer, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Submit(ctx, captured()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit = %v, want context.Canceled", err)
	}
	if s.Nav().Banner() != "" {
		t.Errorf("cancellation must not surface a banner, got %q", s.Nav().Banner())
	}
}

func TestSubmit_NoMatchesSkipsHistory(t *testing.T) {
	analyzer := &fakeAnalyzer{result: pokedex.AnalysisResult{ID: "res-empty"}}
	s := newTestSession(analyzer, &fakeFetcher{})

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(s.History().Entries()) != 0 {
		t.Error("empty result must not create a history entry")
	}
	if _, ok := s.Selected(); ok {
		t.Error("no selection expected for an empty result")
	}
	if s.Nav().Current() != ScreenResults {
		t.Error("empty result still navigates to results")
	}
}

func TestSelectHistory_OfflineReplay(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	s := newTestSession(analyzer, &fakeFetcher{})

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stored := s.History().Entries()[0]

	// Replace live state, then replay.
	s.matches = nil
	s.previewPath = ""

	before := analyzer.callCount()
	s.SelectHistory(stored)
	if analyzer.callCount() != before {
		t.Error("history replay must not hit the network")
	}
	if len(s.Matches()) != 3 || s.Matches()[0].Name != "pikachu" {
		t.Errorf("replayed matches = %+v, want stored list", s.Matches())
	}
	if s.PreviewPath() != "/tmp/preview-1.jpg" {
		t.Errorf("preview = %q, want stored preview", s.PreviewPath())
	}
	if s.Nav().Current() != ScreenResults {
		t.Errorf("screen = %v, want results", s.Nav().Current())
	}
}

func TestOpenDetail_HydratesAndPatchesResults(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	fetcher := &fakeFetcher{rec: pokedex.Pokemon{
		Name:  "pikachu",
		Types: []string{"electric"},
		Genus: "Mouse Pokémon",
		Stats: &pokedex.Stats{HP: 35, Attack: 55, Speed: 90},
	}}
	s := newTestSession(analyzer, fetcher)

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.OpenDetail(context.Background(), 0)
	view, loading, errMsg := s.Detail()
	if loading || errMsg != "" {
		t.Fatalf("loading=%v err=%q after resolve", loading, errMsg)
	}
	if view == nil || !view.Hydrated || view.Genus != "Mouse Pokémon" {
		t.Errorf("detail view = %+v, want hydrated record", view)
	}
	if view.Similarity != 92 {
		t.Errorf("similarity = %d, want carried from match", view.Similarity)
	}
	if s.Nav().Current() != ScreenDetail {
		t.Errorf("screen = %v, want detail", s.Nav().Current())
	}

	// The result list entry is patched so revisits are hydrated.
	if !s.Matches()[0].Hydrated {
		t.Error("result list entry should be patched with hydrated data")
	}

	// Revisit serves from cache.
	s.CloseDetail()
	s.OpenDetail(context.Background(), 0)
	if fetcher.callCount() != 1 {
		t.Errorf("fetch count = %d, want cache hit on revisit", fetcher.callCount())
	}
}

func TestOpenDetail_FailureKeepsPartialView(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	fetcher := &fakeFetcher{err: errors.New("pokémon service unavailable")}
	s := newTestSession(analyzer, fetcher)

	if err := s.Submit(context.Background(), captured()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.OpenDetail(context.Background(), 1)
	view, loading, errMsg := s.Detail()
	if loading {
		t.Error("loading flag must clear after failure")
	}
	if errMsg == "" {
		t.Error("detail error expected")
	}
	if view == nil || view.Name != "raichu" || view.Hydrated {
		t.Errorf("partial view must stay visible, got %+v", view)
	}
	if s.Nav().Current() != ScreenDetail {
		t.Error("detail failure must not blank the screen")
	}

	// Closing clears the detail error and returns to results.
	s.CloseDetail()
	if _, _, errMsg := s.Detail(); errMsg != "" {
		t.Error("detail error must clear on close")
	}
	if s.Nav().Current() != ScreenResults {
		t.Errorf("screen = %v, want results after close", s.Nav().Current())
	}
}

func TestOpenPokedexEntry_ReturnsToPokedex(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	fetcher := &fakeFetcher{rec: pokedex.Pokemon{Name: "eevee", Types: []string{"normal"}}}
	s := newTestSession(analyzer, fetcher)

	s.Nav().Go(ScreenPokedex)
	s.OpenPokedexEntry(context.Background(), pokedex.Pokemon{ID: 133, Name: "eevee", Types: []string{"normal"}})

	if s.Nav().Current() != ScreenDetail {
		t.Fatalf("screen = %v, want detail", s.Nav().Current())
	}
	s.CloseDetail()
	if s.Nav().Current() != ScreenPokedex {
		t.Errorf("screen = %v, want pokédex as the recorded return target", s.Nav().Current())
	}
}

func TestNavigator_GoClearsBanner(t *testing.T) {
	n := NewNavigator()
	n.SetBanner("something broke")
	n.Go(ScreenCamera)
	if n.Banner() != "" {
		t.Error("primary navigation must clear the top-level banner")
	}
	if n.Current() != ScreenCamera {
		t.Errorf("screen = %v, want camera", n.Current())
	}
}
