// Package session owns the client-side application state: the analysis
// orchestration, the active result set, and screen navigation. It mirrors
// a single-threaded UI event loop, so a Session must be driven from one
// goroutine.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/capture"
	"github.com/kalambet/rotomdex/internal/detail"
	"github.com/kalambet/rotomdex/internal/history"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

// genericAnalyzeError is shown when a failure carries no message of its own.
const genericAnalyzeError = "analysis failed, please try again"

// Analyzer abstracts the analysis call so sessions can be tested without
// a backend. Implemented by api.Client.
type Analyzer interface {
	Analyze(ctx context.Context, img api.Image, topN int) (pokedex.AnalysisResult, error)
}

// ErrBusy is returned when a submission is attempted while another is
// still in flight.
var ErrBusy = errors.New("analysis already in progress")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session holds the navigable application state for one run.
type Session struct {
	analyzer Analyzer
	resolver *detail.Resolver
	history  *history.Store
	nav      *Navigator
	clock    Clock
	topN     int

	busy        bool
	matches     []pokedex.MatchView
	selected    int // index into matches, -1 when none
	previewPath string

	detailView    *pokedex.MatchView
	detailLoading bool
	detailErr     string
}

// New creates a Session. topN bounds how many matches are requested per
// analysis.
func New(analyzer Analyzer, resolver *detail.Resolver, hist *history.Store, topN int) *Session {
	return &Session{
		analyzer: analyzer,
		resolver: resolver,
		history:  hist,
		nav:      NewNavigator(),
		clock:    realClock{},
		topN:     topN,
		selected: -1,
	}
}

// NewWithClock creates a Session with a custom clock (for testing).
func NewWithClock(analyzer Analyzer, resolver *detail.Resolver, hist *history.Store, topN int, clock Clock) *Session {
	s := New(analyzer, resolver, hist, topN)
	s.clock = clock
	return s
}

// Nav exposes the navigator for screen switching and banner display.
func (s *Session) Nav() *Navigator {
	return s.nav
}

// Matches returns the current ranked result set.
func (s *Session) Matches() []pokedex.MatchView {
	return s.matches
}

// Selected returns the currently selected match, if any.
func (s *Session) Selected() (pokedex.MatchView, bool) {
	if s.selected < 0 || s.selected >= len(s.matches) {
		return pokedex.MatchView{}, false
	}
	return s.matches[s.selected], true
}

// PreviewPath returns the preview of the most recent submission or
// replayed entry, if any.
func (s *Session) PreviewPath() string {
	return s.previewPath
}

// Busy reports whether an analysis is in flight.
func (s *Session) Busy() bool {
	return s.busy
}

// History exposes the underlying history store.
func (s *Session) History() *history.Store {
	return s.history
}

// Submit runs one analysis round-trip for a validated capture. It is
// single-flight: a second submission while one is pending returns ErrBusy.
// The capture's preview is recorded as soon as the submission starts. On
// success the result set is replaced, the top match selected, the view
// moves to results, and a history entry is prepended. On failure the
// error lands in the top-level banner and the previous result set stays.
// Cancellation is silent: no banner.
func (s *Session) Submit(ctx context.Context, img *capture.CapturedImage) error {
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	defer func() { s.busy = false }()

	s.nav.ClearBanner()
	s.previewPath = img.PreviewPath

	result, err := s.analyzer.Analyze(ctx, img.APIImage(), s.topN)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		msg := err.Error()
		if msg == "" {
			msg = genericAnalyzeError
		}
		s.nav.SetBanner(msg)
		return err
	}

	views := pokedex.ViewsFromResult(result)
	s.matches = views
	s.selected = -1
	if len(views) > 0 {
		s.selected = 0
	}
	s.nav.set(ScreenResults)

	if len(views) > 0 {
		entry := history.Entry{
			ID:          result.ID,
			PokemonName: views[0].Name,
			Timestamp:   s.clock.Now().UTC().Format(time.RFC3339),
			PreviewPath: img.PreviewPath,
			Matches:     views,
		}
		if err := s.history.Add(entry); err != nil {
			// History is best effort; the analysis itself succeeded.
			slog.Warn("persisting history entry", "error", err)
		}
	}
	return nil
}

// SelectHistory replays a stored analysis into the result state without
// any network call and moves to the results screen.
func (s *Session) SelectHistory(e history.Entry) {
	s.matches = e.Matches
	s.previewPath = e.PreviewPath
	s.selected = -1
	if len(e.Matches) > 0 {
		s.selected = 0
	}
	s.nav.set(ScreenResults)
}

// Detail returns the active detail view, its loading flag, and any
// detail-specific error message.
func (s *Session) Detail() (view *pokedex.MatchView, loading bool, errMsg string) {
	return s.detailView, s.detailLoading, s.detailErr
}

// OpenDetail shows the detail screen for the result at index. The partial
// view is shown immediately; hydration happens via the resolver, and on
// success the result list entry is patched so revisits are hydrated too.
// On failure the partial view stays visible with a detail-scoped error.
func (s *Session) OpenDetail(ctx context.Context, index int) {
	if index < 0 || index >= len(s.matches) {
		return
	}
	s.selected = index
	view := s.matches[index]
	s.openDetail(ctx, view, ScreenResults, func(hydrated pokedex.MatchView) {
		s.matches[index] = hydrated
	})
}

// OpenPokedexEntry shows the detail screen for a Pokédex-browse record;
// back returns to the Pokédex instead of the results.
func (s *Session) OpenPokedexEntry(ctx context.Context, p pokedex.Pokemon) {
	view := pokedex.NewPokemonView(p)
	s.openDetail(ctx, view, ScreenPokedex, nil)
}

func (s *Session) openDetail(ctx context.Context, view pokedex.MatchView, returnTo Screen, patch func(pokedex.MatchView)) {
	s.detailView = &view
	s.detailErr = ""
	s.nav.OpenDetail(returnTo)

	if _, ok := s.resolver.Cached(view.ID); !ok {
		s.detailLoading = true
	}
	defer func() { s.detailLoading = false }()

	hydrated, err := s.resolver.Resolve(ctx, view)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.detailErr = err.Error()
		return
	}
	s.detailView = &hydrated
	if patch != nil {
		patch(hydrated)
	}
}

// CloseDetail leaves the detail screen, returning to wherever it was
// opened from and clearing any detail error.
func (s *Session) CloseDetail() {
	s.detailErr = ""
	s.detailView = nil
	s.nav.CloseDetail()
}
