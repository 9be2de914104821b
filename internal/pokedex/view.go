package pokedex

import (
	"fmt"
	"math"
)

// spriteBaseURL is the fallback sprite host, keyed by numeric id, used
// when the backend omits image_url.
const spriteBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"

// SpriteURL returns the fallback sprite location for a Pokémon id.
func SpriteURL(id int) string {
	return fmt.Sprintf("%s/%d.png", spriteBaseURL, id)
}

// MatchView is the display projection of a Match: the similarity score
// becomes an integer percentage and optional record fields get display
// defaults. A view built from an analysis match may be partial; Hydrated
// reports whether a full detail record has been overlaid.
type MatchView struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Similarity int      `json:"similarity"` // percent, 0-100
	Types      []string `json:"types"`
	ImageURL   string   `json:"imageUrl"`
	Descr      string   `json:"description"`
	Genus      string   `json:"genus"`
	Height     string   `json:"height"`
	Weight     string   `json:"weight"`
	Generation int      `json:"generation"`
	Abilities  []string `json:"abilities"`
	Stats      Stats    `json:"stats"`
	Hydrated   bool     `json:"hydrated"`
}

// Percent converts a similarity score in [0,1] to a display percentage
// with round-half-up semantics, clamped non-negative.
func Percent(score float64) int {
	p := int(math.Round(score * 100))
	if p < 0 {
		return 0
	}
	return p
}

// FormatHeight renders a height in meters for display.
func FormatHeight(m float64) string {
	if m == 0 {
		return "?"
	}
	return fmt.Sprintf("%.1f m", m)
}

// FormatWeight renders a weight in kilograms for display.
func FormatWeight(kg float64) string {
	if kg == 0 {
		return "?"
	}
	return fmt.Sprintf("%.1f kg", kg)
}

// NewMatchView projects an API match into its display form.
func NewMatchView(m Match) MatchView {
	return overlay(m.Pokemon, Percent(m.SimilarityScore), false)
}

// NewPokemonView projects a bare Pokédex record (no similarity context)
// into display form. Similarity renders as 0 and is not shown.
func NewPokemonView(p Pokemon) MatchView {
	return overlay(p, 0, true)
}

// HydrateView overlays a fully fetched record onto an existing view,
// carrying the similarity percentage from the originating match context.
func HydrateView(view MatchView, full Pokemon) MatchView {
	return overlay(full, view.Similarity, true)
}

func overlay(p Pokemon, similarity int, hydrated bool) MatchView {
	v := MatchView{
		ID:         p.ID,
		Name:       p.Name,
		Similarity: similarity,
		Types:      p.Types,
		ImageURL:   p.ImageURL,
		Descr:      p.Description,
		Genus:      p.Genus,
		Height:     FormatHeight(p.Height),
		Weight:     FormatWeight(p.Weight),
		Generation: p.Generation,
		Abilities:  p.Abilities,
		Hydrated:   hydrated,
	}
	if v.ImageURL == "" {
		v.ImageURL = SpriteURL(p.ID)
	}
	if p.Stats != nil {
		v.Stats = *p.Stats
	}
	return v
}

// ViewsFromResult maps a full analysis result into display views,
// preserving rank order.
func ViewsFromResult(r AnalysisResult) []MatchView {
	views := make([]MatchView, len(r.Matches))
	for i, m := range r.Matches {
		views[i] = NewMatchView(m)
	}
	return views
}
