package pokedex

// Stats holds the six base stats. The backend omits fields it has no data
// for; absent fields decode to zero.
type Stats struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

// Pokemon is the record shape returned by the lookup backend. Only ID,
// Name and Types are guaranteed; everything else is optional and may be
// filled in later by a detail fetch.
type Pokemon struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Genus       string   `json:"genus,omitempty"`
	Generation  int      `json:"generation,omitempty"`
	Height      float64  `json:"height,omitempty"` // meters
	Weight      float64  `json:"weight,omitempty"` // kilograms
	Abilities   []string `json:"abilities,omitempty"`
	Stats       *Stats   `json:"stats,omitempty"`
}

// Match is one ranked candidate from an analysis. Rank is 1-based;
// SimilarityScore is in [0,1].
type Match struct {
	Pokemon         Pokemon `json:"pokemon"`
	SimilarityScore float64 `json:"similarity_score"`
	Rank            int     `json:"rank"`
}

// AnalysisResult is the response of one completed analysis round-trip.
// Matches are ordered rank-ascending (best first).
type AnalysisResult struct {
	ID               string  `json:"id"`
	Matches          []Match `json:"matches"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	ModelVersion     string  `json:"model_version,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
}
