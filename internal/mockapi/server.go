// Package mockapi implements the lookup backend's HTTP contract over an
// embedded Pokédex sample, for offline development and client tests. The
// real backend (vector search, model serving) lives elsewhere; only the
// wire contract is reproduced here.
package mockapi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/pokedex"
)

//go:embed dataset.json
var datasetJSON []byte

const defaultTopN = 5

// Dataset returns the embedded Pokédex sample.
func Dataset() ([]pokedex.Pokemon, error) {
	var list []pokedex.Pokemon
	if err := json.Unmarshal(datasetJSON, &list); err != nil {
		return nil, fmt.Errorf("parsing embedded dataset: %w", err)
	}
	return list, nil
}

// NewHandler builds the mock backend router under /api/v1.
func NewHandler() (http.Handler, error) {
	dataset, err := Dataset()
	if err != nil {
		return nil, err
	}

	s := &server{dataset: dataset}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze/", s.handleAnalyze)
		r.Get("/pokemon/", s.handleListPokemon)
		r.Get("/pokemon/{id}", s.handleGetPokemon)
	})
	return r, nil
}

type server struct {
	dataset []pokedex.Pokemon
}

// handleAnalyze scores the uploaded image against the dataset. Scoring is
// deterministic from the image bytes so repeated uploads of the same file
// rank identically.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(api.MaxUploadBytes); err != nil {
		writeMessageError(w, http.StatusBadRequest, "invalid multipart request: %v", err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeMessageError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, api.MaxUploadBytes+1))
	if err != nil {
		writeMessageError(w, http.StatusBadRequest, "could not read image: %v", err)
		return
	}
	if len(data) == 0 {
		writeMessageError(w, http.StatusBadRequest, "image %q is empty", header.Filename)
		return
	}
	if len(data) > api.MaxUploadBytes {
		writeMessageError(w, http.StatusRequestEntityTooLarge, "image exceeds the upload limit")
		return
	}

	topN := defaultTopN
	if raw := r.FormValue("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeDetailMessageError(w, http.StatusUnprocessableEntity, "top_n must be an integer")
			return
		}
		topN = n
	}
	if topN < api.MinTopN {
		topN = api.MinTopN
	} else if topN > api.MaxTopN {
		topN = api.MaxTopN
	}

	start := time.Now()
	matches := s.score(data, topN)
	result := pokedex.AnalysisResult{
		ID:               uuid.New().String(),
		Matches:          matches,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		ModelVersion:     "mock-1",
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, result)
}

// score hashes the image bytes per dataset entry and normalizes the hash
// into a pseudo-similarity, then ranks descending.
func (s *server) score(data []byte, topN int) []pokedex.Match {
	matches := make([]pokedex.Match, 0, len(s.dataset))
	for _, p := range s.dataset {
		h := fnv.New32a()
		h.Write(data)
		fmt.Fprintf(h, "|%d", p.ID)
		// Map into [0.35, 0.99] so results look plausible.
		score := 0.35 + 0.64*float64(h.Sum32())/float64(^uint32(0))
		matches = append(matches, pokedex.Match{Pokemon: p, SimilarityScore: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

func (s *server) handleGetPokemon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetailMessageError(w, http.StatusUnprocessableEntity, "id must be an integer")
		return
	}
	for _, p := range s.dataset {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeDetailStringError(w, http.StatusNotFound, "Pokémon %d not found", id)
}

func (s *server) handleListPokemon(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dataset)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// The real backend emits three error body shapes depending on the layer
// that failed; all three are reproduced so clients exercise the full
// extraction order.

func writeMessageError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{"message": fmt.Sprintf(format, args...)})
}

func writeDetailMessageError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{"detail": map[string]any{"message": fmt.Sprintf(format, args...)}})
}

func writeDetailStringError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{"detail": fmt.Sprintf(format, args...)})
}
