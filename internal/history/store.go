// Package history keeps a bounded, most-recent-first record of past
// analyses, persisted so it survives restarts and can be replayed offline.
package history

import (
	"encoding/json"
	"log/slog"

	"github.com/kalambet/rotomdex/internal/pokedex"
)

// StateKey is the fixed persistence slot for the serialized entry list.
const StateKey = "history"

// DefaultCap bounds how many analyses are remembered.
const DefaultCap = 6

// KeyValueStore defines the persistence operations the Store needs.
// Implemented by storage.Store.
type KeyValueStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
	DeleteState(key string) error
}

// Entry is one persisted analysis: enough to re-show the full match list
// without a network call.
type Entry struct {
	ID          string             `json:"id"`
	PokemonName string             `json:"pokemonName"`
	Timestamp   string             `json:"timestamp"` // RFC 3339
	PreviewPath string             `json:"previewPath,omitempty"`
	Matches     []pokedex.MatchView `json:"matches"`
}

// Store is a capped, most-recent-first list of entries mirrored to a
// KeyValueStore on every mutation.
type Store struct {
	kv      KeyValueStore
	cap     int
	entries []Entry
}

// New creates a Store with the given cap (DefaultCap when cap <= 0) and
// loads any previously persisted entries. Unparsable persisted data is
// discarded: history starts empty rather than failing.
func New(kv KeyValueStore, cap int) *Store {
	if cap <= 0 {
		cap = DefaultCap
	}
	s := &Store{kv: kv, cap: cap}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := s.kv.GetState(StateKey)
	if err != nil {
		return
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.Warn("discarding malformed persisted history", "error", err)
		return
	}
	if len(entries) > s.cap {
		entries = entries[:s.cap]
	}
	s.entries = entries
}

// Add prepends an entry, trims to the cap, and persists synchronously.
func (s *Store) Add(e Entry) error {
	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > s.cap {
		s.entries = s.entries[:s.cap]
	}
	return s.persist()
}

// Entries returns the current list, most recent first.
func (s *Store) Entries() []Entry {
	return s.entries
}

// Get returns the entry at index, if it exists.
func (s *Store) Get(index int) (Entry, bool) {
	if index < 0 || index >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[index], true
}

// Clear removes all entries and deletes the persisted row.
func (s *Store) Clear() error {
	s.entries = nil
	return s.kv.DeleteState(StateKey)
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	return s.kv.SetState(StateKey, string(data))
}
