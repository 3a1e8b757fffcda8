// Package store persists per-user listening history, favorites, and
// feedback as a JSON file alongside the experiment state.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/synthscribe/synthscribe/ai/suggest"
)

// maxHistory caps the stored history, newest first.
const maxHistory = 20

// HistoryEntry is one suggestion session.
type HistoryEntry struct {
	Timestamp   time.Time                 `json:"timestamp"`
	Mood        string                    `json:"mood"`
	Suggestions []suggest.MusicSuggestion `json:"suggestions"`
}

// Preferences is the on-disk document.
type Preferences struct {
	History   []HistoryEntry            `json:"history"`
	Favorites []suggest.MusicSuggestion `json:"favorites"`
	// Feedback maps mood, then suggestion index, to a rating.
	Feedback map[string]map[string]float64 `json:"feedback"`
}

// UserProfile manages a user's preferences file. Mutating methods persist
// immediately; all methods are safe for concurrent use.
type UserProfile struct {
	mu    sync.Mutex
	path  string
	prefs Preferences
}

// NewUserProfile loads the preferences at path, starting empty when the
// file is missing or unreadable.
func NewUserProfile(path string) *UserProfile {
	p := &UserProfile{path: path, prefs: emptyPreferences()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p
	}
	if err != nil {
		slog.Warn("failed to read preferences, starting empty", "path", path, "error", err)
		return p
	}
	if err := json.Unmarshal(raw, &p.prefs); err != nil {
		slog.Warn("failed to decode preferences, starting empty", "path", path, "error", err)
		p.prefs = emptyPreferences()
		return p
	}
	if p.prefs.Feedback == nil {
		p.prefs.Feedback = make(map[string]map[string]float64)
	}
	return p
}

func emptyPreferences() Preferences {
	return Preferences{Feedback: make(map[string]map[string]float64)}
}

// AddToHistory prepends a suggestion session and trims the history to the
// most recent entries.
func (p *UserProfile) AddToHistory(mood string, suggestions []suggest.MusicSuggestion) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := HistoryEntry{
		Timestamp:   time.Now().UTC(),
		Mood:        mood,
		Suggestions: suggestions,
	}
	p.prefs.History = append([]HistoryEntry{entry}, p.prefs.History...)
	if len(p.prefs.History) > maxHistory {
		p.prefs.History = p.prefs.History[:maxHistory]
	}
	return p.save()
}

// AddToFavorites stores a suggestion unless one with the same genre and
// album is already present. Returns true when the favorite was added.
func (p *UserProfile) AddToFavorites(s suggest.MusicSuggestion) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, fav := range p.prefs.Favorites {
		if fav.Genre == s.Genre && fav.Album == s.Album {
			return false, nil
		}
	}
	p.prefs.Favorites = append(p.prefs.Favorites, s)
	return true, p.save()
}

// AddFeedback records a rating for the nth suggestion of a mood.
func (p *UserProfile) AddFeedback(mood string, index int, rating float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.prefs.Feedback[mood] == nil {
		p.prefs.Feedback[mood] = make(map[string]float64)
	}
	p.prefs.Feedback[mood][strconv.Itoa(index)] = rating
	return p.save()
}

// History returns a copy of the stored history, newest first.
func (p *UserProfile) History() []HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HistoryEntry, len(p.prefs.History))
	copy(out, p.prefs.History)
	return out
}

// Favorites returns a copy of the stored favorites.
func (p *UserProfile) Favorites() []suggest.MusicSuggestion {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]suggest.MusicSuggestion, len(p.prefs.Favorites))
	copy(out, p.prefs.Favorites)
	return out
}

// GenreCounts tallies genres across the most recent sessions, feeding the
// persona prompt's user context.
func (p *UserProfile) GenreCounts(sessions int) map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	history := p.prefs.History
	if sessions > 0 && len(history) > sessions {
		history = history[:sessions]
	}
	counts := make(map[string]int)
	for _, entry := range history {
		for _, s := range entry.Suggestions {
			if s.Genre != "" {
				counts[s.Genre]++
			}
		}
	}
	return counts
}

// save writes the preferences atomically via a temp file in the same
// directory.
func (p *UserProfile) save() error {
	raw, err := json.MarshalIndent(p.prefs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".preferences-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp preferences file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write preferences")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close preferences file")
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return errors.Wrap(err, "replace preferences file")
	}
	return nil
}
