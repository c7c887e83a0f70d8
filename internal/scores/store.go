// Package scores keeps the top-N leaderboard and the all-time best score in
// a small JSON file.
package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyStore is returned by Best when no run has been recorded.
var ErrEmptyStore = errors.New("no scores recorded")

// Entry is one leaderboard row.
type Entry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

type fileFormat struct {
	HighScore Entry   `json:"highScore"`
	Top       []Entry `json:"top"`
}

// Store is safe for concurrent use. An empty path keeps everything in memory.
type Store struct {
	mu   sync.RWMutex
	path string
	size int
	top  []Entry
	best Entry
	seen bool
}

// Open loads the store from path, starting empty if the file does not exist.
func Open(path string, size int) (*Store, error) {
	if size <= 0 {
		size = 5
	}
	s := &Store{path: path, size: size, top: make([]Entry, 0, size+1)}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse scores %s: %w", path, err)
	}
	s.top = append(s.top, ff.Top...)
	s.sortAndTrim()
	if ff.HighScore.ID != "" {
		s.best, s.seen = ff.HighScore, true
	}
	return s, nil
}

// Record adds a finished run. The high score is kept even if the run falls
// off the leaderboard later.
func (s *Store) Record(runID string, score int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{ID: uuid.NewString(), RunID: runID, Score: score, Timestamp: at.UTC()}
	s.top = append(s.top, e)
	s.sortAndTrim()

	if !s.seen || score > s.best.Score {
		s.best, s.seen = e, true
		log.Printf("🏆 New high score %d (run %s)", score, runID)
	}

	return s.save()
}

// Top returns a copy of the leaderboard, best first.
func (s *Store) Top() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.top))
	copy(out, s.top)
	return out
}

// Best returns the all-time best run.
func (s *Store) Best() (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seen {
		return Entry{}, ErrEmptyStore
	}
	return s.best, nil
}

// sortAndTrim orders by score desc, earlier run first on ties. Caller holds mu.
func (s *Store) sortAndTrim() {
	sort.SliceStable(s.top, func(i, j int) bool {
		if s.top[i].Score != s.top[j].Score {
			return s.top[i].Score > s.top[j].Score
		}
		return s.top[i].Timestamp.Before(s.top[j].Timestamp)
	})
	if len(s.top) > s.size {
		s.top = s.top[:s.size]
	}
}

// save writes via a temp file and rename so a crash never leaves half a file.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(fileFormat{HighScore: s.best, Top: s.top}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create scores dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace scores: %w", err)
	}
	return nil
}
