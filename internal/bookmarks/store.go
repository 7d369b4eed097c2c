// Package bookmarks persists refined ideas to a single JSON document and
// answers duplicate checks against it. This is the only persistent state in
// the system; the workflow core never touches it.
package bookmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ideaforge/internal/logging"
	"ideaforge/internal/novelty"
)

// Entry is one saved idea.
type Entry struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Idea         string    `json:"idea"`
	ImprovedIdea string    `json:"improved_idea,omitempty"`
	Score        float64   `json:"score,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Recommendation grades how strongly a new idea collides with saved ones.
type Recommendation string

const (
	RecommendationBlock  Recommendation = "block"  // ≥ 0.95 similarity
	RecommendationWarn   Recommendation = "warn"   // ≥ 0.80
	RecommendationNotice Recommendation = "notice" // ≥ 0.60
	RecommendationAllow  Recommendation = "allow"
)

// SimilarBookmark pairs an existing entry with its similarity to the probe.
type SimilarBookmark struct {
	Entry      Entry   `json:"entry"`
	Similarity float64 `json:"similarity"`
}

// DuplicateCheck is the result of CheckDuplicate.
type DuplicateCheck struct {
	SimilarBookmarks []SimilarBookmark `json:"similar_bookmarks"`
	Recommendation   Recommendation    `json:"recommendation"`
}

// Store is a thread-safe JSON-file-backed bookmark collection. Writes are
// atomic (temp file + rename).
type Store struct {
	mu   sync.Mutex
	path string
}

type document struct {
	Entries []Entry `json:"entries"`
}

// NewStore opens (or will create on first save) the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the document under the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ideaforge_bookmarks.json"
	}
	return filepath.Join(home, ".ideaforge_bookmarks.json")
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bookmarks %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bookmarks: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write bookmarks: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace bookmarks: %w", err)
	}
	return nil
}

// Save appends an entry, assigning ID and timestamp, and returns the ID.
func (s *Store) Save(entry Entry) (string, error) {
	if entry.Idea == "" {
		return "", fmt.Errorf("bookmark idea is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	doc.Entries = append(doc.Entries, entry)
	if err := s.save(doc); err != nil {
		return "", err
	}
	logging.Bookmarks("saved bookmark %s for topic %q", entry.ID, entry.Topic)
	return entry.ID, nil
}

// List returns all entries, newest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(doc.Entries, func(i, j int) bool {
		return doc.Entries[i].CreatedAt.After(doc.Entries[j].CreatedAt)
	})
	return doc.Entries, nil
}

// Remove deletes an entry by ID.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Entries[:0]
	found := false
	for _, e := range doc.Entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("bookmark %s not found", id)
	}
	doc.Entries = kept
	return s.save(doc)
}

// CheckDuplicate compares an idea against saved entries for the same topic
// (all topics when topic is empty) and grades the collision. Similar
// entries are returned sorted by similarity, highest first.
func (s *Store) CheckDuplicate(idea, topic string) (*DuplicateCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	check := &DuplicateCheck{Recommendation: RecommendationAllow}
	best := 0.0
	for _, e := range doc.Entries {
		if topic != "" && e.Topic != topic {
			continue
		}
		sim := novelty.Similarity(idea, e.Idea)
		if sim >= 0.6 {
			check.SimilarBookmarks = append(check.SimilarBookmarks, SimilarBookmark{Entry: e, Similarity: sim})
		}
		if sim > best {
			best = sim
		}
	}
	sort.SliceStable(check.SimilarBookmarks, func(i, j int) bool {
		return check.SimilarBookmarks[i].Similarity > check.SimilarBookmarks[j].Similarity
	})

	switch {
	case best >= 0.95:
		check.Recommendation = RecommendationBlock
	case best >= 0.80:
		check.Recommendation = RecommendationWarn
	case best >= 0.60:
		check.Recommendation = RecommendationNotice
	}
	return check, nil
}
