// Package store persists each user's transaction records as a single
// JSON document and pushes replacement snapshots to subscribers.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finboard/internal/models"
	"finboard/internal/services/storage"
)

// usersDir is the subdirectory of the data dir holding user documents.
const usersDir = "users"

// document is the on-disk shape of one user's data. Records stay in
// their raw uploaded form; normalization happens on read paths so a
// parser fix applies to history without a re-upload.
type document struct {
	Records   []models.RawRecord `json:"records"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Update is the payload pushed to subscribers when a user's records
// are replaced.
type Update struct {
	Records []models.RawRecord
}

// Store owns all user documents. Reads hit an in-memory cache after
// the first load; ReplaceAll writes through to disk.
type Store struct {
	files *storage.Storage

	mu          sync.RWMutex
	cache       map[string][]models.RawRecord
	subscribers map[string]map[int]chan Update
	nextSub     int
}

// New creates a store backed by the given file storage.
func New(files *storage.Storage) *Store {
	return &Store{
		files:       files,
		cache:       make(map[string][]models.RawRecord),
		subscribers: make(map[string]map[int]chan Update),
	}
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.files.BaseDir(), usersDir, userID+".json")
}

// Records returns the user's current records. A user with no document
// yet gets an empty slice, not an error.
func (s *Store) Records(userID string) ([]models.RawRecord, error) {
	s.mu.RLock()
	if records, ok := s.cache[userID]; ok {
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(userID)
}

// loadLocked returns the user's records, reading the document from
// disk on a cache miss. Callers must hold s.mu for writing.
func (s *Store) loadLocked(userID string) ([]models.RawRecord, error) {
	if records, ok := s.cache[userID]; ok {
		return records, nil
	}

	data, err := s.files.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		s.cache[userID] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading user %s: %w", userID, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decoding user %s: %w", userID, err)
	}
	s.cache[userID] = doc.Records
	return doc.Records, nil
}

// ReplaceAll swaps the user's full record set, persists it, and
// notifies subscribers. Uploads replace, they never append.
func (s *Store) ReplaceAll(userID string, records []models.RawRecord) error {
	doc := document{Records: records, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding user %s: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.files.WriteFile(s.path(userID), data, 0o644); err != nil {
		return fmt.Errorf("store: writing user %s: %w", userID, err)
	}
	s.cache[userID] = records

	for _, ch := range s.subscribers[userID] {
		// Buffer of one, last write wins: a slow subscriber sees
		// only the most recent snapshot.
		select {
		case <-ch:
		default:
		}
		ch <- Update{Records: records}
	}
	return nil
}

// Subscribe registers for replacement notifications for one user. The
// current snapshot is delivered immediately, then a full snapshot on
// every ReplaceAll. The channel has a buffer of one and always carries
// the latest snapshot; intermediate snapshots may be skipped. The
// cancel func unregisters and closes the channel.
func (s *Store) Subscribe(userID string) (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, 1)
	id := s.nextSub
	s.nextSub++
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[int]chan Update)
	}
	s.subscribers[userID][id] = ch

	// Seed with the current snapshot so a replacement landing between
	// a Records call and this one is never lost. An unreadable
	// document yields no seed; the next ReplaceAll still arrives.
	if records, err := s.loadLocked(userID); err == nil {
		ch <- Update{Records: records}
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[userID][id]; !ok {
			return
		}
		delete(s.subscribers[userID], id)
		close(ch)
	}
	return ch, cancel
}

// UserIDs lists every user with a persisted document.
func (s *Store) UserIDs() ([]string, error) {
	pattern := filepath.Join(s.files.BaseDir(), usersDir, "*.json")
	paths, err := s.files.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("store: listing users: %w", err)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		ids = append(ids, base[:len(base)-len(".json")])
	}
	return ids, nil
}
