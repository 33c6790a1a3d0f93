// Package store keeps uploaded images in memory, keyed by identifier.
//
// A Store has a single owner: the process message loop. It does no
// locking; callers that share one across goroutines must serialize access.
package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lewtec/imgserver/internal/domain"
)

// maxIDAttempts bounds identifier regeneration when a fresh id collides
const maxIDAttempts = 8

// ErrIdentifierExhausted is returned when no unused identifier could be generated
var ErrIdentifierExhausted = errors.New("could not allocate an unused identifier")

// Store maps identifiers to image bytes
type Store struct {
	images map[string][]byte
	newID  func() string
}

// New creates an empty store
func New() *Store {
	return &Store{
		images: make(map[string][]byte),
		newID:  uuid.NewString,
	}
}

// Upload stores a copy of data under a new identifier and returns it.
// An existing identifier is never overwritten.
func (s *Store) Upload(data []byte) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.images[id]; taken {
			continue
		}
		copyBuf := make([]byte, len(data))
		copy(copyBuf, data)
		s.images[id] = copyBuf
		return id, nil
	}
	return "", ErrIdentifierExhausted
}

// Get returns a copy of the bytes stored under id
func (s *Store) Get(id string) ([]byte, error) {
	data, ok := s.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Len returns the number of stored images
func (s *Store) Len() int {
	return len(s.images)
}

// IDs returns every identifier in the store, sorted
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Verify that Store implements domain.ImageStore
var _ domain.ImageStore = (*Store)(nil)
