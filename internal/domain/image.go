package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an identifier has never been assigned
	ErrNotFound = errors.New("image not found")

	// ErrNoState is returned by state repositories that hold no snapshot yet
	ErrNoState = errors.New("no state persisted")

	// ErrNoBlob is returned when a message carries no attached bytes
	ErrNoBlob = errors.New("no blob attached to message")
)

// Image represents a stored image
type Image struct {
	ID    string
	Bytes []byte
}

// ImageStore defines the operations the dispatcher needs from the store
type ImageStore interface {
	// Upload stores a copy of data under a fresh identifier
	Upload(data []byte) (string, error)

	// Get returns a copy of the bytes stored under id
	Get(id string) ([]byte, error)
}

// StateRepository defines where a process keeps its serialized state
type StateRepository interface {
	// Load returns the last saved state or ErrNoState
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the saved state
	Save(ctx context.Context, data []byte) error
}
