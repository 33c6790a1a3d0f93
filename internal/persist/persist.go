// Package persist commits store snapshots to a state repository and
// loads them back at startup.
//
// Snapshots are wrapped in a small integrity frame:
//
//	"IMGS" | version (1 byte) | blake3-256 of payload (32 bytes) | payload
//
// Saved state without the frame is handed to the caller unchanged, so
// state written before framing existed still loads.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/lewtec/imgserver/internal/domain"
	"github.com/lewtec/imgserver/internal/store"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

const frameVersion = 1

var frameMagic = []byte("IMGS")

const frameHeaderSize = 4 + 1 + 32

// ErrCorrupt is returned when a framed snapshot fails verification
var ErrCorrupt = errors.New("snapshot frame is corrupt")

// Adapter loads and commits snapshots through a state repository.
// A nil repository disables persistence.
type Adapter struct {
	repo    domain.StateRepository
	options store.SnapshotOptions
	logger  zerolog.Logger
}

// New creates an Adapter over repo
func New(repo domain.StateRepository, options store.SnapshotOptions, logger zerolog.Logger) *Adapter {
	return &Adapter{repo: repo, options: options, logger: logger}
}

// Disabled creates an Adapter that never loads and discards commits
func Disabled(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Load returns the last committed snapshot. The boolean is false when
// there is none or it cannot be verified; the reason is logged.
func (a *Adapter) Load(ctx context.Context) ([]byte, bool) {
	if a.repo == nil {
		a.logger.Info().Msg("persist: persistence disabled, starting empty")
		return nil, false
	}
	data, err := a.repo.Load(ctx)
	if errors.Is(err, domain.ErrNoState) {
		a.logger.Info().Msg("persist: no state found")
		return nil, false
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("persist: while loading state")
		return nil, false
	}
	payload, err := Unframe(data)
	if err != nil {
		a.logger.Warn().Err(err).Int("bytes", len(data)).Msg("persist: saved state failed verification")
		return nil, false
	}
	return payload, true
}

// Commit snapshots s and saves it
func (a *Adapter) Commit(ctx context.Context, s *store.Store) error {
	if a.repo == nil {
		return nil
	}
	payload, err := s.Snapshot(a.options)
	if err != nil {
		return err
	}
	if err := a.repo.Save(ctx, Frame(payload)); err != nil {
		return fmt.Errorf("while saving snapshot: %w", err)
	}
	a.logger.Debug().Int("images", s.Len()).Int("bytes", len(payload)).Msg("persist: snapshot committed")
	return nil
}

// LoadStore restores the committed store, falling back to an empty one
// when nothing usable was saved
func (a *Adapter) LoadStore(ctx context.Context) *store.Store {
	payload, ok := a.Load(ctx)
	if !ok {
		return store.New()
	}
	restored, err := store.Restore(payload)
	if err != nil {
		a.logger.Warn().Err(err).Msg("persist: failed to deserialize state, using default")
		return store.New()
	}
	a.logger.Info().Int("images", restored.Len()).Msg("persist: successfully loaded image state")
	return restored
}

// Frame wraps payload in the integrity frame
func Frame(payload []byte) []byte {
	sum := blake3.Sum256(payload)
	framed := make([]byte, 0, frameHeaderSize+len(payload))
	framed = append(framed, frameMagic...)
	framed = append(framed, frameVersion)
	framed = append(framed, sum[:]...)
	return append(framed, payload...)
}

// Unframe verifies and strips the integrity frame. Data that does not
// start with the frame magic is returned as is.
func Unframe(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, frameMagic) {
		return data, nil
	}
	if len(data) < frameHeaderSize {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if data[4] != frameVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[4])
	}
	payload := data[frameHeaderSize:]
	sum := blake3.Sum256(payload)
	if !bytes.Equal(sum[:], data[5:frameHeaderSize]) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}
	return payload, nil
}
