package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"
	"github.com/lewtec/imgserver/internal/domain"
)

// FileStateRepository implements domain.StateRepository with one file per
// process on a billy filesystem
type FileStateRepository struct {
	fs       billy.Filesystem
	filename string
}

// NewFileStateRepository creates a FileStateRepository for the given process
func NewFileStateRepository(fs billy.Filesystem, process string) *FileStateRepository {
	return &FileStateRepository{fs: fs, filename: stateFilename(process)}
}

func stateFilename(process string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "@", "_")
	return replacer.Replace(process) + ".state"
}

// Filename returns the file the state is kept in, relative to the filesystem root
func (r *FileStateRepository) Filename() string {
	return r.filename
}

// Load returns the saved state or domain.ErrNoState
func (r *FileStateRepository) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := util.ReadFile(r.fs, r.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("while reading state file %s: %w", r.filename, err)
	}
	return data, nil
}

// Save writes the state to a temporary file and renames it over the
// previous one, so a crash mid-write leaves the old state intact.
func (r *FileStateRepository) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := r.fs.TempFile("", "."+r.filename+"-")
	if err != nil {
		return fmt.Errorf("while creating temporary state file: %w", err)
	}
	tempName := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		r.fs.Remove(tempName)
		return fmt.Errorf("while writing temporary state file: %w", err)
	}
	if err := f.Close(); err != nil {
		r.fs.Remove(tempName)
		return fmt.Errorf("while closing temporary state file: %w", err)
	}
	if err := r.fs.Rename(tempName, r.filename); err != nil {
		r.fs.Remove(tempName)
		return fmt.Errorf("while replacing state file %s: %w", r.filename, err)
	}
	return nil
}

// Verify that FileStateRepository implements domain.StateRepository
var _ domain.StateRepository = (*FileStateRepository)(nil)
