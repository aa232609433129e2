package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/maestro-ai/maestro/pkg/models"
)

// FileCheckpointStore keeps checkpoints as content-addressed JSON blobs in a
// directory: the id is the hex SHA-256 of the serialized checkpoint, so
// saving the same state twice is a no-op with the same id.
type FileCheckpointStore struct {
	dir string
}

// NewFileCheckpointStore creates the directory if needed.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{dir: dir}, nil
}

// Save implements CheckpointStore.
func (s *FileCheckpointStore) Save(_ context.Context, cp models.Checkpoint) (string, error) {
	// The id is derived from content, so it must not participate in it.
	cp.ID = ""
	data, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("encoding checkpoint: %w", err)
	}

	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publishing checkpoint: %w", err)
	}
	return id, nil
}

// Load implements CheckpointStore.
func (s *FileCheckpointStore) Load(_ context.Context, id string) (models.Checkpoint, error) {
	if !validCheckpointID(id) {
		return models.Checkpoint{}, models.NewInvalidInput("malformed checkpoint id")
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Checkpoint{}, models.ErrNotFound
	}
	if err != nil {
		return models.Checkpoint{}, fmt.Errorf("reading checkpoint: %w", err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return models.Checkpoint{}, fmt.Errorf("decoding checkpoint: %w", err)
	}
	cp.ID = id
	return cp, nil
}

// Delete implements CheckpointStore. Deleting a missing checkpoint is a no-op.
func (s *FileCheckpointStore) Delete(_ context.Context, id string) error {
	if !validCheckpointID(id) {
		return models.NewInvalidInput("malformed checkpoint id")
	}
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

func (s *FileCheckpointStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validCheckpointID accepts only hex SHA-256 ids, which also keeps ids from
// escaping the checkpoint directory.
func validCheckpointID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
