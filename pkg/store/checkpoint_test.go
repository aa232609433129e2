package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/models"
)

func testCheckpoint(t *testing.T) models.Checkpoint {
	t.Helper()
	task, err := models.NewTask("research the topic", 0)
	require.NoError(t, err)
	return models.Checkpoint{
		RunID: "run-1",
		Task:  task,
		Routing: models.RoutingDecision{
			Mode:     models.ModeSequential,
			Assigned: []string{"researcher", "writer"},
		},
		Outputs: map[string]string{"researcher": "findings"},
		Pending: models.PendingRequest{
			RequestID: "req-1",
			Kind:      "approval",
			AgentID:   "writer",
		},
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	cp := testCheckpoint(t)
	id, err := s.Save(ctx, cp)
	require.NoError(t, err)
	require.Len(t, id, 64)

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	got.ID = ""
	assert.Equal(t, cp, got)
}

func TestFileCheckpointContentAddressing(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	cp := testCheckpoint(t)
	id1, err := s.Save(ctx, cp)
	require.NoError(t, err)

	// Same content, same id; a pre-set ID does not change the address.
	cp.ID = "ignored"
	id2, err := s.Save(ctx, cp)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Different content, different id.
	cp.Outputs["writer"] = "draft"
	id3, err := s.Save(ctx, cp)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestFileCheckpointLoadErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(ctx, "../../etc/passwd")
	var invalid *models.InvalidInput
	assert.ErrorAs(t, err, &invalid)

	missing := "0000000000000000000000000000000000000000000000000000000000000000"
	_, err = s.Load(ctx, missing)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFileCheckpointDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	id, err := s.Save(ctx, testCheckpoint(t))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Deleting twice is a no-op.
	require.NoError(t, s.Delete(ctx, id))
}
