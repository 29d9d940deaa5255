package memory

import (
	"context"
	"testing"
	"time"

	"signalhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ringingCall(id domain.CallID, caller, receiver domain.UserID) *domain.DirectCall {
	return &domain.DirectCall{
		ID:          id,
		CallerID:    caller,
		ReceiverID:  receiver,
		State:       domain.CallStateRinging,
		InitiatedAt: time.Now(),
	}
}

func TestCallRepo_FindByPairIsDirectionless(t *testing.T) {
	repo := NewMemoryCallRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, ringingCall("c1", "alice", "bob")))

	got, err := repo.FindByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID("c1"), got.ID)

	got, err = repo.FindByPair(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID("c1"), got.ID)

	_, err = repo.FindByPair(ctx, "alice", "carol")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestCallRepo_RemoveClearsPairIndex(t *testing.T) {
	repo := NewMemoryCallRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, ringingCall("c1", "alice", "bob")))
	require.NoError(t, repo.Remove(ctx, "c1"))

	_, err := repo.FindByPair(ctx, "alice", "bob")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)

	// The pair is reusable immediately.
	require.NoError(t, repo.Add(ctx, ringingCall("c2", "bob", "alice")))
	got, err := repo.FindByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallID("c2"), got.ID)
}

func TestCallRepo_RemoveUnknown(t *testing.T) {
	repo := NewMemoryCallRepository()
	err := repo.Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestCallRepo_FindByUserCoversBothRoles(t *testing.T) {
	repo := NewMemoryCallRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, ringingCall("c1", "alice", "bob")))
	require.NoError(t, repo.Add(ctx, ringingCall("c2", "carol", "alice")))
	require.NoError(t, repo.Add(ctx, ringingCall("c3", "dave", "erin")))

	calls, err := repo.FindByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, calls, 2)

	calls, err = repo.FindByUser(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestCallRepo_UpdateUnknown(t *testing.T) {
	repo := NewMemoryCallRepository()
	err := repo.Update(context.Background(), ringingCall("ghost", "a", "b"))
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestCallRepo_ListActive(t *testing.T) {
	repo := NewMemoryCallRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, ringingCall("c1", "alice", "bob")))
	require.NoError(t, repo.Add(ctx, ringingCall("c2", "carol", "dave")))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
