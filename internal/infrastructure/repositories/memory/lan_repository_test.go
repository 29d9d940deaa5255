package memory

import (
	"context"
	"testing"
	"time"

	"signalhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanRepo_UpsertReplaces(t *testing.T) {
	repo := NewMemoryLanRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.LanRecord{
		UserID:      "alice",
		Addresses:   []string{"10.0.0.5"},
		LastUpdated: time.Now(),
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.LanRecord{
		UserID:      "alice",
		Addresses:   []string{"192.168.1.10"},
		LastUpdated: time.Now(),
	}))

	got, err := repo.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.10"}, got.Addresses)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLanRepo_GetUnknownUser(t *testing.T) {
	repo := NewMemoryLanRepository()
	_, err := repo.GetByUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrLanRecordNotFound)
}

func TestLanRepo_Remove(t *testing.T) {
	repo := NewMemoryLanRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.LanRecord{UserID: "alice"}))
	require.NoError(t, repo.Remove(ctx, "alice"))
	assert.ErrorIs(t, repo.Remove(ctx, "alice"), domain.ErrLanRecordNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
