package lead

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindQualifyingUnprocessedAgeWindow(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	fresh := &Lead{ID: "fresh", ClientID: "shop-1", Score: 85, CreatedAt: time.Now().Add(-30 * time.Minute)}
	stale := &Lead{ID: "stale", ClientID: "shop-1", Score: 85, CreatedAt: time.Now().Add(-25 * time.Hour)}
	_, err := repo.Upsert(ctx, fresh)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, stale)
	require.NoError(t, err)

	got, err := repo.FindQualifyingUnprocessed(ctx, "", 70, 24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID, "leads older than the window are skipped")
}

func TestFindQualifyingUnprocessedOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Upsert(ctx, &Lead{
			ID:        fmt.Sprintf("lead-%d", i),
			ClientID:  "shop-1",
			Score:     80,
			CreatedAt: time.Now().Add(-time.Duration(5-i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := repo.FindQualifyingUnprocessed(ctx, "", 70, time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Oldest first: lead-0 was created 5 minutes ago.
	assert.Equal(t, "lead-0", got[0].ID)
	assert.Equal(t, "lead-1", got[1].ID)
	assert.Equal(t, "lead-2", got[2].ID)
}

func TestFindQualifyingUnprocessedFiltersByClient(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &Lead{ID: "a", ClientID: "shop-1", Score: 90})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &Lead{ID: "b", ClientID: "shop-2", Score: 90})
	require.NoError(t, err)

	got, err := repo.FindQualifyingUnprocessed(ctx, "shop-2", 70, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestMarkProcessedSecondCallReturnsFalse(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &Lead{ID: "x", ClientID: "shop-1", Score: 90})
	require.NoError(t, err)

	ok, err := repo.MarkProcessed(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkProcessed(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertPreservesProcessedAndCreatedAt(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &Lead{ID: "x", ClientID: "shop-1", Score: 90})
	require.NoError(t, err)
	_, err = repo.MarkProcessed(ctx, "x")
	require.NoError(t, err)

	again, err := repo.Upsert(ctx, &Lead{ID: "x", ClientID: "shop-1", Score: 95})
	require.NoError(t, err)
	assert.True(t, again.Processed, "a later merge cannot unclaim a processed lead")
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
	assert.Equal(t, 95, again.Score)
}
