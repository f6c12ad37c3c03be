package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_ExpireIdle(t *testing.T) {
	repo := NewMemoryRepo()
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := repo.AddItem(ctx, "old", 1)
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	_, err = repo.AddItem(ctx, "fresh", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.ExpireIdle(clock.Add(-30*time.Minute)))
	assert.Equal(t, 1, repo.Len())

	items, err := repo.GetCart(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, items)
	items, err = repo.GetCart(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMemoryRepo_ReadKeepsSessionAlive(t *testing.T) {
	repo := NewMemoryRepo()
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := repo.AddItem(ctx, "s1", 1)
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	_, err = repo.GetCart(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, 0, repo.ExpireIdle(clock.Add(-time.Minute)))
	assert.Equal(t, 1, repo.Len())
}

func TestCartSweeper_Sweep(t *testing.T) {
	log, hook := test.NewNullLogger()
	repo := NewMemoryRepo()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return start }
	_, err := repo.AddItem(context.Background(), "s1", 1)
	require.NoError(t, err)

	w := NewCartSweeper(repo, time.Hour, time.Minute, log)
	assert.Equal(t, 0, w.Sweep(start.Add(30*time.Minute)))
	assert.Equal(t, 1, w.Sweep(start.Add(2*time.Hour)))
	assert.Equal(t, uint64(1), w.Evicted())
	assert.Equal(t, "[CartSweeper] Evicted 1 idle carts", hook.LastEntry().Message)
}

func TestCartSweeper_RunStopsWithContext(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := NewCartSweeper(NewMemoryRepo(), time.Hour, time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
