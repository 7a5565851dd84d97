package activity_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
)

func TestRecordAndList(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc := activity.NewService(store.Activity()).WithClock(func() time.Time { return now })
	ctx := activity.WithIP(context.Background(), "203.0.113.9")

	svc.Record(ctx, "u1", "document.uploaded", "document", "d1", map[string]any{"kind": "cv"})
	now = now.Add(time.Minute)
	svc.Record(ctx, "u1", "document.shared", "document", "d1", nil)
	svc.Record(ctx, "u2", "application.created", "application", "a1", nil)
	svc.Record(ctx, "", "ignored", "x", "y", nil)
	svc.Record(ctx, "u1", "", "x", "y", nil)

	logs, total, err := svc.List(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, logs, 2)
	assert.Equal(t, "document.shared", logs[0].Action)
	assert.Equal(t, "203.0.113.9", logs[0].IPAddress)
	assert.Equal(t, "cv", logs[1].Metadata["kind"])

	page, total, err := svc.List(context.Background(), "u1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "document.uploaded", page[0].Action)
}

func TestPurgeInBatches(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := activity.NewService(store.Activity()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		svc.Record(ctx, "u1", fmt.Sprintf("old.%d", i), "x", "1", nil)
	}
	now = now.Add(100 * 24 * time.Hour)
	svc.Record(ctx, "u1", "recent", "x", "1", nil)

	n, err := svc.Purge(ctx, 90*24*time.Hour, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	logs, total, err := svc.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "recent", logs[0].Action)
}
