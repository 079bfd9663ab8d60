package ch

import (
	"context"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"go.uber.org/zap"

	"bookapp/internal/activity"
)

// migrateEvents applies the embedded migrations to the container
func migrateEvents(ctx context.Context, options *clickhouse.Options) error {
	db := OpenDB(options)
	defer db.Close()

	provider, err := NewMigrationProvider(db)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// setupTestRecorder creates a test ClickHouse instance using testcontainers
func setupTestRecorder(t *testing.T) (*Recorder, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse container test in short mode")
	}
	ctx := context.Background()

	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	options := Options(host, port.Int(), "default", "default", "", false)
	require.NoError(t, migrateEvents(ctx, options), "Failed to migrate events table")

	recorder, err := NewRecorder(ctx, options, zap.NewNop())
	require.NoError(t, err, "Failed to connect to ClickHouse")

	cleanup := func() {
		recorder.Close()
		clickhouseContainer.Terminate(ctx)
	}
	return recorder, cleanup
}

func TestRecorder_TopBooks(t *testing.T) {
	recorder, cleanup := setupTestRecorder(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()

	events := []activity.Event{
		{At: now, Kind: activity.KindFavorited, BookID: 1, Title: "Emma"},
		{At: now, Kind: activity.KindFavorited, BookID: 2, Title: "Dune"},
		{At: now.Add(time.Second), Kind: activity.KindFavorited, BookID: 2, Title: "Dune Messiah"},
		{At: now, Kind: activity.KindAdded, BookID: 3, Title: "Ignored"},
		{At: now.Add(-72 * time.Hour), Kind: activity.KindFavorited, BookID: 4, Title: "Too old"},
	}
	for _, e := range events {
		require.NoError(t, recorder.Record(ctx, e))
	}

	stats, err := recorder.TopBooks(ctx, activity.KindFavorited, 10, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats[0].BookID)
	assert.Equal(t, "Dune Messiah", stats[0].Title)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, int64(1), stats[1].BookID)
}

func TestRecorder_TopBooksEmpty(t *testing.T) {
	recorder, cleanup := setupTestRecorder(t)
	defer cleanup()

	stats, err := recorder.TopBooks(context.Background(), activity.KindDownloaded, 5, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestNewRecorder_UnreachableServer(t *testing.T) {
	options := Options("127.0.0.1", 1, "default", "default", "", false)
	options.DialTimeout = 500 * time.Millisecond

	recorder, err := NewRecorder(context.Background(), options, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping ClickHouse")
	assert.Nil(t, recorder)
}
