package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsignals/internal/events"
)

func TestInsertSQL(t *testing.T) {
	sql := insertSQL()

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO events (session_id, "))
	assert.Contains(t, sql, "$17::jsonb, $18)")
	assert.True(t, strings.HasSuffix(sql, "RETURNING id"))
}

func TestSelectColumnsCastsMetadata(t *testing.T) {
	cols := selectColumns()

	assert.Contains(t, cols, "metadata::text, created_at")
	assert.NotContains(t, cols, "metadata, ")
}

// TestStoreAgainstPostgres runs when SHOPSIGNALS_TEST_POSTGRES_DSN points at a
// disposable database.
func TestStoreAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("SHOPSIGNALS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SHOPSIGNALS_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := Connect(ctx, dsn, 100, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	_, err = store.pool.Exec(ctx, "TRUNCATE events")
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	for i, et := range []events.EventType{events.EventSessionStart, events.EventAddToCart, events.EventCheckoutStart} {
		category, _ := et.Category()
		e := &events.Event{
			SessionID:     "pg-session",
			EventType:     et,
			EventCategory: category,
			DeviceType:    events.StringPtr("Mobile"),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Insert(ctx, e))
		assert.NotZero(t, e.ID)
	}

	cart := events.EventAddToCart
	got, err := store.Query(ctx, events.Filter{EventType: &cart})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mobile", events.Deref(got[0].DeviceType))

	all, err := store.Query(ctx, events.Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events.EventCheckoutStart, all[0].EventType)
}
