package clickhouse

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsignals/internal/events"
)

// TestStoreAgainstClickHouse runs when SHOPSIGNALS_TEST_CLICKHOUSE_ADDR points
// at a disposable server.
func TestStoreAgainstClickHouse(t *testing.T) {
	addr := os.Getenv("SHOPSIGNALS_TEST_CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("SHOPSIGNALS_TEST_CLICKHOUSE_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := Open(ctx, Config{Addr: addr, Database: "default", Username: "default", MaxRows: 100},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.conn.Exec(ctx, "TRUNCATE TABLE events"))

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	var batch []*events.Event
	for i, et := range []events.EventType{events.EventSessionStart, events.EventProductView, events.EventWhatsAppRedirect} {
		category, _ := et.Category()
		batch = append(batch, &events.Event{
			SessionID:     "ch-session",
			EventType:     et,
			EventCategory: category,
			Referrer:      events.StringPtr("l.instagram.com"),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, store.InsertBatch(ctx, batch))

	got, err := store.Query(ctx, events.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, events.EventWhatsAppRedirect, got[0].EventType)
	assert.Equal(t, "l.instagram.com", events.Deref(got[0].Referrer))
	assert.Nil(t, got[0].UserID)
	assert.True(t, got[2].CreatedAt.Equal(base))
}

func TestInsertBatchRejectsInvalidEventsBeforeSending(t *testing.T) {
	s := &Store{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: time.Now}

	err := s.InsertBatch(context.Background(), []*events.Event{{SessionID: "s", EventType: "bogus"}})

	var verr events.ValidationErrors
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, s.InsertBatch(context.Background(), nil))
}
