package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsignals/internal/config"
	"shopsignals/internal/events"
	"shopsignals/internal/session"
	"shopsignals/internal/tracker"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("SHOPSIGNALS_ENV", config.Test)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return config.GetConfig()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineDeliversToStore(t *testing.T) {
	cfg := testConfig(t, nil)
	store := events.NewGormStore(nil, discardLogger(), cfg.QueryMaxRows)

	p := NewWithStore(cfg, store, nil, discardLogger())

	assert.Same(t, store, p.Sink)
}

func TestPipelineForwardsToCollector(t *testing.T) {
	received := make(chan events.Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer collector-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var ev events.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- ev
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, map[string]string{
		"SHOPSIGNALS_FORWARD_ENDPOINT": srv.URL + "/api/v1/events",
		"SHOPSIGNALS_FORWARD_API_KEY":  "collector-key",
	})
	store := events.NewGormStore(nil, discardLogger(), cfg.QueryMaxRows)

	p := NewWithStore(cfg, store, nil, discardLogger())
	require.IsType(t, &tracker.HTTPSink{}, p.Sink)

	require.NoError(t, p.Dispatcher.Start())
	sess := session.NewProvider(session.NewMemoryStorage())
	env := tracker.StaticEnvironment{Path: "/", Location: "https://loja.example.com/"}
	out := p.Tracker.For(sess, env, tracker.Anonymous).TrackSessionStart(context.Background())
	require.True(t, out.Queued)
	p.Dispatcher.Stop()

	require.Len(t, received, 1)
	got := <-received
	assert.Equal(t, events.EventSessionStart, got.EventType)
	assert.Equal(t, sess.SessionID(), got.SessionID)
	assert.Equal(t, int64(1), p.Dispatcher.Stats().Delivered)
}
