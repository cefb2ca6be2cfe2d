package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/devisible/internal/adapter/driven/backend"
	"github.com/ericfisherdev/devisible/internal/domain/model"
)

func TestSessionSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := newMemorySessionStore()
	require.NoError(t, store.Create(ctx, model.Session{ID: "old", BackendCookie: "ssid=old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, model.Session{ID: "edge", BackendCookie: "ssid=edge", ExpiresAt: now}))
	require.NoError(t, store.Create(ctx, model.Session{ID: "live", BackendCookie: "ssid=live", ExpiresAt: now.Add(time.Hour)}))

	views := NewViewStore()
	views.Commit("old", views.Mark(), DashboardView{})
	views.Commit("live", views.Mark(), DashboardView{})

	mb := &mockBackend{}
	sweeper := NewSessionSweeper(store, mb, views, time.Minute, discardLogger())
	sweeper.now = func() time.Time { return now }

	removed, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.len())
	assert.Equal(t, []string{"ssid=edge", "ssid=old"}, mb.forgotten)

	_, ok := views.Get("old")
	assert.False(t, ok)
	_, ok = views.Get("live")
	assert.True(t, ok)
}

func TestSessionSweeper_StartStopsOnCancel(t *testing.T) {
	store := newMemorySessionStore()
	sweeper := NewSessionSweeper(store, &mockBackend{}, NewViewStore(), 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSessionSweeper_ReleasesBackendCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"repos-v1"`)
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))
	t.Cleanup(server.Close)

	client, err := backend.NewClient(server.URL, backend.Options{Timeout: 2 * time.Second, Logger: discardLogger()})
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemorySessionStore()
	views := NewViewStore()

	const expired = 100
	for i := range expired {
		cookie := fmt.Sprintf("ssid=%03d", i)
		require.NoError(t, store.Create(ctx, model.Session{
			ID:            fmt.Sprintf("s-%03d", i),
			BackendCookie: cookie,
			ExpiresAt:     now.Add(-time.Minute),
		}))
		_, err := client.ListRepos(ctx, cookie)
		require.NoError(t, err)
	}
	require.NoError(t, store.Create(ctx, model.Session{ID: "live", BackendCookie: "ssid=live", ExpiresAt: now.Add(time.Hour)}))
	_, err = client.ListRepos(ctx, "ssid=live")
	require.NoError(t, err)
	require.Equal(t, expired+1, client.CachedSessions())

	sweeper := NewSessionSweeper(store, client, views, time.Minute, discardLogger())
	sweeper.now = func() time.Time { return now }

	removed, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, expired, removed)
	assert.Equal(t, 1, client.CachedSessions(), "only the live session keeps a response cache")
}
