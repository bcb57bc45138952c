package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navwatch/internal/application/port"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.PublishCrawl(context.Background(), port.CrawlEvent{RunID: "r1", Code: "DCDS", OK: true, Added: 2}))

	env := readEnvelope(t, conn)
	assert.Equal(t, "crawl", env.Type)
	assert.False(t, env.Initial)
	assert.Equal(t, "DCDS", string(env.Data.Code))
	assert.Equal(t, 2, env.Data.Added)
}

func TestHubReplaysLatestToNewClients(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	_ = hub.PublishCrawl(ctx, port.CrawlEvent{Code: "DCDS", Added: 1})
	_ = hub.PublishCrawl(ctx, port.CrawlEvent{Code: "VESAF", Added: 1})
	_ = hub.PublishCrawl(ctx, port.CrawlEvent{Code: "DCDS", Added: 5})

	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()

	first := readEnvelope(t, conn)
	second := readEnvelope(t, conn)
	assert.True(t, first.Initial)
	assert.Equal(t, "DCDS", string(first.Data.Code))
	assert.Equal(t, 5, first.Data.Added)
	assert.Equal(t, "VESAF", string(second.Data.Code))
}

func TestHubRemovesClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, hub.PublishCrawl(context.Background(), port.CrawlEvent{Code: "DCDS"}))
}
