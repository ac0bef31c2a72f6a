package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dejure-gateway/internal/event"
)

func startHub(t *testing.T) (*Hub, *event.InMemoryBus, *httptest.Server) {
	t.Helper()

	bus := event.NewBus()
	hub := NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := Upgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, r.URL.Query().Get("key"))
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, bus, server
}

func dial(t *testing.T, server *httptest.Server, key string) *gws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?key=" + key
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) event.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var e event.Event
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestHubRoutesEventsBySession(t *testing.T) {
	hub, bus, server := startHub(t)

	mine := dial(t, server, "alpha")
	other := dial(t, server, "beta")
	require.Eventually(t, func() bool { return hub.Connected() == 2 }, 2*time.Second, 5*time.Millisecond)

	bus.Publish(event.New(event.TypeGuardDenied, "beta", nil))
	bus.Publish(event.New(event.TypeSessionUserSet, "alpha", map[string]any{"role": "mentor"}))

	got := readEvent(t, mine)
	assert.Equal(t, event.TypeSessionUserSet, got.Type)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, event.TypeGuardDenied, readEvent(t, other).Type)

	// Nothing for alpha from beta's traffic.
	require.NoError(t, mine.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := mine.ReadMessage()
	assert.Error(t, err)
}

func TestHubClosesClearedSessions(t *testing.T) {
	hub, bus, server := startHub(t)

	conn := dial(t, server, "gamma")
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 5*time.Millisecond)

	bus.Publish(event.New(event.TypeSessionCleared, "gamma", nil))
	assert.Equal(t, event.TypeSessionCleared, readEvent(t, conn).Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, gws.IsCloseError(err, gws.CloseNormalClosure), "%v", err)
}

func TestUpgraderOriginCheck(t *testing.T) {
	upgrader := Upgrader([]string{"https://academy.test"})

	req := httptest.NewRequest(http.MethodGet, "http://gateway.test/api/v1/session/events", nil)
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://academy.test")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://gateway.test")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.test")
	assert.False(t, upgrader.CheckOrigin(req))
}
