package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/itqanpos/ITQN/internal/auth"
	"github.com/itqanpos/ITQN/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("ws-secret")

func newServer(t *testing.T) (*Hub, string) {
	hub, url, _ := newStoppableServer(t)
	return hub, url
}

func newStoppableServer(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.NewNop())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, secret)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", cancel
}

func dial(t *testing.T, url string, tenantID uuid.UUID) *websocket.Conn {
	t.Helper()
	token, err := auth.IssueToken(secret, auth.Identity{UserID: uuid.New(), TenantID: tenantID, Role: "cashier"}, time.Hour, time.Now())
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastReachesOnlyTenantClients(t *testing.T) {
	hub, url := newServer(t)
	shop, other := uuid.New(), uuid.New()

	mine := dial(t, url, shop)
	theirs := dial(t, url, other)
	require.Eventually(t, func() bool {
		return hub.ClientCount(shop) == 1 && hub.ClientCount(other) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastToTenant(shop, []byte(`{"event":"sale.completed"}`))

	require.NoError(t, mine.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := mine.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"sale.completed"}`, string(msg))

	require.NoError(t, theirs.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = theirs.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := newServer(t)
	shop := uuid.New()

	conn := dial(t, url, shop)
	require.Eventually(t, func() bool { return hub.ClientCount(shop) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount(shop) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWsRejectsBadTokens(t *testing.T) {
	_, url := newServer(t)

	for _, u := range []string{url, url + "?token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestStoppedHubReleasesConnections(t *testing.T) {
	hub, url, stop := newStoppableServer(t)
	shop := uuid.New()

	before := dial(t, url, shop)
	require.Eventually(t, func() bool { return hub.ClientCount(shop) == 1 }, 2*time.Second, 10*time.Millisecond)

	stop()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	require.NoError(t, before.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := before.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// connecting after shutdown is closed instead of hanging on register
	after := dial(t, url, shop)
	require.NoError(t, after.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = after.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, hub.ClientCount(shop))
}
