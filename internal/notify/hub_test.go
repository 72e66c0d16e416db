package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"mangavault/internal/auth"
	"mangavault/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

// startHub runs a hub behind a test server that authenticates every request
// as the given user.
func startHub(t *testing.T, userID string) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(zap.NewNop())
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, userID)
	}, Handler(hub))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Stop()
		time.Sleep(50 * time.Millisecond)
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestPushReachesConnectedClient(t *testing.T) {
	hub, srv := startHub(t, "user-1")
	ws := dial(t, srv)

	// Give the register handshake a beat to land.
	time.Sleep(20 * time.Millisecond)

	sent := models.Notification{ID: "n1", UserID: "user-1", Type: models.NotifyLike}
	hub.Push("user-1", sent)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := ws.ReadMessage()
	require.NoError(t, err)

	var got models.Notification
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, models.NotifyLike, got.Type)
}

func TestPushFansOutToAllSessions(t *testing.T) {
	hub, srv := startHub(t, "user-1")
	a := dial(t, srv)
	b := dial(t, srv)
	time.Sleep(20 * time.Millisecond)

	hub.Push("user-1", models.Notification{ID: "n2", UserID: "user-1"})

	for _, ws := range []*websocket.Conn{a, b} {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"n2"`)
	}
}

func TestPushToAbsentUserIsNoop(t *testing.T) {
	hub, srv := startHub(t, "user-1")
	ws := dial(t, srv)
	time.Sleep(20 * time.Millisecond)

	hub.Push("someone-else", models.Notification{ID: "n3"})

	// Nothing arrives for the connected user.
	ws.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestStopClosesClients(t *testing.T) {
	hub, srv := startHub(t, "user-1")
	ws := dial(t, srv)
	time.Sleep(20 * time.Millisecond)

	hub.Stop()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "server side closed the stream")

	// Pushing after shutdown must not panic or block.
	hub.Push("user-1", models.Notification{ID: "n4"})
}
