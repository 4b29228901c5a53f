package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendapp/spend-api/models"
)

func newWSTestServer(t *testing.T, h *WSHandler) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", c.Query("user"))
		h.HandleWS(c)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// Sessions are tagged with their own user's id even when connections are
// interleaved, so one user's sync events never reach another user's socket.
func TestSyncCompleted_OnlyTargetUserReceives(t *testing.T) {
	h := NewWSHandler()
	srv := newWSTestServer(t, h)

	alice := dialWS(t, srv, "alice")
	bob := dialWS(t, srv, "bob")

	require.Eventually(t, func() bool { return h.M.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.SyncCompleted("bob", &models.SyncReport{
		Accounts: []models.AccountSyncResult{{AccountID: "acc-1", NewTransactions: 3}},
	})

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := bob.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "sync_completed")
	assert.Contains(t, string(msg), `"new_transactions":3`)

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = alice.ReadMessage()
	assert.Error(t, err, "alice must not receive bob's sync event")
}

func TestHandleWS_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewWSHandler()
	router := gin.New()
	router.GET("/ws", h.HandleWS)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
}
