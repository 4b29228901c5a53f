package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/spendapp/spend-api/middleware"
	"github.com/spendapp/spend-api/models"
)

// WSHandler pushes sync lifecycle events to connected clients so the
// frontend can refresh without polling.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive for cloud hosting proxies.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	// Registered once: the session already carries its user id via
	// HandleRequestWithKeys, so no per-request closure state is needed.
	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		log.Printf("✅ Client connected: user %v", userID)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		log.Printf("🔌 Client disconnected: user %v", userID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades an authenticated request to a WebSocket session tagged
// with the requesting user's id.
func (h *WSHandler) HandleWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// SyncCompleted broadcasts a sync report to the user's open sessions.
func (h *WSHandler) SyncCompleted(userID string, report *models.SyncReport) {
	payload, err := json.Marshal(gin.H{
		"type":             "sync_completed",
		"accounts":         len(report.Accounts),
		"failures":         len(report.Failures),
		"new_transactions": totalNewTransactions(report),
	})
	if err != nil {
		return
	}

	err = h.M.BroadcastFilter(payload, func(q *melody.Session) bool {
		id, exists := q.Get("user_id")
		return exists && id == userID
	})
	if err != nil {
		log.Printf("⚠️ Error broadcasting sync event to user %s: %v", userID, err)
	}
}

func totalNewTransactions(report *models.SyncReport) int {
	total := 0
	for _, acct := range report.Accounts {
		total += acct.NewTransactions
	}
	return total
}
