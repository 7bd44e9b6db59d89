package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/favipie/FPL-hacker/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers enforce CORS; other clients connect directly
		return true
	},
}

type WebSocketHandler struct {
	hub *services.WebSocketHub
}

func NewWebSocketHandler(hub *services.WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleWebSocket upgrades HTTP connection to WebSocket. Clients may
// pre-subscribe with a ?topics=players,optimizations query and change
// subscriptions later with subscribe/unsubscribe messages.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// Get user ID from context (set by optional auth middleware)
	var userID uint
	if id, exists := c.Get("user_id"); exists {
		if parsed, ok := id.(uint); ok {
			userID = parsed
		}
	}

	// Upgrade connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	// Create client
	client := services.NewClient(h.hub, conn, userID)

	if topics := c.Query("topics"); topics != "" {
		for _, topic := range strings.Split(topics, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				client.Subscribe(topic)
			}
		}
	}

	// Register client
	h.hub.Register(client)

	// Send welcome message
	welcomeMsg := map[string]interface{}{
		"type": "welcome",
		"data": map[string]interface{}{
			"message":   "Connected to squad optimizer updates",
			"topics":    []string{services.TopicPlayers, services.TopicOptimizations},
			"timestamp": time.Now().UTC(),
		},
	}

	if err := conn.WriteJSON(welcomeMsg); err != nil {
		logrus.Errorf("Failed to send welcome message: %v", err)
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.WritePump()
	go client.ReadPump()
}
