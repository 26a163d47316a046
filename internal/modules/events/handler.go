package events

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sitecost/internal/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via JWT middleware before the upgrade.
		return true
	},
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/events/ws", h.Connect)
}

// Connect upgrades to a websocket and streams receipt events for the
// caller's company until the client goes away.
func (h *Handler) Connect(c *gin.Context) {
	companyID := c.GetInt64("company_id")
	userID := c.GetInt64("user_id")
	if companyID == 0 || userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("events: websocket upgrade failed user_id=%d error=%q", userID, err)
		return
	}

	h.hub.Register(companyID, userID, conn)
	defer h.hub.Unregister(companyID, userID)

	// Clients only listen; the read loop just detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
