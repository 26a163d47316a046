package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sitecost/internal/domain"
)

// Hub fans receipt lifecycle events out to connected dashboard clients.
// Connections are grouped per company so events never cross the tenant
// boundary. Delivery is best-effort: a dead connection is dropped, never an
// error path.
type Hub struct {
	mutex       sync.RWMutex
	connections map[int64]map[int64]*websocket.Conn // companyID -> userID -> conn
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]map[int64]*websocket.Conn),
	}
}

// ReceiptEvent is the wire shape of one event.
type ReceiptEvent struct {
	Event     string    `json:"event"`
	ReceiptID int64     `json:"receipt_id"`
	JobID     *int64    `json:"job_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Vendor    string    `json:"vendor"`
	Total     float64   `json:"total_amount"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

func (h *Hub) Register(companyID, userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	company, ok := h.connections[companyID]
	if !ok {
		company = make(map[int64]*websocket.Conn)
		h.connections[companyID] = company
	}
	if oldConn, exists := company[userID]; exists && oldConn != nil {
		_ = oldConn.Close()
	}
	company[userID] = conn
}

func (h *Hub) Unregister(companyID, userID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	company, ok := h.connections[companyID]
	if !ok {
		return
	}
	if conn, exists := company[userID]; exists && conn != nil {
		_ = conn.Close()
	}
	delete(company, userID)
	if len(company) == 0 {
		delete(h.connections, companyID)
	}
}

// PublishReceipt implements receipt.EventPublisher.
func (h *Hub) PublishReceipt(companyID int64, event string, rec *domain.Receipt) {
	h.mutex.RLock()
	company := h.connections[companyID]
	conns := make(map[int64]*websocket.Conn, len(company))
	for userID, conn := range company {
		conns[userID] = conn
	}
	h.mutex.RUnlock()

	msg := ReceiptEvent{
		Event:     event,
		ReceiptID: rec.ID,
		JobID:     rec.JobID,
		UserID:    rec.UserID,
		Vendor:    rec.Vendor,
		Total:     rec.TotalAmount,
		Status:    rec.Status,
		At:        time.Now().UTC(),
	}

	for userID, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			h.Unregister(companyID, userID)
		}
	}
}

func (h *Hub) OnlineCount(companyID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections[companyID])
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for companyID, company := range h.connections {
		for _, conn := range company {
			if conn != nil {
				_ = conn.Close()
			}
		}
		delete(h.connections, companyID)
	}
}
