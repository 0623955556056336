// ===============================
// FILE: internal/handlers/api/v1/notifications/stream.go
// ===============================

package notifications

import (
	"context"
	"net/http"
	"sync"
	"time"

	"platewise/internal/contextutils"
	"platewise/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust for production
	},
}

// streamPayload is what connected clients receive for each new notification
type streamPayload struct {
	Type             string    `json:"type"`
	NotificationID   int64     `json:"notification_id"`
	NotificationType string    `json:"notification_type"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"created_at"`
}

type streamClient struct {
	conn   *websocket.Conn
	userID int64
	send   chan streamPayload
}

// StreamHub pushes freshly created notifications to connected websocket
// clients. Delivery here is best effort; the durable row is the source of
// truth and a slow client just misses the push, the row waits in the list.
type StreamHub struct {
	eventBus events.EventBus
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[int64][]*streamClient
}

// NewStreamHub creates a hub and subscribes it to notification events
func NewStreamHub(eventBus events.EventBus, logger *zap.Logger) (*StreamHub, error) {
	hub := &StreamHub{
		eventBus: eventBus,
		logger:   logger,
		clients:  make(map[int64][]*streamClient),
	}

	handler := events.NewEventHandlerFunc("notification-stream-hub", hub.handleEvent)
	if err := eventBus.Subscribe("notification.created", handler); err != nil {
		return nil, err
	}
	return hub, nil
}

// ServeHTTP handles GET /api/v1/notifications/stream
//
//	@Summary	Stream new notifications over a websocket
//	@Tags		notifications
//	@Security	BearerAuth
//	@Success	101
//	@Router		/api/v1/notifications/stream [get]
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &streamClient{
		conn:   conn,
		userID: userID,
		send:   make(chan streamPayload, sendBufferSize),
	}
	h.register(client)
	h.logger.Debug("Notification stream connected", zap.Int64("user_id", userID))

	go client.writeLoop()
	client.readLoop(h)
}

func (h *StreamHub) handleEvent(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.NotificationCreatedEvent)
	if !ok || created.GetUserID() == nil {
		return nil
	}

	payload := streamPayload{
		Type:             "notification",
		NotificationID:   created.NotificationID,
		NotificationType: created.NotificationType,
		Title:            created.Title,
		CreatedAt:        created.GetTimestamp(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients[*created.GetUserID()] {
		select {
		case client.send <- payload:
		default:
			// client is not draining, drop the push
			h.logger.Debug("Dropping notification push for slow client",
				zap.Int64("user_id", client.userID))
		}
	}
	return nil
}

func (h *StreamHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.userID] = append(h.clients[client.userID], client)
}

func (h *StreamHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[client.userID]
	for i, c := range conns {
		if c == client {
			h.clients[client.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.clients[client.userID]) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
}

// ConnectionCount reports how many websocket connections are open
func (h *StreamHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

func (c *streamClient) readLoop(h *StreamHub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Debug("Notification stream disconnected", zap.Int64("user_id", c.userID))
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients never send application messages on this socket. We still
	// read so close frames and pongs are processed.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
