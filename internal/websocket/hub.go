package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/itqanpos/ITQN/internal/auth"
	"github.com/itqanpos/ITQN/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer; the token scopes the stream
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client of one tenant
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	TenantID uuid.UUID
	UserID   uuid.UUID
}

type tenantMessage struct {
	tenantID uuid.UUID
	payload  []byte
}

// Hub maintains the set of active clients and fans committed events out to
// the clients of the owning tenant.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	broadcast  chan tenantMessage
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns
	done       chan struct{}
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan tenantMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*Client]bool),
		log:        log,
	}
}

// Run starts the core dispatch loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TenantID] == nil {
				h.clients[client.TenantID] = make(map[*Client]bool)
			}
			h.clients[client.TenantID][client] = true
			h.mu.Unlock()
			h.log.Infow("websocket client connected", "tenant_id", client.TenantID, "user_id", client.UserID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.Infow("websocket client disconnected", "tenant_id", client.TenantID, "user_id", client.UserID)
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.tenantID] {
				select {
				case client.Send <- msg.payload:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.TenantID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.TenantID)
	}
}

// BroadcastToTenant queues message for every client of tenantID. It never
// blocks the caller; a full queue drops the message.
func (h *Hub) BroadcastToTenant(tenantID uuid.UUID, message []byte) {
	select {
	case h.broadcast <- tenantMessage{tenantID: tenantID, payload: message}:
	default:
		h.log.Warnw("websocket broadcast queue full, dropping message", "tenant_id", tenantID)
	}
}

// ClientCount returns the number of connected clients of tenantID.
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, goingAway)
}

var goingAway = websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		// clients only listen; reading detects disconnects
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warnw("websocket read failed", "tenant_id", c.TenantID, "error", err)
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and subscribes the peer
// to its tenant's event stream.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.Infow("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	identity, err := auth.ParseToken(secret, tokenString)
	if err != nil {
		hub.log.Infow("websocket connection rejected: invalid token", "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		TenantID: identity.TenantID,
		UserID:   identity.UserID,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.WriteMessage(websocket.CloseMessage, goingAway)
		_ = conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
