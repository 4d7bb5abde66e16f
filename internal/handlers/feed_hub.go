package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/notify"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedMessage is the envelope pushed over the feed socket. A toast always
// sets the unread flag so the client re-derives its aggregate alert list.
type FeedMessage struct {
	Type    string        `json:"type"`
	Payload *notify.Toast `json:"payload,omitempty"`
	Unread  bool          `json:"unread"`
}

type FeedClient struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	reactor *notify.Reactor
}

// Hub fans status-change events out to connected viewers. Each client
// carries its own Reactor, so relevance and (id, status) dedupe are
// evaluated per session.
type Hub struct {
	engine     *workflow.Engine
	clients    map[uint]*FeedClient
	events     chan notify.ChangeEvent
	register   chan *FeedClient
	unregister chan *FeedClient
	mu         sync.Mutex
}

func NewHub(engine *workflow.Engine) *Hub {
	return &Hub{
		engine:     engine,
		clients:    make(map[uint]*FeedClient),
		events:     make(chan notify.ChangeEvent, 64),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("Feed client registered", "userID", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Feed client unregistered", "userID", client.userID)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

// Publish hands a status-change event to the hub. Callers never block on
// slow consumers; an overflowing hub drops the event and the aggregate
// derivation picks the change up on the next load.
func (h *Hub) Publish(ev notify.ChangeEvent) {
	if h == nil {
		return
	}
	select {
	case h.events <- ev:
	default:
		slog.Warn("Feed event dropped, hub queue full", "table", ev.Table)
	}
}

func (h *Hub) dispatch(ev notify.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, client := range h.clients {
		toast, relevant := client.reactor.React(ev)
		if !relevant {
			continue
		}
		msg := FeedMessage{Type: "toast", Payload: toast, Unread: true}
		data, err := json.Marshal(msg)
		if err != nil {
			// The toast is viewer-specific, so a bad one must not starve
			// the remaining clients.
			slog.Error("Failed to marshal feed message", "error", err, "userID", userID)
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, userID)
		}
	}
}

// readPump discards inbound frames; the feed is one-directional. Reading
// is still required to notice a closed connection.
func (c *FeedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			break
		}
	}
}

func (c *FeedClient) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Failed to write message to websocket", "error", err)
			return
		}
	}
}

// FeedWSEndpoint upgrades the connection and registers the viewer on the
// hub.
func FeedWSEndpoint(c *gin.Context) {
	user, ok := middleware.ActingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	client := &FeedClient{
		hub:     FeedHub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  user.ID,
		reactor: notify.NewReactor(FeedHub.engine, user),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
