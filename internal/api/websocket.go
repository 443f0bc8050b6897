package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/plotter-studio/backend/internal/models"
)

// WebSocket message types for the plotter status protocol
const (
	// Client -> Server messages
	MsgTypePause  = "plotter:pause"
	MsgTypeResume = "plotter:resume"
	MsgTypeCancel = "plotter:cancel"
	MsgTypePing   = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeStatus    = "status"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	// clientBuffer is how many messages a slow client may fall behind before the oldest are dropped.
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// hubClient is one connected socket and its outbound queue.
type hubClient struct {
	conn *websocket.Conn
	send chan WSMessage
}

// StatusHub pushes plotter status snapshots to every connected socket and
// accepts pause, resume and cancel requests from them.
type StatusHub struct {
	link           PlotterLink
	upgrader       websocket.Upgrader
	maxMessageSize int64

	clients   map[*hubClient]struct{}
	clientsMu sync.RWMutex

	unsubscribe func()
}

// NewStatusHub creates a hub subscribed to link. maxMessageKB bounds inbound frames.
func NewStatusHub(link PlotterLink, maxMessageKB int) *StatusHub {
	if maxMessageKB <= 0 {
		maxMessageKB = 64
	}
	hub := &StatusHub{
		link: link,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxMessageSize: int64(maxMessageKB) * 1024,
		clients:        make(map[*hubClient]struct{}),
	}
	hub.unsubscribe = link.Subscribe(hub.broadcastStatus)
	return hub
}

// HandleWebSocket upgrades HTTP connection to WebSocket and serves the status protocol
func (hub *StatusHub) HandleWebSocket(c echo.Context) error {
	ws, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	ws.SetReadLimit(hub.maxMessageSize)

	client := &hubClient{conn: ws, send: make(chan WSMessage, clientBuffer)}
	hub.register(client)

	fmt.Println("[WebSocket] Client connected for plotter status")

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.writeLoop(client)
	}()

	hub.enqueue(client, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})
	hub.enqueue(client, statusMessage(hub.link.Status()))

	// Main message loop
	for {
		var msg WSMessage
		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		// Handle message based on type
		switch msg.Type {
		case MsgTypePing:
			hub.enqueue(client, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypePause:
			hub.reply(client, msg.ID, hub.link.Pause())
		case MsgTypeResume:
			hub.reply(client, msg.ID, hub.link.Resume())
		case MsgTypeCancel:
			hub.reply(client, msg.ID, hub.link.Cancel())
		default:
			hub.enqueue(client, errorMessage("Unknown message type: "+msg.Type, "INVALID_TYPE"))
		}
	}

	hub.unregister(client)
	<-done
	ws.Close()

	fmt.Println("[WebSocket] Client disconnected")
	return nil
}

// Close detaches the hub from the link and drops every client.
func (hub *StatusHub) Close() {
	if hub.unsubscribe != nil {
		hub.unsubscribe()
	}

	hub.clientsMu.Lock()
	for client := range hub.clients {
		delete(hub.clients, client)
		close(client.send)
		client.conn.Close()
	}
	hub.clientsMu.Unlock()
}

// ClientCount returns the number of connected sockets.
func (hub *StatusHub) ClientCount() int {
	hub.clientsMu.RLock()
	defer hub.clientsMu.RUnlock()
	return len(hub.clients)
}

// broadcastStatus runs on the link's notification path and must not block.
func (hub *StatusHub) broadcastStatus(st models.PlotterStatus) {
	msg := statusMessage(st)

	hub.clientsMu.RLock()
	defer hub.clientsMu.RUnlock()
	for client := range hub.clients {
		pushLatest(client, msg)
	}
}

// pushLatest queues msg, evicting the oldest queued message when the client is
// behind, so the newest message always lands.
// Callers hold clientsMu so the queue cannot be closed underneath.
func pushLatest(client *hubClient, msg WSMessage) {
	for {
		select {
		case client.send <- msg:
			return
		default:
		}
		select {
		case <-client.send:
		default:
		}
	}
}

func (hub *StatusHub) register(client *hubClient) {
	hub.clientsMu.Lock()
	hub.clients[client] = struct{}{}
	hub.clientsMu.Unlock()
}

func (hub *StatusHub) unregister(client *hubClient) {
	hub.clientsMu.Lock()
	if _, ok := hub.clients[client]; ok {
		delete(hub.clients, client)
		close(client.send)
	}
	hub.clientsMu.Unlock()
}

// enqueue queues a direct reply. It drops the message if the client is gone.
func (hub *StatusHub) enqueue(client *hubClient, msg WSMessage) {
	hub.clientsMu.RLock()
	defer hub.clientsMu.RUnlock()
	if _, ok := hub.clients[client]; !ok {
		return
	}
	pushLatest(client, msg)
}

func (hub *StatusHub) reply(client *hubClient, id string, st models.PlotterStatus) {
	msg := statusMessage(st)
	msg.ID = id
	hub.enqueue(client, msg)
}

func (hub *StatusHub) writeLoop(client *hubClient) {
	for msg := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(msg); err != nil {
			fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
			// Unblock the read loop, then drain until it unregisters us
			client.conn.Close()
			for range client.send {
			}
			return
		}
	}
}

func statusMessage(st models.PlotterStatus) WSMessage {
	return WSMessage{
		Type:      MsgTypeStatus,
		Payload:   mustJSON(st),
		Timestamp: time.Now().UnixMilli(),
	}
}

func errorMessage(message, code string) WSMessage {
	return WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
