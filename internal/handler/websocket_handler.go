package handler

import (
	"net/http"
	"sync"
	"time"

	"roomcast/internal/models"
	"roomcast/internal/service"
	"roomcast/internal/session"
	"roomcast/internal/subscription"
	"roomcast/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message to the peer
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize = 64 * 1024           // 64 KB, messages are short text
)

type WSMessageType string

const (
	WSMessageTypeSend WSMessageType = "send_message"
)

type WSRequest struct {
	Type    WSMessageType `json:"type"`
	TempID  string        `json:"temp_id,omitempty"`
	Content string        `json:"content,omitempty"`
}

type WSResponse struct {
	Type string `json:"type"` // "snapshot", "ack", "error"

	// For snapshot frames: the full ordered log plus the view state.
	// Messages keeps no omitempty so an empty log still serializes as
	// [], distinguishable from a non-snapshot frame's absent field.
	State    string           `json:"state,omitempty"`
	Messages []models.Message `json:"messages"`

	// For ACK frames.
	TempID    string `json:"temp_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`

	Error string `json:"error,omitempty"`
}

// WebSocketHandler carries the live feed: one connection = one session
// adapter = one subscription. Every change to the room's log arrives as a
// whole-snapshot frame, never a delta.
type WebSocketHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
	subs           *subscription.Manager
	readyTimeout   time.Duration
}

// wsClient serializes writes to one connection; snapshot pushes and acks
// come from different goroutines.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writeControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // add origin check in production
	},
}

func NewWebSocketHandler(
	roomService *service.RoomService,
	messageService *service.MessageService,
	subs *subscription.Manager,
	readyTimeout time.Duration,
) *WebSocketHandler {
	return &WebSocketHandler{
		roomService:    roomService,
		messageService: messageService,
		subs:           subs,
		readyTimeout:   readyTimeout,
	}
}

// GET /api/rooms/:code/ws?name=...&role=...
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	code := service.NormalizeCode(c.Param("code"))
	name := c.Query("name")
	role := models.Role(c.Query("role"))

	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if role == "" {
		role = models.RoleMember
	}
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	active, err := h.roomService.IsActive(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check room"})
		return
	}
	if !active {
		c.JSON(http.StatusNotFound, gin.H{"error": "room is not active"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}

	adapter := session.NewAdapter(
		h.roomService,
		h.messageService,
		h.subs,
		name,
		role,
		h.readyTimeout,
		func(state session.State, messages []models.Message) {
			frame := WSResponse{
				Type:     "snapshot",
				State:    string(state),
				Messages: messages,
			}
			if err := client.writeJSON(frame); err != nil {
				logger.Log.Debug("failed to push snapshot",
					zap.String("room_code", code),
					zap.Error(err),
				)
			}
		},
	)

	logger.Log.Info("client connected",
		zap.String("room_code", code),
		zap.String("name", name),
		zap.String("role", string(role)),
	)

	adapter.Enter(code)

	defer func() {
		adapter.Leave()
		conn.Close()
		logger.Log.Info("client disconnected",
			zap.String("room_code", code),
			zap.String("name", name),
		)
	}()

	h.readLoop(c, client, adapter)
}

// readLoop consumes frames from the peer until the connection dies.
func (h *WebSocketHandler) readLoop(c *gin.Context, client *wsClient, adapter *session.Adapter) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	go h.pingClient(client, done)

	for {
		var req WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch req.Type {
		case WSMessageTypeSend:
			h.handleSend(c, client, adapter, req)

		default:
			client.writeJSON(WSResponse{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) handleSend(c *gin.Context, client *wsClient, adapter *session.Adapter, req WSRequest) {
	msg, err := adapter.Send(c.Request.Context(), req.Content)
	if err != nil {
		// The client keeps its composed text; the ack tells it why.
		client.writeJSON(WSResponse{
			Type:   "ack",
			TempID: req.TempID,
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	client.writeJSON(WSResponse{
		Type:      "ack",
		TempID:    req.TempID,
		MessageID: msg.ID,
		Status:    "success",
	})
}

func (h *WebSocketHandler) pingClient(client *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.writeControl(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
