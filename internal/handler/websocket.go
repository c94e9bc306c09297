package handler

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// WebSocketConfig параметры соединений
type WebSocketConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

// WebSocketHandler принимает WebSocket подключения к потоку снимков
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *Hub
	config   WebSocketConfig
	logger   *utils.Logger
	nextID   atomic.Uint64
}

// Client WebSocket соединение
type Client struct {
	id      uint64
	conn    *websocket.Conn
	send    chan []byte
	handler *WebSocketHandler
}

// NewWebSocketHandler создает WebSocket handler
func NewWebSocketHandler(hub *Hub, cfg WebSocketConfig, logger *utils.Logger) *WebSocketHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}

	h := &WebSocketHandler{
		hub:    hub,
		config: cfg,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket обрабатывает подключение к /ws/v1/snapshots
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithField("error", err).Warn("Failed to upgrade to WebSocket")
		metrics.WebSocketErrors.Inc()
		return
	}

	client := &Client{
		id:      h.nextID.Add(1),
		conn:    conn,
		send:    make(chan []byte, h.config.SendBuffer),
		handler: h,
	}
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"client":    client.id,
		"client_ip": c.ClientIP(),
	}).Info("WebSocket client connected")

	go client.writePump()
	go client.readPump()
}

// readPump обрабатывает входящие сообщения и pong
func (c *Client) readPump() {
	defer func() {
		c.handler.hub.Unregister(c)
		c.conn.Close()
		c.handler.logger.WithField("client", c.id).Debug("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(c.handler.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.handler.config.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.handler.logger.WithField("error", err).Warn("WebSocket read error")
				metrics.WebSocketErrors.Inc()
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump отправляет сообщения клиенту и ping
func (c *Client) writePump() {
	ticker := time.NewTicker(c.handler.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.handler.logger.WithField("error", err).Debug("WebSocket write error")
				metrics.WebSocketErrors.Inc()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketErrors.Inc()
				return
			}
			metrics.WebSocketMessagesOut.WithLabelValues("ping").Inc()
		}
	}
}

// handleMessage отвечает на {"type":"ping"} и {"type":"snapshot"}
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		c.handler.logger.WithField("client", c.id).Debug("Ignoring malformed WebSocket message")
		return
	}

	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: "pong", Time: time.Now().Unix()})
		c.trySend(data, "pong")
	case "snapshot":
		snap := c.handler.hub.source.Snapshot()
		if snap == nil {
			return
		}
		if data, err := encodeSnapshot("snapshot", snap); err == nil {
			c.trySend(data, "snapshot")
		}
	}
}

// trySend ставит сообщение в очередь, если клиент еще зарегистрирован
func (c *Client) trySend(data []byte, kind string) {
	hub := c.handler.hub
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if _, ok := hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
		metrics.WebSocketMessagesOut.WithLabelValues(kind).Inc()
	default:
	}
}
