package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// SnapshotSource источник снимков для рассылки
type SnapshotSource interface {
	Snapshot() *service.Snapshot
	Subscribe() (<-chan *service.Snapshot, func())
}

// Message конверт сообщения WebSocket
type Message struct {
	Type    string            `json:"type"`
	Version uint64            `json:"version,omitempty"`
	Data    *service.Snapshot `json:"data,omitempty"`
	Time    int64             `json:"time"`
}

// Hub рассылает снимки всем WebSocket клиентам не чаще interval.
// Снимок сериализуется один раз; клиент с переполненным буфером отключается.
type Hub struct {
	source   SnapshotSource
	interval time.Duration
	logger   *utils.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub создает менеджер рассылки
func NewHub(source SnapshotSource, interval time.Duration, logger *utils.Logger) *Hub {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Hub{
		source:   source,
		interval: interval,
		logger:   logger,
		clients:  make(map[*Client]struct{}),
	}
}

// Run работает до отмены ctx или закрытия подписки
func (h *Hub) Run(ctx context.Context) error {
	snaps, unsubscribe := h.source.Subscribe()
	defer unsubscribe()
	defer h.closeAll()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// снимок, опубликованный до подписки, тоже доходит до клиентов
	var (
		pending = h.source.Snapshot()
		sent    uint64
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			pending = snap
		case <-ticker.C:
			if pending == nil || pending.Version == sent {
				continue
			}
			start := time.Now()
			recipients := h.Broadcast(pending)
			sent = pending.Version
			pending = nil

			if recipients > 0 {
				h.logger.WithFields(map[string]interface{}{
					"version":     sent,
					"recipients":  recipients,
					"duration_ms": time.Since(start).Milliseconds(),
				}).Debug("Snapshot broadcast")
			}
		}
	}
}

// encodeSnapshot сериализует снимок в конверт
func encodeSnapshot(msgType string, snap *service.Snapshot) ([]byte, error) {
	return json.Marshal(Message{
		Type:    msgType,
		Version: snap.Version,
		Data:    snap,
		Time:    time.Now().Unix(),
	})
}

// Broadcast отправляет снимок всем клиентам, возвращает число получателей
func (h *Hub) Broadcast(snap *service.Snapshot) int {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return 0
	}
	h.mu.RUnlock()

	data, err := encodeSnapshot("snapshot", snap)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to marshal snapshot")
		return 0
	}

	var slow []*Client
	recipients := 0

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- data:
			recipients++
			metrics.WebSocketMessagesOut.WithLabelValues("snapshot").Inc()
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.WithField("client", client.id).Warn("WebSocket client too slow, disconnecting")
		metrics.WebSocketErrors.Inc()
		h.Unregister(client)
	}
	return recipients
}

// Register добавляет клиента и отправляет ему текущий снимок
func (h *Hub) Register(client *Client) bool {
	var welcome []byte
	if snap := h.source.Snapshot(); snap != nil {
		data, err := encodeSnapshot("welcome", snap)
		if err != nil {
			h.logger.WithField("error", err).Error("Failed to marshal welcome snapshot")
		}
		welcome = data
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	metrics.WebSocketConnections.Inc()

	if welcome != nil {
		select {
		case client.send <- welcome:
			metrics.WebSocketMessagesOut.WithLabelValues("welcome").Inc()
		default:
		}
	}
	return true
}

// Unregister удаляет клиента и закрывает его очередь
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	metrics.WebSocketConnections.Dec()
}

// ClientCount число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		metrics.WebSocketConnections.Dec()
	}
}
