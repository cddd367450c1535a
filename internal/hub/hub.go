// Package hub рассылает изменения доски подключённым по websocket экранам персонала.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Message описывает сообщение, отправляемое клиентам.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub хранит открытые подключения. Все события доски получают все экраны персонала.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New создаёт хаб.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Register добавляет подключение.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

// Unregister удаляет и закрывает подключение.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Len возвращает число подключений.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify рассылает событие всем клиентам. Клиенты, запись в которых не удалась, отключаются.
func (h *Hub) Notify(_ context.Context, event string, data any) {
	h.Broadcast(Message{Event: event, Data: data})
}

// Broadcast рассылает сообщение всем клиентам.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal hub message", zap.String("event", msg.Event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("drop websocket client", zap.Error(err))
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// ServeWS переводит запрос в websocket и держит подключение до его закрытия клиентом.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, role string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.logger.Debug("websocket client connected", zap.String("role", role), zap.String("remote", r.RemoteAddr))
	h.Register(conn)
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
