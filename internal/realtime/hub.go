package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains class_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// classID -> map[connID]*Client
	classes  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per class
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishClassEvent(classID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to class channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeClass(classID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		classes:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a class room. Starts Redis subscription for this class if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.classes[c.ClassID] == nil {
		h.classes[c.ClassID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeClass(c.ClassID, func(event string, payload []byte) {
				h.broadcastLocal(c.ClassID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ClassID] = cancel
			}
		}
	}
	h.classes[c.ClassID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined class", zap.String("conn_id", c.ID), zap.String("class_id", c.ClassID.String()))
}

// Unregister removes a client from a class room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.classes[c.ClassID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.classes, c.ClassID)
			if cancel, ok := h.subs[c.ClassID]; ok {
				cancel()
				delete(h.subs, c.ClassID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left class", zap.String("conn_id", c.ID), zap.String("class_id", c.ClassID.String()))
}

// broadcastLocal sends a message to all clients in a class on this instance.
func (h *Hub) broadcastLocal(classID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := Envelope{Event: EventType(event), Data: data}

	// Snapshot under the lock; Register/Unregister mutate the inner map.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.classes[classID]))
	for _, c := range h.classes[classID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToClass sends to local clients and publishes to Redis for other instances.
func (h *Hub) BroadcastToClass(classID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(classID, event, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishClassEvent(classID, event, data)
	}
}

// ConnectionCount returns the number of connected clients in a class on this instance.
func (h *Hub) ConnectionCount(classID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.classes[classID])
}

// SendToConn sends a message to a single connection in a class.
func (h *Hub) SendToConn(classID uuid.UUID, connID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := Envelope{Event: EventType(event), Data: data}
	h.mu.RLock()
	clients := h.classes[classID]
	c, ok := clients[connID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
