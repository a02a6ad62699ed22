package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512 * 1024 // 512 KB
	sendBuffer = 256
)

// Sender persists an inbound chat message. *Service implements it.
type Sender interface {
	Send(ctx context.Context, p auth.Principal, text string, target *int64) (*Delivery, error)
}

// Publisher forwards a local broadcast to other instances.
type Publisher interface {
	Publish(ctx context.Context, rooms []Room, payload []byte) error
}

// client represents a single WebSocket connection
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	principal auth.Principal
	rooms     []Room
	send      chan []byte
	closeOnce sync.Once
}

// Hub is the registry of open connections keyed by room.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[Room]map[*client]struct{}
	publisher Publisher
	metrics   *metrics.Registry
}

func NewHub(reg *metrics.Registry) *Hub {
	return &Hub{
		rooms:   make(map[Room]map[*client]struct{}),
		metrics: reg,
	}
}

// SetPublisher attaches a cross-instance relay. Passing nil detaches it.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publisher = p
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	if h.metrics != nil {
		h.metrics.ChatConnections.Inc()
	}
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := false
	for _, room := range c.rooms {
		members := h.rooms[room]
		if _, ok := members[c]; !ok {
			continue
		}
		removed = true
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if removed && h.metrics != nil {
		h.metrics.ChatConnections.Dec()
	}
	c.closeOnce.Do(func() { close(c.send) })
}

// Online reports how many connections are currently in room.
func (h *Hub) Online(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Deliver fans a stored message out to the rooms that should see it.
// Customer messages reach their own room and the staff room, where they are
// flagged as new. Staff messages reach the staff room and the customer.
func (h *Hub) Deliver(ctx context.Context, d *Delivery) {
	if d.FromStaff {
		h.Broadcast(ctx, []Room{StaffRoom, UserRoom(d.UserID)}, NewMessageEvent(d, false))
		return
	}
	h.Broadcast(ctx, []Room{UserRoom(d.UserID)}, NewMessageEvent(d, false))
	h.Broadcast(ctx, []Room{StaffRoom}, NewMessageEvent(d, true))
}

// Broadcast sends event to every local client in rooms and hands it to the
// relay when one is attached.
func (h *Hub) Broadcast(ctx context.Context, rooms []Room, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.WithContext(ctx).Error("chat_event_marshal_failed", "error", err)
		return
	}
	h.deliverLocal(rooms, data)

	h.mu.RLock()
	pub := h.publisher
	h.mu.RUnlock()
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, rooms, data); err != nil {
		logger.WithContext(ctx).Warn("chat_relay_publish_failed", "error", err)
	}
}

// deliverLocal writes data once to each client found in any of rooms.
func (h *Hub) deliverLocal(rooms []Room, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.send <- data:
			default:
				// client too slow, drop
			}
		}
	}
}

// ServeWS registers the connection in the caller's rooms and runs the
// read/write loops until the socket closes.
func (h *Hub) ServeWS(conn *websocket.Conn, p auth.Principal, sender Sender) {
	c := &client{
		hub:       h,
		conn:      conn,
		principal: p,
		rooms:     roomsFor(p),
		send:      make(chan []byte, sendBuffer),
	}

	c.reply(NewConnectedEvent(p))
	h.join(c)
	logger.Get().Info("chat_connected", "user_id", p.UserID, "user_type", p.Role.UserType())

	go c.writePump()
	c.readPump(sender) // blocks until disconnect
	logger.Get().Info("chat_disconnected", "user_id", p.UserID)
}

func (c *client) reply(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) readPump(sender Sender) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get().Warn("chat_read_failed", "user_id", c.principal.UserID, "error", err)
			}
			return
		}
		c.handle(raw, sender)
	}
}

func (c *client) handle(raw []byte, sender Sender) {
	var msg WSClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(NewErrorEvent("Invalid JSON format"))
		return
	}

	switch msg.Type {
	case "", EventMessage:
		ctx := logger.ContextWithUserID(context.Background(), c.principal.UserID)
		d, err := sender.Send(ctx, c.principal, msg.Message, msg.UserID)
		if err != nil {
			c.reply(NewErrorEvent(socketError(err)))
			if !isClientError(err) {
				logger.WithContext(ctx).Error("chat_send_failed", "error", err)
			}
			return
		}
		c.hub.Deliver(ctx, d)
	case EventPing:
		c.reply(NewPongEvent())
	default:
		c.reply(NewErrorEvent("Unknown message type: " + msg.Type))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func isClientError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrTargetRequired) ||
		errors.Is(err, ErrUserNotFound)
}

func socketError(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "Message cannot be empty"
	case errors.Is(err, ErrTargetRequired):
		return "user_id is required for admin messages"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	default:
		return "Failed to send message"
	}
}
