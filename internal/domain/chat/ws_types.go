package chat

import (
	"strconv"

	"tourbooking/internal/domain/auth"
)

// Room names a fan-out group on the hub.
type Room string

// StaffRoom receives every conversation's traffic.
const StaffRoom Room = "staff"

// UserRoom is the private room of one customer.
func UserRoom(userID int64) Room {
	return Room("user:" + strconv.FormatInt(userID, 10))
}

func roomsFor(p auth.Principal) []Room {
	if p.IsStaff() {
		return []Room{StaffRoom}
	}
	return []Room{UserRoom(p.UserID)}
}

const (
	EventConnected = "connection_established"
	EventMessage   = "message"
	EventPing      = "ping"
	EventPong      = "pong"
	EventError     = "error"
)

// WSClientMessage is what a browser sends over the socket. A missing type
// is treated as a chat message.
type WSClientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  *int64 `json:"user_id,omitempty"`
}

type WSConnected struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	UserType string `json:"user_type"`
}

type WSMessageEvent struct {
	Type             string      `json:"type"`
	Data             MessageView `json:"data"`
	ConversationID   int64       `json:"conversation_id"`
	IsNewUserMessage bool        `json:"is_new_user_message"`
}

type WSErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type WSPongEvent struct {
	Type string `json:"type"`
}

func NewConnectedEvent(p auth.Principal) *WSConnected {
	return &WSConnected{Type: EventConnected, Message: "Connected successfully", UserType: p.Role.UserType()}
}

func NewMessageEvent(d *Delivery, newUserMessage bool) *WSMessageEvent {
	return &WSMessageEvent{
		Type:             EventMessage,
		Data:             d.Message,
		ConversationID:   d.ConversationID,
		IsNewUserMessage: newUserMessage,
	}
}

func NewErrorEvent(message string) *WSErrorEvent {
	return &WSErrorEvent{Type: EventError, Error: message}
}

func NewPongEvent() *WSPongEvent {
	return &WSPongEvent{Type: EventPong}
}
