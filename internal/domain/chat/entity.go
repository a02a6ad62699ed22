package chat

import (
	"time"

	"tourbooking/internal/domain/auth"
)

// Conversation is the single support thread of one customer.
type Conversation struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID        int64      `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	User          *auth.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	LastMessage   string     `gorm:"column:last_message;type:text" json:"last_message"`
	LastMessageAt time.Time  `gorm:"column:last_message_at;index" json:"last_message_at"`
	UnreadCount   int        `gorm:"column:unread_count;not null;default:0" json:"unread_count"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Conversation) TableName() string { return "chat_conversations" }

// Message is one chat line. IsFromAdmin is fixed from the sender's role
// when the row is written.
type Message struct {
	ID             int64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ConversationID int64         `gorm:"column:conversation_id;not null;index" json:"conversation"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID       int64         `gorm:"column:sender_id;not null" json:"sender"`
	Sender         *auth.User    `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Text           string        `gorm:"column:message;type:text;not null" json:"message"`
	IsFromAdmin    bool          `gorm:"column:is_from_admin;not null;default:false" json:"is_from_admin"`
	IsRead         bool          `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt      time.Time     `gorm:"column:created_at;index" json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// MessageView is the wire form of a message.
type MessageView struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation"`
	Text           string    `json:"message"`
	SenderID       int64     `json:"sender"`
	SenderName     string    `json:"sender_name"`
	SenderEmail    string    `json:"sender_email"`
	IsFromAdmin    bool      `json:"is_from_admin"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func newMessageView(m *Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Text:           m.Text,
		SenderID:       m.SenderID,
		IsFromAdmin:    m.IsFromAdmin,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sender != nil {
		v.SenderName = m.Sender.FullName()
		v.SenderEmail = m.Sender.Email
	}
	return v
}

// ConversationView is a conversation row in the staff inbox.
type ConversationView struct {
	Conversation
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func newConversationView(c *Conversation) ConversationView {
	v := ConversationView{Conversation: *c}
	if c.User != nil {
		v.UserName = c.User.FullName()
		v.UserEmail = c.User.Email
	}
	return v
}

// Models lists the tables owned by this package. The users table must be
// migrated first.
func Models() []any {
	return []any{&Conversation{}, &Message{}}
}
