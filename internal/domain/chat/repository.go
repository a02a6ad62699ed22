package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles all DB operations for the chat domain
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// Conversations
	GetOrCreateConversation(ctx context.Context, userID int64) (*Conversation, error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	FindConversationByUser(ctx context.Context, userID int64) (*Conversation, error)
	ListActiveConversations(ctx context.Context) ([]*Conversation, error)
	RecordMessage(ctx context.Context, conversationID int64, text string, at time.Time, countUnread bool) error
	ResetUnread(ctx context.Context, conversationID int64) error
	DecrementUnread(ctx context.Context, conversationID int64) error
	SetLastMessage(ctx context.Context, conversationID int64, text string, at time.Time) error
	DeleteConversation(ctx context.Context, id int64) error
	UnreadTotals(ctx context.Context) (conversations int64, messages int64, err error)

	// Messages
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id int64) (*Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)
	LatestMessage(ctx context.Context, conversationID int64) (*Message, error)
	MarkMessagesRead(ctx context.Context, conversationID int64, fromAdmin bool) error
	MarkAllRead(ctx context.Context, conversationID int64) error
	CountUnreadFrom(ctx context.Context, conversationID int64, fromAdmin bool) (int64, error)
	DeleteMessage(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// GetOrCreateConversation relies on the unique user_id index so concurrent
// first messages end up in the same row.
func (r *repository) GetOrCreateConversation(ctx context.Context, userID int64) (*Conversation, error) {
	now := time.Now()
	conv := &Conversation{UserID: userID, LastMessageAt: now, IsActive: true}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(conv).Error
	if err != nil {
		return nil, err
	}
	return r.FindConversationByUser(ctx, userID)
}

func (r *repository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repository) FindConversationByUser(ctx context.Context, userID int64) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repository) ListActiveConversations(ctx context.Context) ([]*Conversation, error) {
	var list []*Conversation
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ?", true).
		Order("last_message_at DESC").
		Find(&list).Error
	return list, err
}

// RecordMessage updates the conversation summary for a new message and,
// for customer messages, bumps the staff unread counter.
func (r *repository) RecordMessage(ctx context.Context, conversationID int64, text string, at time.Time, countUnread bool) error {
	updates := map[string]any{
		"last_message":    text,
		"last_message_at": at,
		"is_active":       true,
	}
	if countUnread {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	}
	return r.db.WithContext(ctx).Model(&Conversation{}).Where("id = ?", conversationID).Updates(updates).Error
}

func (r *repository) ResetUnread(ctx context.Context, conversationID int64) error {
	return r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", conversationID).
		Update("unread_count", 0).Error
}

// DecrementUnread lowers the staff counter by one without going below zero.
func (r *repository) DecrementUnread(ctx context.Context, conversationID int64) error {
	return r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND unread_count > 0", conversationID).
		Update("unread_count", gorm.Expr("unread_count - 1")).Error
}

func (r *repository) SetLastMessage(ctx context.Context, conversationID int64, text string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{"last_message": text, "last_message_at": at}).Error
}

func (r *repository) DeleteConversation(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&Conversation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *repository) UnreadTotals(ctx context.Context) (int64, int64, error) {
	var row struct {
		Conversations int64
		Messages      int64
	}
	err := r.db.WithContext(ctx).Model(&Conversation{}).
		Select("COUNT(*) AS conversations, CAST(COALESCE(SUM(unread_count), 0) AS BIGINT) AS messages").
		Where("unread_count > 0").
		Scan(&row).Error
	return row.Conversations, row.Messages, err
}

func (r *repository) CreateMessage(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Omit("Conversation", "Sender").Create(msg).Error
}

func (r *repository) GetMessage(ctx context.Context, id int64) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repository) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	var list []*Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *repository) LatestMessage(ctx context.Context, conversationID int64) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkMessagesRead flags unread messages in the conversation that were sent
// by staff (fromAdmin) or by the customer (!fromAdmin).
func (r *repository) MarkMessagesRead(ctx context.Context, conversationID int64, fromAdmin bool) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND is_from_admin = ? AND is_read = ?", conversationID, fromAdmin, false).
		Update("is_read", true).Error
}

func (r *repository) MarkAllRead(ctx context.Context, conversationID int64) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND is_read = ?", conversationID, false).
		Update("is_read", true).Error
}

func (r *repository) CountUnreadFrom(ctx context.Context, conversationID int64, fromAdmin bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND is_from_admin = ? AND is_read = ?", conversationID, fromAdmin, false).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteMessage(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&Message{}, id).Error
}

