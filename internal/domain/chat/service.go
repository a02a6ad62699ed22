package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/logger"
	"tourbooking/internal/metrics"
)

// Delivery is a persisted message together with its routing data.
type Delivery struct {
	Message          MessageView
	ConversationID   int64
	UserID           int64
	IsNewUserMessage bool
	FromStaff        bool
}

// Thread is a customer's conversation and its transcript.
type Thread struct {
	Conversation ConversationView `json:"conversation"`
	Messages     []MessageView    `json:"messages"`
}

// UnreadSummary is the unread counter for the caller. Staff get the totals
// across conversations, customers get UnreadCount.
type UnreadSummary struct {
	UnreadConversations *int64 `json:"unread_conversations,omitempty"`
	TotalUnreadMessages *int64 `json:"total_unread_messages,omitempty"`
	UnreadCount         *int64 `json:"unread_count,omitempty"`
}

// Service handles chat business logic
type Service struct {
	repo     Repository
	users    auth.UserRepository
	notifier notification.Dispatcher
	metrics  *metrics.Registry
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, users auth.UserRepository, notifier notification.Dispatcher, opts ...Option) *Service {
	s := &Service{repo: repo, users: users, notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send stores a message from the caller. Customers always write into their
// own conversation; staff must name the customer with target.
func (s *Service) Send(ctx context.Context, p auth.Principal, text string, target *int64) (*Delivery, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	staff := p.IsStaff()
	ownerID := p.UserID
	if staff {
		if target == nil || *target == 0 {
			return nil, ErrTargetRequired
		}
		if _, err := s.users.GetByID(ctx, *target); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		ownerID = *target
	}

	sender, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	msg := &Message{SenderID: p.UserID, Text: text, IsFromAdmin: staff}
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		conv, err := tx.GetOrCreateConversation(ctx, ownerID)
		if err != nil {
			return err
		}
		msg.ConversationID = conv.ID
		msg.CreatedAt = s.now()
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return tx.RecordMessage(ctx, conv.ID, text, msg.CreatedAt, !staff)
	})
	if err != nil {
		return nil, err
	}
	msg.Sender = sender

	if s.metrics != nil {
		s.metrics.ChatMessages.WithLabelValues(p.Role.UserType()).Inc()
	}

	return &Delivery{
		Message:          newMessageView(msg),
		ConversationID:   msg.ConversationID,
		UserID:           ownerID,
		IsNewUserMessage: !staff,
		FromStaff:        staff,
	}, nil
}

// NotifyStaff emails the support inbox about a new customer message. It is
// called by the HTTP send path after the message has been delivered; a
// failed email is logged and never fails the send.
func (s *Service) NotifyStaff(ctx context.Context, d *Delivery) {
	if d == nil || d.FromStaff || s.notifier == nil {
		return
	}
	res := s.notifier.NotifyStaffMessage(ctx, notification.MessageInfo{
		ConversationID: d.ConversationID,
		SenderName:     d.Message.SenderName,
		SenderEmail:    d.Message.SenderEmail,
		Text:           d.Message.Text,
	})
	if res.Failed() {
		logger.WithContext(ctx).Warn("chat_staff_notify_failed",
			"conversation_id", d.ConversationID, "error", res.Err)
	}
}

// Conversations lists active conversations for the staff inbox.
func (s *Service) Conversations(ctx context.Context, p auth.Principal) ([]ConversationView, error) {
	if !p.IsStaff() {
		return nil, ErrForbidden
	}
	list, err := s.repo.ListActiveConversations(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(list))
	for _, c := range list {
		views = append(views, newConversationView(c))
	}
	return views, nil
}

// Messages returns a transcript for staff and marks the customer's side read.
func (s *Service) Messages(ctx context.Context, p auth.Principal, conversationID int64) ([]MessageView, error) {
	if !p.IsStaff() {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if err := s.markStaffRead(ctx, conversationID, false); err != nil {
		return nil, err
	}
	return s.transcript(ctx, conversationID)
}

// MyMessages returns the caller's own conversation, creating it on first use.
func (s *Service) MyMessages(ctx context.Context, p auth.Principal) (*Thread, error) {
	conv, err := s.repo.GetOrCreateConversation(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkMessagesRead(ctx, conv.ID, true); err != nil {
		return nil, err
	}
	msgs, err := s.transcript(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Conversation: newConversationView(conv), Messages: msgs}, nil
}

// MarkRead clears unread state for the caller's side of a conversation.
func (s *Service) MarkRead(ctx context.Context, p auth.Principal, conversationID *int64) error {
	if p.IsStaff() {
		if conversationID == nil || *conversationID == 0 {
			return ErrConversationRequired
		}
		if _, err := s.repo.GetConversation(ctx, *conversationID); err != nil {
			return err
		}
		return s.markStaffRead(ctx, *conversationID, true)
	}

	conv, err := s.repo.FindConversationByUser(ctx, p.UserID)
	if errors.Is(err, ErrConversationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.MarkMessagesRead(ctx, conv.ID, true)
}

func (s *Service) Unread(ctx context.Context, p auth.Principal) (*UnreadSummary, error) {
	if p.IsStaff() {
		convs, msgs, err := s.repo.UnreadTotals(ctx)
		if err != nil {
			return nil, err
		}
		return &UnreadSummary{UnreadConversations: &convs, TotalUnreadMessages: &msgs}, nil
	}

	var count int64
	conv, err := s.repo.FindConversationByUser(ctx, p.UserID)
	switch {
	case errors.Is(err, ErrConversationNotFound):
	case err != nil:
		return nil, err
	default:
		if count, err = s.repo.CountUnreadFrom(ctx, conv.ID, true); err != nil {
			return nil, err
		}
	}
	return &UnreadSummary{UnreadCount: &count}, nil
}

// DeleteMessage removes one message and rewinds the conversation summary to
// the newest remaining message. An unread customer message also leaves the
// staff counter.
func (s *Service) DeleteMessage(ctx context.Context, p auth.Principal, id int64) error {
	if !p.IsStaff() {
		return ErrForbidden
	}
	return s.repo.Transaction(ctx, func(tx Repository) error {
		msg, err := tx.GetMessage(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteMessage(ctx, id); err != nil {
			return err
		}
		if !msg.IsFromAdmin && !msg.IsRead {
			if err := tx.DecrementUnread(ctx, msg.ConversationID); err != nil {
				return err
			}
		}
		latest, err := tx.LatestMessage(ctx, msg.ConversationID)
		if err != nil {
			return err
		}
		if latest == nil {
			conv, err := tx.GetConversation(ctx, msg.ConversationID)
			if err != nil {
				return err
			}
			return tx.SetLastMessage(ctx, msg.ConversationID, "", conv.CreatedAt)
		}
		return tx.SetLastMessage(ctx, msg.ConversationID, latest.Text, latest.CreatedAt)
	})
}

func (s *Service) DeleteConversation(ctx context.Context, p auth.Principal, id int64) error {
	if !p.IsStaff() {
		return ErrForbidden
	}
	return s.repo.DeleteConversation(ctx, id)
}

// markStaffRead resets the staff counter. Opening a transcript flags the
// customer's messages read; the explicit mark-read action flags every
// message in the conversation.
func (s *Service) markStaffRead(ctx context.Context, conversationID int64, all bool) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		mark := func() error { return tx.MarkMessagesRead(ctx, conversationID, false) }
		if all {
			mark = func() error { return tx.MarkAllRead(ctx, conversationID) }
		}
		if err := mark(); err != nil {
			return err
		}
		return tx.ResetUnread(ctx, conversationID)
	})
}

func (s *Service) transcript(ctx context.Context, conversationID int64) ([]MessageView, error) {
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, newMessageView(m))
	}
	return views, nil
}
