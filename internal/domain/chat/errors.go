package chat

import "errors"

var (
	ErrEmptyMessage         = errors.New("Message cannot be empty")
	ErrTargetRequired       = errors.New("user_id is required for admin messages")
	ErrConversationRequired = errors.New("conversation_id is required")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrForbidden            = errors.New("admin access required")
)
