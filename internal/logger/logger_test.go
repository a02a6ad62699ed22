package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestNewRequestID_Unique(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestWithContext_NoPanicWithoutValues(t *testing.T) {
	Init("debug", "text")
	assert.NotNil(t, WithContext(context.Background()))

	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "r"), 7)
	assert.NotNil(t, WithContext(ctx))
}
