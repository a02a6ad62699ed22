package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tourbooking/internal/domain/notification"
)

type mockDispatcher struct {
	mock.Mock
	notification.Dispatcher
}

func (m *mockDispatcher) SendContact(ctx context.Context, c notification.ContactInfo) (notification.Result, notification.Result) {
	args := m.Called(ctx, c)
	return args.Get(0).(notification.Result), args.Get(1).(notification.Result)
}

var (
	delivered = notification.Result{Sent: true}
	failed    = notification.Result{Err: errors.New("mailbox unavailable")}
)

func post(t *testing.T, d *mockDispatcher, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(d)).RegisterRoutes(r.Group("/api/v1"))

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSend_Success(t *testing.T) {
	d := new(mockDispatcher)
	d.On("SendContact", mock.Anything, mock.MatchedBy(func(c notification.ContactInfo) bool {
		return c.Email == "guest@mail.io" && c.Subject == "Contact Form Submission" && c.Name == "Guest"
	})).Return(delivered, delivered).Once()

	w := post(t, d, map[string]any{"name": " Guest ", "email": "Guest@Mail.io", "message": "Do you run tours in July?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email_sent":true`)
	assert.NotContains(t, w.Body.String(), "email_warning")
	d.AssertExpectations(t)
}

func TestSend_AutoReplyFailureIsWarning(t *testing.T) {
	d := new(mockDispatcher)
	d.On("SendContact", mock.Anything, mock.Anything).Return(delivered, failed).Once()

	w := post(t, d, map[string]any{"name": "Guest", "email": "guest@mail.io", "subject": "Groups", "message": "Hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "email_warning")
}

func TestSend_OwnerFailure(t *testing.T) {
	d := new(mockDispatcher)
	d.On("SendContact", mock.Anything, mock.Anything).Return(failed, delivered).Once()

	w := post(t, d, map[string]any{"name": "Guest", "email": "guest@mail.io", "message": "Hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_FAILED")
}

func TestSend_Validation(t *testing.T) {
	d := new(mockDispatcher)

	w := post(t, d, map[string]any{"name": "Guest", "email": "guest@mail.io", "message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, w.Body.String(), `"details":{"Message":"required"}`)

	w = post(t, d, map[string]any{"name": "Guest", "email": "not-an-email", "message": "Hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_EMAIL")

	d.AssertNotCalled(t, "SendContact", mock.Anything, mock.Anything)
}
