package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tourbooking/internal/database"
	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/booking"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/domain/chat"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/metrics"
	"tourbooking/internal/pkg/jwt"
)

type testSuite struct {
	router *gin.Engine
	db     *gorm.DB
	jwt    *jwt.Service
	tour   *catalog.Tour
}

type testResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func setupSuite(t *testing.T) *testSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectWithConfig("file:server_test_"+name+"?mode=memory&cache=shared",
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	var models []any
	models = append(models, auth.Models()...)
	models = append(models, catalog.Models()...)
	models = append(models, booking.Models()...)
	models = append(models, chat.Models()...)
	models = append(models, notification.Models()...)
	require.NoError(t, database.Migrate(db, models...))

	hash, err := bcrypt.GenerateFromPassword([]byte("staff-password"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&auth.User{
		Email: "desk@tours.local", PasswordHash: string(hash), Role: auth.RoleStaff, FirstName: "Support", LastName: "Desk",
	}).Error)

	tour := &catalog.Tour{Title: "Valley of the Kings", Slug: "valley-of-the-kings", Price: 12000, MaxPersons: 12, IsActive: true}
	require.NoError(t, db.Create(tour).Error)

	reg := metrics.New()
	tokens := jwt.New("server-test-secret", time.Hour)
	dispatcher := notification.NewEmailDispatcher(notification.LogMailer{}, "owner@tours.local",
		notification.WithDeliveryLog(notification.NewDeliveryRepository(db)),
		notification.WithMetrics(reg),
	)

	router := NewRouter(Deps{
		DB:         db,
		JWT:        tokens,
		Metrics:    reg,
		Dispatcher: dispatcher,
		Hub:        chat.NewHub(reg),
		Clock:      func() time.Time { return time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC) },
	})
	return &testSuite{router: router, db: db, jwt: tokens, tour: tour}
}

func (s *testSuite) do(t *testing.T, method, path, token string, body any) (int, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp testResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func (s *testSuite) login(t *testing.T, email, password string) string {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code)
	return resp.Data["access_token"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupSuite(t)

	code, resp := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Data["status"])

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestBookingLifecycle(t *testing.T) {
	s := setupSuite(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"first_name": "Nour", "last_name": "Hassan", "email": "nour@travelers.io", "password": "pyramids-2030",
	})
	require.Equal(t, http.StatusCreated, code)
	customerToken := s.login(t, "nour@travelers.io", "pyramids-2030")
	staffToken := s.login(t, "desk@tours.local", "staff-password")

	create := map[string]any{
		"tour_id":             s.tour.ID.String(),
		"first_name":          "Nour",
		"last_name":           "Hassan",
		"email":               "nour@travelers.io",
		"number_of_travelers": 2,
		"preferred_date":      "2030-02-01",
	}
	code, resp := s.do(t, http.MethodPost, "/api/v1/bookings/create", customerToken, create)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, resp.Data["email_sent"])
	created := resp.Data["booking"].(map[string]any)
	ref := created["booking_reference"].(string)
	assert.True(t, booking.IsValidReference(ref))
	assert.Equal(t, "pending", created["booking_status"])
	assert.Equal(t, float64(24000), created["total_amount"])

	code, resp = s.do(t, http.MethodPost, "/api/v1/bookings/create", customerToken, create)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE_BOOKING", resp.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings/admin/all", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(t, http.MethodPost, "/api/v1/bookings/admin/"+ref+"/confirm", staffToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", resp.Data["booking_status"])

	code, resp = s.do(t, http.MethodPost, "/api/v1/bookings/my-bookings/"+ref+"/cancel", customerToken,
		map[string]any{"reason": "customer_request"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", resp.Data["booking"].(map[string]any)["booking_status"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/admin/notifications", staffToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestGuestBookingAndContact(t *testing.T) {
	s := setupSuite(t)

	code, resp := s.do(t, http.MethodPost, "/api/v1/bookings/create", "", map[string]any{
		"tour_id":                  s.tour.ID.String(),
		"first_name":               "Guest",
		"last_name":                "Traveler",
		"email":                    "guest@mail.io",
		"number_of_travelers":      1,
		"availability_description": "Any weekend in March",
	})
	require.Equal(t, http.StatusCreated, code)
	ref := resp.Data["booking"].(map[string]any)["booking_reference"].(string)

	code, _ = s.do(t, http.MethodPost, "/api/v1/bookings/lookup", "", map[string]any{"booking_reference": ref, "email": "GUEST@mail.io"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/bookings/lookup", "", map[string]any{"booking_reference": ref, "email": "someone@mail.io"})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(t, http.MethodPost, "/api/v1/contact", "", map[string]any{
		"name": "Guest", "email": "guest@mail.io", "subject": "Groups", "message": "Do you take groups of 20?",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp.Data["email_sent"])
}

func TestChatOverHTTP(t *testing.T) {
	s := setupSuite(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"first_name": "Omar", "email": "omar@travelers.io", "password": "karnak-temple",
	})
	require.Equal(t, http.StatusCreated, code)
	customerToken := s.login(t, "omar@travelers.io", "karnak-temple")
	staffToken := s.login(t, "desk@tours.local", "staff-password")

	code, _ = s.do(t, http.MethodPost, "/api/v1/chat/send", "", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/chat/send", customerToken, map[string]any{"message": "Is the tour wheelchair friendly?"})
	require.Equal(t, http.StatusCreated, code)

	code, resp := s.do(t, http.MethodGet, "/api/v1/chat/unread", staffToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data["total_unread_messages"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/chat/conversations", staffToken, nil)
	require.Equal(t, http.StatusOK, code)
	convs := resp.Data["conversations"].([]any)
	require.Len(t, convs, 1)

	code, _ = s.do(t, http.MethodGet, "/api/v1/chat/conversations", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/chat/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
