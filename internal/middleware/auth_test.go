package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/pkg/jwt"
)

func principalEcho(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": p.UserID, "role": p.Role})
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := jwt.New("test-secret-123", time.Hour)

	customer, err := tokens.GenerateToken(42, "customer")
	require.NoError(t, err)
	superuser, err := tokens.GenerateToken(5, "superuser")
	require.NoError(t, err)
	foreign, err := jwt.New("wrong-secret", time.Hour).GenerateToken(42, "customer")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", JWTAuth(tokens), principalEcho)

	cases := []struct {
		name   string
		header string
		status int
		want   string
	}{
		{"valid", "Bearer " + customer, http.StatusOK, `"user_id":42`},
		{"lowercase scheme", "bearer " + customer, http.StatusOK, `"role":"customer"`},
		{"missing", "", http.StatusUnauthorized, "AUTH_HEADER_MISSING"},
		{"basic auth", "Basic dGVzdA==", http.StatusUnauthorized, "INVALID_AUTH_FORMAT"},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, "INVALID_AUTH_FORMAT"},
		{"garbage", "Bearer invalid-jwt-here", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"other secret", "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"unknown role", "Bearer " + superuser, http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestOptionalJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := jwt.New("secret", time.Hour)
	token, err := tokens.GenerateToken(9, "customer")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/maybe", OptionalJWTAuth(tokens), principalEcho)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/maybe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"user_id":9`)

	// a bad token on an optional route is still an error, not a guest
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
