package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/infrastructure/auth"
	"github.com/retailbill/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTTestService(t *testing.T) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-jwt-signing-32ch",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "retailbill-test",
	})
}

func newAuthRouter(svc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(svc))
	r.GET("/api/v1/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": GetJWTTenantID(c),
			"user_id":   GetJWTUserID(c),
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newJWTTestService(t)
	tenantID := uuid.New()
	userID := uuid.New()

	token, _, err := svc.GenerateAccessToken(auth.GenerateTokenInput{
		TenantID: tenantID,
		UserID:   userID,
		Username: "owner",
	})
	require.NoError(t, err)

	r := newAuthRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenantID.String())
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := newAuthRouter(newJWTTestService(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTAuthMiddleware_MalformedHeader(t *testing.T) {
	r := newAuthRouter(newJWTTestService(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-jwt-signing-32ch",
		AccessTokenExpiration: -time.Minute,
		Issuer:                "retailbill-test",
	})
	token, _, err := expired.GenerateAccessToken(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
	})
	require.NoError(t, err)

	r := newAuthRouter(newJWTTestService(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestJWTAuthMiddleware_SkipsHealthPath(t *testing.T) {
	r := newAuthRouter(newJWTTestService(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
