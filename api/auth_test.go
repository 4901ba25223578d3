package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/")
	protected.Use(AuthMiddleware())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	SetAuthSecret("test-secret")

	token, err := GenerateToken(42)
	require.NoError(t, err)

	userID, err := parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenRejectsTamperedSignature(t *testing.T) {
	SetAuthSecret("test-secret")

	token, err := GenerateToken(42)
	require.NoError(t, err)

	_, err = parseToken(token + "x")
	assert.Error(t, err)

	_, err = parseToken("not.a.token")
	assert.Error(t, err)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	SetAuthSecret("secret-one")
	token, err := GenerateToken(7)
	require.NoError(t, err)

	SetAuthSecret("secret-two")
	_, err = parseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	SetAuthSecret("test-secret")
	r := authRouter()

	// no header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong scheme
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abcdef")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	token, err := GenerateToken(42)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}
