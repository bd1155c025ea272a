package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	jwt.Init("middleware-test-secret-0123456789", 5)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/whoami", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserIdKey), "role": c.GetString(ContextRoleKey)})
	})
	r.GET("/agents", JWTAuth(), RequireRole(user_role_enum.Agent), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuthAcceptsHeaderAndQuery(t *testing.T) {
	r := newEngine()
	token, err := jwt.GenerateAccessToken("U-1", user_role_enum.Subject)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"U-1","role":"user"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthRejectsMissingOrBadToken(t *testing.T) {
	r := newEngine()
	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequireRole(t *testing.T) {
	r := newEngine()
	subjectToken, err := jwt.GenerateAccessToken("U-1", user_role_enum.Subject)
	require.NoError(t, err)
	agentToken, err := jwt.GenerateAccessToken("A-1", user_role_enum.Agent)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agents?token="+subjectToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agents?token="+agentToken, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
