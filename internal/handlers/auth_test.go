package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/dto"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/models"
)

func TestAuthHandler_SignupLoginMe(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"name":     "New User",
		"email":    "New@Example.com",
		"password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created dto.UserDTO
	decodeData(t, w, &created)
	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, models.RoleContentWriter, created.Role)
	assert.Nil(t, created.OrganizationID)

	cookies := env.login(t, "new@example.com")

	w = env.do(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.UserDTO
	decodeData(t, w, &me)
	assert.Equal(t, created.ID, me.ID)

	w = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_SignupValidation(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.seedUser(t, "taken@example.com", models.RoleContentWriter, nil)

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "supersecret"}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "supersecret"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}, http.StatusBadRequest},
		{"taken", map[string]string{"name": "A", "email": "taken@example.com", "password": "supersecret"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/signup", tt.body, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	env := setupTestEnv(t, nil)
	user := env.seedUser(t, "writer@example.com", models.RoleContentWriter, nil)

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "writer@example.com", "password": "wrong-password"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, apierrors.ErrCodeInvalidCredentials, body.Code)
	assert.Equal(t, "Invalid email or password", body.Message)

	require.NoError(t, env.db.Model(user).Update("status", models.UserStatusInactive).Error)
	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "writer@example.com", "password": testPassword}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_DeactivatedSessionIsRejected(t *testing.T) {
	env := setupTestEnv(t, nil)
	user := env.seedUser(t, "writer@example.com", models.RoleContentWriter, nil)
	cookies := env.login(t, "writer@example.com")

	require.NoError(t, env.db.Model(user).Update("status", models.UserStatusInactive).Error)

	w := env.do(t, http.MethodGet, "/api/auth/me", nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.seedUser(t, "writer@example.com", models.RoleContentWriter, nil)
	cookies := env.login(t, "writer@example.com")

	w := env.do(t, http.MethodPut, "/api/auth/password", map[string]string{"current_password": "wrong", "new_password": "anothersecret"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/auth/password", map[string]string{"current_password": testPassword, "new_password": "short"}, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 8 characters", decode(t, w).Message)

	w = env.do(t, http.MethodPut, "/api/auth/password", map[string]string{"current_password": testPassword, "new_password": "anothersecret"}, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "writer@example.com", "password": "anothersecret"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_GetCurrentUserWithoutActor(t *testing.T) {
	handler := NewAuthHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	handler.GetCurrentUser(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, ok := middleware.GetActor(c)
	assert.False(t, ok)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := setupTestEnv(t, nil)

	for _, path := range []string{"/api/gist", "/api/users", "/api/organizations", "/api/invitations"} {
		w := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestLoginIsRateLimited(t *testing.T) {
	env := setupTestEnv(t, middleware.NewMemoryLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, Burst: 2}))
	env.seedUser(t, "writer@example.com", models.RoleContentWriter, nil)

	body := map[string]string{"email": "writer@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/api/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/auth/login", body, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apierrors.ErrCodeRateLimited, decode(t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
