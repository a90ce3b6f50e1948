package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/media"
	"github.com/yukikurage/periodical/internal/models"
)

func TestMediaHandler_UploadAuthAndDelete(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "writer@acme.test", models.RoleContentWriter, org)

	w := env.do(t, http.MethodGet, "/api/imagekit/auth", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := env.login(t, "writer@acme.test")

	w = env.do(t, http.MethodGet, "/api/imagekit/auth", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var auth media.UploadAuth
	decodeData(t, w, &auth)
	assert.NotEmpty(t, auth.Token)
	assert.Len(t, auth.Signature, 40)
	assert.Equal(t, "public_test", auth.PublicKey)

	w = env.do(t, http.MethodDelete, "/api/imagekit/delete", map[string]string{"file_id": "file_123"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "File deleted successfully", decode(t, w).Message)
	assert.Equal(t, []string{"/v1/files/file_123"}, env.deletedFiles)

	w = env.do(t, http.MethodDelete, "/api/imagekit/delete", map[string]string{"file_id": "missing"}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/imagekit/delete", map[string]string{}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaHandler_NotConfigured(t *testing.T) {
	handler := NewMediaHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/imagekit/auth", nil)

	handler.UploadAuth(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, apierrors.ErrCodeServiceUnavailable, resp.Code)
	assert.Equal(t, "Media storage is not configured", resp.Message)
}
