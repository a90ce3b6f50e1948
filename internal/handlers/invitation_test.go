package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/dto"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/models"
)

func tokenFromURL(t *testing.T, acceptURL string) string {
	t.Helper()
	u, err := url.Parse(acceptURL)
	require.NoError(t, err)
	assert.Equal(t, "/invite/accept", u.Path)
	return u.Query().Get("token")
}

func TestInvitationHandler_FullLifecycle(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "manager@acme.test", models.RoleManager, org)
	cookies := env.login(t, "manager@acme.test")

	w := env.do(t, http.MethodPost, "/api/invitations", map[string]string{"email": "New.Writer@acme.test", "role": "content_writer"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Invitation dto.InvitationDTO `json:"invitation"`
	}
	decodeData(t, w, &created)
	assert.Equal(t, "new.writer@acme.test", created.Invitation.Email)
	assert.Equal(t, org.ID, created.Invitation.OrganizationID)
	assert.NotContains(t, w.Body.String(), "token")

	token := tokenFromURL(t, env.mailer.last().AcceptURL)
	require.Len(t, token, 64)

	w = env.do(t, http.MethodGet, "/api/invitations", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Invitations []dto.InvitationDTO `json:"invitations"`
	}
	decodeData(t, w, &listed)
	require.Len(t, listed.Invitations, 1)
	assert.False(t, listed.Invitations[0].Expired)
	require.NotNil(t, listed.Invitations[0].InvitedBy)
	assert.Equal(t, "manager@acme.test", listed.Invitations[0].InvitedBy.Email)

	w = env.do(t, http.MethodGet, "/api/invitations/validate?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview dto.InvitationPreviewDTO
	decodeData(t, w, &preview)
	assert.Equal(t, "acme", preview.Organization.Slug)
	assert.Equal(t, models.RoleContentWriter, preview.Role)
	assert.False(t, preview.UserExists)

	w = env.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name and password are required for new users", decode(t, w).Message)

	w = env.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token, "name": "Wendy", "password": "writerpass"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var accepted dto.AcceptInvitationDTO
	decodeData(t, w, &accepted)
	assert.Equal(t, org.ID, accepted.OrganizationID)
	assert.NotZero(t, accepted.UserID)

	w = env.do(t, http.MethodPost, "/api/invitations/accept", map[string]string{"token": token, "name": "Wendy", "password": "writerpass"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invitation has already been accepted", decode(t, w).Message)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "new.writer@acme.test", "password": "writerpass"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvitationHandler_CreateErrors(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 1)
	env.seedUser(t, "manager@acme.test", models.RoleManager, org)
	env.seedUser(t, "writer@acme.test", models.RoleContentWriter, org)
	other := env.seedOrg(t, "globex", 0)
	env.seedUser(t, "elsewhere@globex.test", models.RoleContentWriter, other)
	manager := env.login(t, "manager@acme.test")

	tests := []struct {
		name    string
		body    map[string]string
		code    int
		errCode string
		message string
	}{
		{"missing role", map[string]string{"email": "x@acme.test"}, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Email and role are required"},
		{"unknown role", map[string]string{"email": "x@acme.test", "role": "editor"}, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid invitation role"},
		{"equal rank", map[string]string{"email": "x@acme.test", "role": "manager"}, http.StatusForbidden, apierrors.ErrCodeForbidden, "Your role (Manager) cannot invite Managers"},
		{"higher rank", map[string]string{"email": "x@acme.test", "role": "org_admin"}, http.StatusForbidden, apierrors.ErrCodeForbidden, "Your role (Manager) cannot invite Org Admins"},
		{"member here", map[string]string{"email": "writer@acme.test", "role": "content_writer"}, http.StatusConflict, apierrors.ErrCodeConflict, "User is already part of this organization"},
		{"member elsewhere", map[string]string{"email": "elsewhere@globex.test", "role": "content_writer"}, http.StatusConflict, apierrors.ErrCodeConflict, "User is already part of another organization"},
		{"writer cap", map[string]string{"email": "x@acme.test", "role": "content_writer"}, http.StatusConflict, apierrors.ErrCodeConflict, "Organization has reached maximum limit of 1 content writers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/invitations", tt.body, manager)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			body := decode(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, tt.errCode, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestInvitationHandler_DuplicatePending(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "admin@acme.test", models.RoleOrgAdmin, org)
	cookies := env.login(t, "admin@acme.test")

	body := map[string]string{"email": "m@acme.test", "role": "manager"}
	w := env.do(t, http.MethodPost, "/api/invitations", body, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/invitations", body, cookies)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Pending invitation already exists for this email", decode(t, w).Message)
}

func TestInvitationHandler_EmailFailure(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "admin@acme.test", models.RoleOrgAdmin, org)
	cookies := env.login(t, "admin@acme.test")
	env.mailer.err = errors.New("smtp down")

	w := env.do(t, http.MethodPost, "/api/invitations", map[string]string{"email": "m@acme.test", "role": "manager"}, cookies)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send invitation email", decode(t, w).Message)

	var count int64
	require.NoError(t, env.db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInvitationHandler_WriterCannotManage(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "writer@acme.test", models.RoleContentWriter, org)
	cookies := env.login(t, "writer@acme.test")

	w := env.do(t, http.MethodGet, "/api/invitations", nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/invitations?invitation_id=1", nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvitationHandler_Revoke(t *testing.T) {
	env := setupTestEnv(t, nil)
	org := env.seedOrg(t, "acme", 0)
	env.seedUser(t, "admin@acme.test", models.RoleOrgAdmin, org)
	other := env.seedOrg(t, "globex", 0)
	env.seedUser(t, "admin@globex.test", models.RoleOrgAdmin, other)
	cookies := env.login(t, "admin@acme.test")

	w := env.do(t, http.MethodPost, "/api/invitations", map[string]string{"email": "m@acme.test", "role": "manager"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Invitation dto.InvitationDTO `json:"invitation"`
	}
	decodeData(t, w, &created)
	path := fmt.Sprintf("/api/invitations?invitation_id=%d", created.Invitation.ID)

	w = env.do(t, http.MethodDelete, path, nil, env.login(t, "admin@globex.test"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/invitations", nil, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, path, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, path, nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitationHandler_ValidateUnknownToken(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/invitations/validate?token=deadbeef", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/invitations/validate", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvitationHandler_UnaffiliatedActor(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.seedUser(t, "loner@example.com", models.RoleManager, nil)

	w := env.do(t, http.MethodPost, "/api/invitations",
		map[string]string{"email": "friend@example.com", "role": "content_writer"}, env.login(t, "loner@example.com"))
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	assert.Equal(t, apierrors.ErrCodeNotFound, resp.Code)
	assert.Equal(t, "User is not part of any organization", resp.Message)
	assert.Empty(t, env.mailer.sent)
}
