package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/config"
	"github.com/yukikurage/periodical/internal/database"
	"github.com/yukikurage/periodical/internal/mailer"
	"github.com/yukikurage/periodical/internal/media"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "supersecret"

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMailer struct {
	mu   sync.Mutex
	err  error
	sent []mailer.InvitationEmail
}

func (m *recordingMailer) SendInvitation(_ context.Context, email mailer.InvitationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return m.err
}

func (m *recordingMailer) last() mailer.InvitationEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	mailer      *recordingMailer
	invitations *services.InvitationService
	// deletedFiles lists paths the fake ImageKit API received DELETEs on
	deletedFiles []string
}

func setupTestEnv(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	gistRepo := repository.NewGistRepository(db)
	m := &recordingMailer{}
	invitationService := services.NewInvitationService(repository.NewInvitationRepository(db), orgRepo, userRepo, m, "http://dashboard.test")

	env := &testEnv{db: db, mailer: m, invitations: invitationService}
	imageKitAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/files/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		env.deletedFiles = append(env.deletedFiles, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(imageKitAPI.Close)
	imageKit := media.NewImageKit(config.MediaConfig{
		PublicKey:  "public_test",
		PrivateKey: "private_test",
		APIBaseURL: imageKitAPI.URL,
	})

	env.router = NewRouter(Dependencies{
		DB:                  db,
		SessionStore:        cookie.NewStore([]byte("secret")),
		AuthService:         services.NewAuthService(userRepo),
		OrganizationService: services.NewOrganizationService(orgRepo, userRepo),
		UserService:         services.NewUserService(userRepo, orgRepo),
		InvitationService:   invitationService,
		GistService:         services.NewGistService(gistRepo, userRepo),
		TopicService:        services.NewTopicService(repository.NewTopicRepository(db), gistRepo),
		ImageKit:            imageKit,
		RateLimiter:         limiter,
	})

	return env
}

func (env *testEnv) seedOrg(t *testing.T, slug string, maxWriters int) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:       slug,
		Slug:       slug,
		PlanType:   models.PlanFree,
		MaxWriters: policy.WriterCap(models.PlanFree, maxWriters),
		Status:     models.OrganizationStatusActive,
	}
	require.NoError(t, env.db.Create(org).Error)
	return org
}

func (env *testEnv) seedUser(t *testing.T, email string, role models.Role, org *models.Organization) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := string(hash)

	user := &models.User{
		Name:         email,
		Email:        email,
		PasswordHash: &hashed,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if org != nil {
		user.OrganizationID = &org.ID
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

// do sends a JSON request with the given session cookies.
func (env *testEnv) do(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
	return cookies
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
