package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/database"
	"github.com/yukikurage/periodical/internal/mailer"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// fakeMailer records invitations and fails with err when set.
type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []mailer.InvitationEmail
}

func (m *fakeMailer) SendInvitation(_ context.Context, email mailer.InvitationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return m.err
}

func createTestOrg(t *testing.T, db *gorm.DB, name string, plan models.PlanType) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:       name,
		Slug:       name,
		PlanType:   plan,
		MaxWriters: policy.WriterCap(plan, 0),
		Status:     models.OrganizationStatusActive,
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role, org *models.Organization) *models.User {
	t.Helper()
	hash := "hashed"
	user := &models.User{
		Name:         email,
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if org != nil {
		user.OrganizationID = &org.ID
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func uint64Ptr(v uint64) *uint64 { return &v }

func strPtr(v string) *string { return &v }
