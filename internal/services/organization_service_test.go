package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
)

func TestOrganizationService_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	service := NewOrganizationService(repository.NewOrganizationRepository(db), repository.NewUserRepository(db))
	ctx := context.Background()

	root := policy.NewActor(createTestUser(t, db, "root@example.com", models.RoleSuperAdmin, nil))

	premium, err := service.CreateOrganization(ctx, root, CreateOrganizationInput{Name: "Globex Corp", PlanType: "premium"})
	require.NoError(t, err)
	assert.Equal(t, "globex-corp", premium.Slug)
	assert.Equal(t, 20, premium.MaxWriters)

	custom, err := service.CreateOrganization(ctx, root, CreateOrganizationInput{Name: "Initech", PlanType: "enterprise", MaxWriters: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, custom.MaxWriters)

	_, err = service.CreateOrganization(ctx, root, CreateOrganizationInput{Name: "globex corp", PlanType: "free"})
	assert.ErrorIs(t, err, ErrOrganizationExists)

	_, err = service.CreateOrganization(ctx, root, CreateOrganizationInput{Name: "Umbrella", PlanType: "platinum"})
	assert.ErrorIs(t, err, ErrInvalidPlanType)

	updated, err := service.UpdateOrganization(ctx, root, premium.ID, UpdateOrganizationInput{PlanType: strPtr("enterprise")})
	require.NoError(t, err)
	assert.Equal(t, 50, updated.MaxWriters)

	_, err = service.UpdateOrganization(ctx, root, premium.ID, UpdateOrganizationInput{Name: strPtr("Initech")})
	assert.ErrorIs(t, err, ErrOrganizationExists)

	orgs, err := service.ListOrganizations(ctx, root)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	found, err := service.GetOrganizationBySlug(ctx, root, "initech")
	require.NoError(t, err)
	assert.Equal(t, custom.ID, found.Organization.ID)
}

func TestOrganizationService_SuperAdminOnly(t *testing.T) {
	db := newTestDB(t)
	service := NewOrganizationService(repository.NewOrganizationRepository(db), repository.NewUserRepository(db))
	ctx := context.Background()

	org := createTestOrg(t, db, "acme", models.PlanFree)
	admin := policy.NewActor(createTestUser(t, db, "admin@acme.test", models.RoleOrgAdmin, org))
	createTestUser(t, db, "w@acme.test", models.RoleContentWriter, org)

	_, err := service.CreateOrganization(ctx, admin, CreateOrganizationInput{Name: "Mine", PlanType: "free"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, service.DeleteOrganization(ctx, admin, org.ID), ErrForbidden)

	current, err := service.GetCurrentOrganization(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, org.ID, current.Organization.ID)
	assert.Equal(t, int64(1), current.ActiveWriters)

	other := createTestOrg(t, db, "globex", models.PlanFree)
	_, err = service.GetOrganization(ctx, admin, other.ID)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestOrganizationService_DeleteDetachesMembers(t *testing.T) {
	db := newTestDB(t)
	service := NewOrganizationService(repository.NewOrganizationRepository(db), repository.NewUserRepository(db))
	ctx := context.Background()

	root := policy.NewActor(createTestUser(t, db, "root@example.com", models.RoleSuperAdmin, nil))
	org := createTestOrg(t, db, "acme", models.PlanFree)
	writer := createTestUser(t, db, "w@acme.test", models.RoleContentWriter, org)
	admin := createTestUser(t, db, "admin@acme.test", models.RoleOrgAdmin, org)
	gist := &models.Gist{Title: "G", Slug: "g", From: time.Now(), To: time.Now(), AuthorID: writer.ID, OrganizationID: org.ID}
	require.NoError(t, db.Create(gist).Error)

	require.NoError(t, service.DeleteOrganization(ctx, root, org.ID))
	assert.ErrorIs(t, service.DeleteOrganization(ctx, root, org.ID), ErrOrganizationNotFound)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, writer.ID).Error)
	assert.Nil(t, reloaded.OrganizationID)

	var formerAdmin models.User
	require.NoError(t, db.First(&formerAdmin, admin.ID).Error)
	assert.Nil(t, formerAdmin.OrganizationID)
	assert.Equal(t, models.RoleContentWriter, formerAdmin.Role)
}
