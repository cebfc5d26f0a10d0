package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsdesk/internal/staff/domain"
	"github.com/smallbiznis/opsdesk/internal/staff/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:staff_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Staff{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateDefaultsToAgentRole(t *testing.T) {
	svc := newTestService(t)

	member, err := svc.Create(context.Background(), domain.CreateStaffRequest{
		Name:  "Asha",
		Email: "asha@example.test",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, member.Role)
	assert.True(t, member.Active)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateStaffRequest{Email: "a@b.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateStaffRequest{Name: "Asha", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateStaffRequest{Name: "Asha", Email: "a@b.test", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateStaffRequest{Name: "Asha", Email: "asha@example.test"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateStaffRequest{Name: "Other", Email: "asha@example.test"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestGetByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	member, err := svc.Create(ctx, domain.CreateStaffRequest{Name: "Asha", Email: "asha@example.test"})
	require.NoError(t, err)

	found, err := svc.GetByID(ctx, member.ID.String())
	require.NoError(t, err)
	assert.Equal(t, member.ID, found.ID)

	_, err = svc.GetByID(ctx, "999999999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
