package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func TestLimitUpdateMergesOnlyProvidedFields(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	users := NewUserRepository(db.DB, logger)
	repo := NewLimitRepository(db.DB, logger)

	role := &models.Role{Name: "Manager"}
	require.NoError(t, users.CreateRole(nil, role))

	limit := &models.ApprovalLimit{
		ActivityType: "PO",
		RoleID:       role.ID,
		MinAmount:    fptr(0),
		MaxAmount:    fptr(10000),
		IsActive:     true,
	}
	require.NoError(t, repo.Create(nil, limit))

	updated, err := repo.Update(limit.ID, &models.LimitUpdate{
		MaxAmount: fptr(25000),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, 25000.0, *updated.MaxAmount)
	// Untouched fields keep their stored values.
	assert.Equal(t, 0.0, *updated.MinAmount)
	assert.True(t, updated.IsActive)

	updated, err = repo.Update(limit.ID, &models.LimitUpdate{
		IsActive: bptr(false),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 25000.0, *updated.MaxAmount)
}

func TestLimitUpdateMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewLimitRepository(db.DB, zap.NewNop())

	updated, err := repo.Update(9999, &models.LimitUpdate{MaxAmount: fptr(1)})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestFindByActivityType(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	users := NewUserRepository(db.DB, logger)
	repo := NewLimitRepository(db.DB, logger)

	roleA := &models.Role{Name: "Supervisor"}
	roleB := &models.Role{Name: "Manager"}
	require.NoError(t, users.CreateRole(nil, roleA))
	require.NoError(t, users.CreateRole(nil, roleB))

	require.NoError(t, repo.Create(nil, &models.ApprovalLimit{
		ActivityType: "PO", RoleID: roleA.ID, MinAmount: fptr(0), MaxAmount: fptr(5000), IsActive: true,
	}))
	require.NoError(t, repo.Create(nil, &models.ApprovalLimit{
		ActivityType: "PO", RoleID: roleB.ID, MinAmount: fptr(0), MaxAmount: fptr(50000), IsActive: false,
	}))
	require.NoError(t, repo.Create(nil, &models.ApprovalLimit{
		ActivityType: "Payment", RoleID: roleB.ID, MinAmount: fptr(0), IsActive: true,
	}))

	limits, err := repo.FindByActivityType("PO", true)
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.Equal(t, roleA.ID, limits[0].RoleID)

	limits, err = repo.FindByActivityType("PO", false)
	require.NoError(t, err)
	assert.Len(t, limits, 2)

	limits, err = repo.FindByActivityType("", true)
	require.NoError(t, err)
	assert.Len(t, limits, 2)

	limits, err = repo.FindByRole(roleB.ID)
	require.NoError(t, err)
	assert.Len(t, limits, 2)
}
