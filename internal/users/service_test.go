package users

import (
	"context"
	"testing"

	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}))
	return &Service{DB: db}, db
}

func TestCreateUser_ProvisionsWallet(t *testing.T) {
	svc, db := setupUserTest(t)

	user, err := svc.Create(context.Background(), CreateInput{
		Fullname: "Ada Builder",
		Email:    "  Ada@Example.COM ",
		Password: "S3cret!pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, constants.Investor, user.Role, "default role")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("S3cret!pass")))

	var w domain.Wallet
	require.NoError(t, db.First(&w, "user_id = ?", user.UserID).Error)
	assert.Equal(t, int64(0), w.Balance.Big().Int64())
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := setupUserTest(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"bad email", CreateInput{Fullname: "Ada Builder", Email: "not-an-email", Password: "S3cret!pass"}},
		{"weak password", CreateInput{Fullname: "Ada Builder", Email: "a@b.com", Password: "short"}},
		{"empty fullname", CreateInput{Fullname: "", Email: "a@b.com", Password: "S3cret!pass"}},
		{"unknown role", CreateInput{Fullname: "Ada Builder", Email: "a@b.com", Password: "S3cret!pass", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			assert.True(t, apperr.IsKind(err, apperr.Validation))
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _ := setupUserTest(t)
	ctx := context.Background()
	input := CreateInput{Fullname: "Ada Builder", Email: "ada@example.com", Password: "S3cret!pass"}

	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	input.Fullname = "Ada Two"
	_, err = svc.Create(ctx, input)
	assert.True(t, apperr.IsKind(err, apperr.StateConflict))
}

func TestUpdateRole(t *testing.T) {
	svc, _ := setupUserTest(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Fullname: "Ada Builder", Email: "ada@example.com", Password: "S3cret!pass"})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, user.UserID, constants.Verifier)
	require.NoError(t, err)
	assert.Equal(t, constants.Verifier, updated.Role)

	_, err = svc.UpdateRole(ctx, user.UserID, "superuser")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = svc.UpdateRole(ctx, uuid.New(), constants.Admin)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
