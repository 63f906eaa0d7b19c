package service

import (
	"context"
	"testing"

	"fieldops/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateUser_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	unit := env.mustUnit(t, "North Team", nil)

	base := CreateUserRequest{
		FirstName: "John", LastName: "Doe", Username: "jdoe",
		Password: "secret123", Role: domain.RoleWorker, UnitID: unit.UnitID,
	}

	cases := map[string]func(r *CreateUserRequest){
		"missing first name": func(r *CreateUserRequest) { r.FirstName = "" },
		"short password":     func(r *CreateUserRequest) { r.Password = "12345" },
		"bad email":          func(r *CreateUserRequest) { r.Email = "not-an-email" },
		"bad role":           func(r *CreateUserRequest) { r.Role = "admin" },
		"bad username":       func(r *CreateUserRequest) { r.Username = "j d" },
		"bad gender":         func(r *CreateUserRequest) { r.Gender = "x" },
		"bad social url":     func(r *CreateUserRequest) { r.SocialMedia.Instagram = "not a url" },
		"bad birth date":     func(r *CreateUserRequest) { r.BirthDate = "01/02/1990" },
	}
	for name, mutate := range cases {
		req := base
		mutate(&req)
		_, err := env.users.CreateUser(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	req := base
	req.UnitID = "ghost"
	_, err := env.users.CreateUser(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestUserService_CreateUser_NeverReturnsPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	unit := env.mustUnit(t, "North Team", nil)

	u, err := env.users.CreateUser(context.Background(), CreateUserRequest{
		FirstName: "John", LastName: "Doe", Username: "JDoe", Password: "secret123",
		Role: domain.RoleWorker, UnitID: unit.UnitID, Email: "john@example.com",
		BirthDate: "1990-05-01",
		SocialMedia: domain.SocialMedia{X: "https://x.com/jdoe"},
	})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", u.Username)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.True(t, u.IsActive)
	require.NotNil(t, u.BirthDate)
	assert.Equal(t, 1990, u.BirthDate.Year())
}

// jdoe then JDoe: the second is a duplicate.
func TestUserService_DuplicateUsernameCaseInsensitive(t *testing.T) {
	env := newTestEnv(t, nil)
	unit := env.mustUnit(t, "North Team", nil)
	other := env.mustUnit(t, "South Team", nil)
	env.mustUser(t, "John", "Doe", "jdoe", domain.RoleWorker, unit)

	_, err := env.users.CreateUser(context.Background(), CreateUserRequest{
		FirstName: "Jane", LastName: "Roe", Username: "JDoe", Password: "secret123",
		Role: domain.RoleWorker, UnitID: other.UnitID,
	})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUserService_DuplicateNameInUnit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	north := env.mustUnit(t, "North Team", nil)
	south := env.mustUnit(t, "South Team", nil)
	env.mustUser(t, "Ayşe", "Yılmaz", "ayse", domain.RoleWorker, north)

	_, err := env.users.CreateUser(ctx, CreateUserRequest{
		FirstName: "ayşe", LastName: "yılmaz", Username: "ayse2", Password: "secret123",
		Role: domain.RoleWorker, UnitID: north.UnitID,
	})
	assert.ErrorIs(t, err, ErrDuplicateNameInUnit)

	// Same name in another unit is fine.
	env.mustUser(t, "Ayşe", "Yılmaz", "ayse3", domain.RoleWorker, south)
}

func TestUserService_UpdateUser_PartialPatch(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	north := env.mustUnit(t, "North Team", nil)
	u := env.mustUser(t, "John", "Doe", "jdoe", domain.RoleWorker, north)
	env.mustUser(t, "Jane", "Roe", "jroe", domain.RoleWorker, north)
	oldHash := u.PasswordHash

	phone := "+90 555 000 0000"
	updated, err := env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "John", updated.FirstName)
	assert.Equal(t, oldHash, updated.PasswordHash)

	pw := "newsecret"
	updated, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Password: &pw})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.PasswordHash)
	_, err = env.users.VerifyCredentials(ctx, "jdoe", "newsecret")
	assert.NoError(t, err)

	// Keeping its own username is not a conflict; taking another is.
	same := "JDOE"
	_, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Username: &same})
	require.NoError(t, err)
	taken := "jroe"
	_, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Username: &taken})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	first, last := "Jane", "Roe"
	_, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, FirstName: &first, LastName: &last})
	assert.ErrorIs(t, err, ErrDuplicateNameInUnit)

	empty := ""
	cleared, err := env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Email: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Email)

	bad := "nope"
	_, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, Email: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.UpdateUser(ctx, UpdateUserRequest{UserID: "ghost", Phone: &phone})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_DeleteUser_ProtectsSuperadmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	unit := env.mustUnit(t, "HQ", nil)
	admin := env.mustUser(t, "Root", "Admin", "admin", domain.RoleSuperAdmin, unit)
	admin2 := env.mustUser(t, "Second", "Admin", "admin2", domain.RoleSuperAdmin, unit)
	worker := env.mustUser(t, "John", "Doe", "jdoe", domain.RoleWorker, unit)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, env.users.DeleteUser(ctx, admin.UserID), ErrProtectedRole)
		assert.ErrorIs(t, env.users.DeleteUser(ctx, admin2.UserID), ErrProtectedRole)
	}
	require.NoError(t, env.users.DeleteUser(ctx, worker.UserID))
	assert.ErrorIs(t, env.users.DeleteUser(ctx, worker.UserID), ErrNotFound)
}

// Unknown user and wrong password produce the same error.
func TestUserService_VerifyCredentials_Uniform(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	unit := env.mustUnit(t, "North Team", nil)
	env.mustUser(t, "John", "Doe", "jdoe", domain.RoleWorker, unit)

	_, errUnknown := env.users.VerifyCredentials(ctx, "nouser", "anything")
	_, errWrong := env.users.VerifyCredentials(ctx, "jdoe", "wrongpass")
	require.ErrorIs(t, errUnknown, ErrAuth)
	require.ErrorIs(t, errWrong, ErrAuth)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	u, err := env.users.VerifyCredentials(ctx, "JDOE", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", u.Username)
}

func TestUserService_VerifyCredentials_Inactive(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	unit := env.mustUnit(t, "North Team", nil)
	u := env.mustUser(t, "John", "Doe", "jdoe", domain.RoleWorker, unit)

	inactive := false
	_, err := env.users.UpdateUser(ctx, UpdateUserRequest{UserID: u.UserID, IsActive: &inactive})
	require.NoError(t, err)

	_, err = env.users.VerifyCredentials(ctx, "jdoe", "secret123")
	assert.ErrorIs(t, err, ErrAuth)
}
