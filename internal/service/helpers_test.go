package service

import (
	"context"
	"testing"

	"fieldops/internal/authz"
	"fieldops/internal/domain"
	"fieldops/internal/repository"
	"fieldops/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	units UnitService
	users UserService
	forms FormService
	jobs  JobService
	auth  AuthService

	unitsRepo *repository.MemoryUnitsRepo
	usersRepo *repository.MemoryUsersRepo
	formsRepo *repository.MemoryFormsRepo
	jobsRepo  *repository.MemoryJobsRepo
	kv        *store.MemoryKV
}

func newTestEnv(t *testing.T, geocoder Geocoder) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	mdb := repository.NewMemoryDB()
	unitsRepo := repository.NewMemoryUnitsRepo(mdb)
	usersRepo := repository.NewMemoryUsersRepo(mdb)
	formsRepo := repository.NewMemoryFormsRepo(mdb)
	jobsRepo := repository.NewMemoryJobsRepo(mdb)

	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	users := NewUserService(usersRepo, unitsRepo, NewBcryptHasher(4), logger)
	kv := store.NewMemoryKV()
	return &testEnv{
		units:     NewUnitService(unitsRepo, "tr", logger),
		users:     users,
		forms:     NewFormService(formsRepo, logger),
		jobs:      NewJobService(jobsRepo, formsRepo, usersRepo, unitsRepo, enforcer, geocoder, logger),
		auth:      NewAuthService(users, kv, 0, logger),
		unitsRepo: unitsRepo,
		usersRepo: usersRepo,
		formsRepo: formsRepo,
		jobsRepo:  jobsRepo,
		kv:        kv,
	}
}

func (e *testEnv) mustUnit(t *testing.T, name string, parent *domain.Unit) *domain.Unit {
	t.Helper()
	req := CreateUnitRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.UnitID
	}
	u, err := e.units.CreateUnit(context.Background(), req)
	require.NoError(t, err)
	return u
}

func (e *testEnv) mustUser(t *testing.T, first, last, username, role string, unit *domain.Unit) *domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), CreateUserRequest{
		FirstName: first,
		LastName:  last,
		Username:  username,
		Password:  "secret123",
		Role:      role,
		UnitID:    unit.UnitID,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) mustForm(t *testing.T) *domain.Form {
	t.Helper()
	f, err := e.forms.CreateForm(context.Background(), SaveFormRequest{
		Title: "Pump checklist",
		Fields: []domain.FormField{
			{FieldID: "pressure", Label: "Pressure", Type: domain.FieldNumber},
			{FieldID: "leak", Label: "Leak?", Type: domain.FieldYesNo},
			{FieldID: "state", Label: "State", Type: domain.FieldSelect, Options: []string{"ok", "broken"}},
		},
	})
	require.NoError(t, err)
	return f
}
