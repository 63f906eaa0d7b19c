package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fieldops/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepo UsersRepository over a MemoryDB.
type MemoryUsersRepo struct {
	db *MemoryDB
}

func NewMemoryUsersRepo(db *MemoryDB) *MemoryUsersRepo {
	return &MemoryUsersRepo{db: db}
}

func (r *MemoryUsersRepo) ListUsers(_ context.Context, filters UserFilters) ([]*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	search := strings.ToLower(filters.Search)
	out := []*domain.User{}
	for _, u := range r.db.users {
		if filters.UnitID != "" && (u.UnitID == nil || *u.UnitID != filters.UnitID) {
			continue
		}
		if filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) &&
			!strings.Contains(strings.ToLower(u.Username), search) {
			continue
		}
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	return out, nil
}

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryUsersRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Username, username) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepo) FindUserByNameInUnit(_ context.Context, firstName, lastName, unitID string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if samePersonInUnit(u, firstName, lastName, unitID) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func samePersonInUnit(u *domain.User, firstName, lastName, unitID string) bool {
	return u.UnitID != nil && *u.UnitID == unitID &&
		strings.EqualFold(u.FirstName, firstName) &&
		strings.EqualFold(u.LastName, lastName)
}

// checkUnique mirrors the personnel unique indexes. Caller holds the lock.
func (r *MemoryUsersRepo) checkUnique(user *domain.User) error {
	for id, u := range r.db.users {
		if id == user.UserID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) {
			return &UniqueViolationError{Constraint: ConstraintUsername}
		}
		if user.UnitID != nil && samePersonInUnit(u, user.FirstName, user.LastName, *user.UnitID) {
			return &UniqueViolationError{Constraint: ConstraintPersonInUnit}
		}
	}
	if user.UnitID != nil {
		if _, ok := r.db.units[*user.UnitID]; !ok {
			return fmt.Errorf("unit %s does not exist", *user.UnitID)
		}
	}
	return nil
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, user *domain.User) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c := copyUser(user)
	c.UserID = uuid.NewString()
	if err := r.checkUnique(c); err != nil {
		return "", err
	}
	now := r.db.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.db.users[c.UserID] = c
	return c.UserID, nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.users[user.UserID]
	if !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	c := copyUser(user)
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.db.now()
	r.db.users[c.UserID] = c
	return nil
}

func (r *MemoryUsersRepo) DeleteUser(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[userID]; !ok {
		return ErrNotFound
	}
	delete(r.db.users, userID)

	unset := func(p **string) {
		if *p != nil && **p == userID {
			*p = nil
		}
	}
	for _, j := range r.db.jobs {
		unset(&j.AssignedTo)
		unset(&j.AssignedBy)
		unset(&j.UpdatedBy)
	}
	for _, entries := range r.db.history {
		for _, h := range entries {
			unset(&h.UserID)
		}
	}
	return nil
}
