package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fieldops/internal/domain"

	"github.com/google/uuid"
)

// MemoryUnitsRepo UnitsRepository over a MemoryDB.
type MemoryUnitsRepo struct {
	db *MemoryDB
}

func NewMemoryUnitsRepo(db *MemoryDB) *MemoryUnitsRepo {
	return &MemoryUnitsRepo{db: db}
}

func (r *MemoryUnitsRepo) ListUnits(_ context.Context) ([]*domain.Unit, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*domain.Unit, 0, len(r.db.units))
	for _, u := range r.db.units {
		out = append(out, copyUnit(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryUnitsRepo) GetUnit(_ context.Context, unitID string) (*domain.Unit, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.units[unitID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUnit(u), nil
}

func (r *MemoryUnitsRepo) FindUnitByName(_ context.Context, name string) (*domain.Unit, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.units {
		if strings.EqualFold(u.Name, name) {
			return copyUnit(u), nil
		}
	}
	return nil, ErrNotFound
}

// nameTaken must be called with the lock held.
func (r *MemoryUnitsRepo) nameTaken(name, exceptID string) bool {
	for id, u := range r.db.units {
		if id != exceptID && strings.EqualFold(u.Name, name) {
			return true
		}
	}
	return false
}

func (r *MemoryUnitsRepo) CreateUnit(_ context.Context, unit *domain.Unit) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.nameTaken(unit.Name, "") {
		return "", &UniqueViolationError{Constraint: ConstraintUnitName}
	}
	if unit.ParentID != nil {
		if _, ok := r.db.units[*unit.ParentID]; !ok {
			return "", fmt.Errorf("parent unit %s does not exist", *unit.ParentID)
		}
	}
	c := copyUnit(unit)
	c.UnitID = uuid.NewString()
	c.CreatedAt = r.db.now()
	r.db.units[c.UnitID] = c
	return c.UnitID, nil
}

func (r *MemoryUnitsRepo) UpdateUnit(_ context.Context, unit *domain.Unit) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.units[unit.UnitID]
	if !ok {
		return ErrNotFound
	}
	if r.nameTaken(unit.Name, unit.UnitID) {
		return &UniqueViolationError{Constraint: ConstraintUnitName}
	}
	existing.Name = unit.Name
	existing.ParentID = copyStringPtr(unit.ParentID)
	return nil
}

func (r *MemoryUnitsRepo) DeleteSubtree(_ context.Context, rootID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.units[rootID]; !ok {
		return nil, ErrNotFound
	}

	children := map[string][]string{}
	for id, u := range r.db.units {
		if u.ParentID != nil {
			children[*u.ParentID] = append(children[*u.ParentID], id)
		}
	}
	ids := []string{rootID}
	inSubtree := map[string]bool{rootID: true}
	for i := 0; i < len(ids); i++ {
		for _, c := range children[ids[i]] {
			if !inSubtree[c] {
				inSubtree[c] = true
				ids = append(ids, c)
			}
		}
	}

	attached := 0
	for _, u := range r.db.users {
		if u.UnitID != nil && inSubtree[*u.UnitID] {
			attached++
		}
	}
	if attached > 0 {
		return nil, fmt.Errorf("%w: %d personnel", ErrSubtreeHasPersonnel, attached)
	}

	for _, id := range ids {
		delete(r.db.units, id)
	}
	for _, j := range r.db.jobs {
		if j.UnitID != nil && inSubtree[*j.UnitID] {
			j.UnitID = nil
		}
	}
	return ids, nil
}
