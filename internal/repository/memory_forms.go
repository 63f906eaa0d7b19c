package repository

import (
	"context"
	"sort"

	"fieldops/internal/domain"

	"github.com/google/uuid"
)

// MemoryFormsRepo FormsRepository over a MemoryDB.
type MemoryFormsRepo struct {
	db *MemoryDB
}

func NewMemoryFormsRepo(db *MemoryDB) *MemoryFormsRepo {
	return &MemoryFormsRepo{db: db}
}

func (r *MemoryFormsRepo) ListForms(_ context.Context) ([]*domain.Form, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*domain.Form, 0, len(r.db.forms))
	for _, f := range r.db.forms {
		out = append(out, copyForm(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (r *MemoryFormsRepo) GetForm(_ context.Context, formID string) (*domain.Form, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	f, ok := r.db.forms[formID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyForm(f), nil
}

func (r *MemoryFormsRepo) CreateForm(_ context.Context, form *domain.Form) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c := copyForm(form)
	c.FormID = uuid.NewString()
	c.CreatedAt = r.db.now()
	r.db.forms[c.FormID] = c
	return c.FormID, nil
}

func (r *MemoryFormsRepo) UpdateForm(_ context.Context, form *domain.Form) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.forms[form.FormID]
	if !ok {
		return ErrNotFound
	}
	c := copyForm(form)
	c.CreatedAt = existing.CreatedAt
	r.db.forms[c.FormID] = c
	return nil
}

func (r *MemoryFormsRepo) DeleteForm(_ context.Context, formID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.forms[formID]; !ok {
		return ErrNotFound
	}
	delete(r.db.forms, formID)
	for _, j := range r.db.jobs {
		if j.FormID != nil && *j.FormID == formID {
			j.FormID = nil
		}
	}
	return nil
}
