package repository

import (
	"sync"
	"time"

	"fieldops/internal/domain"
)

// MemoryDB in-process store used when Postgres is not available and by
// service tests. The memory repositories share one MemoryDB so that
// cross-table rules (set null on delete, subtree personnel checks, unique
// indexes) behave like the relational schema.
type MemoryDB struct {
	mu sync.RWMutex

	units   map[string]*domain.Unit
	users   map[string]*domain.User
	forms   map[string]*domain.Form
	jobs    map[string]*domain.Job
	history map[string][]*domain.HistoryEntry

	now func() time.Time
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		units:   map[string]*domain.Unit{},
		users:   map[string]*domain.User{},
		forms:   map[string]*domain.Form{},
		jobs:    map[string]*domain.Job{},
		history: map[string][]*domain.HistoryEntry{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyFormData(fd domain.FormData) domain.FormData {
	out := make(domain.FormData, len(fd))
	for k, v := range fd {
		out[k] = v
	}
	return out
}

func copyUnit(u *domain.Unit) *domain.Unit {
	c := *u
	c.ParentID = copyStringPtr(u.ParentID)
	return &c
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.UnitID = copyStringPtr(u.UnitID)
	if u.BirthDate != nil {
		t := *u.BirthDate
		c.BirthDate = &t
	}
	return &c
}

func copyForm(f *domain.Form) *domain.Form {
	c := *f
	c.Fields = make([]domain.FormField, len(f.Fields))
	for i, fld := range f.Fields {
		fld.Options = append([]string(nil), fld.Options...)
		c.Fields[i] = fld
	}
	return &c
}

func copyJob(j *domain.Job) *domain.Job {
	c := *j
	c.FormID = copyStringPtr(j.FormID)
	c.AssignedTo = copyStringPtr(j.AssignedTo)
	c.AssignedBy = copyStringPtr(j.AssignedBy)
	c.UnitID = copyStringPtr(j.UnitID)
	c.UpdatedBy = copyStringPtr(j.UpdatedBy)
	if j.Location != nil {
		loc := *j.Location
		c.Location = &loc
	}
	c.FormData = copyFormData(j.FormData)
	c.History = nil
	return &c
}

func copyHistory(h *domain.HistoryEntry) *domain.HistoryEntry {
	c := *h
	c.UserID = copyStringPtr(h.UserID)
	c.FormData = copyFormData(h.FormData)
	return &c
}
