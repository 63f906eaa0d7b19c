package repository

import (
	"context"
	"sort"

	"fieldops/internal/domain"

	"github.com/google/uuid"
)

// MemoryJobsRepo JobsRepository over a MemoryDB.
type MemoryJobsRepo struct {
	db *MemoryDB
}

func NewMemoryJobsRepo(db *MemoryDB) *MemoryJobsRepo {
	return &MemoryJobsRepo{db: db}
}

func (r *MemoryJobsRepo) ListJobs(_ context.Context, filters JobFilters) ([]*domain.Job, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	match := func(p *string, want string) bool {
		return want == "" || (p != nil && *p == want)
	}
	out := []*domain.Job{}
	for _, j := range r.db.jobs {
		if !match(j.AssignedTo, filters.AssignedTo) || !match(j.UnitID, filters.UnitID) {
			continue
		}
		if filters.Status != "" && j.Status != filters.Status {
			continue
		}
		out = append(out, copyJob(j))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryJobsRepo) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	j, ok := r.db.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(j), nil
}

func (r *MemoryJobsRepo) ListHistory(_ context.Context, jobID string) ([]*domain.HistoryEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	entries := r.db.history[jobID]
	out := make([]*domain.HistoryEntry, 0, len(entries))
	for _, h := range entries {
		out = append(out, copyHistory(h))
	}
	return out, nil
}

// appendHistory caller holds the lock.
func (r *MemoryJobsRepo) appendHistory(jobID string, entry *domain.HistoryEntry) {
	entry.HistoryID = uuid.NewString()
	entry.JobID = jobID
	entry.CreatedAt = r.db.now()
	if prev := r.db.history[jobID]; len(prev) > 0 {
		if last := prev[len(prev)-1].CreatedAt; entry.CreatedAt.Before(last) {
			entry.CreatedAt = last
		}
	}
	r.db.history[jobID] = append(r.db.history[jobID], copyHistory(entry))
}

func (r *MemoryJobsRepo) CreateJob(_ context.Context, job *domain.Job, entry *domain.HistoryEntry) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c := copyJob(job)
	c.JobID = uuid.NewString()
	now := r.db.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.db.jobs[c.JobID] = c
	r.appendHistory(c.JobID, entry)
	return c.JobID, nil
}

func (r *MemoryJobsRepo) UpdateJob(_ context.Context, change JobChange, entry *domain.HistoryEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.jobs[change.JobID]
	if !ok {
		return ErrNotFound
	}
	if existing.AssignedTo == nil || *existing.AssignedTo != change.Holder {
		return ErrNotHolder
	}

	c := copyJob(existing)
	if change.Status != nil {
		c.Status = *change.Status
	}
	if change.Description != nil {
		c.Description = *change.Description
	}
	for k, v := range change.FormData {
		c.FormData[k] = v
	}
	if change.AssignedTo != nil {
		c.AssignedTo = copyStringPtr(change.AssignedTo)
	}
	if change.UpdatedBy != "" {
		updatedBy := change.UpdatedBy
		c.UpdatedBy = &updatedBy
	} else {
		c.UpdatedBy = nil
	}
	c.UpdatedAt = r.db.now()
	r.db.jobs[c.JobID] = c

	entry.FormData = copyFormData(c.FormData)
	r.appendHistory(c.JobID, entry)
	return nil
}
