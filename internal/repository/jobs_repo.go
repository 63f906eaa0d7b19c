package repository

import (
	"context"

	"fieldops/internal/domain"
)

// JobsRepository job and history persistence. Every write stores the job row
// and its history entry in one transaction.
type JobsRepository interface {
	ListJobs(ctx context.Context, filters JobFilters) ([]*domain.Job, error)
	// GetJob returns the job without history.
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// ListHistory returns entries in append order.
	ListHistory(ctx context.Context, jobID string) ([]*domain.HistoryEntry, error)
	CreateJob(ctx context.Context, job *domain.Job, entry *domain.HistoryEntry) (string, error)
	// UpdateJob locks the row, checks that the job is still assigned to
	// change.Holder and writes only the columns the change sets. It returns
	// ErrNotHolder when the assignee moved on. entry.FormData is replaced with
	// the stored answers after the write.
	UpdateJob(ctx context.Context, change JobChange, entry *domain.HistoryEntry) error
}

// JobChange a column-scoped job write. Nil fields keep their stored value.
type JobChange struct {
	JobID string
	// Holder the user the job must still be assigned to.
	Holder      string
	UpdatedBy   string
	Status      *string
	Description *string
	// FormData is merged into the stored answers key by key.
	FormData   domain.FormData
	AssignedTo *string
}

// JobFilters optional list filters.
type JobFilters struct {
	AssignedTo string
	UnitID     string
	Status     string
}
