package repository

import (
	"context"

	"fieldops/internal/domain"
)

// FormsRepository form definition persistence.
type FormsRepository interface {
	ListForms(ctx context.Context) ([]*domain.Form, error)
	GetForm(ctx context.Context, formID string) (*domain.Form, error)
	CreateForm(ctx context.Context, form *domain.Form) (string, error)
	UpdateForm(ctx context.Context, form *domain.Form) error
	DeleteForm(ctx context.Context, formID string) error
}
