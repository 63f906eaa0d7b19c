package repository

import (
	"context"

	"fieldops/internal/domain"
)

// UnitsRepository unit hierarchy persistence.
type UnitsRepository interface {
	ListUnits(ctx context.Context) ([]*domain.Unit, error)
	GetUnit(ctx context.Context, unitID string) (*domain.Unit, error)
	// FindUnitByName matches case-insensitively.
	FindUnitByName(ctx context.Context, name string) (*domain.Unit, error)
	CreateUnit(ctx context.Context, unit *domain.Unit) (string, error)
	UpdateUnit(ctx context.Context, unit *domain.Unit) error
	// DeleteSubtree removes rootID and all of its descendants atomically. It
	// returns ErrSubtreeHasPersonnel and changes nothing when any unit of the
	// subtree has personnel attached. Jobs referencing removed units keep their
	// row with unit_id set to NULL.
	DeleteSubtree(ctx context.Context, rootID string) ([]string, error)
}
