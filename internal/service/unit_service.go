package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fieldops/internal/domain"
	"fieldops/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// UnitService unit hierarchy management.
type UnitService interface {
	ListUnits(ctx context.Context) ([]*domain.Unit, error)
	GetUnit(ctx context.Context, unitID string) (*domain.Unit, error)
	// Tree returns the forest with siblings sorted by locale-aware collation.
	Tree(ctx context.Context) ([]*domain.UnitNode, error)
	CreateUnit(ctx context.Context, req CreateUnitRequest) (*domain.Unit, error)
	UpdateUnit(ctx context.Context, req UpdateUnitRequest) (*domain.Unit, error)
	// DeleteUnit removes the unit and all descendants, or nothing at all when
	// personnel are attached anywhere in the subtree.
	DeleteUnit(ctx context.Context, unitID string) (*DeleteUnitResponse, error)
}

type CreateUnitRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	ParentID *string `json:"parent_id"`
}

type UpdateUnitRequest struct {
	UnitID      string  `json:"-"`
	Name        *string `json:"name" validate:"omitnil,min=1,max=100"`
	ParentID    *string `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
}

type DeleteUnitResponse struct {
	Success    bool     `json:"success"`
	DeletedIDs []string `json:"deleted_ids"`
}

type unitService struct {
	unitsRepo repository.UnitsRepository
	lang      language.Tag
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewUnitService collationLang is a BCP 47 tag such as "tr" or "en".
func NewUnitService(unitsRepo repository.UnitsRepository, collationLang string, logger *zap.Logger) UnitService {
	lang, err := language.Parse(collationLang)
	if err != nil {
		logger.Warn("Unknown collation language, falling back to und", zap.String("lang", collationLang), zap.Error(err))
		lang = language.Und
	}
	return &unitService{
		unitsRepo: unitsRepo,
		lang:      lang,
		validate:  newValidator(),
		logger:    logger,
	}
}

func (s *unitService) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	units, err := s.unitsRepo.ListUnits(ctx)
	if err != nil {
		s.logger.Error("ListUnits failed", zap.Error(err))
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

func (s *unitService) GetUnit(ctx context.Context, unitID string) (*domain.Unit, error) {
	u, err := s.unitsRepo.GetUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("GetUnit failed", zap.String("unit_id", unitID), zap.Error(err))
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (s *unitService) Tree(ctx context.Context) ([]*domain.UnitNode, error) {
	units, err := s.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	return BuildUnitTree(units, collate.New(s.lang)), nil
}

// BuildUnitTree arranges units into a forest. Units whose parent is missing
// are treated as roots. c must not be shared between goroutines.
func BuildUnitTree(units []*domain.Unit, c *collate.Collator) []*domain.UnitNode {
	nodes := make(map[string]*domain.UnitNode, len(units))
	for _, u := range units {
		nodes[u.UnitID] = &domain.UnitNode{Unit: u, Children: []*domain.UnitNode{}}
	}

	roots := []*domain.UnitNode{}
	for _, u := range units {
		n := nodes[u.UnitID]
		if u.ParentID != nil {
			if p, ok := nodes[*u.ParentID]; ok && *u.ParentID != u.UnitID {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	var sortLevel func(level []*domain.UnitNode)
	sortLevel = func(level []*domain.UnitNode) {
		sort.SliceStable(level, func(i, j int) bool {
			return c.CompareString(level[i].Name, level[j].Name) < 0
		})
		for _, n := range level {
			sortLevel(n.Children)
		}
	}
	sortLevel(roots)
	return roots
}

func (s *unitService) CreateUnit(ctx context.Context, req CreateUnitRequest) (*domain.Unit, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	unit := &domain.Unit{Name: req.Name}
	if req.ParentID != nil && *req.ParentID != "" {
		if err := s.checkParentExists(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		parentID := *req.ParentID
		unit.ParentID = &parentID
	}

	if err := s.checkNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	id, err := s.unitsRepo.CreateUnit(ctx, unit)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, ErrDuplicateName
		}
		s.logger.Error("CreateUnit failed", zap.String("name", req.Name), zap.Error(err))
		return nil, fmt.Errorf("create unit: %w", err)
	}
	return s.GetUnit(ctx, id)
}

func (s *unitService) UpdateUnit(ctx context.Context, req UpdateUnitRequest) (*domain.Unit, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	unit, err := s.GetUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != unit.Name {
		if err := s.checkNameFree(ctx, *req.Name, unit.UnitID); err != nil {
			return nil, err
		}
		unit.Name = *req.Name
	}

	switch {
	case req.ClearParent || (req.ParentID != nil && *req.ParentID == ""):
		unit.ParentID = nil
	case req.ParentID != nil:
		if err := s.checkParentExists(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, unit.UnitID, *req.ParentID); err != nil {
			return nil, err
		}
		parentID := *req.ParentID
		unit.ParentID = &parentID
	}

	if err := s.unitsRepo.UpdateUnit(ctx, unit); err != nil {
		switch {
		case errors.Is(err, repository.ErrUniqueViolation):
			return nil, ErrDuplicateName
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		s.logger.Error("UpdateUnit failed", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return nil, fmt.Errorf("update unit: %w", err)
	}
	return s.GetUnit(ctx, unit.UnitID)
}

func (s *unitService) DeleteUnit(ctx context.Context, unitID string) (*DeleteUnitResponse, error) {
	ids, err := s.unitsRepo.DeleteSubtree(ctx, unitID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrSubtreeHasPersonnel):
			return nil, ErrHasPersonnel
		}
		s.logger.Error("DeleteUnit failed", zap.String("unit_id", unitID), zap.Error(err))
		return nil, fmt.Errorf("delete unit: %w", err)
	}
	s.logger.Info("Unit subtree deleted", zap.String("unit_id", unitID), zap.Int("count", len(ids)))
	return &DeleteUnitResponse{Success: true, DeletedIDs: ids}, nil
}

func (s *unitService) checkParentExists(ctx context.Context, parentID string) error {
	if _, err := s.unitsRepo.GetUnit(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidParent
		}
		return fmt.Errorf("get parent unit: %w", err)
	}
	return nil
}

// checkNameFree case-insensitive lookup; exceptID is the unit being renamed.
func (s *unitService) checkNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.unitsRepo.FindUnitByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find unit by name: %w", err)
	case existing.UnitID != exceptID:
		return ErrDuplicateName
	}
	return nil
}

// checkNoCycle walks from the proposed parent to the root; meeting unitID
// means the move would create a cycle.
func (s *unitService) checkNoCycle(ctx context.Context, unitID, newParentID string) error {
	units, err := s.unitsRepo.ListUnits(ctx)
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}
	parentOf := make(map[string]*string, len(units))
	for _, u := range units {
		parentOf[u.UnitID] = u.ParentID
	}

	seen := map[string]bool{}
	for cur := &newParentID; cur != nil; cur = parentOf[*cur] {
		if *cur == unitID {
			return ErrUnitCycle
		}
		if seen[*cur] {
			break
		}
		seen[*cur] = true
	}
	return nil
}
