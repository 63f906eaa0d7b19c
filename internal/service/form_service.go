package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldops/internal/domain"
	"fieldops/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormService form definition management.
type FormService interface {
	ListForms(ctx context.Context) ([]*domain.Form, error)
	GetForm(ctx context.Context, formID string) (*domain.Form, error)
	CreateForm(ctx context.Context, req SaveFormRequest) (*domain.Form, error)
	UpdateForm(ctx context.Context, req SaveFormRequest) (*domain.Form, error)
	DeleteForm(ctx context.Context, formID string) error
}

type SaveFormRequest struct {
	FormID    string             `json:"-"`
	Title     string             `json:"title" validate:"required,max=200"`
	Fields    []domain.FormField `json:"fields" validate:"required,min=1,dive"`
	IsDefault bool               `json:"is_default"`
}

type formService struct {
	formsRepo repository.FormsRepository
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewFormService(formsRepo repository.FormsRepository, logger *zap.Logger) FormService {
	return &formService{formsRepo: formsRepo, validate: newValidator(), logger: logger}
}

func (s *formService) ListForms(ctx context.Context) ([]*domain.Form, error) {
	forms, err := s.formsRepo.ListForms(ctx)
	if err != nil {
		s.logger.Error("ListForms failed", zap.Error(err))
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

func (s *formService) GetForm(ctx context.Context, formID string) (*domain.Form, error) {
	f, err := s.formsRepo.GetForm(ctx, formID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("GetForm failed", zap.String("form_id", formID), zap.Error(err))
		return nil, fmt.Errorf("get form: %w", err)
	}
	return f, nil
}

// normalizeForm trims input, validates it, assigns missing field ids and
// enforces that options are present exactly for choice fields.
func (s *formService) normalizeForm(req SaveFormRequest) (*domain.Form, error) {
	req.Title = strings.TrimSpace(req.Title)
	fields := make([]domain.FormField, len(req.Fields))
	for i, f := range req.Fields {
		f.Label = strings.TrimSpace(f.Label)
		f.FieldID = strings.TrimSpace(f.FieldID)
		fields[i] = f
	}
	req.Fields = fields
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	form := &domain.Form{FormID: req.FormID, Title: req.Title, IsDefault: req.IsDefault}
	seen := map[string]bool{}
	for i, f := range req.Fields {
		opts := make([]string, 0, len(f.Options))
		for _, o := range f.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		switch {
		case domain.IsChoiceType(f.Type) && len(opts) == 0:
			return nil, validationf(fmt.Sprintf("fields[%d] of type %s needs options", i, f.Type))
		case !domain.IsChoiceType(f.Type) && len(opts) > 0:
			return nil, validationf(fmt.Sprintf("fields[%d] of type %s cannot have options", i, f.Type))
		}
		f.Options = nil
		if len(opts) > 0 {
			f.Options = opts
		}

		if f.FieldID == "" {
			f.FieldID = uuid.NewString()
		}
		if seen[f.FieldID] {
			return nil, validationf(fmt.Sprintf("duplicate field id %s", f.FieldID))
		}
		seen[f.FieldID] = true
		form.Fields = append(form.Fields, f)
	}
	return form, nil
}

func (s *formService) CreateForm(ctx context.Context, req SaveFormRequest) (*domain.Form, error) {
	form, err := s.normalizeForm(req)
	if err != nil {
		return nil, err
	}
	id, err := s.formsRepo.CreateForm(ctx, form)
	if err != nil {
		s.logger.Error("CreateForm failed", zap.String("title", form.Title), zap.Error(err))
		return nil, fmt.Errorf("create form: %w", err)
	}
	return s.GetForm(ctx, id)
}

func (s *formService) UpdateForm(ctx context.Context, req SaveFormRequest) (*domain.Form, error) {
	form, err := s.normalizeForm(req)
	if err != nil {
		return nil, err
	}
	if err := s.formsRepo.UpdateForm(ctx, form); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("UpdateForm failed", zap.String("form_id", form.FormID), zap.Error(err))
		return nil, fmt.Errorf("update form: %w", err)
	}
	return s.GetForm(ctx, form.FormID)
}

// DeleteForm jobs keep their form_title snapshot; their form_id becomes null.
func (s *formService) DeleteForm(ctx context.Context, formID string) error {
	if err := s.formsRepo.DeleteForm(ctx, formID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("DeleteForm failed", zap.String("form_id", formID), zap.Error(err))
		return fmt.Errorf("delete form: %w", err)
	}
	return nil
}
