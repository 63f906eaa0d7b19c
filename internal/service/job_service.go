package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fieldops/internal/authz"
	"fieldops/internal/domain"
	"fieldops/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Authorizer role policy check, satisfied by *authz.Enforcer.
type Authorizer interface {
	Allow(role, resource, action string) bool
}

// JobService job records, history log and delegation.
type JobService interface {
	// ListJobs workers only ever see jobs assigned to them.
	ListJobs(ctx context.Context, actor *domain.User, req ListJobsRequest) ([]*domain.Job, error)
	// GetJob returns the job with its history. Workers get ErrNotFound for
	// jobs not assigned to them.
	GetJob(ctx context.Context, actor *domain.User, jobID string) (*domain.Job, error)
	History(ctx context.Context, actor *domain.User, jobID string) ([]*domain.HistoryEntry, error)
	CreateJob(ctx context.Context, actor *domain.User, req CreateJobRequest) (*domain.Job, error)
	// UpdateJob changes status, form answers or description. Only the assignee may call it.
	UpdateJob(ctx context.Context, actor *domain.User, req UpdateJobRequest) (*domain.Job, error)
	DelegateJob(ctx context.Context, actor *domain.User, req DelegateJobRequest) (*domain.Job, error)
	DelegationTargets(ctx context.Context, actor *domain.User, jobID string) ([]*domain.User, error)
}

type ListJobsRequest struct {
	AssignedTo string
	UnitID     string
	Status     string
}

type CreateJobRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description"`
	FormID      string           `json:"form_id" validate:"required"`
	AssignedTo  string           `json:"assigned_to" validate:"required"`
	UnitID      string           `json:"unit_id" validate:"required"`
	Address     string           `json:"address" validate:"max=500"`
	Location    *domain.Location `json:"location"`
	Priority    string           `json:"priority" validate:"omitempty,oneof=urgent normal low"`
	JobType     string           `json:"job_type" validate:"max=100"`
}

type UpdateJobRequest struct {
	JobID       string          `json:"-"`
	FormData    domain.FormData `json:"form_data"`
	Status      *string         `json:"status"`
	Description *string         `json:"description"`
}

type DelegateJobRequest struct {
	JobID         string `json:"-"`
	NewAssigneeID string `json:"new_assignee_id" validate:"required"`
}

type jobService struct {
	jobsRepo  repository.JobsRepository
	formsRepo repository.FormsRepository
	usersRepo repository.UsersRepository
	unitsRepo repository.UnitsRepository
	authz     Authorizer
	geocoder  Geocoder
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewJobService geocoder may be nil.
func NewJobService(
	jobsRepo repository.JobsRepository,
	formsRepo repository.FormsRepository,
	usersRepo repository.UsersRepository,
	unitsRepo repository.UnitsRepository,
	authorizer Authorizer,
	geocoder Geocoder,
	logger *zap.Logger,
) JobService {
	return &jobService{
		jobsRepo:  jobsRepo,
		formsRepo: formsRepo,
		usersRepo: usersRepo,
		unitsRepo: unitsRepo,
		authz:     authorizer,
		geocoder:  geocoder,
		validate:  newValidator(),
		logger:    logger,
	}
}

func (s *jobService) allow(actor *domain.User, action string) error {
	if actor == nil || !s.authz.Allow(actor.Role, authz.ResJobs, action) {
		return ErrForbidden
	}
	return nil
}

func (s *jobService) ListJobs(ctx context.Context, actor *domain.User, req ListJobsRequest) ([]*domain.Job, error) {
	if err := s.allow(actor, authz.ActRead); err != nil {
		return nil, err
	}
	filters := repository.JobFilters{AssignedTo: req.AssignedTo, UnitID: req.UnitID, Status: req.Status}
	if actor.Role == domain.RoleWorker {
		filters.AssignedTo = actor.UserID
	}
	jobs, err := s.jobsRepo.ListJobs(ctx, filters)
	if err != nil {
		s.logger.Error("ListJobs failed", zap.Error(err))
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *jobService) loadJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobsRepo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("GetJob failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// visible workers only see jobs assigned to them, same as ListJobs.
func visible(actor *domain.User, job *domain.Job) bool {
	if actor.Role != domain.RoleWorker {
		return true
	}
	return job.AssignedTo != nil && *job.AssignedTo == actor.UserID
}

func (s *jobService) GetJob(ctx context.Context, actor *domain.User, jobID string) (*domain.Job, error) {
	if err := s.allow(actor, authz.ActRead); err != nil {
		return nil, err
	}
	job, err := s.withHistory(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !visible(actor, job) {
		return nil, ErrNotFound
	}
	return job, nil
}

func (s *jobService) withHistory(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	history, err := s.jobsRepo.ListHistory(ctx, jobID)
	if err != nil {
		s.logger.Error("ListHistory failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("list history: %w", err)
	}
	job.History = history
	return job, nil
}

func (s *jobService) History(ctx context.Context, actor *domain.User, jobID string) ([]*domain.HistoryEntry, error) {
	job, err := s.GetJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	return job.History, nil
}

func (s *jobService) CreateJob(ctx context.Context, actor *domain.User, req CreateJobRequest) (*domain.Job, error) {
	if err := s.allow(actor, authz.ActCreate); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if req.Location != nil {
		if err := s.validate.Var(req.Location.Lat, "latitude"); err != nil {
			return nil, validationf("location.lat is out of range")
		}
		if err := s.validate.Var(req.Location.Lon, "longitude"); err != nil {
			return nil, validationf("location.lon is out of range")
		}
	}

	form, err := s.formsRepo.GetForm(ctx, req.FormID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("form_id does not exist")
		}
		return nil, fmt.Errorf("get form: %w", err)
	}
	assignee, err := s.usersRepo.GetUser(ctx, req.AssignedTo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("assigned_to does not exist")
		}
		return nil, fmt.Errorf("get assignee: %w", err)
	}
	if _, err := s.unitsRepo.GetUnit(ctx, req.UnitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationf("unit_id does not exist")
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	job := &domain.Job{
		Title:       req.Title,
		Description: req.Description,
		FormID:      &form.FormID,
		FormTitle:   form.Title,
		AssignedTo:  &assignee.UserID,
		AssignedBy:  &actor.UserID,
		UnitID:      &req.UnitID,
		Address:     strings.TrimSpace(req.Address),
		Location:    req.Location,
		Priority:    priority,
		JobType:     req.JobType,
		Status:      domain.StatusAssigned,
		FormData:    domain.FormData{},
		UpdatedBy:   &actor.UserID,
	}

	if job.Location == nil && job.Address != "" && s.geocoder != nil {
		loc, err := s.geocoder.Geocode(ctx, job.Address)
		if err != nil {
			s.logger.Warn("Geocoding failed, creating job without location",
				zap.String("address", job.Address), zap.Error(err))
		} else {
			job.Location = loc
		}
	}

	entry := &domain.HistoryEntry{
		Action:      domain.ActionCreated,
		UserID:      &actor.UserID,
		Description: fmt.Sprintf("Job created and assigned to %s", assignee.FullName()),
		FormData:    domain.FormData{},
	}
	id, err := s.jobsRepo.CreateJob(ctx, job, entry)
	if err != nil {
		s.logger.Error("CreateJob failed", zap.String("title", job.Title), zap.Error(err))
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("Job created",
		zap.String("job_id", id),
		zap.String("assigned_to", assignee.UserID),
		zap.String("assigned_by", actor.UserID),
	)
	return s.withHistory(ctx, id)
}

func (s *jobService) UpdateJob(ctx context.Context, actor *domain.User, req UpdateJobRequest) (*domain.Job, error) {
	if err := s.allow(actor, authz.ActUpdate); err != nil {
		return nil, err
	}
	job, err := s.loadJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job.AssignedTo == nil || *job.AssignedTo != actor.UserID {
		return nil, ErrForbidden
	}

	change := repository.JobChange{JobID: job.JobID, Holder: actor.UserID, UpdatedBy: actor.UserID}
	changes := []string{}
	if req.Status != nil && *req.Status != job.Status {
		if !domain.ValidStatus(*req.Status) {
			return nil, validationf(fmt.Sprintf("status %q is not valid", *req.Status))
		}
		changes = append(changes, fmt.Sprintf("status: %s -> %s", job.Status, *req.Status))
		change.Status = req.Status
	}

	if len(req.FormData) > 0 {
		if err := s.checkFormKeys(ctx, job, req.FormData); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(req.FormData))
		for k := range req.FormData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		changes = append(changes, "form data: "+strings.Join(keys, ", "))
		change.FormData = req.FormData
	}

	if req.Description != nil && *req.Description != job.Description {
		changes = append(changes, "description")
		change.Description = req.Description
	}

	if len(changes) == 0 {
		return nil, validationf("nothing to update")
	}

	entry := &domain.HistoryEntry{
		Action:      domain.ActionUpdated,
		UserID:      &actor.UserID,
		Description: "Updated " + strings.Join(changes, "; "),
	}
	if err := s.writeJob(ctx, change, entry); err != nil {
		return nil, err
	}
	return s.withHistory(ctx, job.JobID)
}

// writeJob maps repository write errors. A job delegated away between the
// read and the write leaves the caller without the hold.
func (s *jobService) writeJob(ctx context.Context, change repository.JobChange, entry *domain.HistoryEntry) error {
	err := s.jobsRepo.UpdateJob(ctx, change, entry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrNotHolder):
		s.logger.Warn("Job write rejected, assignee changed",
			zap.String("job_id", change.JobID),
			zap.String("expected", change.Holder),
		)
		return ErrForbidden
	}
	s.logger.Error("UpdateJob failed", zap.String("job_id", change.JobID), zap.String("action", entry.Action), zap.Error(err))
	return fmt.Errorf("write job: %w", err)
}

// checkFormKeys answers must target fields of the job's form. Jobs whose form
// was deleted accept any keys.
func (s *jobService) checkFormKeys(ctx context.Context, job *domain.Job, patch domain.FormData) error {
	if job.FormID == nil {
		return nil
	}
	form, err := s.formsRepo.GetForm(ctx, *job.FormID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get form: %w", err)
	}
	unknown := []string{}
	for k := range patch {
		if !form.HasField(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return validationf("unknown form fields: " + strings.Join(unknown, ", "))
	}
	return nil
}

// delegationContext loads everything the delegation check needs.
func (s *jobService) delegationContext(ctx context.Context, jobID string) (*domain.Job, []*domain.Unit, []*domain.User, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}
	units, err := s.unitsRepo.ListUnits(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list units: %w", err)
	}
	users, err := s.usersRepo.ListUsers(ctx, repository.UserFilters{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list users: %w", err)
	}
	return job, units, users, nil
}

func (s *jobService) DelegateJob(ctx context.Context, actor *domain.User, req DelegateJobRequest) (*domain.Job, error) {
	if err := s.allow(actor, authz.ActDelegate); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	job, units, users, err := s.delegationContext(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if err := CheckDelegation(actor, job, req.NewAssigneeID, units, users); err != nil {
		s.logger.Warn("Delegation rejected",
			zap.String("job_id", job.JobID),
			zap.String("actor", actor.UserID),
			zap.String("target", req.NewAssigneeID),
		)
		return nil, err
	}

	var target *domain.User
	for _, u := range users {
		if u.UserID == req.NewAssigneeID {
			target = u
			break
		}
	}

	change := repository.JobChange{
		JobID:      job.JobID,
		Holder:     actor.UserID,
		UpdatedBy:  actor.UserID,
		AssignedTo: &target.UserID,
	}
	entry := &domain.HistoryEntry{
		Action:      domain.ActionDelegated,
		UserID:      &actor.UserID,
		Description: fmt.Sprintf("Delegated to %s", target.FullName()),
	}
	if err := s.writeJob(ctx, change, entry); err != nil {
		return nil, err
	}
	s.logger.Info("Job delegated",
		zap.String("job_id", job.JobID),
		zap.String("from", actor.UserID),
		zap.String("to", target.UserID),
	)
	return s.withHistory(ctx, job.JobID)
}

func (s *jobService) DelegationTargets(ctx context.Context, actor *domain.User, jobID string) ([]*domain.User, error) {
	if err := s.allow(actor, authz.ActDelegate); err != nil {
		return nil, err
	}
	job, units, users, err := s.delegationContext(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AssignedTo == nil || *job.AssignedTo != actor.UserID || !actor.CanDelegate() {
		return nil, ErrForbidden
	}
	return DelegationTargets(actor, units, users), nil
}
