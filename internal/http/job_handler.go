package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// JobHandler job, delegation, history and export endpoints.
type JobHandler struct {
	jobService  service.JobService
	userService service.UserService
	unitService service.UnitService
	logger      *zap.Logger
}

func NewJobHandler(jobService service.JobService, userService service.UserService, unitService service.UnitService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobService:  jobService,
		userService: userService,
		unitService: unitService,
		logger:      logger,
	}
}

func listJobsRequest(r *http.Request) service.ListJobsRequest {
	q := r.URL.Query()
	return service.ListJobsRequest{
		AssignedTo: q.Get("assigned_to"),
		UnitID:     q.Get("unit_id"),
		Status:     q.Get("status"),
	}
}

// ListJobs GET /api/jobs?assigned_to=&unit_id=&status=
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.ListJobs(r.Context(), currentUser(r), listJobsRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobService.GetJob(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req service.CreateJobRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	j, err := h.jobService.CreateJob(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

// UpdateJob PUT /api/jobs/{id}: status, form answers and description, assignee only.
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateJobRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.JobID = mux.Vars(r)["id"]
	j, err := h.jobService.UpdateJob(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *JobHandler) DelegateJob(w http.ResponseWriter, r *http.Request) {
	var req service.DelegateJobRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.JobID = mux.Vars(r)["id"]
	j, err := h.jobService.DelegateJob(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *JobHandler) DelegationTargets(w http.ResponseWriter, r *http.Request) {
	users, err := h.jobService.DelegationTargets(r.Context(), currentUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// History GET /api/job-history/{jobId}
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.jobService.History(r.Context(), currentUser(r), mux.Vars(r)["jobId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Export GET /api/jobs/export, same filters as ListJobs.
func (h *JobHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobs, err := h.jobService.ListJobs(ctx, currentUser(r), listJobsRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	users, err := h.userService.ListUsers(ctx, service.ListUsersRequest{})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	units, err := h.unitService.ListUnits(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	names := exportNames{users: map[string]string{}, units: map[string]string{}}
	for _, u := range users {
		names.users[u.UserID] = u.FullName()
	}
	for _, u := range units {
		names.units[u.UnitID] = u.Name
	}

	data, err := GenerateJobsExport(jobs, names)
	if err != nil {
		h.logger.Error("Jobs export failed", zap.Int("jobs", len(jobs)), zap.Error(err))
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("jobs-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
