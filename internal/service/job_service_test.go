package service

import (
	"context"
	"errors"
	"testing"

	"fieldops/internal/authz"
	"fieldops/internal/domain"
	"fieldops/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGeocoder struct {
	loc   *domain.Location
	err   error
	calls int
}

func (g *stubGeocoder) Geocode(_ context.Context, _ string) (*domain.Location, error) {
	g.calls++
	return g.loc, g.err
}

type jobFixture struct {
	env        *testEnv
	ops, north *domain.Unit
	depot      *domain.Unit
	a, b, c, d *domain.User
	form       *domain.Form
}

// B manages Field Ops; A and C work in North Team (child of Field Ops);
// D works in Depot, outside B's subtree.
func newJobFixture(t *testing.T, geocoder Geocoder) *jobFixture {
	env := newTestEnv(t, geocoder)
	f := &jobFixture{env: env}
	f.ops = env.mustUnit(t, "Field Ops", nil)
	f.north = env.mustUnit(t, "North Team", f.ops)
	f.depot = env.mustUnit(t, "Depot", nil)
	f.b = env.mustUser(t, "Burak", "Demir", "bdemir", domain.RoleManager, f.ops)
	f.a = env.mustUser(t, "Ali", "Kaya", "akaya", domain.RoleWorker, f.north)
	f.c = env.mustUser(t, "Cem", "Şahin", "csahin", domain.RoleWorker, f.north)
	f.d = env.mustUser(t, "Deniz", "Aydın", "daydin", domain.RoleWorker, f.depot)
	f.form = env.mustForm(t)
	return f
}

func (f *jobFixture) createJob(t *testing.T, assignee *domain.User) *domain.Job {
	t.Helper()
	j, err := f.env.jobs.CreateJob(context.Background(), f.b, CreateJobRequest{
		Title:      "Inspect pump",
		FormID:     f.form.FormID,
		AssignedTo: assignee.UserID,
		UnitID:     f.north.UnitID,
	})
	require.NoError(t, err)
	return j
}

func TestJobService_CreateJob(t *testing.T) {
	f := newJobFixture(t, nil)
	j := f.createJob(t, f.a)

	assert.Equal(t, domain.StatusAssigned, j.Status)
	assert.Equal(t, domain.PriorityNormal, j.Priority)
	assert.Equal(t, "Pump checklist", j.FormTitle)
	assert.Equal(t, f.b.UserID, *j.AssignedBy)
	require.Len(t, j.History, 1)
	assert.Equal(t, domain.ActionCreated, j.History[0].Action)
	assert.Equal(t, f.b.UserID, *j.History[0].UserID)
}

func TestJobService_CreateJob_RequiresManager(t *testing.T) {
	f := newJobFixture(t, nil)
	_, err := f.env.jobs.CreateJob(context.Background(), f.a, CreateJobRequest{
		Title: "x", FormID: f.form.FormID, AssignedTo: f.c.UserID, UnitID: f.north.UnitID,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestJobService_CreateJob_Validation(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	ok := CreateJobRequest{Title: "x", FormID: f.form.FormID, AssignedTo: f.a.UserID, UnitID: f.north.UnitID}

	cases := map[string]func(r *CreateJobRequest){
		"no title":     func(r *CreateJobRequest) { r.Title = " " },
		"no form":      func(r *CreateJobRequest) { r.FormID = "" },
		"ghost form":   func(r *CreateJobRequest) { r.FormID = "ghost" },
		"ghost user":   func(r *CreateJobRequest) { r.AssignedTo = "ghost" },
		"ghost unit":   func(r *CreateJobRequest) { r.UnitID = "ghost" },
		"bad priority": func(r *CreateJobRequest) { r.Priority = "asap" },
		"bad lat":      func(r *CreateJobRequest) { r.Location = &domain.Location{Lat: 91} },
	}
	for name, mutate := range cases {
		req := ok
		mutate(&req)
		_, err := f.env.jobs.CreateJob(ctx, f.b, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestJobService_CreateJob_GeocodesAddress(t *testing.T) {
	geo := &stubGeocoder{loc: &domain.Location{Lat: 41.0, Lon: 29.0}}
	f := newJobFixture(t, geo)

	j, err := f.env.jobs.CreateJob(context.Background(), f.b, CreateJobRequest{
		Title: "x", FormID: f.form.FormID, AssignedTo: f.a.UserID, UnitID: f.north.UnitID,
		Address: "Kadıköy, İstanbul",
	})
	require.NoError(t, err)
	require.NotNil(t, j.Location)
	assert.Equal(t, 41.0, j.Location.Lat)
	assert.Equal(t, 1, geo.calls)
}

func TestJobService_CreateJob_GeocoderFailureIsBestEffort(t *testing.T) {
	geo := &stubGeocoder{err: errors.New("timeout")}
	f := newJobFixture(t, geo)

	j, err := f.env.jobs.CreateJob(context.Background(), f.b, CreateJobRequest{
		Title: "x", FormID: f.form.FormID, AssignedTo: f.a.UserID, UnitID: f.north.UnitID,
		Address: "somewhere",
	})
	require.NoError(t, err)
	assert.Nil(t, j.Location)
}

func TestJobService_UpdateJob_AssigneeOnlyAndHistory(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.a)

	started := domain.StatusStarted
	_, err := f.env.jobs.UpdateJob(ctx, f.c, UpdateJobRequest{JobID: j.JobID, Status: &started})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{
		JobID:    j.JobID,
		Status:   &started,
		FormData: domain.FormData{"pressure": 3.2},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, updated.Status)
	require.Len(t, updated.History, 2)
	assert.Equal(t, domain.ActionUpdated, updated.History[1].Action)
	assert.Contains(t, updated.History[1].Description, "status: assigned -> started")

	// Merge keeps earlier answers.
	updated, err = f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{
		JobID:    j.JobID,
		FormData: domain.FormData{"leak": "no"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.2, updated.FormData["pressure"])
	assert.Equal(t, "no", updated.FormData["leak"])
	require.Len(t, updated.History, 3)

	bad := "done"
	_, err = f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID, Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID, FormData: domain.FormData{"color": "red"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID})
	assert.ErrorIs(t, err, ErrValidation)

	h, err := f.env.jobs.History(ctx, f.a, j.JobID)
	require.NoError(t, err)
	assert.Len(t, h, 3)
}

func TestJobService_HistoryAppendOnly(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.a)

	statuses := []string{domain.StatusStarted, domain.StatusInProgress, domain.StatusPending, domain.StatusCompleted, domain.StatusCancelled, domain.StatusStarted}
	prev := j.History
	for _, st := range statuses {
		st := st
		updated, err := f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID, Status: &st})
		require.NoError(t, err)
		require.Len(t, updated.History, len(prev)+1)
		for i := range prev {
			assert.Equal(t, prev[i].HistoryID, updated.History[i].HistoryID)
		}
		last := updated.History[len(updated.History)-1]
		assert.False(t, last.CreatedAt.Before(prev[len(prev)-1].CreatedAt))
		prev = updated.History
	}
}

// A job held by manager B is delegated to C inside B's subtree, then B fails
// to hand another of its jobs to D outside the subtree.
func TestJobService_DelegateJob_Containment(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.b)

	targets, err := f.env.jobs.DelegationTargets(ctx, f.b, j.JobID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.a.UserID, f.c.UserID}, userIDs(targets))

	delegated, err := f.env.jobs.DelegateJob(ctx, f.b, DelegateJobRequest{JobID: j.JobID, NewAssigneeID: f.c.UserID})
	require.NoError(t, err)
	assert.Equal(t, f.c.UserID, *delegated.AssignedTo)
	require.Len(t, delegated.History, 2)
	assert.Equal(t, domain.ActionDelegated, delegated.History[1].Action)
	assert.Contains(t, delegated.History[1].Description, "Cem Şahin")

	// B no longer holds the first job.
	_, err = f.env.jobs.DelegateJob(ctx, f.b, DelegateJobRequest{JobID: j.JobID, NewAssigneeID: f.a.UserID})
	assert.ErrorIs(t, err, ErrForbidden)

	j2 := f.createJob(t, f.b)
	_, err = f.env.jobs.DelegateJob(ctx, f.b, DelegateJobRequest{JobID: j2.JobID, NewAssigneeID: f.d.UserID})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.env.jobs.DelegateJob(ctx, f.b, DelegateJobRequest{JobID: j2.JobID, NewAssigneeID: f.b.UserID})
	assert.ErrorIs(t, err, ErrForbidden)

	still, err := f.env.jobs.GetJob(ctx, f.b, j2.JobID)
	require.NoError(t, err)
	assert.Equal(t, f.b.UserID, *still.AssignedTo)
	assert.Len(t, still.History, 1)
}

func TestJobService_DelegateJob_WorkerForbidden(t *testing.T) {
	f := newJobFixture(t, nil)
	j := f.createJob(t, f.a)

	_, err := f.env.jobs.DelegateJob(context.Background(), f.a, DelegateJobRequest{JobID: j.JobID, NewAssigneeID: f.c.UserID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestJobService_ListJobs_WorkerSeesOwnJobs(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	f.createJob(t, f.a)
	f.createJob(t, f.c)

	jobs, err := f.env.jobs.ListJobs(ctx, f.a, ListJobsRequest{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, f.a.UserID, *jobs[0].AssignedTo)

	jobs, err = f.env.jobs.ListJobs(ctx, f.b, ListJobsRequest{})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = f.env.jobs.ListJobs(ctx, f.b, ListJobsRequest{AssignedTo: f.c.UserID})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobService_UnitDeleteNullsJobUnit(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	empty := f.env.mustUnit(t, "Temp", nil)
	j, err := f.env.jobs.CreateJob(ctx, f.b, CreateJobRequest{
		Title: "x", FormID: f.form.FormID, AssignedTo: f.a.UserID, UnitID: empty.UnitID,
	})
	require.NoError(t, err)

	_, err = f.env.units.DeleteUnit(ctx, empty.UnitID)
	require.NoError(t, err)

	got, err := f.env.jobs.GetJob(ctx, f.b, j.JobID)
	require.NoError(t, err)
	assert.Nil(t, got.UnitID)
}

func TestJobService_GetJob_WorkerSeesOwnJobs(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.c)

	_, err := f.env.jobs.GetJob(ctx, f.a, j.JobID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.env.jobs.History(ctx, f.a, j.JobID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.env.jobs.GetJob(ctx, f.c, j.JobID)
	require.NoError(t, err)
	assert.Len(t, got.History, 1)

	_, err = f.env.jobs.GetJob(ctx, f.b, j.JobID)
	require.NoError(t, err)

	_, err = f.env.jobs.GetJob(ctx, nil, j.JobID)
	assert.ErrorIs(t, err, ErrForbidden)
}

// interleavingJobsRepo calls between once, ahead of the first write.
type interleavingJobsRepo struct {
	*repository.MemoryJobsRepo
	between func()
	fired   bool
}

func (r *interleavingJobsRepo) UpdateJob(ctx context.Context, change repository.JobChange, entry *domain.HistoryEntry) error {
	if !r.fired {
		r.fired = true
		r.between()
	}
	return r.MemoryJobsRepo.UpdateJob(ctx, change, entry)
}

// B reads its job, then a delegation to C commits before B's status write.
// The write must not revert the assignee or log a change B no longer owns.
func TestJobService_UpdateJob_LosesHoldAfterConcurrentDelegation(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.b)

	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	repo := &interleavingJobsRepo{MemoryJobsRepo: f.env.jobsRepo}
	repo.between = func() {
		_, err := f.env.jobs.DelegateJob(ctx, f.b, DelegateJobRequest{JobID: j.JobID, NewAssigneeID: f.c.UserID})
		require.NoError(t, err)
	}
	racing := NewJobService(repo, f.env.formsRepo, f.env.usersRepo, f.env.unitsRepo, enforcer, nil, zap.NewNop())

	started := domain.StatusStarted
	_, err = racing.UpdateJob(ctx, f.b, UpdateJobRequest{JobID: j.JobID, Status: &started})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.env.jobs.GetJob(ctx, f.b, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, f.c.UserID, *got.AssignedTo)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	require.Len(t, got.History, 2)
	assert.Equal(t, domain.ActionDelegated, got.History[1].Action)
}

func TestJobService_UpdateJob_WritesOnlyChangedColumns(t *testing.T) {
	f := newJobFixture(t, nil)
	ctx := context.Background()
	j := f.createJob(t, f.a)

	_, err := f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID, FormData: domain.FormData{"pressure": 2.5}})
	require.NoError(t, err)

	// A description-only change keeps the stored answers.
	desc := "valve replaced"
	updated, err := f.env.jobs.UpdateJob(ctx, f.a, UpdateJobRequest{JobID: j.JobID, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, 2.5, updated.FormData["pressure"])
	assert.Equal(t, domain.StatusAssigned, updated.Status)
	assert.Equal(t, 2.5, updated.History[2].FormData["pressure"])
}
