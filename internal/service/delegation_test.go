package service

import (
	"testing"

	"fieldops/internal/domain"

	"github.com/stretchr/testify/assert"
)

func sp(s string) *string { return &s }

// Field Ops
// ├── North Team
// │   └── North Night Shift
// └── South Team
// Depot (separate root)
func delegationFixture() ([]*domain.Unit, []*domain.User) {
	units := []*domain.Unit{
		{UnitID: "ops", Name: "Field Ops"},
		{UnitID: "north", Name: "North Team", ParentID: sp("ops")},
		{UnitID: "night", Name: "North Night Shift", ParentID: sp("north")},
		{UnitID: "south", Name: "South Team", ParentID: sp("ops")},
		{UnitID: "depot", Name: "Depot"},
	}
	users := []*domain.User{
		{UserID: "b", Role: domain.RoleManager, UnitID: sp("ops")},
		{UserID: "n", Role: domain.RoleManager, UnitID: sp("north")},
		{UserID: "a", Role: domain.RoleWorker, UnitID: sp("north")},
		{UserID: "c", Role: domain.RoleWorker, UnitID: sp("night")},
		{UserID: "s", Role: domain.RoleWorker, UnitID: sp("south")},
		{UserID: "d", Role: domain.RoleWorker, UnitID: sp("depot")},
		{UserID: "x", Role: domain.RoleWorker},
	}
	return units, users
}

func userIDs(users []*domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.UserID)
	}
	return out
}

func TestAllowedUnits_TransitiveClosure(t *testing.T) {
	units, _ := delegationFixture()

	assert.Equal(t, map[string]bool{"ops": true, "north": true, "night": true, "south": true}, AllowedUnits("ops", units))
	assert.Equal(t, map[string]bool{"north": true, "night": true}, AllowedUnits("north", units))
	assert.Equal(t, map[string]bool{"depot": true}, AllowedUnits("depot", units))
	assert.Empty(t, AllowedUnits("ghost", units))
}

func TestAllowedUnits_ToleratesCycle(t *testing.T) {
	units := []*domain.Unit{
		{UnitID: "a", ParentID: sp("b")},
		{UnitID: "b", ParentID: sp("a")},
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, AllowedUnits("a", units))
}

func TestDelegationTargets_ExcludesActorAndOutsiders(t *testing.T) {
	units, users := delegationFixture()

	assert.ElementsMatch(t, []string{"n", "a", "c", "s"}, userIDs(DelegationTargets(users[0], units, users)))
	assert.ElementsMatch(t, []string{"a", "c"}, userIDs(DelegationTargets(users[1], units, users)))
	assert.Empty(t, DelegationTargets(users[6], units, users))
}

func TestCheckDelegation(t *testing.T) {
	units, users := delegationFixture()
	manager := users[0]
	worker := users[2]
	job := &domain.Job{JobID: "j", AssignedTo: sp("b")}

	assert.NoError(t, CheckDelegation(manager, job, "c", units, users))
	assert.ErrorIs(t, CheckDelegation(manager, job, "d", units, users), ErrForbidden)
	assert.ErrorIs(t, CheckDelegation(manager, job, "b", units, users), ErrForbidden)
	assert.ErrorIs(t, CheckDelegation(manager, job, "nobody", units, users), ErrForbidden)

	notHeld := &domain.Job{JobID: "j2", AssignedTo: sp("a")}
	assert.ErrorIs(t, CheckDelegation(manager, notHeld, "c", units, users), ErrForbidden)

	workerJob := &domain.Job{JobID: "j3", AssignedTo: sp("a")}
	assert.ErrorIs(t, CheckDelegation(worker, workerJob, "c", units, users), ErrForbidden)
}
