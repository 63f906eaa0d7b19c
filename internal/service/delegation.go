package service

import (
	"fieldops/internal/domain"
)

// AllowedUnits returns rootID and every unit reachable below it. An unknown
// rootID yields an empty set.
func AllowedUnits(rootID string, units []*domain.Unit) map[string]bool {
	allowed := map[string]bool{}
	children := map[string][]string{}
	known := false
	for _, u := range units {
		if u.UnitID == rootID {
			known = true
		}
		if u.ParentID != nil {
			children[*u.ParentID] = append(children[*u.ParentID], u.UnitID)
		}
	}
	if !known {
		return allowed
	}

	queue := []string{rootID}
	allowed[rootID] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range children[id] {
			if !allowed[c] {
				allowed[c] = true
				queue = append(queue, c)
			}
		}
	}
	return allowed
}

// DelegationTargets personnel the actor may hand a job to: everyone whose unit
// lies in the actor's own unit subtree, except the actor.
func DelegationTargets(actor *domain.User, units []*domain.Unit, users []*domain.User) []*domain.User {
	out := []*domain.User{}
	if actor == nil || actor.UnitID == nil {
		return out
	}
	allowed := AllowedUnits(*actor.UnitID, units)
	for _, u := range users {
		if u.UserID == actor.UserID || u.UnitID == nil {
			continue
		}
		if allowed[*u.UnitID] {
			out = append(out, u)
		}
	}
	return out
}

// CheckDelegation returns ErrForbidden unless actor holds job, may delegate,
// and targetID is one of the actor's delegation targets.
func CheckDelegation(actor *domain.User, job *domain.Job, targetID string, units []*domain.Unit, users []*domain.User) error {
	if actor == nil || job == nil {
		return ErrForbidden
	}
	if job.AssignedTo == nil || *job.AssignedTo != actor.UserID {
		return ErrForbidden
	}
	if !actor.CanDelegate() {
		return ErrForbidden
	}
	for _, u := range DelegationTargets(actor, units, users) {
		if u.UserID == targetID {
			return nil
		}
	}
	return ErrForbidden
}
