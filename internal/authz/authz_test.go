package authz

import (
	"testing"

	"fieldops/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_DefaultPolicy(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	cases := []struct {
		role, res, act string
		want           bool
	}{
		{domain.RoleSuperAdmin, ResUnits, ActDelete, true},
		{domain.RoleSuperAdmin, ResUsers, ActCreate, true},
		{domain.RoleManager, ResJobs, ActCreate, true},
		{domain.RoleManager, ResJobs, ActDelegate, true},
		{domain.RoleManager, ResUnits, ActCreate, false},
		{domain.RoleManager, ResUsers, ActDelete, false},
		{domain.RoleWorker, ResJobs, ActUpdate, true},
		{domain.RoleWorker, ResJobs, ActCreate, false},
		{domain.RoleWorker, ResJobs, ActDelegate, false},
		{domain.RoleWorker, ResForms, ActRead, true},
		{"unknown", ResUnits, ActRead, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, e.Allow(c.role, c.res, c.act), "%s %s %s", c.role, c.res, c.act)
	}
}
