package authz

import (
	"fmt"

	"fieldops/internal/domain"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Resources
const (
	ResUnits   = "units"
	ResUsers   = "users"
	ResForms   = "forms"
	ResJobs    = "jobs"
	ResHistory = "history"
)

// Actions
const (
	ActRead     = "read"
	ActCreate   = "create"
	ActUpdate   = "update"
	ActDelete   = "delete"
	ActDelegate = "delegate"
	ActExport   = "export"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicy (role, resource, action)
var defaultPolicy = [][]string{
	{domain.RoleSuperAdmin, "*", "*"},

	{domain.RoleManager, ResUnits, ActRead},
	{domain.RoleManager, ResUsers, ActRead},
	{domain.RoleManager, ResForms, ActRead},
	{domain.RoleManager, ResJobs, ActRead},
	{domain.RoleManager, ResJobs, ActCreate},
	{domain.RoleManager, ResJobs, ActUpdate},
	{domain.RoleManager, ResJobs, ActDelegate},
	{domain.RoleManager, ResJobs, ActExport},
	{domain.RoleManager, ResHistory, ActRead},

	{domain.RoleWorker, ResUnits, ActRead},
	{domain.RoleWorker, ResUsers, ActRead},
	{domain.RoleWorker, ResForms, ActRead},
	{domain.RoleWorker, ResJobs, ActRead},
	{domain.RoleWorker, ResJobs, ActUpdate},
	{domain.RoleWorker, ResHistory, ActRead},
}

// Enforcer role policy over casbin.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer builds an enforcer loaded with the built-in role policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allow reports whether role may perform action on resource. Enforcement
// errors deny.
func (a *Enforcer) Allow(role, resource, action string) bool {
	ok, err := a.e.Enforce(role, resource, action)
	return err == nil && ok
}
