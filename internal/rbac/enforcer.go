package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
)

const modelText = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// DefaultPolicies grants employees their own leave operations. Admins inherit
// them and may decide, list and export every request.
var DefaultPolicies = [][]string{
	{RoleEmployee, "leave", "create"},
	{RoleEmployee, "leave", "read"},
	{RoleEmployee, "profile", "read"},
	{RoleAdmin, "leave", "read_all"},
	{RoleAdmin, "leave", "approve"},
	{RoleAdmin, "leave", "export"},
}

var DefaultGroupings = [][]string{
	{RoleAdmin, RoleEmployee},
}

// NewEnforcer builds the in-memory enforcer with the default policies.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddPolicies(DefaultPolicies); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicies(DefaultGroupings); err != nil {
		return nil, err
	}
	return e, nil
}
