package rbac

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

// Roles inherit through g; a policy domain of "*" applies to every company.
const modelText = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.dom == "*" || r.dom == p.dom) && r.obj == p.obj && r.act == p.act
`

// DefaultPolicy grants punching and own-row reads to every employee and
// company-wide reads to HR, managers and admins.
const DefaultPolicy = `p, EMPLOYEE, *, attendance, punch
p, EMPLOYEE, *, attendance, read
p, HR, *, attendance, read_all
p, MANAGER, *, attendance, read_all
g, HR, EMPLOYEE
g, MANAGER, EMPLOYEE
g, ADMIN, HR
g, SUPER_ADMIN, ADMIN
`

// NewEnforcer loads the policy CSV at policyPath, or DefaultPolicy when the
// path is empty.
func NewEnforcer(policyPath string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}

	if policyPath != "" {
		return casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	}
	return casbin.NewEnforcer(m, stringadapter.NewAdapter(DefaultPolicy))
}
