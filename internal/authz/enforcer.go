package authz

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/sirupsen/logrus"
)

const rbacModel = `
[request_definition]
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

// defaultPolicy grants each role its actions. Roles inherit through g.
const defaultPolicy = `
p, member, follows, write
p, member, likes, write
p, member, calendar, write
p, member, calendar, read
p, member, calendar, delete
p, member, pending_requests, submit
p, member, pending_requests, read
p, member, positions, read
p, executive, organizations, manage
p, executive, organizations, delete
p, executive, members, manage
p, executive, posts, delete
p, executive, positions, write
p, executive, positions, delete
p, admin, pending_requests, decide
p, admin, pending_requests, list
g, executive, member
g, admin, executive
`

// Enforcer manages the Casbin authorization enforcer
type Enforcer struct {
	enforcer *casbin.Enforcer
	logger   *logrus.Logger
	mu       sync.RWMutex
}

// NewEnforcer creates an enforcer over the built-in role model and policy.
func NewEnforcer(logger *logrus.Logger) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load Casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(defaultPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}

	logger.Info("Authorization enforcer initialized successfully")

	return &Enforcer{
		enforcer: enforcer,
		logger:   logger,
	}, nil
}

// Enforce checks if the identity's role may perform action on resource.
func (e *Enforcer) Enforce(id Identity, resource Resource, action Action) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(id.Role(), string(resource), action.String())
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"memberID": id.MemberID,
			"resource": resource,
			"action":   action,
			"error":    err.Error(),
		}).Error("Authorization enforcement failed")
		return false, fmt.Errorf("authorization enforcement failed: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"memberID": id.MemberID,
		"role":     id.Role(),
		"resource": resource,
		"action":   action,
		"allowed":  allowed,
	}).Debug("Authorization decision made")

	return allowed, nil
}

// CanManage reports whether the identity may act on the organization as one of
// its executives. managed is the caller's own managed organizations, read from
// their member document.
func CanManage(id Identity, managed []string, orgID string) bool {
	if id.IsAdmin {
		return true
	}
	for _, m := range managed {
		if m == orgID {
			return true
		}
	}
	return false
}
