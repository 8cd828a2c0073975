package rbac

import (
	"context"
	"strings"
)

// Scope is how much of a resource's per-student records a role may read.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

// Checker resolves permissions against a role policy. A policy entry is an
// exact permission, a "resource:*" wildcard, or "*".
type Checker struct {
	policy map[string][]string
}

func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.policy[role] {
		if grants(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// Scope maps "<resource>:view-all" and "<resource>:view-own" onto a Scope.
func (c *Checker) Scope(role, resource string) Scope {
	switch {
	case c.Has(role, resource+":view-all"):
		return ScopeAll
	case c.Has(role, resource+":view-own"):
		return ScopeOwn
	}
	return ScopeNone
}

func grants(pattern, perm string) bool {
	switch {
	case pattern == "*", pattern == perm:
		return true
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- role in context ----

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ctxKey{}).(string)
	return role
}
