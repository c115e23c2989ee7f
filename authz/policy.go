// Package authz evaluates a declarative route policy table against the
// caller's reconciled principal. The table is ordered: rules are checked
// top-to-bottom and the first matching pattern decides, so more specific
// entries belong above broader ones.
package authz

import (
	"strings"

	"github.com/docsmith/backend/services/identity"
)

// Requirement is what a rule demands from the caller.
type Requirement int

const (
	// Public admits everyone, principal or not. Authentication is bypassed
	// entirely for these routes.
	Public Requirement = iota

	// Authenticated admits any principal, including one that carries no
	// authority (e.g. reconciled from incomplete claims).
	Authenticated

	// RequireAuthority admits only principals holding the rule's authority.
	RequireAuthority
)

// Decision is the outcome of evaluating a route against the table.
// DenyUnauthenticated and DenyForbidden stay distinct so the HTTP boundary
// can map them to 401 and 403 respectively.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// Rule binds a route pattern to a requirement. A pattern is either an exact
// path or a prefix ending in "/*" that matches the prefix and everything
// below it.
type Rule struct {
	Pattern   string
	Require   Requirement
	Authority identity.Authority // consulted only when Require == RequireAuthority
}

// Policy is a static, ordered route policy table.
type Policy struct {
	rules []Rule
}

// NewPolicy creates a policy from an ordered rule list.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Default returns the route table for this service: health endpoints are
// public, user administration needs ROLE_ADMIN, everything else needs an
// authenticated principal.
func Default() *Policy {
	return NewPolicy(
		Rule{Pattern: "/healthz", Require: Public},
		Rule{Pattern: "/readyz", Require: Public},
		Rule{Pattern: "/api/users/me", Require: Authenticated},
		Rule{Pattern: "/api/users", Require: RequireAuthority, Authority: identity.AuthorityAdmin},
		Rule{Pattern: "/api/pdf/*", Require: Authenticated},
		Rule{Pattern: "/*", Require: Authenticated},
	)
}

// Evaluate decides whether a caller may reach the given path. It is a pure
// function of the table, the path, and the principal. Paths matching no rule
// are treated as requiring authentication.
func (p *Policy) Evaluate(path string, principal *identity.Principal) Decision {
	path = canonicalPath(path)

	for _, rule := range p.rules {
		if !matches(rule.Pattern, path) {
			continue
		}
		return apply(rule, principal)
	}

	return apply(Rule{Require: Authenticated}, principal)
}

func apply(rule Rule, principal *identity.Principal) Decision {
	switch rule.Require {
	case Public:
		return Allow

	case Authenticated:
		if principal == nil {
			return DenyUnauthenticated
		}
		return Allow

	default:
		if principal == nil {
			return DenyUnauthenticated
		}
		if !principal.HasAuthority(rule.Authority) {
			return DenyForbidden
		}
		return Allow
	}
}

// canonicalPath strips trailing slashes so "/api/users/" and "/api/users"
// hit the same rule. The bare root stays "/".
func canonicalPath(path string) string {
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// matches reports whether a path matches a rule pattern. "/api/pdf/*"
// matches "/api/pdf" and anything below it; other patterns match exactly.
func matches(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if prefix == "" {
			return true
		}
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}
