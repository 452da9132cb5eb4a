// Package policy is the role-based permit/deny decision function. It is
// pure: identical (state, role, requirement) inputs always yield the same
// decision, and no I/O happens here.
package policy

import (
	"github.com/evolution-fly/flight-service/internal/client/session"
	"github.com/evolution-fly/flight-service/internal/domain"
)

// Requirement expresses what a protected capability demands: nothing beyond
// authentication, an exact role, or membership in a role set.
type Requirement struct {
	roles []domain.Role
}

// Authenticated permits any authenticated session.
func Authenticated() Requirement {
	return Requirement{}
}

// RequireRole permits exactly one role.
func RequireRole(role domain.Role) Requirement {
	return Requirement{roles: []domain.Role{role}}
}

// RequireAnyOf permits any of the given roles.
func RequireAnyOf(roles ...domain.Role) Requirement {
	return Requirement{roles: roles}
}

// Reason explains a decision.
type Reason int

const (
	ReasonPermitted Reason = iota
	// ReasonNotReady means the session restore has not completed; callers
	// must wait rather than treat this as anonymous.
	ReasonNotReady
	ReasonMustAuthenticate
	ReasonWrongRole
)

// Redirect names where a denied caller is sent. Wrong-role denials go to the
// neutral landing page, never an error page: authenticated-but-unauthorized
// users are silently redirected.
type Redirect int

const (
	RedirectNone Redirect = iota
	RedirectLogin
	RedirectHome
)

// Decision is the policy outcome.
type Decision struct {
	Permitted bool
	Reason    Reason
	Redirect  Redirect
}

// Decide evaluates a requirement against the current session state. It must
// be re-evaluated on every navigation and every render of a gated
// affordance; nothing here is cached.
func Decide(state session.State, role domain.Role, req Requirement) Decision {
	switch state {
	case session.StateLoading:
		return Decision{Reason: ReasonNotReady}
	case session.StateAnonymous:
		return Decision{Reason: ReasonMustAuthenticate, Redirect: RedirectLogin}
	case session.StateAuthenticated:
		// fall through to the role check below
	default:
		return Decision{Reason: ReasonMustAuthenticate, Redirect: RedirectLogin}
	}

	if len(req.roles) == 0 {
		return Decision{Permitted: true, Reason: ReasonPermitted}
	}
	for _, allowed := range req.roles {
		if role == allowed {
			return Decision{Permitted: true, Reason: ReasonPermitted}
		}
	}
	return Decision{Reason: ReasonWrongRole, Redirect: RedirectHome}
}
