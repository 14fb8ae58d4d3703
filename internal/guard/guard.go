// Package guard decides whether a session may reach a route. The decision
// function is pure so the same rules serve HTTP middleware and tests alike.
package guard

import "github.com/classmark/classmark-api/internal/models"

// State enumerates the guard outcomes for a session/route pair.
type State int

const (
	// StateAnonymous renders the route without a session. Sessions with no
	// identity and no profile are deliberately let through; see Evaluate.
	StateAnonymous State = iota
	// StateAuthorized renders the requested route.
	StateAuthorized
	// StateMisrouted redirects the session elsewhere.
	StateMisrouted
)

// Session carries the resolved identity and profile for a request. Either
// pointer may be nil when the corresponding half could not be resolved.
type Session struct {
	Identity *models.UserInfo
	Profile  *models.Profile
}

// Decision is the guard verdict together with the redirect target for
// misrouted sessions.
type Decision struct {
	State    State
	Redirect string
}

// Evaluate applies the access rules for a route restricted to allowedRoles.
//
// A session with neither identity nor profile is allowed through. That rule
// disables protection whenever nobody is logged in; it is kept on purpose
// because the demo accounts rely on it.
// TODO: confirm with product whether anonymous access should be rejected once
// the demo accounts are retired.
func Evaluate(session Session, allowedRoles []models.UserRole) Decision {
	if session.Identity == nil && session.Profile == nil {
		return Decision{State: StateAnonymous}
	}

	if session.Identity == nil {
		return Decision{State: StateMisrouted, Redirect: "/"}
	}

	if session.Profile == nil || !roleAllowed(session.Profile.Role, allowedRoles) {
		redirect := "/"
		if session.Profile != nil {
			redirect = session.Profile.Role.HomePath()
		}
		return Decision{State: StateMisrouted, Redirect: redirect}
	}

	return Decision{State: StateAuthorized}
}

func roleAllowed(role models.UserRole, allowed []models.UserRole) bool {
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
