// Package session resolves the authenticated identity behind a request.
//
// A Session is read-only to the gates: it is owned by the identity provider
// and carried through the request context via an explicit accessor instead
// of ambient global state.
package session

import "slices"

// Session is the authenticated identity for a request.
type Session struct {
	// UserID is the subject identifier from the identity provider.
	UserID string

	// Email is the user's verified email address.
	Email string

	// OrgID is the organization (tenant) the session belongs to.
	OrgID string

	// Roles is the set of role names granted to the user.
	Roles []string

	// Token is the raw bearer credential the session was resolved from.
	// Platform RPC calls are made on behalf of the session and reuse it.
	Token string
}

// HasRole reports whether the session carries the given role.
func (s *Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}
