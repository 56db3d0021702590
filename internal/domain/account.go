package domain

import "time"

// Application is a registered API consumer. Only its existence matters to the
// gateway.
type Application struct {
	Key            string `json:"key"`
	Name           string `json:"name,omitempty"`
	OwnerAccountID string `json:"owner_account_id"`
}

// Session is a short-lived authentication token bound to an account.
type Session struct {
	Token             string    `json:"token"`
	AccountID         string    `json:"account_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpirationSeconds int64     `json:"expiration_seconds"`
}

// ExpiresAt returns the instant from which the session is no longer valid.
func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(time.Duration(s.ExpirationSeconds) * time.Second)
}

// Expired reports whether now >= createdAt + expirationSeconds.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt())
}

// Account owns sessions and belongs to groups.
type Account struct {
	ID       string   `json:"id"`
	Username string   `json:"username,omitempty"`
	GroupIDs []string `json:"group_ids"`
}

// Group bundles the routes its members may invoke.
type Group struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug,omitempty"`
	RouteIDs []string `json:"route_ids"`
}

// GrantsRoute reports whether routeID belongs to the union of the groups' routes.
func GrantsRoute(groups []*Group, routeID string) bool {
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, id := range g.RouteIDs {
			if id == routeID {
				return true
			}
		}
	}
	return false
}
