package auth

import "strings"

// Scope is a permission exposed by the API app registration.
type Scope string

const (
	ScopeUserRead   Scope = "User.Read"
	ScopeUserWrite  Scope = "User.Write"
	ScopeUserDelete Scope = "User.Delete"
)

// AllScopes lists every scope the API exposes.
func AllScopes() []Scope {
	return []Scope{ScopeUserRead, ScopeUserWrite, ScopeUserDelete}
}

// URI returns the fully qualified scope as requested by clients,
// e.g. api://<client-id>/User.Read.
func (s Scope) URI(clientID string) string {
	return "api://" + clientID + "/" + string(s)
}

// Principal represents the authenticated caller of a request
type Principal struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Scopes   []string `json:"scopes"`
	Roles    []string `json:"roles,omitempty"`
}

// NewPrincipal builds a Principal from verified claims
func NewPrincipal(c *Claims) *Principal {
	id := c.ObjectID
	if id == "" {
		id = c.Subject
	}
	email := c.Email
	if email == "" && strings.Contains(c.PreferredUsername, "@") {
		email = c.PreferredUsername
	}
	return &Principal{
		ID:       id,
		Name:     c.Name,
		Username: c.PreferredUsername,
		Email:    email,
		TenantID: c.TenantID,
		Scopes:   c.Scopes,
		Roles:    c.Roles,
	}
}

// AnonymousPrincipal is used when token verification is disabled. It holds
// every scope.
func AnonymousPrincipal() *Principal {
	scopes := make([]string, 0, len(AllScopes()))
	for _, s := range AllScopes() {
		scopes = append(scopes, string(s))
	}
	return &Principal{ID: "anonymous", Name: "Anonymous", Scopes: scopes}
}

// HasScope reports whether the principal was granted scope, either as a
// delegated scope or as an application role of the same name.
func (p *Principal) HasScope(scope Scope) bool {
	for _, s := range p.Scopes {
		if s == string(scope) {
			return true
		}
	}
	for _, r := range p.Roles {
		if r == string(scope) {
			return true
		}
	}
	return false
}
