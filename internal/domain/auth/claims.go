package auth

// Claims represents the claims extracted from a verified access token
type Claims struct {
	Subject           string   `json:"sub"`                // Caller ID within the tenant
	ObjectID          string   `json:"oid"`                // Directory object ID
	TenantID          string   `json:"tid"`                // Issuing tenant
	Name              string   `json:"name"`               // Display name
	PreferredUsername string   `json:"preferred_username"` // Usually the UPN
	Email             string   `json:"email"`              // Optional claim
	Issuer            string   `json:"iss"`                // Token issuer
	Audience          []string `json:"aud"`                // Token audience
	Scopes            []string `json:"scp"`                // Delegated permissions, space separated on the wire
	Roles             []string `json:"roles"`              // Application permissions
	ExpiresAt         int64    `json:"exp"`                // Expiration time
	IssuedAt          int64    `json:"iat"`                // Issued at time
	AuthorizedParty   string   `json:"azp"`                // Client that requested the token
}
