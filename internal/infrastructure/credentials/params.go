package credentials

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ConnectionParameters are the four values needed to reach the database.
// The zero value is not valid; use NewConnectionParameters.
type ConnectionParameters struct {
	host     string
	database string
	username string
	password string
}

// NewConnectionParameters returns ErrIncompleteParameters unless every field is set.
func NewConnectionParameters(host, database, username, password string) (ConnectionParameters, error) {
	missing := make([]string, 0, 4)
	for _, f := range []struct{ name, value string }{
		{"host", host},
		{"database", database},
		{"username", username},
		{"password", password},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return ConnectionParameters{}, fmt.Errorf("%w: missing %v", ErrIncompleteParameters, missing)
	}
	return ConnectionParameters{host: host, database: database, username: username, password: password}, nil
}

func (p ConnectionParameters) Host() string     { return p.host }
func (p ConnectionParameters) Database() string { return p.database }
func (p ConnectionParameters) Username() string { return p.username }
func (p ConnectionParameters) Password() string { return p.password }

// Valid reports whether all four fields are populated.
func (p ConnectionParameters) Valid() bool {
	return p.host != "" && p.database != "" && p.username != "" && p.password != ""
}

// String never includes the password.
func (p ConnectionParameters) String() string {
	return fmt.Sprintf("host=%s database=%s username=%s password=%s", p.host, p.database, p.username, redact(p.password))
}

// GoString keeps %#v from printing the password as well.
func (p ConnectionParameters) GoString() string {
	return "credentials.ConnectionParameters{" + p.String() + "}"
}

// MarshalZerologObject lets the parameters be logged with Object().
func (p ConnectionParameters) MarshalZerologObject(e *zerolog.Event) {
	e.Str("host", p.host).Str("database", p.database).Str("username", p.username)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// IdentitySettings identify the application registration used to verify tokens.
type IdentitySettings struct {
	TenantID string
	ClientID string
}
