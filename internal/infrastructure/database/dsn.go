package database

import (
	"fmt"
	"net/url"

	"usersvc/internal/infrastructure/credentials"
)

// Driver names accepted by DataSourceName. Each is registered by the blank
// imports in factory.go.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverPgx       = "pgx"
	DriverSQLite    = "sqlite3"
)

// ConnectionString formats an ODBC connection string for callers that talk
// to SQL Server without the pooled engine. It embeds the password: never log it.
func ConnectionString(p credentials.ConnectionParameters) string {
	return fmt.Sprintf("DRIVER={SQL Server};SERVER=%s;DATABASE=%s;UID=%s;PWD=%s",
		p.Host(), p.Database(), p.Username(), p.Password())
}

// DataSourceName builds the DSN understood by driver. It embeds the password:
// never log it.
func DataSourceName(driver string, p credentials.ConnectionParameters) (string, error) {
	switch driver {
	case DriverSQLServer:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(p.Username(), p.Password()),
			Host:     p.Host(),
			RawQuery: url.Values{"database": {p.Database()}}.Encode(),
		}
		return u.String(), nil
	case DriverPostgres, DriverPgx:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(p.Username(), p.Password()),
			Host:   p.Host(),
			Path:   "/" + p.Database(),
		}
		return u.String(), nil
	case DriverSQLite:
		// Host and credentials carry no meaning for a file database.
		q := url.Values{"_foreign_keys": {"on"}, "_busy_timeout": {"5000"}}
		return "file:" + p.Database() + "?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}
