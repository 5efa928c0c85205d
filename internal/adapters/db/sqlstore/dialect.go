package sqlstore

import "usersvc/internal/infrastructure/database"

// dialect holds the statements that differ between the supported drivers.
// All of them use "?" placeholders; the session rebinds them.
type dialect struct {
	migrationsDir   string
	insertUser      string
	listUsers       string
	schemaTable     string
	lockMigrations  string
	unlockMigration string
}

const userColumns = `id, name, age, email, birthday, datetime`

var (
	sqlServerDialect = dialect{
		migrationsDir: "sqlserver",
		insertUser: `INSERT INTO users (name, age, email, birthday, datetime)
			OUTPUT INSERTED.id VALUES (?, ?, ?, ?, ?)`,
		listUsers: `SELECT ` + userColumns + ` FROM users WHERE age > ?
			ORDER BY age DESC, id ASC OFFSET 0 ROWS FETCH NEXT ? ROWS ONLY`,
		schemaTable: `IF OBJECT_ID(N'schema_migrations', N'U') IS NULL
			CREATE TABLE schema_migrations (version INT NOT NULL PRIMARY KEY, applied_at DATETIMEOFFSET NOT NULL DEFAULT SYSDATETIMEOFFSET())`,
		lockMigrations:  `EXEC sp_getapplock @Resource = 'schema_migrations', @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = 60000`,
		unlockMigration: `EXEC sp_releaseapplock @Resource = 'schema_migrations', @LockOwner = 'Session'`,
	}

	postgresDialect = dialect{
		migrationsDir: "postgres",
		insertUser: `INSERT INTO users (name, age, email, birthday, datetime)
			VALUES (?, ?, ?, ?, ?) RETURNING id`,
		listUsers: `SELECT ` + userColumns + ` FROM users WHERE age > ?
			ORDER BY age DESC, id ASC LIMIT ?`,
		schemaTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
		// advisory lock to avoid concurrent migration (lock key 42)
		lockMigrations:  `SELECT pg_advisory_lock(42)`,
		unlockMigration: `SELECT pg_advisory_unlock(42)`,
	}

	sqliteDialect = dialect{
		migrationsDir: "sqlite3",
		insertUser: `INSERT INTO users (name, age, email, birthday, datetime)
			VALUES (?, ?, ?, ?, ?) RETURNING id`,
		listUsers: `SELECT ` + userColumns + ` FROM users WHERE age > ?
			ORDER BY age DESC, id ASC LIMIT ?`,
		schemaTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	}
)

func dialectFor(driver string) dialect {
	switch driver {
	case database.DriverPostgres, database.DriverPgx:
		return postgresDialect
	case database.DriverSQLite:
		return sqliteDialect
	default:
		return sqlServerDialect
	}
}
