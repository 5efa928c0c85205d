package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"usersvc/internal/infrastructure/database"
)

//go:embed migrations
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	sql     string
}

// RunMigrations applies the embedded *.sql files for the engine's driver in
// numeric order (prefix before first underscore), recording each version in
// the schema_migrations table. Every file runs in its own transaction.
func RunMigrations(ctx context.Context, engine *database.Engine) error {
	d := dialectFor(engine.DriverName())

	migrations, err := loadMigrations(migrationsFS, path.Join("migrations", d.migrationsDir))
	if err != nil {
		return err
	}

	return engine.WithSession(ctx, func(s *database.Session) error {
		if d.lockMigrations != "" {
			if _, err := s.Exec(ctx, d.lockMigrations); err != nil {
				return fmt.Errorf("acquire migration lock: %w", err)
			}
			defer func() {
				if _, err := s.Exec(context.WithoutCancel(ctx), d.unlockMigration); err != nil {
					log.Warn().Err(err).Msg("Failed to release migration lock")
				}
			}()
		}

		if _, err := s.Exec(ctx, d.schemaTable); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}

		var versions []int
		if err := s.Select(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
			return fmt.Errorf("read applied migrations: %w", err)
		}
		applied := make(map[int]bool, len(versions))
		for _, v := range versions {
			applied[v] = true
		}

		for _, m := range migrations {
			if applied[m.version] {
				continue
			}
			err := s.Tx(ctx, func(tx *database.Session) error {
				if _, err := tx.Exec(ctx, m.sql); err != nil {
					return fmt.Errorf("exec migration %s: %w", m.name, err)
				}
				if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
					return fmt.Errorf("record migration %s: %w", m.name, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			log.Info().Int("version", m.version).Str("file", m.name).Msg("Applied migration")
		}
		return nil
	})
}

func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	out := make([]migration, 0, len(entries))
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMigrationName, e.Name())
		}
		if seen[version] {
			return nil, fmt.Errorf("%w: version %d repeated by %s", ErrInvalidMigrationName, version, e.Name())
		}
		seen[version] = true
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, migration{version: version, name: e.Name(), sql: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
