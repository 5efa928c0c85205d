package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Engine is the process-wide pool handle. It is read-only after Initialize
// and safe for concurrent use; the pool does its own locking.
type Engine struct {
	db             *sqlx.DB
	driver         string
	bindType       int
	host           string
	database       string
	acquireTimeout time.Duration
}

// WithSession checks out one pooled connection, runs fn with it and returns
// the connection to the pool when fn returns, fails or panics. The Session
// must not escape fn.
func (e *Engine) WithSession(ctx context.Context, fn func(*Session) error) error {
	s, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release()
	return fn(s)
}

// WithTx is WithSession inside a transaction: committed when fn returns nil,
// rolled back otherwise.
func (e *Engine) WithTx(ctx context.Context, fn func(*Session) error) error {
	return e.WithSession(ctx, func(s *Session) error {
		return s.Tx(ctx, fn)
	})
}

func (e *Engine) acquire(ctx context.Context) (*Session, error) {
	acqCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
	defer cancel()

	conn, err := e.db.Connx(acqCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Int("in_use", e.db.Stats().InUse).
				Dur("acquire_timeout", e.acquireTimeout).
				Msg("Database pool exhausted")
			return nil, ErrPoolExhausted
		}
		return nil, queryError("acquire", err)
	}
	return &Session{engine: e, conn: conn}, nil
}

// Ping checks that the store still answers.
func (e *Engine) Ping(ctx context.Context) error {
	return queryError("ping", e.db.PingContext(ctx))
}

// Stats reports pool usage.
func (e *Engine) Stats() sql.DBStats { return e.db.Stats() }

// DriverName is the database/sql driver behind the pool.
func (e *Engine) DriverName() string { return e.driver }

// String identifies the target without credentials.
func (e *Engine) String() string { return e.driver + "://" + e.host + "/" + e.database }

// Close closes the pool. Call once at shutdown.
func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) rebind(query string) string { return sqlx.Rebind(e.bindType, query) }
