package database

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Row is one materialized result row keyed by column name.
type Row map[string]any

// queryer is satisfied by both *sqlx.Conn and *sqlx.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Session is one unit of work on one pooled connection. It only exists
// inside Engine.WithSession / Engine.WithTx and is owned by that callback.
//
// Statements use "?" placeholders; they are rebound to the driver's style
// and every argument is passed as a bound parameter.
type Session struct {
	engine   *Engine
	conn     *sqlx.Conn
	tx       *sqlx.Tx
	released atomic.Bool
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q, err := s.queryer(ctx)
	if err != nil {
		return nil, err
	}
	res, err := q.ExecContext(ctx, s.engine.rebind(query), args...)
	if err != nil {
		return nil, queryError("exec", err)
	}
	return res, nil
}

// Get scans a single row into dest. No row yields ErrNotFound.
func (s *Session) Get(ctx context.Context, dest any, query string, args ...any) error {
	q, err := s.queryer(ctx)
	if err != nil {
		return err
	}
	if err := q.GetContext(ctx, dest, s.engine.rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return queryError("get", err)
	}
	return nil
}

// Select scans all rows into dest, a pointer to a slice. No rows is not an error.
func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	q, err := s.queryer(ctx)
	if err != nil {
		return err
	}
	return queryError("select", q.SelectContext(ctx, dest, s.engine.rebind(query), args...))
}

// Query returns every row as a column map. Rows are fully read before
// returning so nothing outlives the session.
func (s *Session) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	q, err := s.queryer(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryxContext(ctx, s.engine.rebind(query), args...)
	if err != nil {
		return nil, queryError("query", err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, queryError("scan", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("query", err)
	}
	return out, nil
}

// Tx runs fn in a transaction on this session's connection. Inside an
// existing transaction fn simply joins it.
func (s *Session) Tx(ctx context.Context, fn func(*Session) error) error {
	if _, err := s.queryer(ctx); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return queryError("begin", err)
	}
	txs := &Session{engine: s.engine, conn: s.conn, tx: tx}

	committed := false
	defer func() {
		txs.released.Store(true)
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("transaction rollback failed")
			}
		}
	}()

	if err := fn(txs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return queryError("commit", err)
	}
	committed = true
	return nil
}

// queryer fails fast on a released session or a cancelled unit of work;
// not every driver checks ctx before running a statement.
func (s *Session) queryer(ctx context.Context) (queryer, error) {
	if s.released.Load() {
		return nil, ErrSessionReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.conn, nil
}

// release returns the connection to the pool. Only the first call has effect.
func (s *Session) release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		log.Error().Err(err).Msg("release pooled connection")
	}
}
