// Package database builds the process-wide connection pool from resolved
// credentials and hands out scoped sessions on top of it.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"usersvc/internal/infrastructure/credentials"

	// SQL drivers selectable through Options.Driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

const (
	defaultMaxOpenConns   = 10
	defaultAcquireTimeout = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

// Options configure the pool behind an Engine.
type Options struct {
	Driver          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AcquireTimeout  time.Duration
	ConnectTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverSQLServer
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 || o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = defaultAcquireTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	return o
}

// Factory creates the single Engine of a process. Construct one at startup
// and pass the resulting Engine to whatever serves requests.
type Factory struct {
	opts Options

	mu     sync.Mutex
	engine *Engine
}

// NewFactory creates a Factory. Nothing is opened until Initialize.
func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts.withDefaults()}
}

// Initialize opens the pool and probes connectivity. It succeeds at most
// once; later calls return ErrAlreadyInitialized. A failed call leaves the
// Factory uninitialized.
func (f *Factory) Initialize(ctx context.Context, params credentials.ConnectionParameters) (*Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.engine != nil {
		return nil, ErrAlreadyInitialized
	}
	if !params.Valid() {
		return nil, ErrInvalidParameters
	}

	dsn, err := DataSourceName(f.opts.Driver, params)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(f.opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnectFailed, f.opts.Driver, err)
	}
	db.SetMaxOpenConns(f.opts.MaxOpenConns)
	db.SetMaxIdleConns(f.opts.MaxIdleConns)
	db.SetConnMaxLifetime(f.opts.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, f.opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectFailed, params.Host(), err)
	}

	f.engine = &Engine{
		db:             db,
		driver:         f.opts.Driver,
		bindType:       sqlx.BindType(f.opts.Driver),
		host:           params.Host(),
		database:       params.Database(),
		acquireTimeout: f.opts.AcquireTimeout,
	}

	log.Info().
		Str("driver", f.opts.Driver).
		Str("host", params.Host()).
		Str("database", params.Database()).
		Int("max_open_conns", f.opts.MaxOpenConns).
		Dur("acquire_timeout", f.opts.AcquireTimeout).
		Msg("Database engine initialized")

	return f.engine, nil
}

// Engine returns the engine created by Initialize.
func (f *Factory) Engine() (*Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.engine == nil {
		return nil, ErrNotInitialized
	}
	return f.engine, nil
}
