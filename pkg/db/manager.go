// pkg/db/manager.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

// State is the lifecycle stage of a Manager's pool.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// OpenFunc constructs a pool from configuration.
type OpenFunc func(ctx context.Context, cfg Config) (*sqlx.DB, error)

// Manager owns the process's shared connection pool. The pool is created on
// first use, exactly once; concurrent callers wait for that single attempt.
// A failed attempt is not retried: every later call returns the same error.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	open   OpenFunc

	once  sync.Once
	state atomic.Int32
	db    *sqlx.DB
	err   error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOpenFunc replaces the function used to construct the pool.
func WithOpenFunc(open OpenFunc) ManagerOption {
	return func(m *Manager) { m.open = open }
}

// NewManager creates a Manager. No connection is made until the pool is first needed.
func NewManager(cfg Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:    cfg.WithDefaults(),
		logger: logger,
		open:   Open,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the resolved pool configuration.
func (m *Manager) Config() Config { return m.cfg }

// State reports the current lifecycle stage.
func (m *Manager) State() State { return State(m.state.Load()) }

// DB returns the shared pool, initializing it on the first call.
func (m *Manager) DB(ctx context.Context) (*sqlx.DB, error) {
	m.once.Do(func() {
		m.state.Store(int32(StateInitializing))
		// Initialization outlives the first caller's cancellation; the opener bounds it.
		db, err := m.open(context.WithoutCancel(ctx), m.cfg)
		if err != nil {
			m.err = fmt.Errorf("%w: %w", ErrInitialization, err)
			m.state.Store(int32(StateFailed))
			m.logger.Error("Failed to initialize database connection pool", "error", err)
			return
		}
		m.db = db
		m.state.Store(int32(StateReady))
		m.logger.Info("Database connection pool initialized",
			"max_connections", m.cfg.MaxConnections,
			"min_connections", m.cfg.MinConnections)
	})
	return m.db, m.err
}

// Acquire takes a dedicated connection from the pool, waiting at most the
// configured acquire timeout. The caller must Close the connection.
func (m *Manager) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	pool, err := m.DB(ctx)
	if err != nil {
		return nil, err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()
	conn, err := pool.Connx(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrAcquireTimeout, m.cfg.AcquireTimeout, err)
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// Ping checks that the pool can reach the store.
func (m *Manager) Ping(ctx context.Context) error {
	pool, err := m.DB(ctx)
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Close closes the pool if it was ever initialized.
func (m *Manager) Close() error {
	if m.State() != StateReady {
		return nil
	}
	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database pool: %w", err)
	}
	return nil
}
