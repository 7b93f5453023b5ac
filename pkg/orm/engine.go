// pkg/orm/engine.go
package orm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

// Pool hands out connections. *db.Manager implements it.
type Pool interface {
	Acquire(ctx context.Context) (*sqlx.Conn, error)
}

// DefaultStatementCacheSize bounds the number of generated statements kept per Engine.
const DefaultStatementCacheSize = 256

// Engine runs generated statements for any registered entity type. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	pool     Pool
	registry *Registry
	logger   *slog.Logger
	mapper   *reflectx.Mapper
	stmts    *statementCache
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	registry  *Registry
	logger    *slog.Logger
	cacheSize int
}

// WithRegistry sets the descriptor registry. Defaults to an empty registry,
// which leaves TableNamer as the only way to resolve table names.
func WithRegistry(r *Registry) Option {
	return func(o *engineOptions) { o.registry = r }
}

// WithLogger sets the logger used for statement tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithStatementCacheSize sets the statement cache bound; zero disables caching.
func WithStatementCacheSize(n int) Option {
	return func(o *engineOptions) { o.cacheSize = n }
}

// NewEngine creates an Engine over pool.
func NewEngine(pool Pool, opts ...Option) *Engine {
	o := engineOptions{cacheSize: DefaultStatementCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Engine{
		pool:     pool,
		registry: o.registry,
		logger:   o.logger,
		// Same naming rules sqlx uses when scanning rows back, so columns round-trip.
		mapper: reflectx.NewMapperFunc("db", sqlx.NameMapper),
		stmts:  newStatementCache(o.cacheSize),
	}
}

// Registry returns the engine's descriptor registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Serialize reduces record to its ordered field map.
func (e *Engine) Serialize(record any) (FieldMap, error) {
	return Serialize(e.mapper, record)
}

// withConn acquires a connection for the duration of fn.
func (e *Engine) withConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// exec runs a statement that does not return rows and reports rows affected.
func (e *Engine) exec(ctx context.Context, op, table, query string, args []any) (int64, error) {
	var affected int64
	err := e.withConn(ctx, func(conn *sqlx.Conn) error {
		query = conn.Rebind(query)
		e.trace(ctx, op, table, query, len(args))
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return e.executionError(ctx, op, table, err)
		}
		if affected, err = res.RowsAffected(); err != nil {
			return e.executionError(ctx, op, table, err)
		}
		return nil
	})
	return affected, err
}

func (e *Engine) trace(ctx context.Context, op, table, query string, nargs int) {
	e.logger.DebugContext(ctx, "Executing statement", "op", op, "table", table, "sql", query, "args", nargs)
}

func (e *Engine) executionError(ctx context.Context, op, table string, err error) error {
	e.logger.DebugContext(ctx, "Statement failed", "op", op, "table", table, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrExecution, op, table, err)
}
