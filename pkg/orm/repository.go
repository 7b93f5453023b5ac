// pkg/orm/repository.go
package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository provides generic CRUD over the table bound to T.
// T must be a struct type; its `db` tags name the columns.
// Every operation is a single independent statement: there is no retry and no transaction.
type Repository[T any] struct {
	engine *Engine
	table  string
}

// NewRepository resolves T's descriptor once. It fails with ErrNotRegistered
// when T has neither a registry entry nor a TableName method.
func NewRepository[T any](e *Engine) (*Repository[T], error) {
	desc, err := Describe[T](e.registry)
	if err != nil {
		return nil, err
	}
	return &Repository[T]{engine: e, table: desc.Table}, nil
}

// TableName returns the table T is bound to.
func (r *Repository[T]) TableName() string { return r.table }

// Insert writes record as a new row and returns the number of rows affected.
func (r *Repository[T]) Insert(ctx context.Context, record T) (int64, error) {
	fields, err := r.engine.Serialize(record)
	if err != nil {
		return 0, err
	}
	cols := fields.Columns()
	query := r.engine.stmts.get(statementKey{op: "insert", table: r.table, columns: strings.Join(cols, ",")}, func() string {
		return insertStatement(r.table, cols)
	})
	return r.engine.exec(ctx, "insert", r.table, query, Args(fields.Values()))
}

// Update overwrites every column of the row whose keyField equals record's
// keyField value. The key column itself is never assigned.
func (r *Repository[T]) Update(ctx context.Context, record T, keyField string) (int64, error) {
	fields, err := r.engine.Serialize(record)
	if err != nil {
		return 0, err
	}
	key, ok := fields.Get(keyField)
	if !ok {
		return 0, fmt.Errorf("%w: %q not in %s record", ErrKeyFieldMissing, keyField, r.table)
	}
	sets := fields.Without(keyField)
	if len(sets) == 0 {
		return 0, fmt.Errorf("%w: %s record has no columns besides %q", ErrSerialization, r.table, keyField)
	}

	cols := sets.Columns()
	query := r.engine.stmts.get(statementKey{op: "update", table: r.table, key: keyField, columns: strings.Join(cols, ",")}, func() string {
		return updateStatement(r.table, cols, keyField)
	})
	args := append(Args(sets.Values()), key.Arg())
	return r.engine.exec(ctx, "update", r.table, query, args)
}

// Delete removes rows whose keyField equals keyValue. keyValue is bound as given.
// Zero rows affected is not an error.
func (r *Repository[T]) Delete(ctx context.Context, keyField string, keyValue any) (int64, error) {
	query := r.engine.stmts.get(statementKey{op: "delete", table: r.table, key: keyField}, func() string {
		return deleteStatement(r.table, keyField)
	})
	return r.engine.exec(ctx, "delete", r.table, query, []any{keyValue})
}

// Find returns the single row whose keyField equals keyValue.
// It fails with ErrNotFound for no match and ErrMultipleRows for more than one.
func (r *Repository[T]) Find(ctx context.Context, keyField string, keyValue any) (*T, error) {
	query := r.engine.stmts.get(statementKey{op: "find", table: r.table, key: keyField}, func() string {
		return selectStatement(r.table, keyField+" = ?")
	})

	var out *T
	err := r.engine.withConn(ctx, func(conn *sqlx.Conn) error {
		q := conn.Rebind(query)
		r.engine.trace(ctx, "find", r.table, q, 1)
		rows, err := conn.QueryxContext(ctx, q, keyValue)
		if err != nil {
			return r.engine.executionError(ctx, "find", r.table, err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return r.engine.executionError(ctx, "find", r.table, err)
			}
			return fmt.Errorf("%w: %s where %s = %v", ErrNotFound, r.table, keyField, keyValue)
		}
		var record T
		if err := rows.StructScan(&record); err != nil {
			return r.engine.executionError(ctx, "find", r.table, err)
		}
		if rows.Next() {
			return fmt.Errorf("%w: %s where %s = %v", ErrMultipleRows, r.table, keyField, keyValue)
		}
		if err := rows.Err(); err != nil {
			return r.engine.executionError(ctx, "find", r.table, err)
		}
		out = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindAll returns every row of the table. An empty table yields an empty slice.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	query := r.engine.stmts.get(statementKey{op: "find_all", table: r.table}, func() string {
		return selectStatement(r.table, "")
	})
	return r.selectRows(ctx, "find_all", query, nil)
}

// Query returns rows matching a caller-supplied WHERE fragment with '?' placeholders.
// The fragment is not validated; a placeholder/param mismatch surfaces as ErrExecution.
func (r *Repository[T]) Query(ctx context.Context, where string, params ...Value) ([]T, error) {
	return r.selectRows(ctx, "query", selectStatement(r.table, where), Args(params))
}

// Exists reports whether any row matches the WHERE fragment without loading rows.
func (r *Repository[T]) Exists(ctx context.Context, where string, params ...Value) (bool, error) {
	query := existsStatement(r.table, where)
	args := Args(params)

	var found bool
	err := r.engine.withConn(ctx, func(conn *sqlx.Conn) error {
		q := conn.Rebind(query)
		r.engine.trace(ctx, "exists", r.table, q, len(args))
		if err := conn.GetContext(ctx, &found, q, args...); err != nil {
			return r.engine.executionError(ctx, "exists", r.table, err)
		}
		return nil
	})
	return found, err
}

func (r *Repository[T]) selectRows(ctx context.Context, op, query string, args []any) ([]T, error) {
	out := []T{}
	err := r.engine.withConn(ctx, func(conn *sqlx.Conn) error {
		q := conn.Rebind(query)
		r.engine.trace(ctx, op, r.table, q, len(args))
		if err := conn.SelectContext(ctx, &out, q, args...); err != nil {
			return r.engine.executionError(ctx, op, r.table, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
