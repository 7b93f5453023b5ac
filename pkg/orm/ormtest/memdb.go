// pkg/orm/ormtest/memdb.go

// Package ormtest provides an in-process database/sql driver for exercising
// the orm package without a server.
package ormtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// MemDB is an in-process store understanding exactly the statement shapes the
// engine generates, with single-column equality predicates. Every statement and
// its driver-level args are recorded.
type MemDB struct {
	mu       sync.Mutex
	tables   map[string]*memTable
	log      []Statement
	failWith error // returned by the next statement, then cleared
}

type memTable struct {
	columns []string
	rows    []map[string]driver.Value
}

// Statement is one recorded statement with its driver-level args.
type Statement struct {
	Query string
	Args  []driver.Value
}

var (
	insertRe      = regexp.MustCompile(`^INSERT INTO (\w+) \(([\w,]+)\) VALUES \(([?,]+)\)$`)
	updateRe      = regexp.MustCompile(`^UPDATE (\w+) SET (.+) WHERE (\w+) = \?$`)
	deleteRe      = regexp.MustCompile(`^DELETE FROM (\w+) WHERE (\w+) = \?$`)
	selectRe      = regexp.MustCompile(`^SELECT \* FROM (\w+)(?: WHERE (\w+) = \?)?$`)
	existsRe      = regexp.MustCompile(`^SELECT EXISTS\(SELECT 1 FROM (\w+)(?: WHERE (\w+) = \?)?\)$`)
	dollarParamRe = regexp.MustCompile(`\$\d+`)
)

// New returns an empty MemDB.
func New() *MemDB {
	return &MemDB{tables: make(map[string]*memTable)}
}

// CreateTable creates an empty table. Selected rows list columns in this order.
func (m *MemDB) CreateTable(name string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memTable{columns: columns}
}

// Statements returns every statement received so far.
func (m *MemDB) Statements() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.log...)
}

// LastStatement returns the most recent statement, or the zero Statement.
func (m *MemDB) LastStatement() Statement {
	log := m.Statements()
	if len(log) == 0 {
		return Statement{}
	}
	return log[len(log)-1]
}

// RowCount returns the number of rows stored in table.
func (m *MemDB) RowCount(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[table]; ok {
		return len(t.rows)
	}
	return 0
}

// begin records the statement and normalizes $n placeholders back to '?'.
func (m *MemDB) begin(query string, args []driver.NamedValue) (string, []driver.Value, error) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	m.log = append(m.log, Statement{Query: query, Args: vals})
	if err := m.failWith; err != nil {
		m.failWith = nil
		return "", nil, err
	}
	q := dollarParamRe.ReplaceAllString(query, "?")
	if n := strings.Count(q, "?"); n != len(vals) {
		return "", nil, fmt.Errorf("memdb: statement has %d placeholders but %d args", n, len(vals))
	}
	return q, vals, nil
}

func (m *MemDB) table(name string) (*memTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("memdb: table %q doesn't exist", name)
	}
	return t, nil
}

func (m *MemDB) exec(query string, args []driver.NamedValue) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, vals, err := m.begin(query, args)
	if err != nil {
		return 0, err
	}

	switch {
	case insertRe.MatchString(q):
		g := insertRe.FindStringSubmatch(q)
		t, err := m.table(g[1])
		if err != nil {
			return 0, err
		}
		row := make(map[string]driver.Value)
		for i, c := range strings.Split(g[2], ",") {
			row[c] = vals[i]
		}
		t.rows = append(t.rows, row)
		return 1, nil

	case updateRe.MatchString(q):
		g := updateRe.FindStringSubmatch(q)
		t, err := m.table(g[1])
		if err != nil {
			return 0, err
		}
		sets := strings.Split(g[2], ", ")
		key := vals[len(vals)-1]
		var n int64
		for _, row := range t.rows {
			if !valuesEqual(row[g[3]], key) {
				continue
			}
			for i, s := range sets {
				row[strings.TrimSuffix(s, " = ?")] = vals[i]
			}
			n++
		}
		return n, nil

	case deleteRe.MatchString(q):
		g := deleteRe.FindStringSubmatch(q)
		t, err := m.table(g[1])
		if err != nil {
			return 0, err
		}
		kept := t.rows[:0]
		var n int64
		for _, row := range t.rows {
			if g[2] == "" || valuesEqual(row[g[2]], vals[0]) {
				n++
				continue
			}
			kept = append(kept, row)
		}
		t.rows = kept
		return n, nil
	}
	return 0, fmt.Errorf("memdb: syntax error near %q", q)
}

func (m *MemDB) query(query string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, vals, err := m.begin(query, args)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case existsRe.MatchString(q):
		g := existsRe.FindStringSubmatch(q)
		t, err := m.table(g[1])
		if err != nil {
			return nil, nil, err
		}
		found := int64(0)
		for _, row := range t.rows {
			if g[2] == "" || valuesEqual(row[g[2]], vals[0]) {
				found = 1
				break
			}
		}
		return []string{"result"}, [][]driver.Value{{found}}, nil

	case selectRe.MatchString(q):
		g := selectRe.FindStringSubmatch(q)
		t, err := m.table(g[1])
		if err != nil {
			return nil, nil, err
		}
		var out [][]driver.Value
		for _, row := range t.rows {
			if g[2] != "" && !valuesEqual(row[g[2]], vals[0]) {
				continue
			}
			r := make([]driver.Value, len(t.columns))
			for i, c := range t.columns {
				r[i] = row[c]
			}
			out = append(out, r)
		}
		return append([]string(nil), t.columns...), out, nil
	}
	return nil, nil, fmt.Errorf("memdb: syntax error near %q", q)
}

func valuesEqual(a, b driver.Value) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

/* -------------------------------------------------------
   database/sql driver plumbing
--------------------------------------------------------*/

type memConnector struct{ db *MemDB }

func (c *memConnector) Connect(context.Context) (driver.Conn, error) { return &memConn{db: c.db}, nil }
func (c *memConnector) Driver() driver.Driver                        { return memDriver{} }

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("memDriver.Open should not be called; use sql.OpenDB with connector")
}

type memConn struct{ db *MemDB }

func (c *memConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *memConn) Close() error                        { return nil }
func (c *memConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *memConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	n, err := c.db.exec(query, args)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(n), nil
}

func (c *memConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cols, data, err := c.db.query(query, args)
	if err != nil {
		return nil, err
	}
	return &memRows{cols: cols, data: data}, nil
}

type memRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *memRows) Columns() []string { return r.cols }
func (r *memRows) Close() error      { return nil }
func (r *memRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

// FailNext makes the next statement fail with err.
func (m *MemDB) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Open returns a pool over m that rebinds placeholders for driverName and
// tolerates result columns without a destination field.
func (m *MemDB) Open(driverName string, maxOpen int) *sqlx.DB {
	sqlDB := sql.OpenDB(&memConnector{db: m})
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	return sqlx.NewDb(sqlDB, driverName).Unsafe()
}

// Pool hands out connections from DB.
type Pool struct{ DB *sqlx.DB }

// Acquire takes a connection from the pool.
func (p Pool) Acquire(ctx context.Context) (*sqlx.Conn, error) { return p.DB.Connx(ctx) }

// FailingPool never hands out a connection.
type FailingPool struct{ Err error }

// Acquire always returns p.Err.
func (p FailingPool) Acquire(context.Context) (*sqlx.Conn, error) { return nil, p.Err }
