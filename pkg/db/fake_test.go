// pkg/db/fake_test.go
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

// countingConnector hands out no-op connections and counts how many were opened.
type countingConnector struct {
	opened atomic.Int32
}

func (c *countingConnector) Connect(context.Context) (driver.Conn, error) {
	c.opened.Add(1)
	return fakeConn{}, nil
}

func (c *countingConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("fakeDriver.Open should not be called; use sql.OpenDB with connector")
}

type fakeConn struct{}

func (fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (fakeConn) Close() error                        { return nil }
func (fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

// newFakePool returns a pool over a countingConnector limited to maxOpen connections.
func newFakePool(maxOpen int) (*sqlx.DB, *countingConnector) {
	c := &countingConnector{}
	sqlDB := sql.OpenDB(c)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	return sqlx.NewDb(sqlDB, "mysql"), c
}
