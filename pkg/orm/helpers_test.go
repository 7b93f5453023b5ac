// pkg/orm/helpers_test.go
package orm

import (
	"testing"

	"talos-store/pkg/orm/ormtest"
)

// newMemEngine creates an Engine over a fresh in-process store using driverName's placeholder style.
func newMemEngine(t *testing.T, driverName string, opts ...Option) (*Engine, *ormtest.MemDB) {
	t.Helper()
	mem := ormtest.New()
	pool := mem.Open(driverName, 4)
	t.Cleanup(func() { _ = pool.Close() })
	return NewEngine(ormtest.Pool{DB: pool}, opts...), mem
}
