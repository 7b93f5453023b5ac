// pkg/orm/statements.go
package orm

import (
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
)

// Statement text uses '?' placeholders throughout; it is rebound to the
// driver's placeholder style right before execution.

func insertStatement(table string, columns []string) string {
	return "INSERT INTO " + table + " (" + strings.Join(columns, ",") + ") VALUES (" + placeholders(len(columns)) + ")"
}

func updateStatement(table string, columns []string, keyField string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + keyField + " = ?"
}

func deleteStatement(table, keyField string) string {
	return "DELETE FROM " + table + " WHERE " + keyField + " = ?"
}

// An empty or blank WHERE fragment matches every row.

func selectStatement(table, where string) string {
	if strings.TrimSpace(where) == "" {
		return "SELECT * FROM " + table
	}
	return "SELECT * FROM " + table + " WHERE " + where
}

func existsStatement(table, where string) string {
	if strings.TrimSpace(where) == "" {
		return "SELECT EXISTS(SELECT 1 FROM " + table + ")"
	}
	return "SELECT EXISTS(SELECT 1 FROM " + table + " WHERE " + where + ")"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return "?" + strings.Repeat(",?", n-1)
}

// statementKey identifies generated statement text. Caller-supplied WHERE
// clauses are never cached.
type statementKey struct {
	op      string
	table   string
	key     string
	columns string
}

// statementCache is a bounded, concurrency-safe LRU of generated statement text.
type statementCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newStatementCache(maxEntries int) *statementCache {
	if maxEntries <= 0 {
		return nil
	}
	return &statementCache{cache: lru.New(maxEntries)}
}

// get returns the cached statement for k, building and storing it on a miss.
// A nil cache always builds.
func (c *statementCache) get(k statementKey, build func() string) string {
	if c == nil {
		return build()
	}
	c.mu.Lock()
	if v, ok := c.cache.Get(k); ok {
		c.mu.Unlock()
		return v.(string)
	}
	c.mu.Unlock()

	stmt := build()
	c.mu.Lock()
	c.cache.Add(k, stmt)
	c.mu.Unlock()
	return stmt
}

func (c *statementCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
