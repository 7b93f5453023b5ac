// pkg/db/open.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // PostgreSQL driver
)

// Errors returned by the pool layer.
var (
	ErrInitialization    = errors.New("db: connection pool initialization failed")
	ErrAcquireTimeout    = errors.New("db: timed out acquiring a connection")
	ErrUnsupportedDriver = errors.New("db: unsupported database URL scheme")
)

// ParseURL resolves a connection URL to a database/sql driver name and DSN.
// mysql:// URLs are converted to go-sql-driver DSNs with time parsing in UTC;
// query parameters are passed through as session variables.
// postgres:// and postgresql:// URLs are handed to lib/pq.
func ParseURL(raw string) (driverName, dsn string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mysql":
		cfg := mysql.NewConfig()
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.Net = "tcp"
		port := u.Port()
		if port == "" {
			port = "3306"
		}
		cfg.Addr = net.JoinHostPort(u.Hostname(), port)
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		for k, vs := range u.Query() {
			if len(vs) == 0 {
				continue
			}
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[k] = vs[0]
		}
		return "mysql", cfg.FormatDSN(), nil
	case "postgres", "postgresql":
		dsn, err := pq.ParseURL(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid postgres URL: %w", err)
		}
		return "postgres", dsn, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, u.Scheme)
	}
}

// Open creates the connection pool described by cfg, verifies it with a ping
// and opens cfg.MinConnections connections up front.
// The returned handle ignores result columns that have no destination field.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	cfg = cfg.WithDefaults()

	driverName, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s pool: %w", driverName, err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	// Ping the database to verify the connection
	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driverName, err)
	}

	if err = warmUp(pingCtx, db.DB, cfg.MinConnections); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %d initial connections: %w", cfg.MinConnections, err)
	}

	return db.Unsafe(), nil
}

// warmUp holds n connections at once and then returns them to the idle set.
func warmUp(ctx context.Context, db *sql.DB, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < n; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
	}
	return nil
}
