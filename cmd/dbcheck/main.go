// cmd/dbcheck/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	app "talos-store/internal"
	"talos-store/pkg/db"
	"talos-store/pkg/orm"
)

// person is the record the check round-trips. Its key column is id.
type person struct {
	UserID int    `db:"id"`
	Name   string `db:"name"`
	Age    int    `db:"age"`
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the check and returns the process exit code. The pool is
// closed on every path.
func realMain(args []string, opts ...db.ManagerOption) int {
	flags := flag.NewFlagSet("dbcheck", flag.ContinueOnError)
	table := flags.String("table", "person", "table holding (id, name, age) columns")
	name := flags.String("name", "LiLei", "name of the probe row")
	age := flags.Int("age", 20, "age of the probe row")
	id := flags.Int("id", 1, "id of the probe row")
	timeout := flags.Duration("timeout", 30*time.Second, "overall deadline")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger, cfg, err := app.LoadEnvironment()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	manager := db.NewManager(cfg.DB, logger, opts...)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Error("Failed to close database pool", "error", err)
		}
	}()

	reg := orm.NewRegistry()
	if err := orm.Register[person](reg, *table); err != nil {
		logger.Error("Failed to register probe entity", "error", err)
		return 1
	}
	engine := orm.NewEngine(manager, orm.WithRegistry(reg), orm.WithLogger(logger))

	if err := run(ctx, engine, person{UserID: *id, Name: *name, Age: *age}); err != nil {
		logger.Error("Database check failed", "table", *table, "pool", cfg.DB, "error", err)
		return 1
	}
	logger.Info("Database check passed", "table", *table, "pool_state", manager.State().String())
	return 0
}

// run inserts p, reads it back by name, checks existence, deletes it and
// checks it is gone.
func run(ctx context.Context, engine *orm.Engine, p person) error {
	repo, err := orm.NewRepository[person](engine)
	if err != nil {
		return err
	}

	if _, err := repo.Insert(ctx, p); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	found, err := repo.Query(ctx, "name = ?", orm.Classify(p.Name))
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(found) != 1 || found[0].Age != p.Age {
		return fmt.Errorf("query: expected one row with age %d, got %+v", p.Age, found)
	}

	ok, err := repo.Exists(ctx, "name = ?", orm.Classify(p.Name))
	if err != nil {
		return fmt.Errorf("exists: %w", err)
	}
	if !ok {
		return errors.New("exists: inserted row not visible")
	}

	n, err := repo.Delete(ctx, "name", p.Name)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("delete: expected 1 affected row, got %d", n)
	}

	if ok, err = repo.Exists(ctx, "name = ?", orm.Classify(p.Name)); err != nil {
		return fmt.Errorf("exists after delete: %w", err)
	}
	if ok {
		return errors.New("exists after delete: row still visible")
	}
	return nil
}
