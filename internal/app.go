// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	router "talos-store/internal/api"
	"talos-store/internal/api/handler"
	"talos-store/internal/config"
	"talos-store/internal/domain"
	"talos-store/internal/repository"
	"talos-store/internal/repository/sqlstore"
	"talos-store/internal/service"
	"talos-store/internal/util"
	"talos-store/pkg/db"
	"talos-store/pkg/orm"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *db.Manager

	// Persistence
	Registry *orm.Registry
	Engine   *orm.Engine

	// Repositories
	UserRepository repository.UserRepository

	// Services
	UserService service.UserService

	// HTTP API
	HTTPHandler http.Handler

	openDB db.OpenFunc
	hasher service.PasswordHasher
}

// Option configures an Application before Initialize.
type Option func(*Application)

// WithOpenFunc replaces how the connection pool is constructed.
func WithOpenFunc(open db.OpenFunc) Option {
	return func(app *Application) { app.openDB = open }
}

// WithPasswordHasher replaces the password hasher.
func WithPasswordHasher(h service.PasswordHasher) Option {
	return func(app *Application) { app.hasher = h }
}

// LoadEnvironment loads .env, installs the default logger at LOG_LEVEL and
// resolves the configuration. The returned logger is usable even on error.
func LoadEnvironment() (*slog.Logger, *config.AppConfig, error) {
	if err := config.LoadDotEnv(config.DefaultDotEnvPath); err != nil {
		return util.GetLogger(), nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := util.InitLogger(os.Getenv(config.EnvLogLevel))
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		return logger, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return logger, cfg, nil
}

// NewApplication creates a new Application instance.
func NewApplication(opts ...Option) *Application {
	app := &Application{}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Initialize initializes all application components. No database connection
// is made here; the pool is created on the first request that needs it.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	logger, cfg, err := LoadEnvironment()
	app.Logger = logger
	if err != nil {
		return err
	}
	app.Config = cfg
	app.Logger.Info("Application configuration loaded successfully.", "pool", cfg.DB)

	// 2. Connection pool manager
	var dbOpts []db.ManagerOption
	if app.openDB != nil {
		dbOpts = append(dbOpts, db.WithOpenFunc(app.openDB))
	}
	app.DB = db.NewManager(app.Config.DB, app.Logger, dbOpts...)

	// 3. Entity registry and query engine
	app.Registry = orm.NewRegistry()
	if err := orm.Register[domain.User](app.Registry, domain.UserTable); err != nil {
		return fmt.Errorf("failed to register entities: %w", err)
	}
	app.Engine = orm.NewEngine(app.DB, orm.WithRegistry(app.Registry), orm.WithLogger(app.Logger))

	// 4. Initialize Repositories
	userStore, err := sqlstore.NewUserStore(app.Engine)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	app.UserRepository = userStore
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.UserService = service.NewUserService(app.UserRepository, app.hasher)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	userHandler := handler.NewUserHandler(app.UserService, app.DB, app.Logger)
	app.HTTPHandler = router.NewRouter(userHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.", "state", app.DB.State().String())
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
