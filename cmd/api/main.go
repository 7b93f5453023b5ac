// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "talos-store/internal"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error("Failed to initialize application", "error", err)
		return 1
	}

	ln, err := net.Listen("tcp", ":"+application.Config.ServerPort)
	if err != nil {
		application.Logger.Error("Failed to listen", "port", application.Config.ServerPort, "error", err)
		return 1
	}
	if err := serve(ctx, application, ln); err != nil {
		return 1
	}
	return 0
}

// serve handles requests on ln until ctx is done, then drains in-flight
// requests and releases the connection pool. The pool is opened lazily, so
// its state at startup is normally "uninitialized".
func serve(ctx context.Context, application *app.Application, ln net.Listener) error {
	logger := application.Logger
	server := &http.Server{
		Handler:      application.HTTPHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"addr", ln.Addr().String(),
			"pool", application.Config.DB,
			"pool_state", application.DB.State().String())
		serveErr <- server.Serve(ln)
	}()

	var failed error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			failed = err
		}
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server...", "pool_state", application.DB.State().String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		failed = errors.Join(failed, err)
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		failed = errors.Join(failed, err)
	}
	return failed
}
