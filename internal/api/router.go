// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"talos-store/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(userHandler *handler.UserHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)                       // Add a request ID to the context
	r.Use(middleware.RealIP)                          // Use the real IP address
	r.Use(middleware.Logger)                          // Log HTTP requests
	r.Use(middleware.Recoverer)                       // Recover from panics and return 500
	r.Use(middleware.Timeout(handler.DefaultTimeout)) // Set a default timeout for requests

	r.Get("/health", userHandler.Health)
	r.Get("/hello", userHandler.Hello)

	// Account endpoints
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Post("/user_exist", userHandler.UserExist)
	r.Post("/reset_password", userHandler.ResetPassword)

	// User resource routes
	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.ListUsers)
		r.Get("/{userID}", userHandler.GetUser)
		r.Put("/{userID}", userHandler.UpdateUser)
		r.Delete("/{userID}", userHandler.DeleteUser)
	})

	logger.Debug("HTTP routes registered")
	return r
}
