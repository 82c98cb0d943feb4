// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main.go hands it a Config, and New wires the
// whole dependency chain in one place —
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handler layer
// ever sees HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rahat/lenslock/internal/auth"
	"github.com/rahat/lenslock/internal/handler"
	"github.com/rahat/lenslock/internal/middleware"
	sqliteRepo "github.com/rahat/lenslock/internal/repository/sqlite"
	"github.com/rahat/lenslock/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port          int
	DBPath        string // path to the SQLite database file
	JWTSecret     string // HMAC secret for session tokens
	SecureCookies bool   // set Secure on session cookies (enable behind TLS)
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain assembled.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the services, and binds routes.
//
// ROUTE MAP:
//
//	POST /auth/register       → create account, set session cookie
//	POST /auth/login          → verify credentials, set session cookie
//	POST /auth/logout         → clear session cookie
//	GET  /api/me              → profile of the authenticated user
//	GET  /api/photos          → gallery with unlocked flags (auth optional)
//	GET  /api/photos/{id}     → conditional detail view (auth required)
//	POST /api/photos          → publish (creators only)
//	GET  /api/wallet          → token balance
//	POST /api/wallet/add      → credit tokens
//	POST /api/unlock          → spend tokens to unlock a photo
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	users := s.db.Users()
	photos := s.db.Photos()
	grants := s.db.Grants()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	walletService := service.NewWalletService(users, s.logger)
	photoService := service.NewPhotoService(photos, grants, users, s.logger)
	unlockService := service.NewUnlockService(users, photos, grants, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.config.SecureCookies, s.logger)
	walletHandler := handler.NewWalletHandler(walletService, s.logger)
	photoHandler := handler.NewPhotoHandler(photoService, s.logger)
	unlockHandler := handler.NewUnlockHandler(unlockService, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// The gallery is public; logged-in viewers get unlocked flags.
		r.With(auth.OptionalAuth(tokens)).Get("/photos", photoHandler.HandleList)

		// Everything else needs a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/photos/{id}", photoHandler.HandleGetByID)
			r.Post("/photos", photoHandler.HandleCreate)
			r.Get("/wallet", walletHandler.HandleGetBalance)
			r.Post("/wallet/add", walletHandler.HandleAddTokens)
			r.Post("/unlock", unlockHandler.HandleUnlock)
		})
	})

	return nil
}

// Start runs the HTTP server and handles graceful shutdown: stop accepting
// connections, drain in-flight requests (30s), then close the database so
// the WAL is flushed and the file lock released.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
