// Copyright 2026 The Tempora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/config"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/identity"
	"github.com/temporahq/tempora/internal/mail"
	"github.com/temporahq/tempora/internal/observability/logger"
	"github.com/temporahq/tempora/internal/observability/metrics"
	"github.com/temporahq/tempora/internal/observability/tracing"
	"github.com/temporahq/tempora/internal/report"
	"github.com/temporahq/tempora/internal/session"
	"github.com/temporahq/tempora/internal/store/postgres"
	"github.com/temporahq/tempora/internal/tenant"
	"github.com/temporahq/tempora/internal/token"
	transportHTTP "github.com/temporahq/tempora/internal/transport/http"
	"github.com/temporahq/tempora/internal/workspace"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting tempora time tracking backend")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.Database,
		SSLMode:        cfg.Database.SSLMode,
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		MaxIdleConns:   cfg.Database.MaxIdleConns,
		AcquireTimeout: cfg.Database.AcquireTimeout,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	userRepo := postgres.NewUserRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	entryRepo := postgres.NewTimeEntryRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Initialize helpers
	auditLogger := audit.NewRecorder(auditRepo, 256)
	defer auditLogger.Close()

	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	mailer := mail.NewLogSender()

	sessionCodec, err := session.NewCodec(cfg.Auth.SigningKey, cfg.Auth.SessionLifetime)
	if err != nil {
		slog.Error("failed to initialize session codec", logger.Error(err))
		os.Exit(1)
	}

	// Initialize services
	identityService := identity.NewService(userRepo, passwordHasher)
	tenantService := tenant.NewService(db, tenantRepo, userRepo, identityService, auditLogger)
	tokenService := token.NewService(
		db,
		tokenRepo,
		userRepo,
		identityService,
		mailer,
		auditLogger,
		cfg.Mail.BaseURL,
		cfg.Tokens.ResetTTL,
		cfg.Tokens.InviteTTL,
	)
	workspaceService := workspace.NewService(db, clientRepo, projectRepo, taskRepo, entryRepo, auditLogger)

	// Rate limiters
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	loginLimiter := transportHTTP.NewFixedWindowLimiter(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	resetLimiter := transportHTTP.NewFixedWindowLimiter(cfg.RateLimit.ResetLimit, cfg.RateLimit.ResetWindow)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		identityService,
		tenantService,
		tokenService,
		workspaceService,
		sessionCodec,
		auditLogger,
		report.NewTextRenderer(),
		db,
		loginLimiter,
		resetLimiter,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter, meter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}
