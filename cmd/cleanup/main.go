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

// Command cleanup purges single-use tokens whose expiry has passed.
// Meant for a cron schedule; redemption never depends on it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/config"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/identity"
	"github.com/temporahq/tempora/internal/mail"
	"github.com/temporahq/tempora/internal/store/postgres"
	"github.com/temporahq/tempora/internal/token"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

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
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	userRepo := postgres.NewUserRepository(db)
	tokenService := token.NewService(
		db,
		postgres.NewTokenRepository(db),
		userRepo,
		identity.NewService(userRepo, hasher),
		mail.NewLogSender(),
		audit.NewSlogLogger(),
		cfg.Mail.BaseURL,
		cfg.Tokens.ResetTTL,
		cfg.Tokens.InviteTTL,
	)

	n, err := tokenService.PurgeExpired(ctx, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d expired tokens.\n", n)
}
