package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"userhub/internal/config"
	"userhub/internal/db"
	apperrors "userhub/internal/errors"
	"userhub/internal/limiter"
	"userhub/internal/logging"
	"userhub/internal/password"
	"userhub/internal/service"
)

func main() {
	n := flag.Int("n", 25, "number of demo users to create")
	workers := flag.Int("workers", runtime.NumCPU(), "concurrent password hashes")
	flag.Parse()

	if err := run(*n, *workers); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(n, workers int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pw := os.Getenv("SEED_PASSWORD")
	if pw == "" {
		return errors.New("SEED_PASSWORD is required")
	}

	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel})
	defer logCloser.Close()

	ctx := context.Background()
	store, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(ctx)

	hasher, err := password.New(cfg.PasswordAlgo, cfg.BcryptCost)
	if err != nil {
		return err
	}

	users := service.NewUserService(store.Users, hasher, nil, cfg.SoftDelete(), logger)

	logger.Info("seeding demo users", "count", n, "store", store.Driver, "workers", workers)
	created, skipped, err := seedUsers(ctx, users, limiter.New(workers), n, pw, logger)
	if err != nil {
		return err
	}

	logger.Info("seed completed", "created", created, "skipped", skipped)
	return nil
}

type seedResult struct {
	created bool
}

// seedUsers creates demo users user-01 .. user-NN. Users whose email is
// already taken are skipped, so the command can be rerun.
func seedUsers(ctx context.Context, users service.UserService, l *limiter.Limiter, n int, pw string, logger *slog.Logger) (created, skipped int, err error) {
	tasks := make([]limiter.Task[seedResult], n)
	for i := range tasks {
		name := fmt.Sprintf("user-%02d", i+1)
		email := fmt.Sprintf("user%02d@example.com", i+1)
		tasks[i] = func(ctx context.Context) (seedResult, error) {
			_, err := users.Create(ctx, name, email, pw)
			if errors.Is(err, apperrors.ErrConflict) {
				logger.Debug("user exists, skipping", "email", email)
				return seedResult{}, nil
			}
			if err != nil {
				return seedResult{}, fmt.Errorf("create %s: %w", email, err)
			}
			return seedResult{created: true}, nil
		}
	}

	results, err := limiter.All(ctx, l, tasks)
	for _, r := range results {
		if r.created {
			created++
		}
	}
	if err != nil {
		return created, 0, err
	}
	return created, n - created, nil
}
