package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"userhub/internal/client"
	"userhub/internal/limiter"
	"userhub/internal/logging"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	concurrency := flag.Int("concurrency", 2, "maximum requests in flight")
	requests := flag.Int("requests", 5, "number of listing pages to fetch")
	pageSize := flag.Int("page-size", 10, "users per page")
	flag.Parse()

	logger := logging.NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
	if err := run(logger, *baseURL, *concurrency, *requests, *pageSize); err != nil {
		log.Fatalf("client: %v", err)
	}
}

func run(logger *slog.Logger, baseURL string, concurrency, requests, pageSize int) error {
	email, pw := os.Getenv("CLIENT_EMAIL"), os.Getenv("CLIENT_PASSWORD")
	if email == "" || pw == "" {
		return errors.New("CLIENT_EMAIL and CLIENT_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	l := limiter.New(concurrency)
	if err := demoDelays(ctx, logger, l, requests); err != nil {
		return err
	}

	c := client.New(baseURL, nil)
	login, err := c.Login(ctx, email, pw)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logger.Info(login.Message, "expires_at", login.ExpiresAt)

	me, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("me: %w", err)
	}
	logger.Info("identity", "user_id", me.User.UserID, "name", me.User.Name)

	pages := make([]int, requests)
	for i := range pages {
		pages[i] = i + 1
	}
	start := time.Now()
	results, err := c.ListUsersBounded(ctx, l, pages, pageSize)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, p := range results {
		logger.Info("page", "page", p.Page, "items", len(p.Items), "total", p.Total, "total_pages", p.TotalPages)
	}
	logger.Info("listing done", "requests", requests, "concurrency", l.Size(), "elapsed", time.Since(start))
	return nil
}

// demoDelays runs n timed tasks through l and logs when each starts and
// finishes, showing at most l.Size() running together.
func demoDelays(ctx context.Context, logger *slog.Logger, l *limiter.Limiter, n int) error {
	tasks := make([]limiter.Task[time.Duration], n)
	for i := range tasks {
		d := time.Duration(n-i) * 100 * time.Millisecond
		tasks[i] = func(ctx context.Context) (time.Duration, error) {
			logger.Info("task started", "task", i+1, "active", l.ActiveCount(), "pending", l.PendingCount())
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			logger.Info("task finished", "task", i+1, "slept", d)
			return d, nil
		}
	}

	results, err := limiter.All(ctx, l, tasks)
	if err != nil {
		return fmt.Errorf("delay demo: %w", err)
	}
	logger.Info("delay demo done", "results", results)
	return nil
}
