// Command backfill-embeddings enqueues River embedding jobs for ideas stored without an
// embedding, such as CSV imports without vectors or posts made while the provider was
// down. The API's workers process the jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"

	"github.com/ideaspark/hub/internal/jobs"
	"github.com/ideaspark/hub/internal/repository"
	"github.com/ideaspark/hub/pkg/database"
)

var errIncompleteRun = errors.New("some jobs could not be enqueued")

type backfillOptions struct {
	databaseURL string
	maxAttempts int
	pageSize    int
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cobra.Command {
	opts := &backfillOptions{}

	cmd := &cobra.Command{
		Use:   "backfill-embeddings",
		Short: "Enqueue embedding jobs for ideas without an embedding",
		Long: "Pages through ideas whose embedding is NULL and inserts one unique River job per idea. " +
			"Ideas that already have a pending job are counted as duplicates.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.SetOut(out)

	cmd.Flags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", envInt("EMBEDDING_MAX_ATTEMPTS", 3), "River attempts per embedding job")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", envInt("BACKFILL_PAGE_SIZE", jobs.DefaultBackfillPageSize), "Idea IDs read per page")

	return cmd
}

func runBackfill(ctx context.Context, opts *backfillOptions, out io.Writer) error {
	if opts.databaseURL == "" {
		return errors.New("a database URL is required (--database-url or DATABASE_URL)")
	}

	if opts.maxAttempts <= 0 {
		return fmt.Errorf("--max-attempts must be positive, got %d", opts.maxAttempts)
	}

	db, err := database.NewPostgresPool(ctx, opts.databaseURL, database.WithVectorTypes())
	if err != nil {
		return err
	}
	defer db.Close()

	// insert-only: no queues, no workers
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}

	stats, err := jobs.Backfill(ctx, repository.NewIdeasRepository(db), jobs.NewEnqueuer(riverClient, opts.maxAttempts), opts.pageSize)
	if err != nil {
		return fmt.Errorf("backfill stopped after %d enqueued: %w", stats.Enqueued, err)
	}

	slog.Info("Backfill complete",
		"scanned", stats.Scanned,
		"enqueued", stats.Enqueued,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
	)

	_, _ = fmt.Fprintf(out, "enqueued %d embedding job(s), %d already queued\n", stats.Enqueued, stats.Duplicates)

	if stats.Errors > 0 {
		return fmt.Errorf("%w: %d failed", errIncompleteRun, stats.Errors)
	}

	return nil
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}

	return def
}
