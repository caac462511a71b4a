package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// schemaStatements create the ideas store. Every statement is idempotent.
// The embedding column has no fixed dimension so the embedding model can change without a migration.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS ideas (
		id BIGSERIAL PRIMARY KEY,
		author TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		embedding vector,
		is_public BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ideas_author ON ideas (author)`,
	`CREATE INDEX IF NOT EXISTS idx_ideas_missing_embedding ON ideas (id) WHERE embedding IS NULL`,
}

// Migrate applies the ideas schema over a dedicated connection. Run it before opening a pool
// that registers pgvector types, since registration needs the vector extension to exist.
func Migrate(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}

	defer func() {
		if err := conn.Close(ctx); err != nil {
			slog.Warn("close migration connection", "error", err)
		}
	}()

	for _, stmt := range schemaStatements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			head, _, _ := strings.Cut(stmt, "\n")

			return fmt.Errorf("apply schema statement %q: %w", head, err)
		}
	}

	return nil
}

// MigrateRiver brings the River job tables up to the version of the linked River module.
func MigrateRiver(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("migrate river: %w", err)
	}

	if len(res.Versions) > 0 {
		slog.Info("River migrations applied", "count", len(res.Versions))
	}

	return nil
}
