package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type migration struct {
	version string
	name    string
	up      func(context.Context, *bun.DB) error
}

// migrations run in order, each exactly once
var migrations = []migration{
	{"001", "create_reviews_table", init001CreateReviewsTable},
	{"002", "index_reviews_created_at", init002IndexReviewsCreatedAt},
	{"003", "create_review_previews_table", init003CreateReviewPreviewsTable},
}

// runMigrations runs all Bun migrations
func (b *BunDB) runMigrations(ctx context.Context) error {
	// Create a simple migrations tracking table
	_, err := b.db.NewCreateTable().
		Model((*BunSchemaMigration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	var applied []BunSchemaMigration
	err = b.db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = b.db.NewInsert().
			Model(&BunSchemaMigration{Version: m.version, AppliedAt: time.Now()}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: reviews table
func init001CreateReviewsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunReview)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Migration 002: listing is newest first
func init002IndexReviewsCreatedAt(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateIndex().
		Model((*BunReview)(nil)).
		Index("reviews_created_at_idx").
		Column("created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// Migration 003: preview images live with their review, not in memory
func init003CreateReviewPreviewsTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*BunReviewPreview)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
