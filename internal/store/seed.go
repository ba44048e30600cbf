package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	"github.com/ArtemDzuba/bakery-bot/internal/seed"
)

const (
	insertCategory = `INSERT INTO categories (id, name, emoji, position) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`
	insertProduct = `INSERT INTO products (id, category_id, name, description, price, photo_owner_id, photo_id, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`
)

// Seed inserts the catalog rows that are not in the database yet. Existing
// rows are never updated, so running it on every start is safe.
func Seed(ctx context.Context, db *sqlx.DB, cat seed.Catalog) error {
	start := time.Now()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categories, products int64
	for _, c := range cat.Categories {
		res, err := tx.ExecContext(ctx, tx.Rebind(insertCategory), c.ID, c.Name, c.Emoji, c.Position)
		if err != nil {
			return fmt.Errorf("seed category %d: %w", c.ID, err)
		}
		categories += affected(res)
	}
	for _, p := range cat.Products {
		res, err := tx.ExecContext(ctx, tx.Rebind(insertProduct),
			p.ID, p.CategoryID, p.Name, p.Description, p.Price, p.Photo.OwnerID, p.Photo.MediaID, p.Position,
		)
		if err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
		products += affected(res)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}

	logger.SEED.LogAttrs(ctx, slog.LevelInfo, "catalog seeded",
		slog.String("event", "summary"),
		slog.Int64("categories", categories),
		slog.Int64("products", products),
		slog.Int("catalog_products", len(cat.Products)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func affected(res interface{ RowsAffected() (int64, error) }) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
