package category

import (
	"context"
	"database/sql"

	"github.com/wichananm65/storefront-backend/internal/database"
)

// PostgresRepository implements Repository using Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns categories ordered by sort_order then id.
func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug, image_url, sort_order FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ImageURL, &c.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, c Category) (Category, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, image_url, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Slug, c.ImageURL, c.SortOrder,
	).Scan(&c.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Category{}, ErrSlugExists
		}
		return Category{}, err
	}
	return c, nil
}
