package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wichananm65/storefront-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	profileColumns = `id, email, full_name, phone, role, COALESCE(password_hash, ''), created_at`

	insertProfileQuery = `
		INSERT INTO profiles (id, email, full_name, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING created_at
	`
	getProfileByIDQuery    = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	getProfileByEmailQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	searchProfilesQuery    = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE full_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
		ORDER BY full_name
		LIMIT $2
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p Profile) (Profile, error) {
	err := r.db.QueryRowContext(ctx, insertProfileQuery,
		p.ID, p.Email, p.FullName, p.Phone, p.Role, p.PasswordHash,
	).Scan(&p.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Profile{}, ErrEmailExists
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	return r.getOne(ctx, getProfileByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return r.getOne(ctx, getProfileByEmailQuery, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) Search(ctx context.Context, q string, limit int) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, searchProfilesQuery, database.ContainsPattern(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(s rowScanner) (Profile, error) {
	var p Profile
	err := s.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.PasswordHash, &p.CreatedAt)
	return p, err
}
