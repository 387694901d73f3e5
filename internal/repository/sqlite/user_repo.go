package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vedran77/nestmate/internal/domain"
)

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT id, display_name, picture_url, role FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u := row.toDomain()
	return &u, nil
}

// Upsert writes a profile projection. The profile service owns users; this
// exists for single-node setups and fixtures.
func (r *UserRepo) Upsert(ctx context.Context, u domain.UserProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, picture_url, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			picture_url = excluded.picture_url,
			role = excluded.role`,
		u.ID, u.DisplayName, u.PictureURL, u.Role)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}
