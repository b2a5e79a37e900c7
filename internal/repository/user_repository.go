package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := "SELECT id, google_id, email, name, profile_picture, created_at, updated_at FROM users WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.GoogleSubject, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &user, nil
}

// Upsert keys users on email; signing in again refreshes the profile fields.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) (int64, error) {
	query := `
		INSERT INTO users (google_id, email, name, profile_picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			google_id = EXCLUDED.google_id,
			name = EXCLUDED.name,
			profile_picture = EXCLUDED.profile_picture,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, user.GoogleSubject, user.Email, user.Name, user.AvatarURL).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}
