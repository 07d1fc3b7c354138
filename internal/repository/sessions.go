package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// PostgresSessionRepository stores issued access tokens in the sessions table.
type PostgresSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSessionRepository creates a PostgresSessionRepository over db.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// CreateSession records token as belonging to userID until expiresAt.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("CreateSession: %w", err)
	}
	return nil
}

// UserByToken returns the owner of token if the session is still valid at now.
func (r *PostgresSessionRepository) UserByToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.password_hash
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2
	`, token, now)
	return scanUser(row, "UserByToken")
}

// DeleteSession removes token. Deleting an unknown token is not an error.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}
