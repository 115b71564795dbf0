package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopdesk/supportbot/internal/auth"
	"github.com/shopdesk/supportbot/internal/models"
)

const uniqueViolation = "23505"

// Users is the Postgres-backed auth.UserStore.
type Users struct {
	postgres *Postgres
}

func NewUsers(postgres *Postgres) *Users {
	return &Users{postgres: postgres}
}

func (u *Users) Insert(ctx context.Context, user models.User) error {
	query := `INSERT INTO users (id, username, email, password, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`

	_, err := u.postgres.Pool.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return auth.ErrEmailExists
			}
			return auth.ErrUserExists
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}

	return nil
}

func (u *Users) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	query := `SELECT id, username, COALESCE(email, ''), password, created_at, updated_at
		FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`

	var user models.User
	err := u.postgres.Pool.QueryRow(ctx, query, strings.TrimSpace(identifier)).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("postgres: find user: %w", err)
	}

	return user, nil
}
