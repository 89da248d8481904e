package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// ========== User Methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (
            id, created_at, updated_at, email, password_hash, network_id,
            gateway_id, is_admin, is_active, settings
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email,
		user.PasswordHash, user.NetworkID, user.GatewayID,
		user.IsAdmin, user.IsActive, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

const userColumns = `
    id, created_at, updated_at, email, password_hash, network_id,
    gateway_id, is_admin, is_active, settings`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
		&user.PasswordHash, &user.NetworkID, &user.GatewayID,
		&user.IsAdmin, &user.IsActive, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := "SELECT" + userColumns + " FROM users WHERE id = $1"
	return scanUser(s.getDB().QueryRowContext(ctx, query, id))
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT" + userColumns + " FROM users WHERE lower(email) = lower($1)"
	return scanUser(s.getDB().QueryRowContext(ctx, query, email))
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
        UPDATE users SET
            updated_at = $2, email = $3, password_hash = $4, network_id = $5,
            gateway_id = $6, is_admin = $7, is_active = $8, settings = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.PasswordHash,
		user.NetworkID, user.GatewayID, user.IsAdmin, user.IsActive,
		user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteUser deletes a user
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUsers lists users, optionally scoped to a network
func (s *PostgresStore) ListUsers(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.User, int64, error) {
	countQuery := "SELECT COUNT(*) FROM users"
	query := "SELECT" + userColumns + " FROM users"

	args := []interface{}{}
	if networkID != nil {
		countQuery += " WHERE network_id = $1"
		query += " WHERE network_id = $1"
		args = append(args, *networkID)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY created_at DESC"
	if networkID != nil {
		query += " LIMIT $2 OFFSET $3"
	} else {
		query += " LIMIT $1 OFFSET $2"
	}
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, count, nil
}
