package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// ========== Network Methods ==========

// CreateNetwork creates a new network
func (s *PostgresStore) CreateNetwork(ctx context.Context, network *models.Network) error {
	if network.ID == uuid.Nil {
		network.ID = uuid.New()
	}

	now := time.Now()
	network.CreatedAt = now
	network.UpdatedAt = now

	query := `
        INSERT INTO networks (id, created_at, updated_at, title, description, tags)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.getDB().ExecContext(ctx, query,
		network.ID, network.CreatedAt, network.UpdatedAt,
		network.Title, network.Description, network.Tags,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetNetwork gets a network by ID
func (s *PostgresStore) GetNetwork(ctx context.Context, id uuid.UUID) (*models.Network, error) {
	query := `
        SELECT id, created_at, updated_at, title, description, tags
        FROM networks
        WHERE id = $1`

	network := &models.Network{}

	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&network.ID, &network.CreatedAt, &network.UpdatedAt,
		&network.Title, &network.Description, &network.Tags,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return network, nil
}

// UpdateNetwork updates a network
func (s *PostgresStore) UpdateNetwork(ctx context.Context, network *models.Network) error {
	network.UpdatedAt = time.Now()

	query := `
        UPDATE networks SET
            updated_at = $2, title = $3, description = $4, tags = $5
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		network.ID, network.UpdatedAt, network.Title,
		network.Description, network.Tags,
	)

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

// ListNetworks lists networks
func (s *PostgresStore) ListNetworks(ctx context.Context, limit, offset int) ([]*models.Network, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM networks").Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, updated_at, title, description, tags
        FROM networks
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var networks []*models.Network
	for rows.Next() {
		network := &models.Network{}

		err := rows.Scan(
			&network.ID, &network.CreatedAt, &network.UpdatedAt,
			&network.Title, &network.Description, &network.Tags,
		)
		if err != nil {
			return nil, 0, err
		}

		networks = append(networks, network)
	}

	return networks, count, nil
}
