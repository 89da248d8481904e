package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// ========== Gateway Methods ==========

// CreateGateway creates a new gateway
func (s *PostgresStore) CreateGateway(ctx context.Context, gateway *models.Gateway) error {
	now := time.Now()
	gateway.CreatedAt = now
	gateway.UpdatedAt = now

	query := `
        INSERT INTO gateways (
            id, created_at, updated_at, network_id, title, gw_address,
            gw_port, logo, default_minutes, default_megabytes, tags
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		gateway.ID, gateway.CreatedAt, gateway.UpdatedAt, gateway.NetworkID,
		gateway.Title, gateway.GwAddress, gateway.GwPort, gateway.Logo,
		gateway.DefaultMinutes, gateway.DefaultMegabytes, gateway.Tags,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetGateway gets a gateway by ID
func (s *PostgresStore) GetGateway(ctx context.Context, id string) (*models.Gateway, error) {
	query := `
        SELECT id, created_at, updated_at, network_id, title, gw_address,
               gw_port, logo, default_minutes, default_megabytes,
               last_ping_at, last_ping_ip, last_ping_user_agent,
               last_ping_sys_uptime, last_ping_wifidog_uptime,
               last_ping_mem_free, last_ping_load, tags
        FROM gateways
        WHERE id = $1`

	gateway := &models.Gateway{}
	var lastPingIP, lastPingUserAgent sql.NullString

	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&gateway.ID, &gateway.CreatedAt, &gateway.UpdatedAt, &gateway.NetworkID,
		&gateway.Title, &gateway.GwAddress, &gateway.GwPort, &gateway.Logo,
		&gateway.DefaultMinutes, &gateway.DefaultMegabytes,
		&gateway.LastPingAt, &lastPingIP, &lastPingUserAgent,
		&gateway.LastPingSysUptime, &gateway.LastPingWifidogUptime,
		&gateway.LastPingMemFree, &gateway.LastPingLoad, &gateway.Tags,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	gateway.LastPingIP = lastPingIP.String
	gateway.LastPingUserAgent = lastPingUserAgent.String

	return gateway, nil
}

// GetGatewayPage gets the denormalized login/portal read model for a
// gateway, joining in the owning network's title.
func (s *PostgresStore) GetGatewayPage(ctx context.Context, id string) (*models.GatewayPage, error) {
	query := `
        SELECT g.id, g.title, n.title, g.logo
        FROM gateways g
        JOIN networks n ON n.id = g.network_id
        WHERE g.id = $1`

	page := &models.GatewayPage{}
	var logo sql.NullString

	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&page.ID, &page.Title, &page.NetworkTitle, &logo,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	if logo.String != "" {
		page.LogoURL = "/uploads/" + logo.String
	}

	return page, nil
}

// UpdateGateway updates a gateway's administrative fields
func (s *PostgresStore) UpdateGateway(ctx context.Context, gateway *models.Gateway) error {
	gateway.UpdatedAt = time.Now()

	query := `
        UPDATE gateways SET
            updated_at = $2, title = $3, gw_address = $4, gw_port = $5,
            logo = $6, default_minutes = $7, default_megabytes = $8, tags = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		gateway.ID, gateway.UpdatedAt, gateway.Title, gateway.GwAddress,
		gateway.GwPort, gateway.Logo, gateway.DefaultMinutes,
		gateway.DefaultMegabytes, gateway.Tags,
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

// RecordTelemetry upserts the latest-known ping telemetry. Absent
// optional fields (nil pointers) leave the stored values unchanged.
func (s *PostgresStore) RecordTelemetry(ctx context.Context, id string, t models.GatewayTelemetry) error {
	query := `
        UPDATE gateways SET
            updated_at = $2,
            last_ping_at = $2,
            last_ping_ip = $3,
            last_ping_user_agent = $4,
            last_ping_sys_uptime = COALESCE($5, last_ping_sys_uptime),
            last_ping_wifidog_uptime = COALESCE($6, last_ping_wifidog_uptime),
            last_ping_mem_free = COALESCE($7, last_ping_mem_free),
            last_ping_load = COALESCE($8, last_ping_load)
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		id, t.SeenAt, t.IP, t.UserAgent,
		t.SysUptime, t.WifidogUptime, t.MemFree, t.Load,
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

// ListGateways lists gateways, optionally scoped to a network
func (s *PostgresStore) ListGateways(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.Gateway, int64, error) {
	countQuery := "SELECT COUNT(*) FROM gateways"
	query := `
        SELECT id, created_at, updated_at, network_id, title, gw_address,
               gw_port, logo, default_minutes, default_megabytes, last_ping_at
        FROM gateways`

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

	var gateways []*models.Gateway
	for rows.Next() {
		gateway := &models.Gateway{}

		err := rows.Scan(
			&gateway.ID, &gateway.CreatedAt, &gateway.UpdatedAt,
			&gateway.NetworkID, &gateway.Title, &gateway.GwAddress,
			&gateway.GwPort, &gateway.Logo, &gateway.DefaultMinutes,
			&gateway.DefaultMegabytes, &gateway.LastPingAt,
		)
		if err != nil {
			return nil, 0, err
		}

		gateways = append(gateways, gateway)
	}

	return gateways, count, nil
}
