package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// ========== Auth Event Methods ==========

// CreateAuthEvent appends an auth event. Events are immutable, there
// is no update path.
func (s *PostgresStore) CreateAuthEvent(ctx context.Context, event *models.AuthEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO auth_events (
            id, created_at, gateway_id, voucher_id, user_agent, stage,
            client_ip, client_mac, token, incoming_bytes, outgoing_bytes,
            status, messages
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		event.ID, event.CreatedAt, event.GatewayID, event.VoucherID,
		event.UserAgent, event.Stage, event.ClientIP, event.ClientMAC,
		event.Token, event.IncomingBytes, event.OutgoingBytes,
		event.Status, event.Messages,
	)

	return err
}

// ListAuthEvents lists auth events with filters
func (s *PostgresStore) ListAuthEvents(ctx context.Context, filters AuthEventFilters, limit, offset int) ([]*models.AuthEvent, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.GatewayID != nil {
		argCount++
		where += fmt.Sprintf(" AND gateway_id = $%d", argCount)
		args = append(args, *filters.GatewayID)
	}

	if filters.VoucherID != nil {
		argCount++
		where += fmt.Sprintf(" AND voucher_id = $%d", argCount)
		args = append(args, *filters.VoucherID)
	}

	if filters.Stage != nil {
		argCount++
		where += fmt.Sprintf(" AND stage = $%d", argCount)
		args = append(args, *filters.Stage)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	if filters.StartTime != nil {
		argCount++
		where += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filters.StartTime)
	}

	if filters.EndTime != nil {
		argCount++
		where += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filters.EndTime)
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM auth_events"+where, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT id, created_at, gateway_id, voucher_id, user_agent, stage,
               client_ip, client_mac, token, incoming_bytes, outgoing_bytes,
               status, messages
        FROM auth_events%s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d`, where, argCount+1, argCount+2)
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		event := &models.AuthEvent{}

		err := rows.Scan(
			&event.ID, &event.CreatedAt, &event.GatewayID, &event.VoucherID,
			&event.UserAgent, &event.Stage, &event.ClientIP, &event.ClientMAC,
			&event.Token, &event.IncomingBytes, &event.OutgoingBytes,
			&event.Status, &event.Messages,
		)
		if err != nil {
			return nil, 0, err
		}

		events = append(events, event)
	}

	return events, count, nil
}
