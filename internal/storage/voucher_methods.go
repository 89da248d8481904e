package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// ========== Voucher Methods ==========

const voucherColumns = `
    id, created_at, updated_at, gateway_id, code, status, minutes,
    megabytes, incoming_bytes, outgoing_bytes, token, activated_at`

func scanVoucher(row interface{ Scan(...interface{}) error }) (*models.Voucher, error) {
	voucher := &models.Voucher{}
	var token sql.NullString

	err := row.Scan(
		&voucher.ID, &voucher.CreatedAt, &voucher.UpdatedAt,
		&voucher.GatewayID, &voucher.Code, &voucher.Status,
		&voucher.Minutes, &voucher.Megabytes,
		&voucher.IncomingBytes, &voucher.OutgoingBytes,
		&token, &voucher.ActivatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	voucher.Token = token.String

	return voucher, nil
}

// nullString maps "" to SQL NULL so the partial unique index on token
// only ever sees real tokens.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateVoucher creates a new voucher with status new
func (s *PostgresStore) CreateVoucher(ctx context.Context, voucher *models.Voucher) error {
	if voucher.ID == uuid.Nil {
		voucher.ID = uuid.New()
	}
	if voucher.Status == "" {
		voucher.Status = models.VoucherStatusNew
	}

	now := time.Now()
	voucher.CreatedAt = now
	voucher.UpdatedAt = now

	query := `
        INSERT INTO vouchers (
            id, created_at, updated_at, gateway_id, code, status,
            minutes, megabytes, incoming_bytes, outgoing_bytes, token,
            activated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		voucher.ID, voucher.CreatedAt, voucher.UpdatedAt, voucher.GatewayID,
		voucher.Code, voucher.Status, voucher.Minutes, voucher.Megabytes,
		voucher.IncomingBytes, voucher.OutgoingBytes,
		nullString(voucher.Token), voucher.ActivatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetVoucher gets a voucher by ID
func (s *PostgresStore) GetVoucher(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	query := fmt.Sprintf("SELECT %s FROM vouchers WHERE id = $1", voucherColumns)
	return scanVoucher(s.getDB().QueryRowContext(ctx, query, id))
}

// GetVoucherByCode gets a voucher by its code, case-insensitively
func (s *PostgresStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	query := fmt.Sprintf("SELECT %s FROM vouchers WHERE upper(code) = upper($1)", voucherColumns)
	return scanVoucher(s.getDB().QueryRowContext(ctx, query, code))
}

// GetVoucherByToken gets a voucher by its session token
func (s *PostgresStore) GetVoucherByToken(ctx context.Context, token string) (*models.Voucher, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf("SELECT %s FROM vouchers WHERE token = $1", voucherColumns)
	return scanVoucher(s.getDB().QueryRowContext(ctx, query, token))
}

// UpdateVoucherCounters persists the latest reported counters. The
// status predicate is a compare-and-set: a counters poll that lost a
// race to a concurrent logout or quota expiry sees zero rows and gets
// ErrConflict, instead of resurrecting a terminal voucher.
func (s *PostgresStore) UpdateVoucherCounters(ctx context.Context, id uuid.UUID, incoming, outgoing int64) error {
	query := `
        UPDATE vouchers SET
            updated_at = $2, incoming_bytes = $3, outgoing_bytes = $4
        WHERE id = $1 AND status = $5`

	result, err := s.getDB().ExecContext(ctx, query,
		id, time.Now(), incoming, outgoing, models.VoucherStatusActive,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrConflict
	}

	return nil
}

// RedeemVoucher atomically moves a voucher from new to active. The
// status predicate makes concurrent redemptions of the same code a
// single-winner race: the loser sees zero rows and gets ErrNotFound,
// without leaking whether the code existed.
func (s *PostgresStore) RedeemVoucher(ctx context.Context, code, token string, now time.Time) (*models.Voucher, error) {
	query := fmt.Sprintf(`
        UPDATE vouchers SET
            updated_at = $2, status = $3, token = $4, activated_at = $2
        WHERE upper(code) = upper($1) AND status = $5
        RETURNING %s`, voucherColumns)

	return scanVoucher(s.getDB().QueryRowContext(ctx, query,
		code, now, models.VoucherStatusActive, nullString(token),
		models.VoucherStatusNew,
	))
}

// ExpireVoucher is a compare-and-set to expired. Token, final counters
// and status commit together so a crash cannot leave a half-updated
// voucher, and the cleared token can no longer validate.
func (s *PostgresStore) ExpireVoucher(ctx context.Context, id uuid.UUID, from models.VoucherStatus, incoming, outgoing int64) error {
	query := `
        UPDATE vouchers SET
            updated_at = $2, status = $3, token = NULL,
            incoming_bytes = $4, outgoing_bytes = $5
        WHERE id = $1 AND status = $6`

	result, err := s.getDB().ExecContext(ctx, query,
		id, time.Now(), models.VoucherStatusExpired, incoming, outgoing, from,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrConflict
	}

	return nil
}

// ArchiveVoucher marks a voucher archived and clears its token.
// Vouchers are archived rather than deleted, for audit.
func (s *PostgresStore) ArchiveVoucher(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE vouchers SET
            updated_at = $2, status = $3, token = NULL
        WHERE id = $1 AND status <> $3`

	result, err := s.getDB().ExecContext(ctx, query,
		id, time.Now(), models.VoucherStatusArchived,
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

// ListVouchers lists vouchers with filters. Archived vouchers are
// excluded unless requested.
func (s *PostgresStore) ListVouchers(ctx context.Context, filters VoucherFilters, limit, offset int) ([]*models.Voucher, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if !filters.IncludeArchived {
		argCount++
		where += fmt.Sprintf(" AND status <> $%d", argCount)
		args = append(args, models.VoucherStatusArchived)
	}

	if filters.GatewayID != nil {
		argCount++
		where += fmt.Sprintf(" AND gateway_id = $%d", argCount)
		args = append(args, *filters.GatewayID)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM vouchers"+where, args...).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM vouchers%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		voucherColumns, where, argCount+1, argCount+2)
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		vouchers = append(vouchers, voucher)
	}

	return vouchers, count, nil
}
