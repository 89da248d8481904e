package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrConflict     = errors.New("conflict")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Network methods
	CreateNetwork(ctx context.Context, network *models.Network) error
	GetNetwork(ctx context.Context, id uuid.UUID) (*models.Network, error)
	UpdateNetwork(ctx context.Context, network *models.Network) error
	ListNetworks(ctx context.Context, limit, offset int) ([]*models.Network, int64, error)

	// Gateway methods
	CreateGateway(ctx context.Context, gateway *models.Gateway) error
	GetGateway(ctx context.Context, id string) (*models.Gateway, error)
	GetGatewayPage(ctx context.Context, id string) (*models.GatewayPage, error)
	UpdateGateway(ctx context.Context, gateway *models.Gateway) error
	RecordTelemetry(ctx context.Context, id string, t models.GatewayTelemetry) error
	ListGateways(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.Gateway, int64, error)

	// Voucher methods
	CreateVoucher(ctx context.Context, voucher *models.Voucher) error
	GetVoucher(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetVoucherByToken(ctx context.Context, token string) (*models.Voucher, error)
	// UpdateVoucherCounters persists the latest reported counters for a
	// voucher that is still active. Returns ErrConflict when the
	// session was terminated concurrently, so stale active state is
	// never written back over a terminal status.
	UpdateVoucherCounters(ctx context.Context, id uuid.UUID, incoming, outgoing int64) error
	// RedeemVoucher atomically moves a voucher from new to active,
	// setting the session token and activation time. Returns
	// ErrNotFound when no voucher with that code is redeemable, so a
	// spent code is indistinguishable from an unknown one.
	RedeemVoucher(ctx context.Context, code, token string, now time.Time) (*models.Voucher, error)
	// ExpireVoucher is a compare-and-set to expired that clears the
	// session token and persists the final counters in the same
	// statement. Returns ErrConflict when the voucher is no longer in
	// the expected status.
	ExpireVoucher(ctx context.Context, id uuid.UUID, from models.VoucherStatus, incoming, outgoing int64) error
	ArchiveVoucher(ctx context.Context, id uuid.UUID) error
	ListVouchers(ctx context.Context, filters VoucherFilters, limit, offset int) ([]*models.Voucher, int64, error)

	// Auth event methods
	CreateAuthEvent(ctx context.Context, event *models.AuthEvent) error
	ListAuthEvents(ctx context.Context, filters AuthEventFilters, limit, offset int) ([]*models.AuthEvent, int64, error)

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.User, int64, error)

	// Close the store
	Close() error
}

// VoucherFilters represents filters for voucher listings. Archived
// vouchers are excluded unless IncludeArchived is set.
type VoucherFilters struct {
	GatewayID       *string
	Status          *models.VoucherStatus
	IncludeArchived bool
}

// AuthEventFilters represents filters for auth event listings
type AuthEventFilters struct {
	GatewayID *string
	VoucherID *uuid.UUID
	Stage     *models.AuthStage
	Status    *models.AuthStatus
	StartTime *time.Time
	EndTime   *time.Time
}
