package portal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
)

// Accountant accumulates reported traffic against voucher quotas and
// decides whether a session may continue.
type Accountant struct {
	store  storage.Store
	events EventPublisher
}

// NewAccountant creates a quota accountant backed by the given store
func NewAccountant(store storage.Store, events EventPublisher) *Accountant {
	return &Accountant{store: store, events: events}
}

// Evaluate processes one auth callback. It resolves the voucher from
// the presented token, persists any status transition, and returns the
// protocol status plus diagnostic messages. All transitions are
// persisted before the caller builds the response.
func (a *Accountant) Evaluate(ctx context.Context, event *models.AuthEvent, now time.Time) (models.AuthStatus, string) {
	voucher, err := a.store.GetVoucherByToken(ctx, event.Token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.AuthStatusFailed, "invalid token"
		}
		log.Error().Err(err).Str("gateway", event.GatewayID).Msg("Voucher lookup failed")
		return models.AuthStatusFailed, "internal error"
	}

	event.VoucherID = &voucher.ID

	switch voucher.Status {
	case models.VoucherStatusExpired, models.VoucherStatusArchived:
		return models.AuthStatusExpired, "voucher expired"
	}

	if event.Stage == models.AuthStageLogout {
		// A logout is a hard terminate; Ok for this final call only.
		if err := a.expire(ctx, voucher); err != nil {
			return models.AuthStatusFailed, "internal error"
		}
		return models.AuthStatusOk, "logged out"
	}

	// Counters are cumulative since session start. Store the latest
	// values, do not sum repeated reports.
	voucher.IncomingBytes = event.IncomingBytes
	voucher.OutgoingBytes = event.OutgoingBytes

	if voucher.MinutesExpired(now) {
		if err := a.expire(ctx, voucher); err != nil {
			return models.AuthStatusFailed, "internal error"
		}
		return models.AuthStatusExpired, "time quota exceeded"
	}

	if voucher.MegabytesExceeded() {
		if err := a.expire(ctx, voucher); err != nil {
			return models.AuthStatusFailed, "internal error"
		}
		return models.AuthStatusExpired, "data quota exceeded"
	}

	// The counter write carries the same compare-and-set on status as
	// the transitions: a poll that lost a race to a concurrent logout
	// or expiry must never write active state back.
	err = a.store.UpdateVoucherCounters(ctx, voucher.ID,
		voucher.IncomingBytes, voucher.OutgoingBytes)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.AuthStatusExpired, "voucher expired"
		}
		log.Error().Err(err).Str("voucher", voucher.ID.String()).Msg("Failed to persist counters")
		return models.AuthStatusFailed, "internal error"
	}

	return models.AuthStatusOk, ""
}

// expire moves the voucher to expired with a compare-and-set on its
// current status, committing the cleared token and final counters in
// the same statement. A lost CAS means a concurrent callback already
// terminated the session, which is fine.
func (a *Accountant) expire(ctx context.Context, voucher *models.Voucher) error {
	err := a.store.ExpireVoucher(ctx, voucher.ID, voucher.Status,
		voucher.IncomingBytes, voucher.OutgoingBytes)

	if errors.Is(err, storage.ErrConflict) {
		voucher.Status = models.VoucherStatusExpired
		voucher.Token = ""
		return nil
	}

	if err != nil {
		log.Error().Err(err).Str("voucher", voucher.ID.String()).Msg("Failed to expire voucher")
		return err
	}

	voucher.Status = models.VoucherStatusExpired
	voucher.Token = ""

	// Published only when this call won the transition, so one expiry
	// emits one event.
	a.events.VoucherExpired(voucher)

	return nil
}
