package portal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
)

func activeVoucher(store *mockStore, minutes, megabytes int, activatedAt time.Time) *models.Voucher {
	voucher := &models.Voucher{
		GatewayID:   "gw-1",
		Code:        "ABC123",
		Status:      models.VoucherStatusActive,
		Minutes:     minutes,
		Megabytes:   megabytes,
		Token:       "tok-1",
		ActivatedAt: &activatedAt,
	}
	store.addVoucher(voucher)
	return voucher
}

func countersEvent(token string, incoming, outgoing int64) *models.AuthEvent {
	return &models.AuthEvent{
		GatewayID:     "gw-1",
		Stage:         models.AuthStageCounters,
		Token:         token,
		IncomingBytes: incoming,
		OutgoingBytes: outgoing,
	}
}

func TestEvaluateInvalidToken(t *testing.T) {
	store := newMockStore()
	accountant := NewAccountant(store, &eventLog{})

	status, messages := accountant.Evaluate(context.Background(), countersEvent("no-such-token", 0, 0), time.Now())

	if status != models.AuthStatusFailed {
		t.Errorf("status = %q, want %q", status, models.AuthStatusFailed)
	}
	if messages != "invalid token" {
		t.Errorf("messages = %q, want %q", messages, "invalid token")
	}
}

func TestEvaluateWithinQuota(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 60, 100, now.Add(-time.Minute))
	accountant := NewAccountant(store, &eventLog{})

	status, _ := accountant.Evaluate(context.Background(), countersEvent("tok-1", 1000, 2000), now)

	if status != models.AuthStatusOk {
		t.Fatalf("status = %q, want %q", status, models.AuthStatusOk)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusActive {
		t.Errorf("voucher status = %q, want active", stored.Status)
	}
	if stored.IncomingBytes != 1000 || stored.OutgoingBytes != 2000 {
		t.Errorf("counters = %d/%d, want 1000/2000", stored.IncomingBytes, stored.OutgoingBytes)
	}
}

// Repeated counter reports are cumulative since session start: the
// store keeps the latest values, it does not add them up.
func TestEvaluateCountersLatestWins(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 60, 100, now.Add(-time.Minute))
	accountant := NewAccountant(store, &eventLog{})

	accountant.Evaluate(context.Background(), countersEvent("tok-1", 1000, 2000), now)
	accountant.Evaluate(context.Background(), countersEvent("tok-1", 5000, 6000), now)

	stored := store.getVoucher(voucher.ID)
	if stored.IncomingBytes != 5000 || stored.OutgoingBytes != 6000 {
		t.Errorf("counters = %d/%d, want 5000/6000", stored.IncomingBytes, stored.OutgoingBytes)
	}
}

func TestEvaluateTimeQuotaExceeded(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 1, 100, now.Add(-61*time.Second))
	events := &eventLog{}
	accountant := NewAccountant(store, events)

	status, messages := accountant.Evaluate(context.Background(), countersEvent("tok-1", 100, 100), now)

	if status != models.AuthStatusExpired {
		t.Errorf("status = %q, want %q", status, models.AuthStatusExpired)
	}
	if messages != "time quota exceeded" {
		t.Errorf("messages = %q", messages)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusExpired {
		t.Errorf("voucher status = %q, want expired", stored.Status)
	}
	if stored.Token != "" {
		t.Errorf("token = %q, want cleared", stored.Token)
	}
	if stored.IncomingBytes != 100 || stored.OutgoingBytes != 100 {
		t.Errorf("final counters = %d/%d, want 100/100", stored.IncomingBytes, stored.OutgoingBytes)
	}
	if got := events.expiredCodes(); len(got) != 1 || got[0] != "ABC123" {
		t.Errorf("expired events = %v, want [ABC123]", got)
	}
}

func TestEvaluateDataQuotaExceeded(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 60, 10, now.Add(-time.Minute))
	accountant := NewAccountant(store, &eventLog{})

	// 11,000,000 cumulative bytes against a 10 MB grant.
	status, messages := accountant.Evaluate(context.Background(), countersEvent("tok-1", 6_000_000, 5_000_000), now)

	if status != models.AuthStatusExpired {
		t.Errorf("status = %q, want %q", status, models.AuthStatusExpired)
	}
	if messages != "data quota exceeded" {
		t.Errorf("messages = %q", messages)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusExpired {
		t.Errorf("voucher status = %q, want expired", stored.Status)
	}
	if stored.IncomingBytes != 6_000_000 || stored.OutgoingBytes != 5_000_000 {
		t.Errorf("final counters = %d/%d", stored.IncomingBytes, stored.OutgoingBytes)
	}
}

func TestEvaluateDataQuotaExactBoundary(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	activeVoucher(store, 60, 10, now.Add(-time.Minute))
	accountant := NewAccountant(store, &eventLog{})

	// Exactly at the limit is still within quota.
	status, _ := accountant.Evaluate(context.Background(), countersEvent("tok-1", 10_000_000, 0), now)

	if status != models.AuthStatusOk {
		t.Errorf("status = %q, want %q", status, models.AuthStatusOk)
	}
}

func TestEvaluateLogout(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 60, 100, now.Add(-time.Minute))
	events := &eventLog{}
	accountant := NewAccountant(store, events)

	event := countersEvent("tok-1", 500, 500)
	event.Stage = models.AuthStageLogout

	status, messages := accountant.Evaluate(context.Background(), event, now)

	// The final logout call itself is acknowledged Ok.
	if status != models.AuthStatusOk {
		t.Errorf("status = %q, want %q", status, models.AuthStatusOk)
	}
	if messages != "logged out" {
		t.Errorf("messages = %q", messages)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusExpired {
		t.Errorf("voucher status = %q, want expired", stored.Status)
	}
	if stored.Token != "" {
		t.Errorf("token = %q, want cleared", stored.Token)
	}

	// Any later poll with the revoked token fails.
	status, _ = accountant.Evaluate(context.Background(), countersEvent("tok-1", 600, 600), now)
	if status != models.AuthStatusFailed {
		t.Errorf("post-logout status = %q, want %q", status, models.AuthStatusFailed)
	}

	if got := events.expiredCodes(); len(got) != 1 || got[0] != "ABC123" {
		t.Errorf("expired events = %v, want [ABC123]", got)
	}
}

// terminatingStore expires the voucher after every token lookup,
// standing in for a logout that lands between a counters poll's read
// and its counter write.
type terminatingStore struct {
	*mockStore
	id uuid.UUID
}

func (s *terminatingStore) GetVoucherByToken(ctx context.Context, token string) (*models.Voucher, error) {
	voucher, err := s.mockStore.GetVoucherByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.mockStore.ExpireVoucher(ctx, s.id, models.VoucherStatusActive, 0, 0)
	return voucher, nil
}

// A counters poll that read the voucher as active and then lost a race
// to a concurrent logout must not write active state or the old token
// back over the terminal status.
func TestEvaluateCountersAfterConcurrentLogout(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 60, 100, now.Add(-time.Minute))
	accountant := NewAccountant(&terminatingStore{mockStore: store, id: voucher.ID}, &eventLog{})

	status, messages := accountant.Evaluate(context.Background(), countersEvent("tok-1", 1000, 2000), now)

	if status != models.AuthStatusExpired {
		t.Errorf("status = %q, want %q", status, models.AuthStatusExpired)
	}
	if messages != "voucher expired" {
		t.Errorf("messages = %q", messages)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusExpired {
		t.Errorf("voucher status = %q, the logout transition was reversed", stored.Status)
	}
	if stored.Token != "" {
		t.Errorf("token = %q, revoked token was restored", stored.Token)
	}

	// The revoked token stays dead.
	if _, err := store.GetVoucherByToken(context.Background(), "tok-1"); err == nil {
		t.Error("revoked token still resolves to a voucher")
	}
}

// A voucher can only move forward: once expired it never returns to
// active, regardless of what the gateway reports.
func TestEvaluateStatusMonotonic(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	voucher := activeVoucher(store, 1, 100, now.Add(-2*time.Minute))
	accountant := NewAccountant(store, &eventLog{})

	status, _ := accountant.Evaluate(context.Background(), countersEvent("tok-1", 0, 0), now)
	if status != models.AuthStatusExpired {
		t.Fatalf("first poll status = %q, want expired", status)
	}

	// Restore the token as a hostile store state to prove the status
	// check alone rejects terminal vouchers.
	stale := store.getVoucher(voucher.ID)
	stale.Token = "tok-1"
	store.addVoucher(stale)

	status, messages := accountant.Evaluate(context.Background(), countersEvent("tok-1", 0, 0), now)
	if status != models.AuthStatusExpired {
		t.Errorf("second poll status = %q, want expired", status)
	}
	if messages != "voucher expired" {
		t.Errorf("messages = %q", messages)
	}

	stored := store.getVoucher(voucher.ID)
	if stored.Status != models.VoucherStatusExpired {
		t.Errorf("voucher status = %q, want expired", stored.Status)
	}
}
