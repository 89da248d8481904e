package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
)

// mockStore is an in-memory Store for handler and accountant tests.
// The voucher mutations mirror the compare-and-set semantics of the
// Postgres implementation so concurrency tests are meaningful.
type mockStore struct {
	mu       sync.Mutex
	gateways map[string]*models.Gateway
	networks map[uuid.UUID]*models.Network
	vouchers map[uuid.UUID]*models.Voucher
	events   []*models.AuthEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		gateways: make(map[string]*models.Gateway),
		networks: make(map[uuid.UUID]*models.Network),
		vouchers: make(map[uuid.UUID]*models.Voucher),
	}
}

func (m *mockStore) addGateway(g *models.Gateway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *g
	m.gateways[g.ID] = &copied
}

func (m *mockStore) addVoucher(v *models.Voucher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	copied := *v
	m.vouchers[v.ID] = &copied
}

func (m *mockStore) getVoucher(id uuid.UUID) *models.Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vouchers[id]; ok {
		copied := *v
		return &copied
	}
	return nil
}

func (m *mockStore) BeginTx(ctx context.Context) (storage.Store, error) { return m, nil }
func (m *mockStore) Commit() error                                      { return nil }
func (m *mockStore) Rollback() error                                    { return nil }
func (m *mockStore) Close() error                                       { return nil }

func (m *mockStore) CreateGateway(ctx context.Context, gateway *models.Gateway) error {
	m.addGateway(gateway)
	return nil
}

func (m *mockStore) GetGateway(ctx context.Context, id string) (*models.Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gateway, ok := m.gateways[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *gateway
	return &copied, nil
}

func (m *mockStore) GetGatewayPage(ctx context.Context, id string) (*models.GatewayPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gateway, ok := m.gateways[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &models.GatewayPage{
		ID:           gateway.ID,
		Title:        gateway.Title,
		NetworkTitle: "Test Network",
	}, nil
}

func (m *mockStore) UpdateGateway(ctx context.Context, gateway *models.Gateway) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gateways[gateway.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *gateway
	m.gateways[gateway.ID] = &copied
	return nil
}

func (m *mockStore) RecordTelemetry(ctx context.Context, id string, t models.GatewayTelemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gateway, ok := m.gateways[id]
	if !ok {
		return storage.ErrNotFound
	}
	seenAt := t.SeenAt
	gateway.LastPingAt = &seenAt
	gateway.LastPingIP = t.IP
	gateway.LastPingUserAgent = t.UserAgent
	if t.SysUptime != nil {
		gateway.LastPingSysUptime = t.SysUptime
	}
	if t.WifidogUptime != nil {
		gateway.LastPingWifidogUptime = t.WifidogUptime
	}
	if t.MemFree != nil {
		gateway.LastPingMemFree = t.MemFree
	}
	if t.Load != nil {
		gateway.LastPingLoad = t.Load
	}
	return nil
}

func (m *mockStore) ListGateways(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.Gateway, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (m *mockStore) CreateVoucher(ctx context.Context, voucher *models.Voucher) error {
	m.addVoucher(voucher)
	return nil
}

func (m *mockStore) GetVoucher(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	if v := m.getVoucher(id); v != nil {
		return v, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if strings.EqualFold(v.Code, code) {
			copied := *v
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) GetVoucherByToken(ctx context.Context, token string) (*models.Voucher, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if v.Token == token {
			copied := *v
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) UpdateVoucherCounters(ctx context.Context, id uuid.UUID, incoming, outgoing int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok || v.Status != models.VoucherStatusActive {
		return storage.ErrConflict
	}
	v.IncomingBytes = incoming
	v.OutgoingBytes = outgoing
	return nil
}

func (m *mockStore) RedeemVoucher(ctx context.Context, code, token string, now time.Time) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if strings.EqualFold(v.Code, code) && v.Status == models.VoucherStatusNew {
			v.Status = models.VoucherStatusActive
			v.Token = token
			activated := now
			v.ActivatedAt = &activated
			copied := *v
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ExpireVoucher(ctx context.Context, id uuid.UUID, from models.VoucherStatus, incoming, outgoing int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok || v.Status != from {
		return storage.ErrConflict
	}
	v.Status = models.VoucherStatusExpired
	v.Token = ""
	v.IncomingBytes = incoming
	v.OutgoingBytes = outgoing
	return nil
}

func (m *mockStore) ArchiveVoucher(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok || v.Status == models.VoucherStatusArchived {
		return storage.ErrNotFound
	}
	v.Status = models.VoucherStatusArchived
	v.Token = ""
	return nil
}

func (m *mockStore) ListVouchers(ctx context.Context, filters storage.VoucherFilters, limit, offset int) ([]*models.Voucher, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (m *mockStore) CreateAuthEvent(ctx context.Context, event *models.AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

func (m *mockStore) ListAuthEvents(ctx context.Context, filters storage.AuthEventFilters, limit, offset int) ([]*models.AuthEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, int64(len(m.events)), nil
}

func (m *mockStore) CreateNetwork(ctx context.Context, network *models.Network) error {
	return errors.New("not implemented")
}

func (m *mockStore) GetNetwork(ctx context.Context, id uuid.UUID) (*models.Network, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) UpdateNetwork(ctx context.Context, network *models.Network) error {
	return errors.New("not implemented")
}

func (m *mockStore) ListNetworks(ctx context.Context, limit, offset int) ([]*models.Network, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (m *mockStore) CreateUser(ctx context.Context, user *models.User) error {
	return errors.New("not implemented")
}

func (m *mockStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) UpdateUser(ctx context.Context, user *models.User) error {
	return errors.New("not implemented")
}

func (m *mockStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (m *mockStore) ListUsers(ctx context.Context, networkID *uuid.UUID, limit, offset int) ([]*models.User, int64, error) {
	return nil, 0, errors.New("not implemented")
}

// eventLog records published voucher lifecycle events by code.
type eventLog struct {
	mu        sync.Mutex
	activated []string
	expired   []string
}

func (l *eventLog) VoucherActivated(v *models.Voucher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activated = append(l.activated, v.Code)
}

func (l *eventLog) VoucherExpired(v *models.Voucher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expired = append(l.expired, v.Code)
}

func (l *eventLog) GatewayPing(gatewayID string, t models.GatewayTelemetry) {}

func (l *eventLog) AuthEvent(event *models.AuthEvent) {}

func (l *eventLog) expiredCodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.expired...)
}

func (l *eventLog) activatedCodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.activated...)
}
