package server

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/models"
)

// Publisher sends portal events to interested integrations. The nil
// publisher is valid and drops everything, so the portal works without
// NATS configured.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a publisher over an established NATS connection
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

func (p *Publisher) publish(subject string, payload interface{}) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to marshal event")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

// VoucherActivated publishes a successful redemption
func (p *Publisher) VoucherActivated(voucher *models.Voucher) {
	p.publish("portal.voucher."+voucher.GatewayID+".activated", voucher)
}

// VoucherExpired publishes a quota or logout termination
func (p *Publisher) VoucherExpired(voucher *models.Voucher) {
	p.publish("portal.voucher."+voucher.GatewayID+".expired", voucher)
}

// GatewayPing publishes refreshed gateway telemetry
func (p *Publisher) GatewayPing(gatewayID string, t models.GatewayTelemetry) {
	p.publish("portal.gateway."+gatewayID+".ping", t)
}

// AuthEvent publishes one auth callback outcome
func (p *Publisher) AuthEvent(event *models.AuthEvent) {
	p.publish("portal.gateway."+event.GatewayID+".auth", event)
}
