package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthStage represents the protocol phase reported by gateway firmware
type AuthStage string

const (
	AuthStageLogin    AuthStage = "login"
	AuthStageCounters AuthStage = "counters"
	AuthStageLogout   AuthStage = "logout"
)

// AuthStatus is the status vocabulary of the auth response. The
// gateway firmware parses these literals, so they are a wire contract.
type AuthStatus string

const (
	AuthStatusOk      AuthStatus = "Ok"
	AuthStatusFailed  AuthStatus = "Failed"
	AuthStatusExpired AuthStatus = "Expired"
)

// AuthEvent is an immutable log entry of one auth callback. Append
// only, never mutated after creation.
type AuthEvent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	GatewayID string     `json:"gatewayId" db:"gateway_id"`
	VoucherID *uuid.UUID `json:"voucherId,omitempty" db:"voucher_id"`

	UserAgent string    `json:"userAgent" db:"user_agent"`
	Stage     AuthStage `json:"stage" db:"stage"`
	ClientIP  string    `json:"clientIp" db:"client_ip"`
	ClientMAC string    `json:"clientMac" db:"client_mac"`
	Token     string    `json:"token" db:"token"`

	// Cumulative counters as reported by the firmware.
	IncomingBytes int64 `json:"incomingBytes" db:"incoming_bytes"`
	OutgoingBytes int64 `json:"outgoingBytes" db:"outgoing_bytes"`

	// Computed result
	Status   AuthStatus `json:"status" db:"status"`
	Messages string     `json:"messages" db:"messages"`
}
