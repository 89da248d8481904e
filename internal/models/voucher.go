package models

import (
	"time"
)

// VoucherStatus represents the lifecycle state of a voucher
type VoucherStatus string

const (
	VoucherStatusNew      VoucherStatus = "new"
	VoucherStatusActive   VoucherStatus = "active"
	VoucherStatusExpired  VoucherStatus = "expired"
	VoucherStatusArchived VoucherStatus = "archived"
)

// CanTransitionTo reports whether a status change is allowed. Forward
// only: new -> active -> expired, with archived reachable from any
// state and terminal.
func (s VoucherStatus) CanTransitionTo(next VoucherStatus) bool {
	if s == next {
		return false
	}
	switch next {
	case VoucherStatusActive:
		return s == VoucherStatusNew
	case VoucherStatusExpired:
		return s == VoucherStatusNew || s == VoucherStatusActive
	case VoucherStatusArchived:
		return s != VoucherStatusArchived
	}
	return false
}

// Voucher represents a single-use, quota-bounded access grant
type Voucher struct {
	BaseModel

	GatewayID string        `json:"gatewayId" db:"gateway_id"`
	Code      string        `json:"code" db:"code"`
	Status    VoucherStatus `json:"status" db:"status"`

	// Granted quota
	Minutes   int `json:"minutes" db:"minutes"`
	Megabytes int `json:"megabytes" db:"megabytes"`

	// Latest cumulative counters reported by the gateway for the
	// current session. Cumulative since session start, not deltas.
	IncomingBytes int64 `json:"incomingBytes" db:"incoming_bytes"`
	OutgoingBytes int64 `json:"outgoingBytes" db:"outgoing_bytes"`

	// Session token, present only while a session is active.
	Token string `json:"-" db:"token"`

	ActivatedAt *time.Time `json:"activatedAt,omitempty" db:"activated_at"`
}

// ConsumedBytes returns the total traffic reported for the current session.
func (v *Voucher) ConsumedBytes() int64 {
	return v.IncomingBytes + v.OutgoingBytes
}

// MinutesExpired reports whether the elapsed time since activation
// exceeds the granted minutes.
func (v *Voucher) MinutesExpired(now time.Time) bool {
	if v.ActivatedAt == nil || v.Minutes <= 0 {
		return false
	}
	return now.Sub(*v.ActivatedAt) > time.Duration(v.Minutes)*time.Minute
}

// MegabytesExceeded reports whether the reported traffic exceeds the
// granted megabytes.
func (v *Voucher) MegabytesExceeded() bool {
	if v.Megabytes <= 0 {
		return false
	}
	return v.ConsumedBytes() > int64(v.Megabytes)*1000*1000
}
