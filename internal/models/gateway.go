package models

import (
	"time"

	"github.com/google/uuid"
)

// Gateway represents a captive-portal access point. The ID is the
// firmware-presented gw_id, so it is a caller-chosen string rather
// than a generated UUID.
type Gateway struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	NetworkID uuid.UUID `json:"networkId" db:"network_id"`
	Title     string    `json:"title" db:"title"`

	// Callback address the client browser is redirected to after a
	// successful voucher redemption.
	GwAddress string `json:"gwAddress" db:"gw_address"`
	GwPort    int    `json:"gwPort" db:"gw_port"`

	// Optional branding image shown on the login and portal pages.
	Logo string `json:"logo,omitempty" db:"logo"`

	// Defaults used to pre-fill quotas on newly issued vouchers.
	DefaultMinutes   int `json:"defaultMinutes" db:"default_minutes"`
	DefaultMegabytes int `json:"defaultMegabytes" db:"default_megabytes"`

	// Last-seen telemetry, refreshed by every ping callback.
	LastPingAt           *time.Time `json:"lastPingAt,omitempty" db:"last_ping_at"`
	LastPingIP           string     `json:"lastPingIp,omitempty" db:"last_ping_ip"`
	LastPingUserAgent    string     `json:"lastPingUserAgent,omitempty" db:"last_ping_user_agent"`
	LastPingSysUptime    *int64     `json:"lastPingSysUptime,omitempty" db:"last_ping_sys_uptime"`
	LastPingWifidogUptime *int64    `json:"lastPingWifidogUptime,omitempty" db:"last_ping_wifidog_uptime"`
	LastPingMemFree      *int64     `json:"lastPingMemFree,omitempty" db:"last_ping_mem_free"`
	LastPingLoad         *float64   `json:"lastPingLoad,omitempty" db:"last_ping_load"`

	// Metadata
	Tags Variables `json:"tags,omitempty" db:"tags"`
}

// GatewayTelemetry carries the telemetry fields reported by one ping
// callback. Nil pointer fields were absent from the request and must
// leave the stored values unchanged.
type GatewayTelemetry struct {
	IP            string
	UserAgent     string
	SysUptime     *int64
	WifidogUptime *int64
	MemFree       *int64
	Load          *float64
	SeenAt        time.Time
}

// GatewayPage is the denormalized read model for the login and portal
// pages: everything the renderer needs without traversing relations.
type GatewayPage struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	NetworkTitle string `json:"networkTitle"`
	LogoURL      string `json:"logoUrl,omitempty"`
}
