package models

import (
	"github.com/google/uuid"
)

// User represents an administrator account
type User struct {
	BaseModel

	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`

	// Scoping: network admins manage one network, gateway admins one
	// gateway within it. Super admins have neither set.
	NetworkID *uuid.UUID `json:"networkId,omitempty" db:"network_id"`
	GatewayID *string    `json:"gatewayId,omitempty" db:"gateway_id"`

	IsAdmin  bool `json:"isAdmin" db:"is_admin"`
	IsActive bool `json:"isActive" db:"is_active"`

	Settings Variables `json:"settings,omitempty" db:"settings"`
}
