package models

// Network represents an administrative network (tenant) owning gateways
type Network struct {
	BaseModel

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// Metadata
	Tags Variables `json:"tags,omitempty" db:"tags"`
}
