package models

import (
	"time"

	"github.com/google/uuid"
)

// Taxonomy is an organization-defined impact classification (e.g. financial,
// reputational) with ordered severity bands.
type Taxonomy struct {
	ID          int64           `json:"id"`
	OrgID       uuid.UUID       `json:"org_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Bands       []*SeverityBand `json:"bands,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SeverityBand is one named severity tier of a taxonomy, carrying a numeric
// range and a display color.
type SeverityBand struct {
	ID         int64   `json:"id"`
	TaxonomyID int64   `json:"taxonomy_id"`
	Name       string  `json:"name"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Color      string  `json:"color,omitempty"`
	Position   int     `json:"position"`
}
