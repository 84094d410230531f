package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Process is a library business process with a generated human-readable code
// and a dynamic set of metadata attributes.
type Process struct {
	ID          int64              `json:"id"`
	OrgID       uuid.UUID          `json:"org_id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Owner       string             `json:"owner,omitempty"`
	Status      LibraryStatus      `json:"status"`
	ProcessCode string             `json:"process_code"`
	Attributes  []*EntityAttribute `json:"attributes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Validate checks the process's own fields before persistence.
func (p *Process) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	return nil
}
