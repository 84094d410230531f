package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LibraryStatus is the publication status of a library entity.
type LibraryStatus string

const (
	LibraryStatusDraft        LibraryStatus = "draft"
	LibraryStatusPublished    LibraryStatus = "published"
	LibraryStatusNotPublished LibraryStatus = "not_published"
)

// Valid reports whether the status is a known value.
func (s LibraryStatus) Valid() bool {
	switch s {
	case LibraryStatusDraft, LibraryStatusPublished, LibraryStatusNotPublished:
		return true
	}
	return false
}

// RiskScenario is a library risk scenario with a generated human-readable code
// and a dynamic set of metadata attributes.
type RiskScenario struct {
	ID          int64              `json:"id"`
	OrgID       uuid.UUID          `json:"org_id"`
	Title       string             `json:"risk_scenario"`
	Description string             `json:"description,omitempty"`
	Status      LibraryStatus      `json:"status"`
	RiskCode    string             `json:"risk_code"`
	Version     int64              `json:"version"`
	Attributes  []*EntityAttribute `json:"attributes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Validate checks the scenario's own fields before persistence.
func (r *RiskScenario) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("risk_scenario is required")
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}

// FormatRiskCode returns the human-readable code for a risk scenario id,
// zero-padded to five digits (id 7 -> "RS-00007").
func FormatRiskCode(id int64) string {
	return fmt.Sprintf("RS-%05d", id)
}

// FormatProcessCode returns the human-readable code for a process id.
func FormatProcessCode(id int64) string {
	return fmt.Sprintf("PR-%05d", id)
}

// EntityAttribute is one metadata attribute assigned to a library entity.
// Rows are fully replaced whenever the parent's attribute set is updated.
type EntityAttribute struct {
	ID            int64     `json:"id"`
	ParentID      int64     `json:"-"`
	MetaDataKeyID int64     `json:"meta_data_key_id"`
	Values        []string  `json:"values"`
	MetaData      *MetaData `json:"meta_data,omitempty"`
}

// Validate checks the attribute's required fields.
func (a *EntityAttribute) Validate() error {
	if a.MetaDataKeyID == 0 {
		return fmt.Errorf("meta_data_key_id is required")
	}
	if len(a.Values) == 0 {
		return fmt.Errorf("values are required")
	}
	return nil
}
