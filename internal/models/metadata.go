package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetaDataInputType is the input control a metadata attribute expects.
type MetaDataInputType string

const (
	MetaDataInputText        MetaDataInputType = "text"
	MetaDataInputSelect      MetaDataInputType = "select"
	MetaDataInputMultiSelect MetaDataInputType = "multiselect"
	MetaDataInputNumber      MetaDataInputType = "number"
)

// Valid reports whether the input type is a known value.
func (t MetaDataInputType) Valid() bool {
	switch t {
	case MetaDataInputText, MetaDataInputSelect, MetaDataInputMultiSelect, MetaDataInputNumber:
		return true
	}
	return false
}

// EntityKind names a kind of library entity a metadata attribute can apply to.
type EntityKind string

const (
	EntityKindAll          EntityKind = "all"
	EntityKindProcess      EntityKind = "process"
	EntityKindRiskScenario EntityKind = "risk_scenario"
	EntityKindAsset        EntityKind = "asset"
	EntityKindThreat       EntityKind = "threat"
	EntityKindControl      EntityKind = "control"
)

// Valid reports whether the entity kind is a known value.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindAll, EntityKindProcess, EntityKindRiskScenario,
		EntityKindAsset, EntityKindThreat, EntityKindControl:
		return true
	}
	return false
}

// MetaData describes a configurable attribute that can be attached to library entities.
type MetaData struct {
	ID              int64             `json:"id"`
	OrgID           uuid.UUID         `json:"org_id"`
	Name            string            `json:"name"`
	Label           string            `json:"label,omitempty"`
	InputType       MetaDataInputType `json:"input_type"`
	SupportedValues []string          `json:"supported_values,omitempty"`
	AppliesTo       []EntityKind      `json:"applies_to,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the metadata definition itself.
func (m *MetaData) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metadata name is required")
	}
	if !m.InputType.Valid() {
		return fmt.Errorf("invalid input type %q", m.InputType)
	}
	for _, k := range m.AppliesTo {
		if !k.Valid() {
			return fmt.Errorf("invalid entity kind %q", k)
		}
	}
	return nil
}

// AppliesToKind reports whether the attribute applies to the given entity kind.
func (m *MetaData) AppliesToKind(kind EntityKind) bool {
	if len(m.AppliesTo) == 0 {
		return true
	}
	for _, k := range m.AppliesTo {
		if k == EntityKindAll || k == kind {
			return true
		}
	}
	return false
}

// ValidateValues checks submitted attribute values against the supported list.
// An empty supported_values list means any value is accepted.
func (m *MetaData) ValidateValues(values []string) error {
	if len(m.SupportedValues) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(m.SupportedValues))
	for _, v := range m.SupportedValues {
		allowed[v] = true
	}
	for _, v := range values {
		if !allowed[v] {
			return fmt.Errorf("value %q is not supported for attribute %q", v, m.Name)
		}
	}
	return nil
}
