package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// WasteStreamPlan is one per-stream entry inside a plan document. Category
// values are unique within one document.
type WasteStreamPlan struct {
	Category              string   `json:"category"`
	HandlingMode          string   `json:"handling_mode"`     // "mixed" or "separated"
	IntendedOutcomes      []string `json:"intended_outcomes"` // empty = not decided yet
	DestinationMode       string   `json:"destination_mode"`  // "facility" or "custom"
	FacilityID            *string  `json:"facility_id,omitempty"`
	PartnerID             *string  `json:"partner_id,omitempty"`
	CustomDestinationName *string  `json:"custom_destination_name,omitempty"`
	CustomDestinationAddr *string  `json:"custom_destination_address,omitempty"`
}

// HasDestination reports whether a destination has been resolved for the stream.
func (p *WasteStreamPlan) HasDestination() bool {
	if p.DestinationMode == "custom" {
		return p.CustomDestinationName != nil && *p.CustomDestinationName != ""
	}
	return p.FacilityID != nil && *p.FacilityID != ""
}

// PlanPayload is the JSON body of one plan document version. It holds
// human-authored structure only; derived totals are recomputed on read.
type PlanPayload struct {
	WasteStreamPlans []WasteStreamPlan `json:"waste_stream_plans"`
	Monitoring       string            `json:"monitoring,omitempty"`
	SiteControls     string            `json:"site_controls,omitempty"`
	Responsibilities string            `json:"responsibilities,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// FindPlan returns the plan entry for a category, or nil.
func (p *PlanPayload) FindPlan(category string) *WasteStreamPlan {
	for i := range p.WasteStreamPlans {
		if p.WasteStreamPlans[i].Category == category {
			return &p.WasteStreamPlans[i]
		}
	}
	return nil
}

// Value implements driver.Valuer so the payload persists as JSONB.
func (p PlanPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for reading the JSONB column.
func (p *PlanPayload) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = PlanPayload{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PlanPayload", src)
	}
}

// PlanDocument is one persisted plan version. Rows are append-only; the most
// recent row per project is authoritative, older rows are history.
type PlanDocument struct {
	ID        string      `json:"id" db:"id"`
	ProjectID string      `json:"project_id" db:"project_id"`
	Payload   PlanPayload `json:"payload" db:"payload"`
	CreatedAt int64       `json:"created_at" db:"created_at"`
}

// SavePlanRequest is the request body for PUT /api/projects/{id}/plan.
// Saving appends a new document version.
type SavePlanRequest struct {
	Payload PlanPayload `json:"payload" validate:"required"`
}
