package models

// Apply action types. Each one is an idempotent mutation of the plan document.
const (
	ActionMarkStreamSeparate = "mark_stream_separate"
	ActionSetFacility        = "set_facility"
	ActionSetOutcome         = "set_outcome"
	ActionCreateStream       = "create_stream"
	ActionAllocateToMixed    = "allocate_to_mixed"
)

// ApplyAction is the tagged payload carried by a recommendation. Only the
// fields relevant to the action type are set.
type ApplyAction struct {
	Type       string  `json:"type"`
	Category   string  `json:"category,omitempty"`
	FacilityID *string `json:"facility_id,omitempty"`
	PartnerID  *string `json:"partner_id,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	StreamKey  string  `json:"stream_key,omitempty"`
}

// Recommendation is derived on every strategy build, never persisted. IDs are
// deterministic so applying by id survives a rebuild between GET and POST.
type Recommendation struct {
	ID       string      `json:"id"`
	Priority int         `json:"priority"`
	Text     string      `json:"text"`
	Action   ApplyAction `json:"apply_action"`
}

// ApplyRecommendationRequest is the request body for
// POST /api/projects/{id}/recommendations/apply. Exactly one of
// recommendation_id or action is expected.
type ApplyRecommendationRequest struct {
	RecommendationID string       `json:"recommendation_id,omitempty"`
	Action           *ApplyAction `json:"action,omitempty"`
}
