package models

// DistanceCacheEntry is one persisted project→facility travel distance.
// Keyed by (project_id, facility_id); recomputes upsert in place.
type DistanceCacheEntry struct {
	ProjectID  string  `json:"project_id" db:"project_id"`
	FacilityID string  `json:"facility_id" db:"facility_id"`
	DistanceM  float64 `json:"distance_m" db:"distance_m"`
	DurationS  float64 `json:"duration_s" db:"duration_s"`
	Provider   string  `json:"provider" db:"provider"`
	UpdatedAt  int64   `json:"updated_at" db:"updated_at"`
}
