package models

import "github.com/lib/pq"

type Project struct {
	ID              string         `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	Address         string         `json:"address" db:"address"`
	Latitude        *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64       `json:"longitude,omitempty" db:"longitude"`
	Region          string         `json:"region" db:"region"`
	PartnerID       *string        `json:"partner_id,omitempty" db:"partner_id"`
	SelectedStreams pq.StringArray `json:"selected_streams" db:"selected_streams"`
	CreatedAt       int64          `json:"created_at" db:"created_at"`
	UpdatedAt       int64          `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether the project site has been geocoded.
func (p *Project) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// CreateProjectRequest is the request body for POST /api/projects
type CreateProjectRequest struct {
	Name      string   `json:"name" validate:"required"`
	Address   string   `json:"address" validate:"required"`
	Region    string   `json:"region"`
	PartnerID *string  `json:"partner_id,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UpdateProjectRequest is the request body for PATCH /api/projects/{id}
type UpdateProjectRequest struct {
	Name      *string  `json:"name,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Region    *string  `json:"region,omitempty"`
	PartnerID *string  `json:"partner_id,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// SelectStreamsRequest is the request body for PUT /api/projects/{id}/streams
type SelectStreamsRequest struct {
	StreamKeys []string `json:"stream_keys" validate:"required,min=1,dive,required"`
}
