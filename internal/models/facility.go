package models

import "github.com/lib/pq"

// Facility is one entry of the disposal facility catalog.
type Facility struct {
	ID              string         `json:"id" db:"id"`
	PartnerID       *string        `json:"partner_id,omitempty" db:"partner_id"`
	Name            string         `json:"name" db:"name"`
	Address         string         `json:"address" db:"address"`
	Latitude        *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64       `json:"longitude,omitempty" db:"longitude"`
	Region          string         `json:"region" db:"region"`
	AcceptedStreams pq.StringArray `json:"accepted_streams" db:"accepted_streams"`
	Active          bool           `json:"active" db:"active"`
	CreatedAt       int64          `json:"created_at" db:"created_at"`
	UpdatedAt       int64          `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether the facility can participate in distance lookups.
func (f *Facility) HasCoordinates() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// Accepts reports whether the facility accepts the given waste stream.
// An empty accepted_streams list means the facility takes anything.
func (f *Facility) Accepts(streamKey string) bool {
	if len(f.AcceptedStreams) == 0 {
		return true
	}
	for _, s := range f.AcceptedStreams {
		if s == streamKey {
			return true
		}
	}
	return false
}

type Partner struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Region    string `json:"region" db:"region"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// CreateFacilityRequest is the request body for POST /api/facilities (admin only)
type CreateFacilityRequest struct {
	PartnerID       *string  `json:"partner_id,omitempty"`
	Name            string   `json:"name" validate:"required"`
	Address         string   `json:"address" validate:"required"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Region          string   `json:"region"`
	AcceptedStreams []string `json:"accepted_streams"`
}

// UpdateFacilityRequest is the request body for PATCH /api/facilities/{id}
// (admin only). Pointer fields distinguish "not sent" from zero values.
type UpdateFacilityRequest struct {
	PartnerID       *string  `json:"partner_id,omitempty"`
	Name            *string  `json:"name,omitempty"`
	Address         *string  `json:"address,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Region          *string  `json:"region,omitempty"`
	AcceptedStreams []string `json:"accepted_streams,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

// CreatePartnerRequest is the request body for POST /api/partners (admin only)
type CreatePartnerRequest struct {
	Name   string `json:"name" validate:"required"`
	Region string `json:"region"`
}
