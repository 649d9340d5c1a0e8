package models

// WasteStream is one entry of the stream catalog. The default conversion
// values are fallbacks; an active ConversionFactor row for the stream wins.
type WasteStream struct {
	Key                 string   `json:"key" db:"key"`
	Name                string   `json:"name" db:"name"`
	DefaultDensityKgM3  *float64 `json:"default_density_kg_m3,omitempty" db:"default_density_kg_m3"`
	DefaultKgPerM       *float64 `json:"default_kg_per_m,omitempty" db:"default_kg_per_m"`
	Active              bool     `json:"active" db:"active"`
	CreatedAt           int64    `json:"created_at" db:"created_at"`
}

// ConversionFactor maps (stream, from_unit, to_unit) to a positive factor.
// At most one active row may exist per triple; deactivation keeps history.
type ConversionFactor struct {
	ID        string  `json:"id" db:"id"`
	StreamKey string  `json:"stream_key" db:"stream_key"`
	FromUnit  string  `json:"from_unit" db:"from_unit"`
	ToUnit    string  `json:"to_unit" db:"to_unit"`
	Factor    float64 `json:"factor" db:"factor"`
	Active    bool    `json:"active" db:"active"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// CreateWasteStreamRequest is the request body for POST /api/waste-streams (admin only)
type CreateWasteStreamRequest struct {
	Key                string   `json:"key" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	DefaultDensityKgM3 *float64 `json:"default_density_kg_m3,omitempty" validate:"omitempty,gt=0"`
	DefaultKgPerM      *float64 `json:"default_kg_per_m,omitempty" validate:"omitempty,gt=0"`
}

// CreateConversionFactorRequest is the request body for POST /api/conversion-factors
type CreateConversionFactorRequest struct {
	StreamKey string  `json:"stream_key" validate:"required"`
	FromUnit  string  `json:"from_unit" validate:"required"`
	ToUnit    string  `json:"to_unit" validate:"required"`
	Factor    float64 `json:"factor" validate:"required,gt=0"`
}
