package models

// ForecastItem is one estimated waste-producing work item. The computed_*
// columns are a cache re-derived on every recompute, never authoritative.
type ForecastItem struct {
	ID               string   `json:"id" db:"id"`
	ProjectID        string   `json:"project_id" db:"project_id"`
	ItemName         string   `json:"item_name" db:"item_name"`
	Quantity         float64  `json:"quantity" db:"quantity"`
	Unit             string   `json:"unit" db:"unit"`
	ExcessPercent    float64  `json:"excess_percent" db:"excess_percent"`
	KgPerM           *float64 `json:"kg_per_m,omitempty" db:"kg_per_m"`
	DensityKgM3      *float64 `json:"density_kg_m3,omitempty" db:"density_kg_m3"`
	WasteStreamKey   *string  `json:"waste_stream_key,omitempty" db:"waste_stream_key"`
	ComputedWasteQty *float64 `json:"computed_waste_qty,omitempty" db:"computed_waste_qty"`
	ComputedWasteKg  *float64 `json:"computed_waste_kg,omitempty" db:"computed_waste_kg"`
	CreatedAt        int64    `json:"created_at" db:"created_at"`
	UpdatedAt        int64    `json:"updated_at" db:"updated_at"`
}

// CreateForecastItemRequest is the request body for POST /api/projects/{id}/forecast-items
type CreateForecastItemRequest struct {
	ItemName       string   `json:"item_name" validate:"required"`
	Quantity       float64  `json:"quantity" validate:"min=0"`
	Unit           string   `json:"unit" validate:"required"`
	ExcessPercent  float64  `json:"excess_percent" validate:"min=0,max=100"`
	KgPerM         *float64 `json:"kg_per_m,omitempty" validate:"omitempty,gt=0"`
	DensityKgM3    *float64 `json:"density_kg_m3,omitempty" validate:"omitempty,gt=0"`
	WasteStreamKey *string  `json:"waste_stream_key,omitempty"`
}

// UpdateForecastItemRequest is the request body for PATCH /api/forecast-items/{id}.
// Pointer fields distinguish "not sent" from zero values.
type UpdateForecastItemRequest struct {
	ItemName       *string  `json:"item_name,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	ExcessPercent  *float64 `json:"excess_percent,omitempty"`
	KgPerM         *float64 `json:"kg_per_m,omitempty"`
	DensityKgM3    *float64 `json:"density_kg_m3,omitempty"`
	WasteStreamKey *string  `json:"waste_stream_key,omitempty"`
	ClearStream    bool     `json:"clear_stream,omitempty"`
}
