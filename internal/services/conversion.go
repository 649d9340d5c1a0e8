package services

import (
	"database/sql"
	"errors"
	"log"

	"swmp-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// StreamFactors is the best-known conversion data for one stream. A nil field
// means "no factor known"; callers must treat dependent mass computations as
// indeterminate rather than substituting zero.
type StreamFactors struct {
	DensityKgM3 *float64
	KgPerM      *float64
}

// FactorResolver maps a stream to its conversion factors. Satisfied by
// ConversionResolver and by test fakes.
type FactorResolver interface {
	Resolve(streamKey string) StreamFactors
}

// ConversionResolver prefers an explicit, active conversion_factors row for a
// stream over the stream catalog defaults.
type ConversionResolver struct {
	db *sqlx.DB
}

func NewConversionResolver(db *sqlx.DB) *ConversionResolver {
	return &ConversionResolver{db: db}
}

// Resolve returns the factors for a stream. Absence of a factor is not an
// error; it comes back as nil fields.
func (r *ConversionResolver) Resolve(streamKey string) StreamFactors {
	var factors StreamFactors

	// Explicit active rows win over catalog defaults.
	var rows []models.ConversionFactor
	err := r.db.Select(&rows, `
		SELECT * FROM conversion_factors
		WHERE stream_key = $1 AND to_unit = 'kg' AND active
	`, streamKey)
	if err != nil {
		log.Printf("[CONVERSION] Failed to load factor rows for %s: %v", streamKey, err)
	}
	for i := range rows {
		f := rows[i].Factor
		switch rows[i].FromUnit {
		case UnitM3:
			factors.DensityKgM3 = &f
		case UnitM:
			factors.KgPerM = &f
		}
	}

	if factors.DensityKgM3 != nil && factors.KgPerM != nil {
		return factors
	}

	var stream models.WasteStream
	err = r.db.Get(&stream, `SELECT * FROM waste_streams WHERE key = $1`, streamKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("[CONVERSION] Failed to load stream catalog entry %s: %v", streamKey, err)
		}
		return factors
	}
	if factors.DensityKgM3 == nil {
		factors.DensityKgM3 = stream.DefaultDensityKgM3
	}
	if factors.KgPerM == nil {
		factors.KgPerM = stream.DefaultKgPerM
	}
	return factors
}

// MergeFactors overlays explicit factor rows onto catalog defaults. Exposed
// separately so the preference order is testable without a database.
func MergeFactors(explicit []models.ConversionFactor, catalog *models.WasteStream) StreamFactors {
	var factors StreamFactors
	for i := range explicit {
		if !explicit[i].Active || explicit[i].ToUnit != UnitKg {
			continue
		}
		f := explicit[i].Factor
		switch explicit[i].FromUnit {
		case UnitM3:
			factors.DensityKgM3 = &f
		case UnitM:
			factors.KgPerM = &f
		}
	}
	if catalog != nil {
		if factors.DensityKgM3 == nil {
			factors.DensityKgM3 = catalog.DefaultDensityKgM3
		}
		if factors.KgPerM == nil {
			factors.KgPerM = catalog.DefaultKgPerM
		}
	}
	return factors
}
