package services

import (
	"testing"

	"swmp-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFactorsExplicitWinsOverCatalog(t *testing.T) {
	catalog := &models.WasteStream{
		Key:                "Concrete / Masonry",
		DefaultDensityKgM3: f64(1500),
	}
	explicit := []models.ConversionFactor{
		{StreamKey: "Concrete / Masonry", FromUnit: UnitM3, ToUnit: UnitKg, Factor: 1600, Active: true},
	}

	factors := MergeFactors(explicit, catalog)
	require.NotNil(t, factors.DensityKgM3)
	assert.Equal(t, 1600.0, *factors.DensityKgM3)
}

func TestMergeFactorsCatalogFillsGaps(t *testing.T) {
	catalog := &models.WasteStream{
		Key:                "Timber (untreated)",
		DefaultDensityKgM3: f64(250),
		DefaultKgPerM:      f64(1.8),
	}
	explicit := []models.ConversionFactor{
		{StreamKey: "Timber (untreated)", FromUnit: UnitM, ToUnit: UnitKg, Factor: 2.1, Active: true},
	}

	factors := MergeFactors(explicit, catalog)
	require.NotNil(t, factors.KgPerM)
	assert.Equal(t, 2.1, *factors.KgPerM)
	require.NotNil(t, factors.DensityKgM3)
	assert.Equal(t, 250.0, *factors.DensityKgM3)
}

func TestMergeFactorsIgnoresInactiveAndWrongTarget(t *testing.T) {
	explicit := []models.ConversionFactor{
		{FromUnit: UnitM3, ToUnit: UnitKg, Factor: 900, Active: false},
		{FromUnit: UnitM3, ToUnit: UnitTonne, Factor: 0.9, Active: true},
	}

	factors := MergeFactors(explicit, nil)
	assert.Nil(t, factors.DensityKgM3)
	assert.Nil(t, factors.KgPerM)
}

func TestMergeFactorsNoData(t *testing.T) {
	factors := MergeFactors(nil, nil)
	assert.Nil(t, factors.DensityKgM3)
	assert.Nil(t, factors.KgPerM)

	// Catalog entry with no defaults still yields nothing.
	factors = MergeFactors(nil, &models.WasteStream{Key: "Metals"})
	assert.Nil(t, factors.DensityKgM3)
	assert.Nil(t, factors.KgPerM)
}
