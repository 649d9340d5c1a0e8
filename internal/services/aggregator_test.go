package services

import (
	"testing"

	"swmp-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver serves factors from a map and counts lookups.
type fakeResolver struct {
	factors map[string]StreamFactors
	calls   int
}

func (r *fakeResolver) Resolve(streamKey string) StreamFactors {
	r.calls++
	return r.factors[streamKey]
}

func strptr(s string) *string { return &s }

func TestAggregateRollsUpStreamTotals(t *testing.T) {
	resolver := &fakeResolver{factors: map[string]StreamFactors{
		"Concrete / Masonry": {DensityKgM3: f64(1500)},
	}}

	items := []models.ForecastItem{
		{ID: "a", Quantity: 2, Unit: UnitTonne, ExcessPercent: 0, WasteStreamKey: strptr("Metals")},
		{ID: "b", Quantity: 500, Unit: UnitKg, ExcessPercent: 10, WasteStreamKey: strptr("Metals")},
		{ID: "c", Quantity: 4, Unit: UnitM3, ExcessPercent: 0, WasteStreamKey: strptr("Concrete / Masonry")},
	}

	result := Aggregate(items, resolver)

	assert.InDelta(t, 2550.0, result.StreamTotals["Metals"], 1e-9)
	assert.InDelta(t, 6000.0, result.StreamTotals["Concrete / Masonry"], 1e-9)
	assert.Equal(t, 3, result.IncludedCount)
	assert.Equal(t, 0, result.UnallocatedCount)
	assert.Equal(t, 0, result.ConversionRequiredCount)
}

func TestAggregateCountsUnallocatedAndFactorless(t *testing.T) {
	resolver := &fakeResolver{factors: map[string]StreamFactors{}}

	items := []models.ForecastItem{
		// No stream at all.
		{ID: "a", Quantity: 10, Unit: UnitKg},
		// Empty stream key counts as unallocated too.
		{ID: "b", Quantity: 10, Unit: UnitKg, WasteStreamKey: strptr("")},
		// Stream known but no density: conversion required.
		{ID: "c", Quantity: 10, Unit: UnitM3, WasteStreamKey: strptr("Plasterboard")},
		// Non-mass unit: neither included nor conversion-required.
		{ID: "d", Quantity: 10, Unit: UnitM2, WasteStreamKey: strptr("Plasterboard")},
	}

	result := Aggregate(items, resolver)

	assert.Equal(t, 2, result.UnallocatedCount)
	assert.Equal(t, 1, result.ConversionRequiredCount)
	// The two kg items still contribute mass.
	assert.Equal(t, 2, result.IncludedCount)
	assert.Empty(t, result.StreamTotals["Plasterboard"])
}

func TestAggregateItemOverridesWin(t *testing.T) {
	resolver := &fakeResolver{factors: map[string]StreamFactors{
		"Timber (untreated)": {DensityKgM3: f64(250), KgPerM: f64(1.8)},
	}}

	items := []models.ForecastItem{
		{ID: "a", Quantity: 10, Unit: UnitM3, WasteStreamKey: strptr("Timber (untreated)"), DensityKgM3: f64(300)},
		{ID: "b", Quantity: 10, Unit: UnitM3, WasteStreamKey: strptr("Timber (untreated)")},
	}

	result := Aggregate(items, resolver)

	require.NotNil(t, items[0].ComputedWasteKg)
	assert.InDelta(t, 3000.0, *items[0].ComputedWasteKg, 1e-9)
	require.NotNil(t, items[1].ComputedWasteKg)
	assert.InDelta(t, 2500.0, *items[1].ComputedWasteKg, 1e-9)
	assert.InDelta(t, 5500.0, result.StreamTotals["Timber (untreated)"], 1e-9)
}

func TestAggregateWritesComputedFields(t *testing.T) {
	resolver := &fakeResolver{}
	items := []models.ForecastItem{
		{ID: "a", Quantity: 10, Unit: UnitTonne, ExcessPercent: 10, WasteStreamKey: strptr("Metals")},
	}

	Aggregate(items, resolver)

	require.NotNil(t, items[0].ComputedWasteQty)
	assert.InDelta(t, 11.0, *items[0].ComputedWasteQty, 1e-9)
	require.NotNil(t, items[0].ComputedWasteKg)
	assert.InDelta(t, 11000.0, *items[0].ComputedWasteKg, 1e-9)
}

func TestAggregateIdempotent(t *testing.T) {
	resolver := &fakeResolver{factors: map[string]StreamFactors{
		"Concrete / Masonry": {DensityKgM3: f64(1500)},
	}}
	items := []models.ForecastItem{
		{ID: "a", Quantity: 3.7, Unit: UnitM3, ExcessPercent: 15, WasteStreamKey: strptr("Concrete / Masonry")},
		{ID: "b", Quantity: 12, Unit: UnitKg, ExcessPercent: 0},
	}

	first := Aggregate(items, resolver)
	second := Aggregate(items, resolver)

	assert.Equal(t, first, second)
	assert.Equal(t, first.StreamTotals, second.StreamTotals)
}

func TestAggregateEmpty(t *testing.T) {
	result := Aggregate(nil, &fakeResolver{})
	assert.Empty(t, result.StreamTotals)
	assert.Equal(t, 0, result.UnallocatedCount)
	assert.Equal(t, 0, result.IncludedCount)
}
