package services

import (
	"errors"
	"testing"

	"swmp-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatrix answers from a canned result set and counts invocations.
type fakeMatrix struct {
	results map[string]MatrixResult
	err     error
	calls   int
	lastReq []MatrixDestination
}

func (m *fakeMatrix) Provider() string { return "fake" }

func (m *fakeMatrix) GetDistanceMatrix(origin Coordinates, destinations []MatrixDestination) ([]MatrixResult, error) {
	m.calls++
	m.lastReq = destinations
	if m.err != nil {
		return nil, m.err
	}
	var out []MatrixResult
	for _, d := range destinations {
		if res, ok := m.results[d.FacilityID]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func facility(id string, lat, lng float64) models.Facility {
	return models.Facility{ID: id, Name: id, Latitude: &lat, Longitude: &lng, Active: true}
}

func TestNormalizeFacilityKey(t *testing.T) {
	assert.Equal(t, "fac-1", NormalizeFacilityKey("FAC-1"))
	assert.Equal(t, "fac-1", NormalizeFacilityKey("  fac-1  "))
	assert.Equal(t, NormalizeFacilityKey("Fac-1"), NormalizeFacilityKey("fAC-1 "))
}

func TestResolveDistancesComputesMisses(t *testing.T) {
	matrix := &fakeMatrix{results: map[string]MatrixResult{
		"fac-1": {FacilityID: "fac-1", DistanceM: 5000, DurationS: 480},
		"fac-2": {FacilityID: "fac-2", DistanceM: 9000, DurationS: 720},
	}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8), facility("fac-2", -41.2, 174.7)}

	distances, newEntries, missing := ResolveDistances(site, facilities, nil, matrix, false)

	assert.Equal(t, 1, matrix.calls)
	assert.Len(t, distances, 2)
	assert.Len(t, newEntries, 2)
	assert.Empty(t, missing)
	assert.Equal(t, 5000.0, distances["fac-1"].DistanceM)
	assert.Equal(t, "fake", distances["fac-1"].Provider)
}

func TestResolveDistancesCacheRoundTrip(t *testing.T) {
	matrix := &fakeMatrix{results: map[string]MatrixResult{
		"fac-1": {FacilityID: "fac-1", DistanceM: 5000, DurationS: 480},
	}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8)}

	_, newEntries, _ := ResolveDistances(site, facilities, nil, matrix, false)
	require.Len(t, newEntries, 1)
	assert.Equal(t, 1, matrix.calls)

	// Feed the produced entries back as the cache: no further provider calls.
	distances, newEntries2, missing := ResolveDistances(site, facilities, newEntries, matrix, false)
	assert.Equal(t, 1, matrix.calls)
	assert.Empty(t, newEntries2)
	assert.Empty(t, missing)
	assert.Equal(t, 5000.0, distances["fac-1"].DistanceM)
}

func TestResolveDistancesOnlySendsMisses(t *testing.T) {
	matrix := &fakeMatrix{results: map[string]MatrixResult{
		"fac-2": {FacilityID: "fac-2", DistanceM: 9000, DurationS: 720},
	}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8), facility("fac-2", -41.2, 174.7)}
	cached := []models.DistanceCacheEntry{
		{ProjectID: "p1", FacilityID: "fac-1", DistanceM: 5000, DurationS: 480, Provider: "fake"},
	}

	distances, newEntries, missing := ResolveDistances(site, facilities, cached, matrix, false)

	require.Len(t, matrix.lastReq, 1)
	assert.Equal(t, "fac-2", matrix.lastReq[0].FacilityID)
	assert.Len(t, distances, 2)
	assert.Len(t, newEntries, 1)
	assert.Empty(t, missing)
}

func TestResolveDistancesPartialOnProviderFailure(t *testing.T) {
	matrix := &fakeMatrix{err: errors.New("quota exceeded")}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8), facility("fac-2", -41.2, 174.7)}
	cached := []models.DistanceCacheEntry{
		{ProjectID: "p1", FacilityID: "fac-1", DistanceM: 5000, DurationS: 480, Provider: "fake"},
	}

	distances, newEntries, missing := ResolveDistances(site, facilities, cached, matrix, false)

	// Cached entry survives; the failed facility is reported, not dropped.
	assert.Len(t, distances, 1)
	assert.Empty(t, newEntries)
	assert.Equal(t, []string{"fac-2"}, missing)
}

func TestResolveDistancesSkipsFacilitiesWithoutCoords(t *testing.T) {
	matrix := &fakeMatrix{results: map[string]MatrixResult{}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{
		{ID: "fac-nocoords", Name: "No Coords", Active: true},
	}

	distances, newEntries, missing := ResolveDistances(site, facilities, nil, matrix, false)

	assert.Equal(t, 0, matrix.calls)
	assert.Empty(t, distances)
	assert.Empty(t, newEntries)
	assert.Equal(t, []string{"fac-nocoords"}, missing)
}

func TestResolveDistancesReportsUnroutedDestinations(t *testing.T) {
	// Provider answers for one of two requested destinations.
	matrix := &fakeMatrix{results: map[string]MatrixResult{
		"fac-1": {FacilityID: "fac-1", DistanceM: 5000, DurationS: 480},
	}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8), facility("fac-2", -41.2, 174.7)}

	distances, newEntries, missing := ResolveDistances(site, facilities, nil, matrix, false)

	assert.Len(t, distances, 1)
	assert.Len(t, newEntries, 1)
	assert.Equal(t, []string{"fac-2"}, missing)
}

func TestResolveDistancesForceRecomputesCachedEntries(t *testing.T) {
	matrix := &fakeMatrix{results: map[string]MatrixResult{
		"fac-1": {FacilityID: "fac-1", DistanceM: 7000, DurationS: 600},
	}}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8)}
	cached := []models.DistanceCacheEntry{
		{ProjectID: "p1", FacilityID: "fac-1", DistanceM: 5000, DurationS: 480, Provider: "fake"},
	}

	distances, newEntries, missing := ResolveDistances(site, facilities, cached, matrix, true)

	require.Len(t, matrix.lastReq, 1)
	assert.Equal(t, "fac-1", matrix.lastReq[0].FacilityID)
	require.Len(t, newEntries, 1)
	assert.Empty(t, missing)
	assert.Equal(t, 7000.0, distances["fac-1"].DistanceM)
}

func TestResolveDistancesForceKeepsCacheOnFailure(t *testing.T) {
	matrix := &fakeMatrix{err: errors.New("quota exceeded")}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("fac-1", -41.3, 174.8), facility("fac-2", -41.2, 174.7)}
	cached := []models.DistanceCacheEntry{
		{ProjectID: "p1", FacilityID: "fac-1", DistanceM: 5000, DurationS: 480, Provider: "fake"},
	}

	// A forced refresh that hits a routing failure must not lose what the
	// cache already had; only the uncached facility reports missing.
	distances, newEntries, missing := ResolveDistances(site, facilities, cached, matrix, true)

	assert.Equal(t, 1, matrix.calls)
	assert.Empty(t, newEntries)
	require.Len(t, distances, 1)
	assert.Equal(t, 5000.0, distances["fac-1"].DistanceM)
	assert.Equal(t, []string{"fac-2"}, missing)
}

func TestResolveDistancesNormalizedKeys(t *testing.T) {
	matrix := &fakeMatrix{}
	site := Coordinates{Lat: -41.29, Lng: 174.78}
	facilities := []models.Facility{facility("FAC-1", -41.3, 174.8)}
	cached := []models.DistanceCacheEntry{
		{ProjectID: "p1", FacilityID: "fac-1", DistanceM: 5000, DurationS: 480},
	}

	// Different id casing must hit the same cache slot, not recompute.
	distances, newEntries, missing := ResolveDistances(site, facilities, cached, matrix, false)

	assert.Equal(t, 0, matrix.calls)
	assert.Empty(t, newEntries)
	assert.Empty(t, missing)
	_, ok := distances["fac-1"]
	assert.True(t, ok)
}
