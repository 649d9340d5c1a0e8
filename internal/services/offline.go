package services

import "errors"

// ErrRoutingUnconfigured is returned by the offline fallbacks used when no
// Maps API key is present. The distance pipeline treats it like any other
// upstream failure: cached entries still serve, the rest report as missing.
var ErrRoutingUnconfigured = errors.New("routing provider not configured")

// OfflineGeocoder satisfies Geocoder when geocoding is unavailable.
type OfflineGeocoder struct{}

func (OfflineGeocoder) Geocode(address string) (*Coordinates, error) {
	return nil, ErrRoutingUnconfigured
}

// OfflineMatrix satisfies MatrixClient when routing is unavailable.
type OfflineMatrix struct{}

func (OfflineMatrix) Provider() string { return "offline" }

func (OfflineMatrix) GetDistanceMatrix(origin Coordinates, destinations []MatrixDestination) ([]MatrixResult, error) {
	return nil, ErrRoutingUnconfigured
}
