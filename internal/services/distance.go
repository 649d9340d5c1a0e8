package services

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"swmp-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// DistanceSet is the distance view for one project. DistanceMap is keyed by
// normalized facility id. MissingFacilityIDs lists facilities that still have
// no distance (no coordinates, or routing failed this invocation) so the
// caller can retry later. They are reported, never silently dropped.
type DistanceSet struct {
	DistanceMap          map[string]models.DistanceCacheEntry `json:"distance_map"`
	FacilitiesWithCoords []models.Facility                    `json:"facilities_with_coords"`
	DistancesLoaded      bool                                 `json:"distances_loaded"`
	MissingFacilityIDs   []string                             `json:"missing_facility_ids"`
}

// NormalizeFacilityKey collapses case and whitespace so identifier formatting
// differences cannot produce duplicate map entries.
func NormalizeFacilityKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ResolveDistances merges cached entries with freshly computed ones for the
// facilities lacking a cache row. Only the missing set is sent to the matrix
// client (at most one attempt per facility per invocation); force sends every
// facility with coordinates, keeping cached values as the fallback. A routing
// failure degrades to a partial result: cached entries are still returned and
// the unresolved ids stay in the missing list. Returned newEntries are the
// rows the caller should upsert.
func ResolveDistances(site Coordinates, facilities []models.Facility, cached []models.DistanceCacheEntry, matrix MatrixClient, force bool) (distances map[string]models.DistanceCacheEntry, newEntries []models.DistanceCacheEntry, missing []string) {
	distances = make(map[string]models.DistanceCacheEntry, len(cached))
	for _, entry := range cached {
		distances[NormalizeFacilityKey(entry.FacilityID)] = entry
	}

	var toCompute []MatrixDestination
	for i := range facilities {
		f := &facilities[i]
		if !f.HasCoordinates() {
			missing = append(missing, f.ID)
			continue
		}
		if _, ok := distances[NormalizeFacilityKey(f.ID)]; ok && !force {
			continue
		}
		toCompute = append(toCompute, MatrixDestination{
			FacilityID: f.ID,
			Lat:        *f.Latitude,
			Lng:        *f.Longitude,
		})
	}

	if len(toCompute) == 0 {
		return distances, nil, missing
	}

	results, err := matrix.GetDistanceMatrix(site, toCompute)
	if err != nil {
		// Partial success: keep what the cache already had, report only the
		// ids with no value at all.
		log.Printf("[DISTANCES] Routing call failed, returning partial result: %v", err)
		for _, d := range toCompute {
			if _, ok := distances[NormalizeFacilityKey(d.FacilityID)]; !ok {
				missing = append(missing, d.FacilityID)
			}
		}
		return distances, nil, missing
	}

	now := time.Now().Unix()
	resolved := make(map[string]bool, len(results))
	for _, res := range results {
		entry := models.DistanceCacheEntry{
			FacilityID: res.FacilityID,
			DistanceM:  res.DistanceM,
			DurationS:  res.DurationS,
			Provider:   matrix.Provider(),
			UpdatedAt:  now,
		}
		distances[NormalizeFacilityKey(res.FacilityID)] = entry
		newEntries = append(newEntries, entry)
		resolved[NormalizeFacilityKey(res.FacilityID)] = true
	}

	// Destinations absent from the provider response are missing unless a
	// cached value still covers them.
	for _, d := range toCompute {
		key := NormalizeFacilityKey(d.FacilityID)
		if resolved[key] {
			continue
		}
		if _, ok := distances[key]; !ok {
			missing = append(missing, d.FacilityID)
		}
	}

	return distances, newEntries, missing
}

// DistanceService persists and serves project→facility travel distances,
// computing missing entries through the routing capability.
type DistanceService struct {
	db       *sqlx.DB
	geocoder Geocoder
	matrix   MatrixClient
}

func NewDistanceService(db *sqlx.DB, geocoder Geocoder, matrix MatrixClient) *DistanceService {
	return &DistanceService{db: db, geocoder: geocoder, matrix: matrix}
}

// GetDistances returns the distance view for a project, lazily geocoding the
// site (once, ever) and computing only the cache misses.
func (s *DistanceService) GetDistances(projectID string) (*DistanceSet, error) {
	return s.getDistances(projectID, false)
}

// Recompute refreshes every facility's distance, upserting over the existing
// rows. Cache rows are never deleted here; when routing fails mid-refresh the
// previously cached values keep serving.
func (s *DistanceService) Recompute(projectID string) (*DistanceSet, error) {
	return s.getDistances(projectID, true)
}

func (s *DistanceService) getDistances(projectID string, force bool) (*DistanceSet, error) {
	var project models.Project
	if err := s.db.Get(&project, `SELECT * FROM projects WHERE id = $1`, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("project", projectID)
		}
		return nil, err
	}

	var facilities []models.Facility
	if err := s.db.Select(&facilities, `SELECT * FROM facilities WHERE active ORDER BY name`); err != nil {
		return nil, err
	}

	site, err := s.resolveSite(&project)
	if err != nil {
		return nil, err
	}
	if site == nil {
		// Site not geocodable: nothing to compute, everything is missing.
		set := &DistanceSet{
			DistanceMap:     map[string]models.DistanceCacheEntry{},
			DistancesLoaded: false,
		}
		for i := range facilities {
			if facilities[i].HasCoordinates() {
				set.FacilitiesWithCoords = append(set.FacilitiesWithCoords, facilities[i])
			}
			set.MissingFacilityIDs = append(set.MissingFacilityIDs, facilities[i].ID)
		}
		return set, nil
	}

	var cached []models.DistanceCacheEntry
	if err := s.db.Select(&cached, `SELECT * FROM distance_cache WHERE project_id = $1`, projectID); err != nil {
		return nil, err
	}

	distances, newEntries, missing := ResolveDistances(*site, facilities, cached, s.matrix, force)

	for _, entry := range newEntries {
		if err := s.upsertEntry(projectID, entry); err != nil {
			log.Printf("[DISTANCES] Failed to cache %s -> %s: %v", projectID, entry.FacilityID, err)
		}
	}

	set := &DistanceSet{
		DistanceMap:        distances,
		DistancesLoaded:    true,
		MissingFacilityIDs: missing,
	}
	for i := range facilities {
		if facilities[i].HasCoordinates() {
			set.FacilitiesWithCoords = append(set.FacilitiesWithCoords, facilities[i])
		}
	}
	return set, nil
}

// resolveSite returns the project coordinates, geocoding the stored address
// at most once and persisting the result. An already-geocoded project is
// never re-geocoded.
func (s *DistanceService) resolveSite(project *models.Project) (*Coordinates, error) {
	if project.HasCoordinates() {
		return &Coordinates{Lat: *project.Latitude, Lng: *project.Longitude}, nil
	}

	coords, err := s.geocoder.Geocode(project.Address)
	if err != nil {
		log.Printf("[DISTANCES] Geocoding failed for project %s: %v", project.ID, err)
		return nil, nil
	}
	if coords == nil {
		log.Printf("[DISTANCES] Address not resolvable for project %s: %q", project.ID, project.Address)
		return nil, nil
	}

	if _, err := s.db.Exec(`
		UPDATE projects SET latitude = $1, longitude = $2, updated_at = $3 WHERE id = $4
	`, coords.Lat, coords.Lng, time.Now().Unix(), project.ID); err != nil {
		return nil, err
	}
	project.Latitude = &coords.Lat
	project.Longitude = &coords.Lng
	return coords, nil
}

// upsertEntry writes one cache row with conflict-safe upsert semantics, so
// concurrent callers computing the same facility cannot duplicate rows.
func (s *DistanceService) upsertEntry(projectID string, entry models.DistanceCacheEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO distance_cache (project_id, facility_id, distance_m, duration_s, provider, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, facility_id)
		DO UPDATE SET distance_m = EXCLUDED.distance_m,
		              duration_s = EXCLUDED.duration_s,
		              provider = EXCLUDED.provider,
		              updated_at = EXCLUDED.updated_at
	`, projectID, entry.FacilityID, entry.DistanceM, entry.DurationS, entry.Provider, entry.UpdatedAt)
	return err
}
