package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"swmp-backend/internal/config"
	"swmp-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StreamRow is the per-stream presentation row of a strategy. Distance is nil
// when unavailable, never rendered as zero.
type StreamRow struct {
	Category              string   `json:"category"`
	HandlingMode          string   `json:"handling_mode"`
	IntendedOutcomes      []string `json:"intended_outcomes"`
	DestinationMode       string   `json:"destination_mode"`
	DestinationName       *string  `json:"destination_name,omitempty"`
	DistanceM             *float64 `json:"distance_m,omitempty"`
	DurationS             *float64 `json:"duration_s,omitempty"`
	TotalKg               float64  `json:"total_kg"`
	RecommendedFacilityID *string  `json:"recommended_facility_id,omitempty"`
	RecommendedFacility   *string  `json:"recommended_facility,omitempty"`
}

// Strategy is the full assignment view for one project.
type Strategy struct {
	ProjectID          string                  `json:"project_id"`
	Rows               []StreamRow             `json:"rows"`
	Recommendations    []models.Recommendation `json:"recommendations"`
	Aggregation        AggregationResult       `json:"aggregation"`
	DistancesLoaded    bool                    `json:"distances_loaded"`
	MissingFacilityIDs []string                `json:"missing_facility_ids,omitempty"`
}

// slug makes a deterministic id fragment out of a stream name.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// NearestFacility picks the nearest facility accepting the stream. Facilities
// from the pinned partner are preferred when the partner has at least one
// accepting facility. Unknown distances rank last, not excluded; known
// distances sort strictly ascending; equal distances break on facility name.
func NearestFacility(streamKey string, facilities []models.Facility, distances map[string]models.DistanceCacheEntry, pinnedPartnerID *string) *models.Facility {
	var candidates []models.Facility
	for i := range facilities {
		if facilities[i].Active && facilities[i].Accepts(streamKey) {
			candidates = append(candidates, facilities[i])
		}
	}
	if pinnedPartnerID != nil {
		var partnerOnly []models.Facility
		for i := range candidates {
			if candidates[i].PartnerID != nil && *candidates[i].PartnerID == *pinnedPartnerID {
				partnerOnly = append(partnerOnly, candidates[i])
			}
		}
		if len(partnerOnly) > 0 {
			candidates = partnerOnly
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, iKnown := distances[NormalizeFacilityKey(candidates[i].ID)]
		dj, jKnown := distances[NormalizeFacilityKey(candidates[j].ID)]
		if iKnown != jKnown {
			return iKnown
		}
		if iKnown && di.DistanceM != dj.DistanceM {
			return di.DistanceM < dj.DistanceM
		}
		return candidates[i].Name < candidates[j].Name
	})

	return &candidates[0]
}

// BuildRecommendations scans the plan entries and aggregation results and
// produces the ordered recommendation list.
func BuildRecommendations(payload *models.PlanPayload, selectedStreams []string, agg *AggregationResult, facilities []models.Facility, distances map[string]models.DistanceCacheEntry, pinnedPartnerID *string) []models.Recommendation {
	var recs []models.Recommendation

	// 1. Unallocated forecast items.
	if agg.UnallocatedCount > 0 {
		recs = append(recs, models.Recommendation{
			ID:       "allocate-mixed",
			Priority: 1,
			Text: fmt.Sprintf("%d forecast item(s) have no waste stream. Allocate them to the %s stream",
				agg.UnallocatedCount, config.MixedStreamKey),
			Action: models.ApplyAction{Type: models.ActionAllocateToMixed},
		})
	}

	// 2. Streams without a destination.
	for i := range payload.WasteStreamPlans {
		plan := &payload.WasteStreamPlans[i]
		if plan.HasDestination() {
			continue
		}
		nearest := NearestFacility(plan.Category, facilities, distances, pinnedPartnerID)
		if nearest == nil {
			continue
		}
		facilityID := nearest.ID
		recs = append(recs, models.Recommendation{
			ID:       "facility-" + slug(plan.Category),
			Priority: 2,
			Text:     fmt.Sprintf("No destination set for %s. Assign %s", plan.Category, nearest.Name),
			Action: models.ApplyAction{
				Type:       models.ActionSetFacility,
				Category:   plan.Category,
				FacilityID: &facilityID,
				PartnerID:  nearest.PartnerID,
			},
		})
	}

	// 3. Streams without a recognized outcome.
	for i := range payload.WasteStreamPlans {
		plan := &payload.WasteStreamPlans[i]
		if hasRecognizedOutcome(plan.IntendedOutcomes) {
			continue
		}
		recs = append(recs, models.Recommendation{
			ID:       "outcome-" + slug(plan.Category),
			Priority: 3,
			Text:     fmt.Sprintf("No outcome decided for %s. Record an intended outcome", plan.Category),
			Action: models.ApplyAction{
				Type:     models.ActionSetOutcome,
				Category: plan.Category,
				Outcome:  "recycle",
			},
		})
	}

	// 4. Selected streams with no plan entry yet.
	for _, key := range selectedStreams {
		if payload.FindPlan(key) != nil {
			continue
		}
		recs = append(recs, models.Recommendation{
			ID:       "stream-" + slug(key),
			Priority: 4,
			Text:     fmt.Sprintf("Stream %s is selected for this project but has no plan entry yet", key),
			Action: models.ApplyAction{
				Type:      models.ActionCreateStream,
				StreamKey: key,
			},
		})
	}

	return recs
}

func hasRecognizedOutcome(outcomes []string) bool {
	for _, o := range outcomes {
		if config.IsRecognizedOutcome(o) {
			return true
		}
	}
	return false
}

// ApplyToPayload applies one action to a plan payload. Pure and idempotent:
// applying the same action twice leaves the payload in the same state as one
// application. An action targeting a stream that no longer exists is a no-op,
// not an error; the UI may race a stream being removed.
func ApplyToPayload(payload models.PlanPayload, action models.ApplyAction) models.PlanPayload {
	switch action.Type {
	case models.ActionMarkStreamSeparate:
		if plan := payload.FindPlan(action.Category); plan != nil {
			plan.HandlingMode = config.HandlingSeparated
		}

	case models.ActionSetFacility:
		if plan := payload.FindPlan(action.Category); plan != nil && action.FacilityID != nil {
			plan.DestinationMode = config.DestinationFacility
			plan.FacilityID = action.FacilityID
			plan.PartnerID = action.PartnerID
			plan.CustomDestinationName = nil
			plan.CustomDestinationAddr = nil
		}

	case models.ActionSetOutcome:
		if plan := payload.FindPlan(action.Category); plan != nil && action.Outcome != "" {
			if !containsString(plan.IntendedOutcomes, action.Outcome) {
				plan.IntendedOutcomes = append(plan.IntendedOutcomes, action.Outcome)
			}
		}

	case models.ActionCreateStream:
		if action.StreamKey != "" && payload.FindPlan(action.StreamKey) == nil {
			payload.WasteStreamPlans = append(payload.WasteStreamPlans, models.WasteStreamPlan{
				Category:         action.StreamKey,
				HandlingMode:     config.HandlingSeparated,
				IntendedOutcomes: []string{},
				DestinationMode:  config.DestinationFacility,
			})
		}

	case models.ActionAllocateToMixed:
		// Ensure the catch-all stream exists; the item re-keying happens in
		// the DB side of the apply pipeline.
		if payload.FindPlan(config.MixedStreamKey) == nil {
			payload.WasteStreamPlans = append(payload.WasteStreamPlans, models.WasteStreamPlan{
				Category:         config.MixedStreamKey,
				HandlingMode:     config.HandlingMixed,
				IntendedOutcomes: []string{},
				DestinationMode:  config.DestinationFacility,
			})
		}
	}

	return payload
}

// AllocateUnallocated assigns streamKey to every item that has no stream,
// mutating the slice in place, and returns the ids of the items that changed.
// Idempotent: a second pass changes nothing.
func AllocateUnallocated(items []models.ForecastItem, streamKey string) []string {
	var changed []string
	for i := range items {
		if items[i].WasteStreamKey == nil || *items[i].WasteStreamKey == "" {
			key := streamKey
			items[i].WasteStreamKey = &key
			changed = append(changed, items[i].ID)
		}
	}
	return changed
}

func validActionType(t string) bool {
	switch t {
	case models.ActionMarkStreamSeparate, models.ActionSetFacility, models.ActionSetOutcome,
		models.ActionCreateStream, models.ActionAllocateToMixed:
		return true
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// StrategyService combines plan documents, the facility catalog, and the
// distance cache into the assignment view, and runs the apply pipeline.
type StrategyService struct {
	db         *sqlx.DB
	aggregator *Aggregator
	distances  *DistanceService
}

func NewStrategyService(db *sqlx.DB, aggregator *Aggregator, distances *DistanceService) *StrategyService {
	return &StrategyService{db: db, aggregator: aggregator, distances: distances}
}

// latestPlan returns the authoritative plan document for a project, or nil
// when none exists yet. Latest is total: created_at descending, id breaking
// ties.
func (s *StrategyService) latestPlan(projectID string) (*models.PlanDocument, error) {
	var doc models.PlanDocument
	err := s.db.Get(&doc, `
		SELECT * FROM plan_documents
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// BuildStrategy computes the per-stream assignment view and recommendation
// list from current state. Aggregation runs on every build so totals are
// always derived, never read back from the document.
func (s *StrategyService) BuildStrategy(projectID string) (*Strategy, error) {
	var project models.Project
	if err := s.db.Get(&project, `SELECT * FROM projects WHERE id = $1`, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("project", projectID)
		}
		return nil, err
	}

	agg, err := s.aggregator.RecomputeProject(projectID)
	if err != nil {
		return nil, err
	}

	distSet, err := s.distances.GetDistances(projectID)
	if err != nil {
		return nil, err
	}

	var facilities []models.Facility
	if err := s.db.Select(&facilities, `SELECT * FROM facilities WHERE active ORDER BY name`); err != nil {
		return nil, err
	}
	facilityByID := make(map[string]*models.Facility, len(facilities))
	for i := range facilities {
		facilityByID[NormalizeFacilityKey(facilities[i].ID)] = &facilities[i]
	}

	payload := models.PlanPayload{}
	if doc, err := s.latestPlan(projectID); err != nil {
		return nil, err
	} else if doc != nil {
		payload = doc.Payload
	}

	strategy := &Strategy{
		ProjectID:          projectID,
		Aggregation:        *agg,
		DistancesLoaded:    distSet.DistancesLoaded,
		MissingFacilityIDs: distSet.MissingFacilityIDs,
	}

	for i := range payload.WasteStreamPlans {
		plan := &payload.WasteStreamPlans[i]
		row := StreamRow{
			Category:         plan.Category,
			HandlingMode:     plan.HandlingMode,
			IntendedOutcomes: plan.IntendedOutcomes,
			DestinationMode:  plan.DestinationMode,
			TotalKg:          agg.StreamTotals[plan.Category],
		}

		switch {
		case plan.DestinationMode == config.DestinationCustom && plan.CustomDestinationName != nil:
			row.DestinationName = plan.CustomDestinationName
		case plan.FacilityID != nil:
			if facility, ok := facilityByID[NormalizeFacilityKey(*plan.FacilityID)]; ok {
				row.DestinationName = &facility.Name
				if entry, ok := distSet.DistanceMap[NormalizeFacilityKey(facility.ID)]; ok {
					d := entry.DistanceM
					t := entry.DurationS
					row.DistanceM = &d
					row.DurationS = &t
				}
			}
		}

		if !plan.HasDestination() {
			if nearest := NearestFacility(plan.Category, facilities, distSet.DistanceMap, project.PartnerID); nearest != nil {
				row.RecommendedFacilityID = &nearest.ID
				row.RecommendedFacility = &nearest.Name
			}
		}

		strategy.Rows = append(strategy.Rows, row)
	}

	strategy.Recommendations = BuildRecommendations(&payload, project.SelectedStreams, agg, facilities, distSet.DistanceMap, project.PartnerID)

	return strategy, nil
}

// ApplyRecommendation runs the apply pipeline: load latest document, mutate
// exactly the targeted plan entry, persist (update the latest row if one
// exists, insert otherwise), recompute, return the fresh strategy.
func (s *StrategyService) ApplyRecommendation(projectID string, req models.ApplyRecommendationRequest) (*Strategy, error) {
	action, err := s.resolveAction(projectID, req)
	if err != nil {
		return nil, err
	}

	doc, err := s.latestPlan(projectID)
	if err != nil {
		return nil, err
	}

	var payload models.PlanPayload
	if doc != nil {
		payload = doc.Payload
	}
	payload = ApplyToPayload(payload, *action)

	now := time.Now().Unix()
	if doc != nil {
		// Whole-payload replace of the latest row: last writer wins, but a
		// reader can never observe a partially merged document.
		if _, err := s.db.Exec(`
			UPDATE plan_documents SET payload = $1 WHERE id = $2
		`, payload, doc.ID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.db.Exec(`
			INSERT INTO plan_documents (id, project_id, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.New().String(), projectID, payload, now); err != nil {
			return nil, err
		}
	}

	if action.Type == models.ActionAllocateToMixed {
		var items []models.ForecastItem
		if err := s.db.Select(&items, `
			SELECT * FROM forecast_items WHERE project_id = $1 ORDER BY created_at, id
		`, projectID); err != nil {
			return nil, err
		}
		changed := AllocateUnallocated(items, config.MixedStreamKey)
		for _, id := range changed {
			if _, err := s.db.Exec(`
				UPDATE forecast_items SET waste_stream_key = $1, updated_at = $2 WHERE id = $3
			`, config.MixedStreamKey, now, id); err != nil {
				return nil, err
			}
		}
		if len(changed) > 0 {
			log.Printf("[APPLY] Project %s: allocated %d item(s) to %s", projectID, len(changed), config.MixedStreamKey)
		}
	}

	log.Printf("[APPLY] Project %s: applied %s", projectID, action.Type)

	return s.BuildStrategy(projectID)
}

// resolveAction turns a recommendation id (or a raw action) into the action
// to apply. Looking up an id rebuilds the current recommendation list, so an
// id minted by an earlier GET still resolves as long as the condition holds.
func (s *StrategyService) resolveAction(projectID string, req models.ApplyRecommendationRequest) (*models.ApplyAction, error) {
	if req.Action != nil {
		if req.Action.Type == "" {
			return nil, NewValidationError("action.type", "required")
		}
		if !validActionType(req.Action.Type) {
			return nil, NewValidationError("action.type", "unknown action type: "+req.Action.Type)
		}
		return req.Action, nil
	}
	if req.RecommendationID == "" {
		return nil, NewValidationError("recommendation_id", "either recommendation_id or action is required")
	}

	strategy, err := s.BuildStrategy(projectID)
	if err != nil {
		return nil, err
	}
	for i := range strategy.Recommendations {
		if strategy.Recommendations[i].ID == req.RecommendationID {
			return &strategy.Recommendations[i].Action, nil
		}
	}
	return nil, NewNotFoundError("recommendation", req.RecommendationID)
}
