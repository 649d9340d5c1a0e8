package services

import (
	"testing"

	"swmp-backend/internal/config"
	"swmp-backend/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptingFacility(id, name string, streams ...string) models.Facility {
	lat, lng := -41.3, 174.8
	return models.Facility{
		ID:              id,
		Name:            name,
		Latitude:        &lat,
		Longitude:       &lng,
		AcceptedStreams: pq.StringArray(streams),
		Active:          true,
	}
}

func distanceEntry(facilityID string, distanceM float64) models.DistanceCacheEntry {
	return models.DistanceCacheEntry{FacilityID: facilityID, DistanceM: distanceM, DurationS: distanceM / 10}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "mixed-c-d", slug("Mixed C&D"))
	assert.Equal(t, "timber--untreated", slug("Timber (untreated)"))
	assert.Equal(t, "metals", slug("Metals"))
}

func TestNearestFacilityPicksClosest(t *testing.T) {
	facilities := []models.Facility{
		acceptingFacility("fac-a", "Alpha", "Metals"),
		acceptingFacility("fac-b", "Beta", "Metals"),
	}
	distances := map[string]models.DistanceCacheEntry{
		"fac-a": distanceEntry("fac-a", 9000),
		"fac-b": distanceEntry("fac-b", 5000),
	}

	nearest := NearestFacility("Metals", facilities, distances, nil)
	require.NotNil(t, nearest)
	assert.Equal(t, "Beta", nearest.Name)
}

func TestNearestFacilityNameBreaksDistanceTie(t *testing.T) {
	facilities := []models.Facility{
		acceptingFacility("fac-b", "Beta", "Metals"),
		acceptingFacility("fac-a", "Alpha", "Metals"),
	}
	distances := map[string]models.DistanceCacheEntry{
		"fac-a": distanceEntry("fac-a", 5000),
		"fac-b": distanceEntry("fac-b", 5000),
	}

	nearest := NearestFacility("Metals", facilities, distances, nil)
	require.NotNil(t, nearest)
	assert.Equal(t, "Alpha", nearest.Name)
}

func TestNearestFacilityUnknownDistanceRanksLast(t *testing.T) {
	facilities := []models.Facility{
		acceptingFacility("fac-far", "Aardvark Depot", "Metals"),
		acceptingFacility("fac-known", "Zulu Yard", "Metals"),
	}
	distances := map[string]models.DistanceCacheEntry{
		"fac-known": distanceEntry("fac-known", 90000),
	}

	// A known 90km beats an unknown distance, whatever the names say.
	nearest := NearestFacility("Metals", facilities, distances, nil)
	require.NotNil(t, nearest)
	assert.Equal(t, "Zulu Yard", nearest.Name)
}

func TestNearestFacilityFiltersByAcceptance(t *testing.T) {
	facilities := []models.Facility{
		acceptingFacility("fac-a", "Alpha", "Plasterboard"),
		acceptingFacility("fac-b", "Beta", "Metals"),
	}
	distances := map[string]models.DistanceCacheEntry{
		"fac-a": distanceEntry("fac-a", 1000),
		"fac-b": distanceEntry("fac-b", 9000),
	}

	nearest := NearestFacility("Metals", facilities, distances, nil)
	require.NotNil(t, nearest)
	assert.Equal(t, "Beta", nearest.Name)

	assert.Nil(t, NearestFacility("Glass", facilities, distances, nil))
}

func TestNearestFacilityEmptyAcceptListTakesAnything(t *testing.T) {
	facilities := []models.Facility{acceptingFacility("fac-any", "Anything Goes")}
	nearest := NearestFacility("Glass", facilities, nil, nil)
	require.NotNil(t, nearest)
	assert.Equal(t, "Anything Goes", nearest.Name)
}

func TestNearestFacilityPrefersPinnedPartner(t *testing.T) {
	partnerID := "partner-1"
	facilities := []models.Facility{
		acceptingFacility("fac-close", "Close Independent", "Metals"),
		acceptingFacility("fac-partner", "Partner Yard", "Metals"),
	}
	facilities[1].PartnerID = &partnerID
	distances := map[string]models.DistanceCacheEntry{
		"fac-close":   distanceEntry("fac-close", 1000),
		"fac-partner": distanceEntry("fac-partner", 20000),
	}

	nearest := NearestFacility("Metals", facilities, distances, &partnerID)
	require.NotNil(t, nearest)
	assert.Equal(t, "Partner Yard", nearest.Name)

	// Partner has no accepting facility for this stream: fall back to all.
	nearest = NearestFacility("Metals", facilities[:1], distances, &partnerID)
	require.NotNil(t, nearest)
	assert.Equal(t, "Close Independent", nearest.Name)
}

func TestBuildRecommendationsPriorities(t *testing.T) {
	payload := &models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{Category: "Metals", HandlingMode: config.HandlingSeparated, DestinationMode: config.DestinationFacility},
		},
	}
	facilities := []models.Facility{acceptingFacility("fac-a", "Alpha", "Metals")}
	agg := &AggregationResult{UnallocatedCount: 2}
	selected := []string{"Metals", "Plasterboard"}

	recs := BuildRecommendations(payload, selected, agg, facilities, nil, nil)
	require.Len(t, recs, 4)

	assert.Equal(t, "allocate-mixed", recs[0].ID)
	assert.Equal(t, 1, recs[0].Priority)
	assert.Equal(t, models.ActionAllocateToMixed, recs[0].Action.Type)

	assert.Equal(t, "facility-metals", recs[1].ID)
	assert.Equal(t, 2, recs[1].Priority)
	assert.Equal(t, models.ActionSetFacility, recs[1].Action.Type)
	require.NotNil(t, recs[1].Action.FacilityID)
	assert.Equal(t, "fac-a", *recs[1].Action.FacilityID)

	assert.Equal(t, "outcome-metals", recs[2].ID)
	assert.Equal(t, 3, recs[2].Priority)

	assert.Equal(t, "stream-plasterboard", recs[3].ID)
	assert.Equal(t, 4, recs[3].Priority)
	assert.Equal(t, "Plasterboard", recs[3].Action.StreamKey)
}

func TestBuildRecommendationsDeterministicIDs(t *testing.T) {
	payload := &models.PlanPayload{}
	agg := &AggregationResult{UnallocatedCount: 1}

	first := BuildRecommendations(payload, []string{"Metals"}, agg, nil, nil, nil)
	second := BuildRecommendations(payload, []string{"Metals"}, agg, nil, nil, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestBuildRecommendationsQuietWhenComplete(t *testing.T) {
	fid := "fac-a"
	payload := &models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{
				Category:         "Metals",
				HandlingMode:     config.HandlingSeparated,
				IntendedOutcomes: []string{"recycle"},
				DestinationMode:  config.DestinationFacility,
				FacilityID:       &fid,
			},
		},
	}
	agg := &AggregationResult{}

	recs := BuildRecommendations(payload, []string{"Metals"}, agg, nil, nil, nil)
	assert.Empty(t, recs)
}

func TestApplyToPayloadSetFacilityIdempotent(t *testing.T) {
	fid := "fac-a"
	payload := models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{Category: "Metals", HandlingMode: config.HandlingSeparated, DestinationMode: config.DestinationFacility},
		},
	}
	action := models.ApplyAction{Type: models.ActionSetFacility, Category: "Metals", FacilityID: &fid}

	once := ApplyToPayload(payload, action)
	twice := ApplyToPayload(once, action)

	assert.Equal(t, once, twice)
	plan := twice.FindPlan("Metals")
	require.NotNil(t, plan)
	require.NotNil(t, plan.FacilityID)
	assert.Equal(t, "fac-a", *plan.FacilityID)
	assert.Equal(t, config.DestinationFacility, plan.DestinationMode)
}

func TestApplyToPayloadSetFacilityClearsCustomDestination(t *testing.T) {
	fid := "fac-a"
	name, addr := "Bob's Tip", "12 Gravel Rd"
	payload := models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{
				Category:              "Metals",
				DestinationMode:       config.DestinationCustom,
				CustomDestinationName: &name,
				CustomDestinationAddr: &addr,
			},
		},
	}

	out := ApplyToPayload(payload, models.ApplyAction{Type: models.ActionSetFacility, Category: "Metals", FacilityID: &fid})
	plan := out.FindPlan("Metals")
	require.NotNil(t, plan)
	assert.Nil(t, plan.CustomDestinationName)
	assert.Nil(t, plan.CustomDestinationAddr)
	assert.Equal(t, config.DestinationFacility, plan.DestinationMode)
}

func TestApplyToPayloadUnknownCategoryNoOp(t *testing.T) {
	fid := "fac-a"
	payload := models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{Category: "Metals", HandlingMode: config.HandlingSeparated},
		},
	}

	out := ApplyToPayload(payload, models.ApplyAction{Type: models.ActionSetFacility, Category: "Glass", FacilityID: &fid})
	assert.Equal(t, payload, out)

	out = ApplyToPayload(payload, models.ApplyAction{Type: models.ActionSetOutcome, Category: "Glass", Outcome: "recycle"})
	assert.Equal(t, payload, out)

	out = ApplyToPayload(payload, models.ApplyAction{Type: models.ActionMarkStreamSeparate, Category: "Glass"})
	assert.Equal(t, payload, out)
}

func TestApplyToPayloadSetOutcomeIdempotent(t *testing.T) {
	payload := models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{Category: "Metals", IntendedOutcomes: []string{}},
		},
	}
	action := models.ApplyAction{Type: models.ActionSetOutcome, Category: "Metals", Outcome: "recycle"}

	once := ApplyToPayload(payload, action)
	twice := ApplyToPayload(once, action)

	plan := twice.FindPlan("Metals")
	require.NotNil(t, plan)
	assert.Equal(t, []string{"recycle"}, plan.IntendedOutcomes)
}

func TestApplyToPayloadCreateStreamIdempotent(t *testing.T) {
	action := models.ApplyAction{Type: models.ActionCreateStream, StreamKey: "Plasterboard"}

	once := ApplyToPayload(models.PlanPayload{}, action)
	twice := ApplyToPayload(once, action)

	assert.Len(t, twice.WasteStreamPlans, 1)
	plan := twice.FindPlan("Plasterboard")
	require.NotNil(t, plan)
	assert.Equal(t, config.HandlingSeparated, plan.HandlingMode)
	assert.Equal(t, config.DestinationFacility, plan.DestinationMode)
}

func TestApplyToPayloadAllocateToMixedEnsuresEntry(t *testing.T) {
	action := models.ApplyAction{Type: models.ActionAllocateToMixed}

	once := ApplyToPayload(models.PlanPayload{}, action)
	twice := ApplyToPayload(once, action)

	assert.Len(t, twice.WasteStreamPlans, 1)
	plan := twice.FindPlan(config.MixedStreamKey)
	require.NotNil(t, plan)
	assert.Equal(t, config.HandlingMixed, plan.HandlingMode)
}

func TestAllocateUnallocatedClearsUnallocatedCount(t *testing.T) {
	resolver := &fakeResolver{factors: map[string]StreamFactors{
		config.MixedStreamKey: {DensityKgM3: f64(350)},
	}}
	items := []models.ForecastItem{
		{ID: "a", Quantity: 2, Unit: UnitM3},
		{ID: "b", Quantity: 100, Unit: UnitKg, WasteStreamKey: strptr("")},
		{ID: "c", Quantity: 1, Unit: UnitTonne, WasteStreamKey: strptr("Metals")},
	}

	before := Aggregate(items, resolver)
	assert.Equal(t, 2, before.UnallocatedCount)
	assert.Zero(t, before.StreamTotals[config.MixedStreamKey])

	changed := AllocateUnallocated(items, config.MixedStreamKey)
	assert.Equal(t, []string{"a", "b"}, changed)

	// The next recompute folds the re-keyed items into the catch-all stream.
	after := Aggregate(items, resolver)
	assert.Equal(t, 0, after.UnallocatedCount)
	assert.InDelta(t, 2*350+100, after.StreamTotals[config.MixedStreamKey], 1e-9)
	assert.InDelta(t, 1000, after.StreamTotals["Metals"], 1e-9)
}

func TestAllocateUnallocatedIdempotent(t *testing.T) {
	items := []models.ForecastItem{
		{ID: "a", Quantity: 2, Unit: UnitM3},
	}

	first := AllocateUnallocated(items, config.MixedStreamKey)
	assert.Equal(t, []string{"a"}, first)

	second := AllocateUnallocated(items, config.MixedStreamKey)
	assert.Empty(t, second)
	require.NotNil(t, items[0].WasteStreamKey)
	assert.Equal(t, config.MixedStreamKey, *items[0].WasteStreamKey)
}

func TestApplyRecommendationRejectsUnknownActionType(t *testing.T) {
	svc := NewStrategyService(nil, nil, nil)

	var ve *ValidationError

	_, err := svc.ApplyRecommendation("p1", models.ApplyRecommendationRequest{
		Action: &models.ApplyAction{Type: "reroute_everything"},
	})
	require.ErrorAs(t, err, &ve)

	_, err = svc.ApplyRecommendation("p1", models.ApplyRecommendationRequest{
		Action: &models.ApplyAction{},
	})
	require.ErrorAs(t, err, &ve)

	_, err = svc.ApplyRecommendation("p1", models.ApplyRecommendationRequest{})
	require.ErrorAs(t, err, &ve)
}

func TestApplyToPayloadMarkStreamSeparate(t *testing.T) {
	payload := models.PlanPayload{
		WasteStreamPlans: []models.WasteStreamPlan{
			{Category: "Metals", HandlingMode: config.HandlingMixed},
		},
	}

	out := ApplyToPayload(payload, models.ApplyAction{Type: models.ActionMarkStreamSeparate, Category: "Metals"})
	plan := out.FindPlan("Metals")
	require.NotNil(t, plan)
	assert.Equal(t, config.HandlingSeparated, plan.HandlingMode)
}
