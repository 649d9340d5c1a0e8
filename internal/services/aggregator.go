package services

import (
	"log"

	"swmp-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// AggregationResult is the per-project mass rollup. StreamTotals only counts
// items with a non-null computed mass.
type AggregationResult struct {
	StreamTotals            map[string]float64 `json:"stream_totals"`
	UnallocatedCount        int                `json:"unallocated_count"`
	ConversionRequiredCount int                `json:"conversion_required_count"`
	IncludedCount           int                `json:"included_count"`
}

// Aggregate recomputes every item's derived fields from its raw fields and
// rolls up per-stream mass totals. Pure full recompute: running it twice over
// the same items yields identical results. The items slice is mutated in
// place with the fresh computed values so callers can persist them.
func Aggregate(items []models.ForecastItem, resolver FactorResolver) AggregationResult {
	result := AggregationResult{
		StreamTotals: make(map[string]float64),
	}

	for i := range items {
		item := &items[i]

		qty := ComputeWasteQty(item.Quantity, item.ExcessPercent)
		item.ComputedWasteQty = &qty

		// Item-level overrides win over stream factors.
		kgPerM := item.KgPerM
		density := item.DensityKgM3
		if (kgPerM == nil || density == nil) && item.WasteStreamKey != nil {
			factors := resolver.Resolve(*item.WasteStreamKey)
			if kgPerM == nil {
				kgPerM = factors.KgPerM
			}
			if density == nil {
				density = factors.DensityKgM3
			}
		}

		item.ComputedWasteKg = ComputeWasteKg(item.Quantity, item.ExcessPercent, item.Unit, kgPerM, density)

		if item.WasteStreamKey == nil || *item.WasteStreamKey == "" {
			result.UnallocatedCount++
		}

		if item.ComputedWasteKg != nil {
			result.IncludedCount++
			if item.WasteStreamKey != nil && *item.WasteStreamKey != "" {
				result.StreamTotals[*item.WasteStreamKey] += *item.ComputedWasteKg
			}
		} else if UnitNeedsFactor(item.Unit) {
			result.ConversionRequiredCount++
		}
	}

	return result
}

// Aggregator recomputes forecast item derived fields for a project and
// persists them. Safe to re-invoke at any time; every invocation converges to
// the same totals for the same underlying items.
type Aggregator struct {
	db       *sqlx.DB
	resolver FactorResolver
}

func NewAggregator(db *sqlx.DB, resolver FactorResolver) *Aggregator {
	return &Aggregator{db: db, resolver: resolver}
}

// RecomputeProject re-derives computed_waste_qty/kg for every item of the
// project, writes the fresh values back, and returns the rollup. Triggered on
// item create, update, delete, and on demand.
func (a *Aggregator) RecomputeProject(projectID string) (*AggregationResult, error) {
	var exists bool
	if err := a.db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID); err != nil {
		return nil, err
	}
	if !exists {
		return nil, NewNotFoundError("project", projectID)
	}

	var items []models.ForecastItem
	if err := a.db.Select(&items, `
		SELECT * FROM forecast_items WHERE project_id = $1 ORDER BY created_at, id
	`, projectID); err != nil {
		return nil, err
	}

	result := Aggregate(items, a.resolver)

	tx, err := a.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i := range items {
		if _, err := tx.Exec(`
			UPDATE forecast_items
			SET computed_waste_qty = $1, computed_waste_kg = $2
			WHERE id = $3
		`, items[i].ComputedWasteQty, items[i].ComputedWasteKg, items[i].ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[AGGREGATE] Project %s: %d items, %d included, %d unallocated, %d need factors",
		projectID, len(items), result.IncludedCount, result.UnallocatedCount, result.ConversionRequiredCount)

	return &result, nil
}
