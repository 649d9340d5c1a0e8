package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"swmp-backend/internal/models"
	"swmp-backend/internal/services"
	"swmp-backend/internal/websocket"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func GetForecastItems(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var items []models.ForecastItem
		if err := db.Select(&items, `
			SELECT * FROM forecast_items WHERE project_id = $1 ORDER BY created_at, id
		`, projectID); err != nil {
			log.Printf("❌ [GET-ITEMS] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve forecast items")
			return
		}
		if items == nil {
			items = []models.ForecastItem{}
		}
		utils.Success(w, items)
	}
}

func CreateForecastItem(db *sqlx.DB, agg *services.Aggregator, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var req models.CreateForecastItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := services.ValidateQuantityInput(req.Quantity, req.ExcessPercent, req.Unit); err != nil {
			utils.ServiceError(w, err)
			return
		}

		now := time.Now().Unix()
		item := models.ForecastItem{
			ID:             uuid.New().String(),
			ProjectID:      projectID,
			ItemName:       req.ItemName,
			Quantity:       req.Quantity,
			Unit:           req.Unit,
			ExcessPercent:  req.ExcessPercent,
			KgPerM:         req.KgPerM,
			DensityKgM3:    req.DensityKgM3,
			WasteStreamKey: req.WasteStreamKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if _, err := db.NamedExec(`
			INSERT INTO forecast_items
			(id, project_id, item_name, quantity, unit, excess_percent, kg_per_m, density_kg_m3, waste_stream_key, created_at, updated_at)
			VALUES
			(:id, :project_id, :item_name, :quantity, :unit, :excess_percent, :kg_per_m, :density_kg_m3, :waste_stream_key, :created_at, :updated_at)
		`, item); err != nil {
			log.Printf("❌ [CREATE-ITEM] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create forecast item")
			return
		}

		syncAfterItemMutation(db, agg, hub, fcm, projectID)

		// Return the item with fresh computed fields.
		if err := db.Get(&item, "SELECT * FROM forecast_items WHERE id = $1", item.ID); err == nil {
			utils.JSON(w, http.StatusCreated, item)
			return
		}
		utils.JSON(w, http.StatusCreated, item)
	}
}

func UpdateForecastItem(db *sqlx.DB, agg *services.Aggregator, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var item models.ForecastItem
		if err := db.Get(&item, "SELECT * FROM forecast_items WHERE id = $1", id); err != nil {
			utils.Error(w, http.StatusNotFound, "Forecast item not found")
			return
		}

		var req models.UpdateForecastItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.ItemName != nil {
			item.ItemName = *req.ItemName
		}
		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.Unit != nil {
			item.Unit = *req.Unit
		}
		if req.ExcessPercent != nil {
			item.ExcessPercent = *req.ExcessPercent
		}
		if req.KgPerM != nil {
			item.KgPerM = req.KgPerM
		}
		if req.DensityKgM3 != nil {
			item.DensityKgM3 = req.DensityKgM3
		}
		if req.ClearStream {
			item.WasteStreamKey = nil
		} else if req.WasteStreamKey != nil {
			item.WasteStreamKey = req.WasteStreamKey
		}

		if err := services.ValidateQuantityInput(item.Quantity, item.ExcessPercent, item.Unit); err != nil {
			utils.ServiceError(w, err)
			return
		}

		item.UpdatedAt = time.Now().Unix()
		if _, err := db.NamedExec(`
			UPDATE forecast_items
			SET item_name = :item_name, quantity = :quantity, unit = :unit,
			    excess_percent = :excess_percent, kg_per_m = :kg_per_m,
			    density_kg_m3 = :density_kg_m3, waste_stream_key = :waste_stream_key,
			    updated_at = :updated_at
			WHERE id = :id
		`, item); err != nil {
			log.Printf("❌ [UPDATE-ITEM] Update failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to update forecast item")
			return
		}

		syncAfterItemMutation(db, agg, hub, fcm, item.ProjectID)

		if err := db.Get(&item, "SELECT * FROM forecast_items WHERE id = $1", id); err == nil {
			utils.Success(w, item)
			return
		}
		utils.Success(w, item)
	}
}

func DeleteForecastItem(db *sqlx.DB, agg *services.Aggregator, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var projectID string
		if err := db.Get(&projectID, "SELECT project_id FROM forecast_items WHERE id = $1", id); err != nil {
			utils.Error(w, http.StatusNotFound, "Forecast item not found")
			return
		}

		if _, err := db.Exec("DELETE FROM forecast_items WHERE id = $1", id); err != nil {
			log.Printf("❌ [DELETE-ITEM] Delete failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to delete forecast item")
			return
		}

		syncAfterItemMutation(db, agg, hub, fcm, projectID)

		utils.Success(w, map[string]string{"message": "Forecast item deleted"})
	}
}

// RecomputeAggregation re-derives every item's computed fields and returns
// the stream totals rollup. Safe to call at any time.
func RecomputeAggregation(agg *services.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		result, err := agg.RecomputeProject(projectID)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}
		utils.Success(w, result)
	}
}

// syncAfterItemMutation is the aggregation trigger shared by every item
// mutation path. The item row is already durable at this point; aggregation
// failure only delays convergence until the next recompute.
func syncAfterItemMutation(db *sqlx.DB, agg *services.Aggregator, hub *websocket.Hub, fcm *services.FCMService, projectID string) {
	result, err := agg.RecomputeProject(projectID)
	if err != nil {
		log.Printf("⚠️  [SYNC] Aggregation failed for project %s (will converge on next recompute): %v", projectID, err)
		return
	}

	if hub != nil {
		hub.NotifyAggregationChanged(projectID)
	}

	if fcm != nil && result.UnallocatedCount > 0 {
		go notifyUnallocated(db, fcm, projectID, result.UnallocatedCount)
	}
}

// notifyUnallocated pushes an alert to admin devices. Best effort.
func notifyUnallocated(db *sqlx.DB, fcm *services.FCMService, projectID string, unallocatedCount int) {
	var projectName string
	if err := db.Get(&projectName, "SELECT name FROM projects WHERE id = $1", projectID); err != nil {
		return
	}

	var tokens []string
	if err := db.Select(&tokens, `
		SELECT t.token FROM fcm_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.role = 'admin'
	`); err != nil {
		log.Printf("⚠️  [FCM] Failed to load admin tokens: %v", err)
		return
	}

	for _, token := range tokens {
		if err := fcm.SendUnallocatedAlert(token, projectID, projectName, unallocatedCount); err != nil {
			log.Printf("⚠️  [FCM] Push failed: %v", err)
		}
	}
}
