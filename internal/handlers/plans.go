package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"swmp-backend/internal/config"
	"swmp-backend/internal/models"
	"swmp-backend/internal/services"
	"swmp-backend/internal/websocket"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// planResponse pairs the stored document with totals derived at read time.
// Totals are never persisted inside the payload so they can never go stale.
type planResponse struct {
	Document   *models.PlanDocument        `json:"document"`
	Totals     *services.AggregationResult `json:"totals,omitempty"`
	HasHistory bool                        `json:"has_history"`
}

func GetPlan(db *sqlx.DB, agg *services.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var exists bool
		if err := db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)", projectID); err != nil || !exists {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}

		var doc models.PlanDocument
		err := db.Get(&doc, `
			SELECT * FROM plan_documents
			WHERE project_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, projectID)
		if errors.Is(err, sql.ErrNoRows) {
			utils.Success(w, planResponse{Document: nil, HasHistory: false})
			return
		}
		if err != nil {
			log.Printf("❌ [GET-PLAN] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve plan")
			return
		}

		resp := planResponse{Document: &doc}

		var count int
		if err := db.Get(&count, "SELECT COUNT(*) FROM plan_documents WHERE project_id = $1", projectID); err == nil {
			resp.HasHistory = count > 1
		}

		if r.URL.Query().Get("totals") != "false" {
			totals, err := agg.RecomputeProject(projectID)
			if err != nil {
				log.Printf("⚠️  [GET-PLAN] Totals recompute failed: %v", err)
			} else {
				resp.Totals = totals
			}
		}

		utils.Success(w, resp)
	}
}

// SavePlan appends a new plan document version. Concurrent saves both land;
// the later write becomes the latest version and earlier ones stay as history.
func SavePlan(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var exists bool
		if err := db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)", projectID); err != nil || !exists {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}

		var req models.SavePlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		seen := make(map[string]bool)
		for _, sp := range req.Payload.WasteStreamPlans {
			if sp.Category == "" {
				utils.Error(w, http.StatusBadRequest, "Plan entry missing category")
				return
			}
			if seen[sp.Category] {
				utils.Error(w, http.StatusBadRequest, "Duplicate plan entry for category: "+sp.Category)
				return
			}
			seen[sp.Category] = true
			if sp.HandlingMode != config.HandlingMixed && sp.HandlingMode != config.HandlingSeparated {
				utils.Error(w, http.StatusBadRequest, "Invalid handling_mode for category: "+sp.Category)
				return
			}
			for _, outcome := range sp.IntendedOutcomes {
				if !config.IsRecognizedOutcome(outcome) {
					utils.Error(w, http.StatusBadRequest, "Unrecognized outcome: "+outcome)
					return
				}
			}
		}

		doc := models.PlanDocument{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			Payload:   req.Payload,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := db.Exec(`
			INSERT INTO plan_documents (id, project_id, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`, doc.ID, doc.ProjectID, doc.Payload, doc.CreatedAt); err != nil {
			log.Printf("❌ [SAVE-PLAN] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to save plan")
			return
		}

		if hub != nil {
			hub.NotifyPlanUpdated(projectID, doc.ID)
		}

		log.Printf("✅ [SAVE-PLAN] New plan version %s for project %s", doc.ID, projectID)
		utils.JSON(w, http.StatusCreated, doc)
	}
}

// GetPlanHistory lists all plan versions, newest first.
func GetPlanHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var docs []models.PlanDocument
		if err := db.Select(&docs, `
			SELECT * FROM plan_documents
			WHERE project_id = $1
			ORDER BY created_at DESC, id DESC
		`, projectID); err != nil {
			log.Printf("❌ [PLAN-HISTORY] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve plan history")
			return
		}
		if docs == nil {
			docs = []models.PlanDocument{}
		}
		utils.Success(w, docs)
	}
}
