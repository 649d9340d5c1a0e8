package handlers

import (
	"encoding/json"
	"net/http"

	"swmp-backend/internal/models"
	"swmp-backend/internal/services"
	"swmp-backend/internal/websocket"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

func GetStrategy(strategy *services.StrategyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		result, err := strategy.BuildStrategy(projectID)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}
		utils.Success(w, result)
	}
}

func ApplyRecommendation(strategy *services.StrategyService, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var req models.ApplyRecommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := strategy.ApplyRecommendation(projectID, req)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}

		if hub != nil {
			hub.NotifyPlanUpdated(projectID, "")
		}

		utils.Success(w, result)
	}
}

func GetDistances(distances *services.DistanceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		set, err := distances.GetDistances(projectID)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}
		utils.Success(w, set)
	}
}

// RecomputeDistances drops the cache for the project and rebuilds it. Used
// after a facility moves or the project address changes.
func RecomputeDistances(distances *services.DistanceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		set, err := distances.Recompute(projectID)
		if err != nil {
			utils.ServiceError(w, err)
			return
		}
		utils.Success(w, set)
	}
}
