package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"swmp-backend/internal/config"
	"swmp-backend/internal/models"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func GetProjects(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var projects []models.Project
		if err := db.Select(&projects, "SELECT * FROM projects ORDER BY created_at DESC"); err != nil {
			log.Printf("❌ [GET-PROJECTS] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve projects")
			return
		}
		if projects == nil {
			projects = []models.Project{}
		}
		utils.Success(w, projects)
	}
}

func GetProject(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var project models.Project
		if err := db.Get(&project, "SELECT * FROM projects WHERE id = $1", id); err != nil {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}
		utils.Success(w, project)
	}
}

func CreateProject(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now().Unix()
		project := models.Project{
			ID:              uuid.New().String(),
			Name:            req.Name,
			Address:         req.Address,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			Region:          req.Region,
			PartnerID:       req.PartnerID,
			SelectedStreams: config.DefaultStreamKeys,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if _, err := db.Exec(`
			INSERT INTO projects (id, name, address, latitude, longitude, region, partner_id, selected_streams, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, project.ID, project.Name, project.Address, project.Latitude, project.Longitude,
			project.Region, project.PartnerID, pq.Array([]string(project.SelectedStreams)), now, now); err != nil {
			log.Printf("❌ [CREATE-PROJECT] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create project")
			return
		}

		log.Printf("✅ [CREATE-PROJECT] Created project %s (%s)", project.ID, project.Name)
		utils.JSON(w, http.StatusCreated, project)
	}
}

func UpdateProject(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var project models.Project
		if err := db.Get(&project, "SELECT * FROM projects WHERE id = $1", id); err != nil {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}

		var req models.UpdateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name != nil {
			project.Name = *req.Name
		}
		if req.Address != nil && *req.Address != project.Address {
			project.Address = *req.Address
			// A changed address invalidates the geocoded site position; it
			// will be re-geocoded on the next distance lookup.
			project.Latitude = nil
			project.Longitude = nil
		}
		if req.Region != nil {
			project.Region = *req.Region
		}
		if req.PartnerID != nil {
			project.PartnerID = req.PartnerID
		}
		if req.Latitude != nil {
			project.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			project.Longitude = req.Longitude
		}
		project.UpdatedAt = time.Now().Unix()

		if _, err := db.Exec(`
			UPDATE projects
			SET name = $1, address = $2, latitude = $3, longitude = $4, region = $5, partner_id = $6, updated_at = $7
			WHERE id = $8
		`, project.Name, project.Address, project.Latitude, project.Longitude,
			project.Region, project.PartnerID, project.UpdatedAt, id); err != nil {
			log.Printf("❌ [UPDATE-PROJECT] Update failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to update project")
			return
		}

		utils.Success(w, project)
	}
}

func DeleteProject(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		result, err := db.Exec("DELETE FROM projects WHERE id = $1", id)
		if err != nil {
			log.Printf("❌ [DELETE-PROJECT] Delete failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to delete project")
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}

		// Items, plan documents and distance cache rows cascade with the project.
		utils.Success(w, map[string]string{"message": "Project deleted"})
	}
}

// SelectStreams replaces the project's selected stream set. Stream keys must
// exist in the catalog.
func SelectStreams(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.SelectStreamsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		var known int
		if err := db.Get(&known, `
			SELECT COUNT(*) FROM waste_streams WHERE key = ANY($1) AND active
		`, pq.Array(req.StreamKeys)); err != nil {
			utils.Error(w, http.StatusInternalServerError, "Failed to validate streams")
			return
		}
		if known != len(uniqueStrings(req.StreamKeys)) {
			utils.Error(w, http.StatusBadRequest, "Unknown or inactive stream key in selection")
			return
		}

		result, err := db.Exec(`
			UPDATE projects SET selected_streams = $1, updated_at = $2 WHERE id = $3
		`, pq.Array(uniqueStrings(req.StreamKeys)), time.Now().Unix(), id)
		if err != nil {
			log.Printf("❌ [SELECT-STREAMS] Update failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to update stream selection")
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			utils.Error(w, http.StatusNotFound, "Project not found")
			return
		}

		utils.Success(w, map[string]interface{}{
			"message":     "Stream selection updated",
			"stream_keys": uniqueStrings(req.StreamKeys),
		})
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
