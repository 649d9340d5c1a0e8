package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"swmp-backend/internal/models"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func GetWasteStreams(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var streams []models.WasteStream
		if err := db.Select(&streams, "SELECT * FROM waste_streams WHERE active = true ORDER BY name"); err != nil {
			log.Printf("❌ [GET-STREAMS] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve waste streams")
			return
		}
		if streams == nil {
			streams = []models.WasteStream{}
		}
		utils.Success(w, streams)
	}
}

func CreateWasteStream(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateWasteStreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		stream := models.WasteStream{
			Key:                req.Key,
			Name:               req.Name,
			DefaultDensityKgM3: req.DefaultDensityKgM3,
			DefaultKgPerM:      req.DefaultKgPerM,
			Active:             true,
			CreatedAt:          time.Now().Unix(),
		}

		if _, err := db.NamedExec(`
			INSERT INTO waste_streams (key, name, default_density_kg_m3, default_kg_per_m, active, created_at)
			VALUES (:key, :name, :default_density_kg_m3, :default_kg_per_m, :active, :created_at)
		`, stream); err != nil {
			log.Printf("❌ [CREATE-STREAM] Insert failed: %v", err)
			utils.Error(w, http.StatusConflict, "Waste stream already exists or insert failed")
			return
		}
		utils.JSON(w, http.StatusCreated, stream)
	}
}

func GetFacilities(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `SELECT * FROM facilities WHERE active = true`
		args := []interface{}{}
		if region := r.URL.Query().Get("region"); region != "" {
			query += ` AND region = $1`
			args = append(args, region)
		}
		query += ` ORDER BY name`

		var facilities []models.Facility
		if err := db.Select(&facilities, query, args...); err != nil {
			log.Printf("❌ [GET-FACILITIES] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve facilities")
			return
		}
		if facilities == nil {
			facilities = []models.Facility{}
		}
		utils.Success(w, facilities)
	}
}

func CreateFacility(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateFacilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now().Unix()
		facility := models.Facility{
			ID:              uuid.New().String(),
			PartnerID:       req.PartnerID,
			Name:            req.Name,
			Address:         req.Address,
			Latitude:        req.Latitude,
			Longitude:       req.Longitude,
			Region:          req.Region,
			AcceptedStreams: pq.StringArray(req.AcceptedStreams),
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if _, err := db.Exec(`
			INSERT INTO facilities
			(id, partner_id, name, address, latitude, longitude, region, accepted_streams, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, facility.ID, facility.PartnerID, facility.Name, facility.Address,
			facility.Latitude, facility.Longitude, facility.Region,
			facility.AcceptedStreams, facility.Active, facility.CreatedAt, facility.UpdatedAt); err != nil {
			log.Printf("❌ [CREATE-FACILITY] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create facility")
			return
		}
		utils.JSON(w, http.StatusCreated, facility)
	}
}

func UpdateFacility(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var facility models.Facility
		if err := db.Get(&facility, "SELECT * FROM facilities WHERE id = $1", id); err != nil {
			utils.Error(w, http.StatusNotFound, "Facility not found")
			return
		}

		var req models.UpdateFacilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		moved := false
		if req.PartnerID != nil {
			facility.PartnerID = req.PartnerID
		}
		if req.Name != nil {
			facility.Name = *req.Name
		}
		if req.Address != nil {
			facility.Address = *req.Address
		}
		if req.Latitude != nil {
			facility.Latitude = req.Latitude
			moved = true
		}
		if req.Longitude != nil {
			facility.Longitude = req.Longitude
			moved = true
		}
		if req.Region != nil {
			facility.Region = *req.Region
		}
		if req.AcceptedStreams != nil {
			facility.AcceptedStreams = pq.StringArray(req.AcceptedStreams)
		}
		if req.Active != nil {
			facility.Active = *req.Active
		}
		facility.UpdatedAt = time.Now().Unix()

		if _, err := db.Exec(`
			UPDATE facilities
			SET partner_id = $1, name = $2, address = $3, latitude = $4, longitude = $5,
			    region = $6, accepted_streams = $7, active = $8, updated_at = $9
			WHERE id = $10
		`, facility.PartnerID, facility.Name, facility.Address, facility.Latitude,
			facility.Longitude, facility.Region, facility.AcceptedStreams,
			facility.Active, facility.UpdatedAt, id); err != nil {
			log.Printf("❌ [UPDATE-FACILITY] Update failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to update facility")
			return
		}

		// A moved facility invalidates its cached distances for every project.
		if moved {
			if _, err := db.Exec("DELETE FROM distance_cache WHERE facility_id = $1", id); err != nil {
				log.Printf("⚠️  [UPDATE-FACILITY] Failed to invalidate distance cache for %s: %v", id, err)
			}
		}

		utils.Success(w, facility)
	}
}

func GetPartners(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var partners []models.Partner
		if err := db.Select(&partners, "SELECT * FROM partners ORDER BY name"); err != nil {
			log.Printf("❌ [GET-PARTNERS] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve partners")
			return
		}
		if partners == nil {
			partners = []models.Partner{}
		}
		utils.Success(w, partners)
	}
}

func CreatePartner(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreatePartnerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		partner := models.Partner{
			ID:        uuid.New().String(),
			Name:      req.Name,
			Region:    req.Region,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := db.NamedExec(`
			INSERT INTO partners (id, name, region, created_at)
			VALUES (:id, :name, :region, :created_at)
		`, partner); err != nil {
			log.Printf("❌ [CREATE-PARTNER] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create partner")
			return
		}
		utils.JSON(w, http.StatusCreated, partner)
	}
}
