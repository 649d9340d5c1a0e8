package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"swmp-backend/internal/models"
	"swmp-backend/internal/services"
	"swmp-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func GetConversionFactors(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `SELECT * FROM conversion_factors WHERE active = true`
		args := []interface{}{}
		if streamKey := r.URL.Query().Get("stream_key"); streamKey != "" {
			query += ` AND stream_key = $1`
			args = append(args, streamKey)
		}
		query += ` ORDER BY stream_key, from_unit`

		var factors []models.ConversionFactor
		if err := db.Select(&factors, query, args...); err != nil {
			log.Printf("❌ [GET-FACTORS] Query failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to retrieve conversion factors")
			return
		}
		if factors == nil {
			factors = []models.ConversionFactor{}
		}
		utils.Success(w, factors)
	}
}

func CreateConversionFactor(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateConversionFactorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if !services.IsValidUnit(req.FromUnit) || !services.IsValidUnit(req.ToUnit) {
			utils.Error(w, http.StatusBadRequest, "Unknown unit")
			return
		}
		if req.FromUnit == req.ToUnit {
			utils.Error(w, http.StatusBadRequest, "from_unit and to_unit must differ")
			return
		}

		var streamExists bool
		if err := db.Get(&streamExists, "SELECT EXISTS(SELECT 1 FROM waste_streams WHERE key = $1)", req.StreamKey); err != nil || !streamExists {
			utils.Error(w, http.StatusNotFound, "Waste stream not found: "+req.StreamKey)
			return
		}

		// Pre-check for a friendly error; the partial unique index below is
		// the race-safe backstop.
		var activeExists bool
		if err := db.Get(&activeExists, `
			SELECT EXISTS(SELECT 1 FROM conversion_factors
			WHERE stream_key = $1 AND from_unit = $2 AND to_unit = $3 AND active)
		`, req.StreamKey, req.FromUnit, req.ToUnit); err == nil && activeExists {
			utils.Error(w, http.StatusConflict, "An active factor already exists for this stream and unit pair. Deactivate it first.")
			return
		}

		factor := models.ConversionFactor{
			ID:        uuid.New().String(),
			StreamKey: req.StreamKey,
			FromUnit:  req.FromUnit,
			ToUnit:    req.ToUnit,
			Factor:    req.Factor,
			Active:    true,
			CreatedAt: time.Now().Unix(),
		}

		_, err := db.NamedExec(`
			INSERT INTO conversion_factors (id, stream_key, from_unit, to_unit, factor, active, created_at)
			VALUES (:id, :stream_key, :from_unit, :to_unit, :factor, :active, :created_at)
		`, factor)
		if err != nil {
			// The partial unique index rejects a second active row per triple.
			if isUniqueViolation(err) {
				utils.Error(w, http.StatusConflict, "An active factor already exists for this stream and unit pair. Deactivate it first.")
				return
			}
			log.Printf("❌ [CREATE-FACTOR] Insert failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create conversion factor")
			return
		}

		log.Printf("✅ [CREATE-FACTOR] %s: %s -> %s = %g", factor.StreamKey, factor.FromUnit, factor.ToUnit, factor.Factor)
		utils.JSON(w, http.StatusCreated, factor)
	}
}

// isUniqueViolation reports whether err is the Postgres duplicate-key error,
// raised here when two writers race past the pre-check on the same active
// factor triple.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// DeactivateConversionFactor retires a factor without deleting the row, so
// past computations stay explainable.
func DeactivateConversionFactor(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		result, err := db.Exec("UPDATE conversion_factors SET active = false WHERE id = $1 AND active = true", id)
		if err != nil {
			log.Printf("❌ [DEACTIVATE-FACTOR] Update failed: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to deactivate conversion factor")
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			utils.Error(w, http.StatusNotFound, "Active conversion factor not found")
			return
		}
		utils.Success(w, map[string]string{"message": "Conversion factor deactivated"})
	}
}
