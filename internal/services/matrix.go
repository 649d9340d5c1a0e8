package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

// matrixBatchSize is the Google Distance Matrix destination limit per request.
const matrixBatchSize = 25

// MatrixDestination is one routing destination keyed by facility id.
type MatrixDestination struct {
	FacilityID string
	Lat        float64
	Lng        float64
}

// MatrixResult is one resolved leg. Destinations the provider could not route
// are simply absent from the result slice.
type MatrixResult struct {
	FacilityID string
	DistanceM  float64
	DurationS  float64
}

// MatrixClient computes travel distance/duration from one origin to a set of
// destinations.
type MatrixClient interface {
	GetDistanceMatrix(origin Coordinates, destinations []MatrixDestination) ([]MatrixResult, error)
	Provider() string
}

// GoogleMatrixService calls the Google Distance Matrix API, batching
// destinations per request.
type GoogleMatrixService struct {
	apiKey string
	client *http.Client
}

func NewGoogleMatrixService() (*GoogleMatrixService, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required")
	}

	return &GoogleMatrixService{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *GoogleMatrixService) Provider() string {
	return "google"
}

// GetDistanceMatrix resolves driving distance from the origin to each
// destination. A destination the API cannot route is left out of the result
// rather than reported as zero.
func (s *GoogleMatrixService) GetDistanceMatrix(origin Coordinates, destinations []MatrixDestination) ([]MatrixResult, error) {
	results := make([]MatrixResult, 0, len(destinations))

	for start := 0; start < len(destinations); start += matrixBatchSize {
		end := start + matrixBatchSize
		if end > len(destinations) {
			end = len(destinations)
		}
		batch := destinations[start:end]

		batchResults, err := s.requestBatch(origin, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, batchResults...)
	}

	return results, nil
}

func (s *GoogleMatrixService) requestBatch(origin Coordinates, batch []MatrixDestination) ([]MatrixResult, error) {
	log.Printf("[MATRIX] Requesting %d destinations from (%.6f, %.6f)", len(batch), origin.Lat, origin.Lng)

	dests := ""
	for i, d := range batch {
		if i > 0 {
			dests += "|"
		}
		dests += fmt.Sprintf("%.6f,%.6f", d.Lat, d.Lng)
	}

	params := url.Values{}
	params.Add("origins", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lng))
	params.Add("destinations", dests)
	params.Add("mode", "driving")
	params.Add("key", s.apiKey)

	fullURL := "https://maps.googleapis.com/maps/api/distancematrix/json?" + params.Encode()

	resp, err := s.client.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("distance matrix API returned status %d: %s", resp.StatusCode, string(body))
	}

	var matrixResp struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value float64 `json:"value"` // meters
				} `json:"distance"`
				Duration struct {
					Value float64 `json:"value"` // seconds
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&matrixResp); err != nil {
		return nil, fmt.Errorf("failed to parse distance matrix response: %w", err)
	}

	if matrixResp.Status != "OK" {
		return nil, fmt.Errorf("distance matrix API returned status: %s", matrixResp.Status)
	}
	if len(matrixResp.Rows) == 0 {
		return nil, fmt.Errorf("distance matrix returned no rows")
	}

	results := make([]MatrixResult, 0, len(batch))
	for i, el := range matrixResp.Rows[0].Elements {
		if i >= len(batch) {
			break
		}
		if el.Status != "OK" {
			log.Printf("[MATRIX] No route to facility %s (status %s)", batch[i].FacilityID, el.Status)
			continue
		}
		results = append(results, MatrixResult{
			FacilityID: batch[i].FacilityID,
			DistanceM:  el.Distance.Value,
			DurationS:  el.Duration.Value,
		})
	}

	return results, nil
}
