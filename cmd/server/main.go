package main

import (
	"log"
	"net/http"
	"os"

	"swmp-backend/internal/database"
	"swmp-backend/internal/handlers"
	"swmp-backend/internal/middleware"
	"swmp-backend/internal/services"
	"swmp-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SWMP BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ DATABASE_URL environment variable is required")
	}

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedWasteStreams(db); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedFacilities(db); err != nil {
		log.Fatal(err)
	}
	log.Println("✅ Seed data in place")

	// Geocoding and routing degrade to offline mode without an API key:
	// cached distances still serve, uncached facilities report as missing.
	var geocoder services.Geocoder
	var matrix services.MatrixClient
	if geo, err := services.NewGeocodingService(); err != nil {
		log.Printf("⚠️  Geocoding unavailable: %v", err)
		geocoder = services.OfflineGeocoder{}
	} else {
		geocoder = geo
		log.Println("✅ Geocoding service initialized")
	}
	if mx, err := services.NewGoogleMatrixService(); err != nil {
		log.Printf("⚠️  Distance matrix unavailable: %v", err)
		matrix = services.OfflineMatrix{}
	} else {
		matrix = mx
		log.Println("✅ Distance matrix service initialized")
	}

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	if fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}
		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Domain services
	resolver := services.NewConversionResolver(db)
	aggregator := services.NewAggregator(db, resolver)
	distanceService := services.NewDistanceService(db, geocoder, matrix)
	strategyService := services.NewStrategyService(db, aggregator, distanceService)

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.GetAuthStatus(db))
			r.Post("/fcm-token", handlers.RegisterFCMToken(db))

			// Catalogs
			r.Get("/waste-streams", handlers.GetWasteStreams(db))
			r.Get("/facilities", handlers.GetFacilities(db))
			r.Get("/partners", handlers.GetPartners(db))
			r.Get("/conversion-factors", handlers.GetConversionFactors(db))

			// Projects
			r.Get("/projects", handlers.GetProjects(db))
			r.Post("/projects", handlers.CreateProject(db))
			r.Get("/projects/{id}", handlers.GetProject(db))
			r.Patch("/projects/{id}", handlers.UpdateProject(db))
			r.Delete("/projects/{id}", handlers.DeleteProject(db))
			r.Put("/projects/{id}/streams", handlers.SelectStreams(db))

			// Forecast items
			r.Get("/projects/{id}/forecast-items", handlers.GetForecastItems(db))
			r.Post("/projects/{id}/forecast-items", handlers.CreateForecastItem(db, aggregator, wsHub, fcmService))
			r.Patch("/forecast-items/{id}", handlers.UpdateForecastItem(db, aggregator, wsHub, fcmService))
			r.Delete("/forecast-items/{id}", handlers.DeleteForecastItem(db, aggregator, wsHub, fcmService))
			r.Post("/projects/{id}/recompute", handlers.RecomputeAggregation(aggregator))

			// Plan documents
			r.Get("/projects/{id}/plan", handlers.GetPlan(db, aggregator))
			r.Put("/projects/{id}/plan", handlers.SavePlan(db, wsHub))
			r.Get("/projects/{id}/plan/history", handlers.GetPlanHistory(db))

			// Strategy & distances
			r.Get("/projects/{id}/strategy", handlers.GetStrategy(strategyService))
			r.Post("/projects/{id}/recommendations/apply", handlers.ApplyRecommendation(strategyService, wsHub))
			r.Get("/projects/{id}/distances", handlers.GetDistances(distanceService))
			r.Post("/projects/{id}/distances/recompute", handlers.RecomputeDistances(distanceService))
		})

		// Admin endpoints (require authentication + admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			r.Post("/users", handlers.CreateUser(db))
			r.Post("/waste-streams", handlers.CreateWasteStream(db))
			r.Post("/facilities", handlers.CreateFacility(db))
			r.Patch("/facilities/{id}", handlers.UpdateFacility(db))
			r.Post("/partners", handlers.CreatePartner(db))
			r.Post("/conversion-factors", handlers.CreateConversionFactor(db))
			r.Put("/conversion-factors/{id}/deactivate", handlers.DeactivateConversionFactor(db))
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
