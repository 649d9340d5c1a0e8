package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('planner', 'admin')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create partners table (disposal partner catalog)
		`CREATE TABLE IF NOT EXISTS partners (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create projects table
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			region TEXT NOT NULL DEFAULT '',
			partner_id TEXT,
			selected_streams TEXT[] NOT NULL DEFAULT '{}',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (partner_id) REFERENCES partners(id) ON DELETE SET NULL
		)`,

		// Create facilities table (disposal facility catalog)
		`CREATE TABLE IF NOT EXISTS facilities (
			id TEXT PRIMARY KEY,
			partner_id TEXT,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			region TEXT NOT NULL DEFAULT '',
			accepted_streams TEXT[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (partner_id) REFERENCES partners(id) ON DELETE SET NULL
		)`,

		// Create waste_streams catalog with conversion defaults
		`CREATE TABLE IF NOT EXISTS waste_streams (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			default_density_kg_m3 DOUBLE PRECISION CHECK(default_density_kg_m3 > 0),
			default_kg_per_m DOUBLE PRECISION CHECK(default_kg_per_m > 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create conversion_factors table; deactivation keeps history
		`CREATE TABLE IF NOT EXISTS conversion_factors (
			id TEXT PRIMARY KEY,
			stream_key TEXT NOT NULL,
			from_unit TEXT NOT NULL,
			to_unit TEXT NOT NULL,
			factor DOUBLE PRECISION NOT NULL CHECK(factor > 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (stream_key) REFERENCES waste_streams(key) ON DELETE CASCADE
		)`,

		// At most one ACTIVE factor per (stream, from_unit, to_unit) triple
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversion_factors_active_triple
			ON conversion_factors(stream_key, from_unit, to_unit) WHERE active`,

		// Create forecast_items table; computed_* columns are cache only
		`CREATE TABLE IF NOT EXISTS forecast_items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			item_name TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL CHECK(quantity >= 0),
			unit TEXT NOT NULL CHECK(unit IN ('kg', 'tonne', 'm', 'm2', 'm3', 'l', 'item')),
			excess_percent DOUBLE PRECISION NOT NULL CHECK(excess_percent >= 0 AND excess_percent <= 100),
			kg_per_m DOUBLE PRECISION CHECK(kg_per_m > 0),
			density_kg_m3 DOUBLE PRECISION CHECK(density_kg_m3 > 0),
			waste_stream_key TEXT,
			computed_waste_qty DOUBLE PRECISION,
			computed_waste_kg DOUBLE PRECISION,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		// Create plan_documents table; append-only versions, latest row wins
		`CREATE TABLE IF NOT EXISTS plan_documents (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			created_at BIGINT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,

		// Create distance_cache table; one row per (project, facility), upserted
		`CREATE TABLE IF NOT EXISTS distance_cache (
			project_id TEXT NOT NULL,
			facility_id TEXT NOT NULL,
			distance_m DOUBLE PRECISION NOT NULL,
			duration_s DOUBLE PRECISION NOT NULL,
			provider TEXT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (project_id, facility_id),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY (facility_id) REFERENCES facilities(id) ON DELETE CASCADE
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'web')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_partner_id ON projects(partner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_facilities_partner_id ON facilities(partner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_facilities_active ON facilities(active)`,
		`CREATE INDEX IF NOT EXISTS idx_conversion_factors_stream ON conversion_factors(stream_key)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_items_project_id ON forecast_items(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_items_stream ON forecast_items(waste_stream_key)`,
		`CREATE INDEX IF NOT EXISTS idx_plan_documents_project_latest ON plan_documents(project_id, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
