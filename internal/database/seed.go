package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	plannerPassword, err := bcrypt.GenerateFromPassword([]byte("planner123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":       uuid.New().String(),
			"email":    "planner@swmp.local",
			"password": string(plannerPassword),
			"name":     "Pat Planner",
			"role":     "planner",
		},
		{
			"id":       uuid.New().String(),
			"email":    "admin@swmp.local",
			"password": string(adminPassword),
			"name":     "Admin User",
			"role":     "admin",
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role)
			VALUES (:id, :email, :password, :name, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	return nil
}

// SeedWasteStreams loads the stream catalog with typical C&D conversion
// defaults. Densities are indicative values for loose material.
func SeedWasteStreams(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM waste_streams"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Waste streams already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding waste stream catalog...")

	type stream struct {
		key     string
		name    string
		density *float64
		kgPerM  *float64
	}
	f := func(v float64) *float64 { return &v }

	streams := []stream{
		{"Mixed C&D", "Mixed construction and demolition waste", f(350), nil},
		{"Timber (untreated)", "Untreated timber offcuts", f(250), f(1.8)},
		{"Timber (treated)", "Treated or painted timber", f(270), f(2.0)},
		{"Concrete / Masonry", "Concrete, brick and masonry rubble", f(1500), nil},
		{"Metals", "Ferrous and non-ferrous scrap metal", f(900), f(3.5)},
		{"Plasterboard", "Gypsum plasterboard offcuts", f(320), nil},
		{"Cardboard / Packaging", "Cardboard and soft packaging", f(60), nil},
		{"Glass", "Flat and container glass", f(800), nil},
	}

	for _, s := range streams {
		if _, err := db.Exec(`
			INSERT INTO waste_streams (key, name, default_density_kg_m3, default_kg_per_m)
			VALUES ($1, $2, $3, $4)
		`, s.key, s.name, s.density, s.kgPerM); err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d waste streams", len(streams))
	return nil
}

// SeedFacilities loads a small demo facility catalog so a fresh install can
// exercise distance and strategy flows immediately.
func SeedFacilities(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM facilities"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Facilities already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo partners and facilities...")

	partnerID := uuid.New().String()
	if _, err := db.Exec(`
		INSERT INTO partners (id, name, region) VALUES ($1, $2, $3)
	`, partnerID, "GreenCycle Resource Recovery", "San Jose"); err != nil {
		return err
	}

	type facility struct {
		name     string
		address  string
		lat, lng float64
		partner  *string
		streams  []string
	}

	facilities := []facility{
		{"GreenCycle Transfer Station", "1675 Rogers Ave, San Jose", 37.3639, -121.9023, &partnerID,
			[]string{"Mixed C&D", "Timber (untreated)", "Plasterboard", "Cardboard / Packaging"}},
		{"GreenCycle Concrete Yard", "2160 Oakland Rd, San Jose", 37.3871, -121.9019, &partnerID,
			[]string{"Concrete / Masonry"}},
		{"Bayside Metal Recyclers", "698 S 7th St, San Jose", 37.3208, -121.8625, nil,
			[]string{"Metals"}},
		{"Valley Resource Landfill", "1601 Dixon Landing Rd, Milpitas", 37.4627, -121.9231, nil,
			nil},
	}

	for _, fac := range facilities {
		if _, err := db.Exec(`
			INSERT INTO facilities (id, partner_id, name, address, latitude, longitude, region, accepted_streams)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), fac.partner, fac.name, fac.address, fac.lat, fac.lng, "San Jose", pq.Array(fac.streams)); err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d facilities", len(facilities))
	return nil
}
