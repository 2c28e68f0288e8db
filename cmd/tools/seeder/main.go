package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

func main() {
	refresh := flag.Bool("refresh-companies", false, "overwrite existing companies, resetting their pending balances")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	catalog := seed.Default()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := seedItems(ctx, tx, catalog.Items); err != nil {
		log.Fatalf("Failed to seed inventory: %v", err)
	}
	if err := seedCompanies(ctx, tx, catalog.Companies, *refresh); err != nil {
		log.Fatalf("Failed to seed companies: %v", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Printf("Seeded %d items and %d companies", len(catalog.Items), len(catalog.Companies))
}

func seedItems(ctx context.Context, tx *sql.Tx, items []gst.InventoryItem) error {
	log.Println("Seeding inventory...")
	for _, it := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_items (id, name, hsn, rate, stock, unit, gst_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				hsn = EXCLUDED.hsn,
				rate = EXCLUDED.rate,
				stock = EXCLUDED.stock,
				unit = EXCLUDED.unit,
				gst_rate = EXCLUDED.gst_rate;
		`, it.ID, it.Name, it.HSN, it.Rate, it.Stock, it.Unit, it.GSTRate)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedCompanies(ctx context.Context, tx *sql.Tx, companies []gst.Company, refresh bool) error {
	log.Println("Seeding companies...")
	conflict := "ON CONFLICT (id) DO NOTHING"
	if refresh {
		conflict = `ON CONFLICT (id) DO UPDATE SET
				gst_no = EXCLUDED.gst_no,
				name = EXCLUDED.name,
				phone = EXCLUDED.phone,
				address = EXCLUDED.address,
				state = EXCLUDED.state,
				state_code = EXCLUDED.state_code,
				pending_amount = EXCLUDED.pending_amount,
				last_transaction = EXCLUDED.last_transaction`
	}
	for _, c := range companies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO companies (id, gst_no, name, phone, address, state, state_code, pending_amount, last_transaction)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`+conflict+`;
		`, c.ID, c.GSTNo, c.Name, c.Phone, c.Address, c.State, c.StateCode, c.PendingAmount, c.LastTransaction)
		if err != nil {
			return err
		}
	}
	return nil
}
