package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

const selectItems = `SELECT id, name, hsn, rate::text, stock, unit, gst_rate::text FROM inventory_items`

// PGStore reads and writes the inventory_items table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// List implements Store.
func (s PGStore) List(ctx context.Context) ([]gst.InventoryItem, error) {
	rows, err := s.Pool.Query(ctx, selectItems+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []gst.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get implements Store.
func (s PGStore) Get(ctx context.Context, id string) (gst.InventoryItem, error) {
	item, err := scanItem(s.Pool.QueryRow(ctx, selectItems+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return gst.InventoryItem{}, ErrNotFound
	}
	return item, err
}

// Create implements Store.
func (s PGStore) Create(ctx context.Context, item gst.InventoryItem) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO inventory_items (id, name, hsn, rate, stock, unit, gst_rate)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::numeric)`,
		item.ID, item.Name, item.HSN, item.Rate.String(), item.Stock, item.Unit, item.GSTRate.String(),
	)
	return err
}

func scanItem(row pgx.Row) (gst.InventoryItem, error) {
	var (
		item          gst.InventoryItem
		rate, gstRate string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.HSN, &rate, &item.Stock, &item.Unit, &gstRate); err != nil {
		return gst.InventoryItem{}, err
	}
	var err error
	if item.Rate, err = decimal.NewFromString(rate); err != nil {
		return gst.InventoryItem{}, fmt.Errorf("inventory: parse rate: %w", err)
	}
	if item.GSTRate, err = decimal.NewFromString(gstRate); err != nil {
		return gst.InventoryItem{}, fmt.Errorf("inventory: parse gst rate: %w", err)
	}
	return item, nil
}
