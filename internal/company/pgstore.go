package company

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

const selectCompanies = `SELECT id, gst_no, name, phone, address, state, state_code, pending_amount::text, last_transaction FROM companies`

// PGStore reads and writes the companies table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// List implements Store.
func (s PGStore) List(ctx context.Context) ([]gst.Company, error) {
	rows, err := s.Pool.Query(ctx, selectCompanies+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []gst.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get implements Store.
func (s PGStore) Get(ctx context.Context, id string) (gst.Company, error) {
	c, err := scanCompany(s.Pool.QueryRow(ctx, selectCompanies+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return gst.Company{}, ErrNotFound
	}
	return c, err
}

// Create implements Store.
func (s PGStore) Create(ctx context.Context, c gst.Company) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO companies (id, gst_no, name, phone, address, state, state_code, pending_amount, last_transaction)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9)`,
		c.ID, c.GSTNo, c.Name, c.Phone, c.Address, c.State, c.StateCode, c.PendingAmount.String(), c.LastTransaction,
	)
	return err
}

// UpdateBalance implements Store.
func (s PGStore) UpdateBalance(ctx context.Context, id string, pending decimal.Decimal, at time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE companies SET pending_amount = $2::numeric, last_transaction = $3 WHERE id = $1`,
		id, pending.String(), at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCompany(row pgx.Row) (gst.Company, error) {
	var (
		c       gst.Company
		pending string
		last    *time.Time
	)
	if err := row.Scan(&c.ID, &c.GSTNo, &c.Name, &c.Phone, &c.Address, &c.State, &c.StateCode, &pending, &last); err != nil {
		return gst.Company{}, err
	}
	amount, err := decimal.NewFromString(pending)
	if err != nil {
		return gst.Company{}, fmt.Errorf("company: parse pending amount: %w", err)
	}
	c.PendingAmount = amount
	c.LastTransaction = last
	return c, nil
}
