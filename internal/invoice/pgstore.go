package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PGStore keeps invoices in the invoices table. The full record is stored in
// the snapshot column; the remaining columns serve lookups and reporting.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Create implements Store.
func (s PGStore) Create(ctx context.Context, inv Invoice) error {
	snapshot, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("invoice: encode snapshot: %w", err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO invoices (id, number, company_id, paid, grand_total, total_payable, snapshot, issued_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)`,
		inv.ID, inv.Number, inv.Company.ID, inv.Paid, inv.GrandTotal.String(), inv.TotalPayable.String(), snapshot, inv.IssuedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateNumber
	}
	return err
}

// Get implements Store.
func (s PGStore) Get(ctx context.Context, id string) (Invoice, error) {
	inv, err := scanInvoice(s.Pool.QueryRow(ctx, `SELECT snapshot FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

// List implements Store.
func (s PGStore) List(ctx context.Context) ([]Invoice, error) {
	rows, err := s.Pool.Query(ctx, `SELECT snapshot FROM invoices ORDER BY issued_at DESC, number DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return Invoice{}, err
	}
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Invoice{}, fmt.Errorf("invoice: decode snapshot: %w", err)
	}
	return inv, nil
}
