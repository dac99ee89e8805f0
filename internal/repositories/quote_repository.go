package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"procure-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateQuote signals the one-quote-per-vendor-per-request constraint.
var ErrDuplicateQuote = errors.New("vendor already quoted this request")

type QuoteRepository struct {
	pool *pgxpool.Pool
}

func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

const quoteColumns = `q.id, q.request_ref, q.request_id, q.vendor_id, v.name,
	COALESCE(v.organization, ''), q.items, q.total_amount, q.status,
	COALESCE(q.remarks, ''), r.customer_id, c.name, q.created_at, q.updated_at`

const quoteFrom = ` FROM quotes q
	JOIN users v ON v.id = q.vendor_id
	JOIN requests r ON r.id = q.request_ref
	JOIN users c ON c.id = r.customer_id `

func scanQuote(row pgx.Row) (*models.Quote, error) {
	q := &models.Quote{}
	var itemsJSON []byte
	err := row.Scan(&q.ID, &q.RequestRef, &q.RequestID, &q.VendorID, &q.VendorName,
		&q.VendorOrg, &itemsJSON, &q.TotalAmount, &q.Status, &q.Remarks,
		&q.CustomerID, &q.CustomerName, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &q.Items); err != nil {
		return nil, fmt.Errorf("decode quote items: %w", err)
	}
	return q, nil
}

func (r *QuoteRepository) Create(ctx context.Context, q *models.Quote) error {
	itemsJSON, err := json.Marshal(q.Items)
	if err != nil {
		return fmt.Errorf("encode quote items: %w", err)
	}

	query := `
		INSERT INTO quotes (request_ref, request_id, vendor_id, items, total_amount, status, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		q.RequestRef, q.RequestID, q.VendorID, itemsJSON, q.TotalAmount, q.Status, q.Remarks,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateQuote
	}
	return err
}

func (r *QuoteRepository) GetByID(ctx context.Context, id int) (*models.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom + `WHERE q.id = $1`
	return scanQuote(r.pool.QueryRow(ctx, query, id))
}

func (r *QuoteRepository) ExistsForVendor(ctx context.Context, requestRef, vendorID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotes WHERE request_ref = $1 AND vendor_id = $2)`,
		requestRef, vendorID).Scan(&exists)
	return exists, err
}

// ApproveAndRejectSiblings approves a quote and rejects every other quote on
// the same request in one transaction, then marks the request approved.
func (r *QuoteRepository) ApproveAndRejectSiblings(ctx context.Context, quoteID int) (rejected int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var requestRef int
	err = tx.QueryRow(ctx, `
		UPDATE quotes SET status = 'approved', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING request_ref`, quoteID).Scan(&requestRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE quotes SET status = 'rejected', updated_at = NOW()
		WHERE request_ref = $1 AND id <> $2 AND status = 'pending'`, requestRef, quoteID)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE requests SET status = 'approved', updated_at = NOW() WHERE id = $1`, requestRef)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *QuoteRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quotes SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *QuoteRepository) ListByVendor(ctx context.Context, vendorID int) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom + `
		WHERE q.vendor_id = $1 ORDER BY q.created_at DESC`
	return r.list(ctx, query, vendorID)
}

func (r *QuoteRepository) ListByRequest(ctx context.Context, requestRef int) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom + `
		WHERE q.request_ref = $1 ORDER BY q.created_at`
	return r.list(ctx, query, requestRef)
}

// ListForCustomer returns quotes on any leaf split off the customer's
// requests.
func (r *QuoteRepository) ListForCustomer(ctx context.Context, customerID int) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom + `
		WHERE r.customer_id = $1 ORDER BY q.created_at DESC`
	return r.list(ctx, query, customerID)
}

func (r *QuoteRepository) ListAll(ctx context.Context) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom + ` ORDER BY q.created_at DESC`
	return r.list(ctx, query)
}

func (r *QuoteRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM quotes GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *QuoteRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Quote, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
