package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"procure-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// NextSequence atomically allocates the next request number for a year.
// The upsert keeps allocation race-free under concurrent request creation.
func (r *RequestRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO request_sequences (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = request_sequences.seq + 1
		RETURNING seq`, year).Scan(&seq)
	return seq, err
}

const requestColumns = `r.id, r.request_id, r.customer_id, u.name, r.items, r.status,
	COALESCE(r.remarks, ''), COALESCE(r.admin_quote_file, ''), r.visible_to,
	r.original_request_id, r.unroutable_items, r.created_at, r.updated_at`

const requestFrom = ` FROM requests r JOIN users u ON u.id = r.customer_id `

func scanRequest(row pgx.Row) (*models.Request, error) {
	req := &models.Request{}
	var itemsJSON, unroutableJSON []byte
	err := row.Scan(&req.ID, &req.RequestID, &req.CustomerID, &req.CustomerName,
		&itemsJSON, &req.Status, &req.Remarks, &req.AdminQuoteFile, &req.VisibleTo,
		&req.OriginalRequestID, &unroutableJSON, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &req.Items); err != nil {
		return nil, fmt.Errorf("decode request items: %w", err)
	}
	if len(unroutableJSON) > 0 {
		if err := json.Unmarshal(unroutableJSON, &req.UnroutableItems); err != nil {
			return nil, fmt.Errorf("decode unroutable items: %w", err)
		}
	}
	return req, nil
}

func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return fmt.Errorf("encode request items: %w", err)
	}

	query := `
		INSERT INTO requests (request_id, customer_id, items, status, remarks, visible_to, original_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		req.RequestID, req.CustomerID, itemsJSON, req.Status, req.Remarks,
		req.VisibleTo, req.OriginalRequestID,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *RequestRepository) GetByID(ctx context.Context, id int) (*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `WHERE r.id = $1`
	return scanRequest(r.pool.QueryRow(ctx, query, id))
}

func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `WHERE r.request_id = $1`
	return scanRequest(r.pool.QueryRow(ctx, query, requestID))
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE requests SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RequestRepository) UpdateStatusWithRemarks(ctx context.Context, id int, status, remarks string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE requests SET status = $2, remarks = $3, updated_at = NOW() WHERE id = $1`,
		id, status, remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RequestRepository) SetAdminQuoteFile(ctx context.Context, id int, fileURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests SET admin_quote_file = $2, status = 'quote_uploaded_by_admin', updated_at = NOW()
		WHERE id = $1`, id, fileURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveAndSplit marks the parent published, records any unroutable
// departments on it, and inserts the published leaf requests, all in one
// transaction.
func (r *RequestRepository) ApproveAndSplit(ctx context.Context, parentID int, unroutable []models.UnroutableItem, leaves []*models.Request) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	unroutableJSON, err := json.Marshal(unroutable)
	if err != nil {
		return fmt.Errorf("encode unroutable items: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE requests SET status = 'published', unroutable_items = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, parentID, unroutableJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for _, leaf := range leaves {
		itemsJSON, err := json.Marshal(leaf.Items)
		if err != nil {
			return fmt.Errorf("encode leaf items: %w", err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO requests (request_id, customer_id, items, status, remarks, visible_to, original_request_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`,
			leaf.RequestID, leaf.CustomerID, itemsJSON, leaf.Status, leaf.Remarks,
			leaf.VisibleTo, leaf.OriginalRequestID,
		).Scan(&leaf.ID, &leaf.CreatedAt, &leaf.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *RequestRepository) ListByCustomer(ctx context.Context, customerID int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE r.customer_id = $1 AND r.original_request_id IS NULL
		ORDER BY r.created_at DESC`
	return r.list(ctx, query, customerID)
}

func (r *RequestRepository) ListLeavesByParent(ctx context.Context, parentID int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE r.original_request_id = $1 ORDER BY r.request_id`
	return r.list(ctx, query, parentID)
}

// ListAvailableForVendor returns published leaves visible to the vendor
// that the vendor has not quoted yet.
func (r *RequestRepository) ListAvailableForVendor(ctx context.Context, vendorID int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE r.status = 'published' AND $1 = ANY(r.visible_to)
		  AND NOT EXISTS (SELECT 1 FROM quotes q WHERE q.request_ref = r.id AND q.vendor_id = $1)
		ORDER BY r.created_at DESC`
	return r.list(ctx, query, vendorID)
}

func (r *RequestRepository) ListVisibleToVendor(ctx context.Context, vendorID int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE $1 = ANY(r.visible_to) ORDER BY r.created_at DESC`
	return r.list(ctx, query, vendorID)
}

func (r *RequestRepository) ListByStatus(ctx context.Context, status string) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE r.status = $1 ORDER BY r.created_at DESC`
	return r.list(ctx, query, status)
}

func (r *RequestRepository) ListAll(ctx context.Context) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` ORDER BY r.created_at DESC`
	return r.list(ctx, query)
}

// ListRecent returns requests created in the last N days, optionally
// filtered by status.
func (r *RequestRepository) ListRecent(ctx context.Context, days int, status string) ([]*models.Request, error) {
	if status != "" {
		query := `SELECT ` + requestColumns + requestFrom + `
			WHERE r.created_at >= NOW() - make_interval(days => $1) AND r.status = $2
			ORDER BY r.created_at DESC`
		return r.list(ctx, query, days, status)
	}
	query := `SELECT ` + requestColumns + requestFrom + `
		WHERE r.created_at >= NOW() - make_interval(days => $1)
		ORDER BY r.created_at DESC`
	return r.list(ctx, query, days)
}

func (r *RequestRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
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

func (r *RequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Request, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
