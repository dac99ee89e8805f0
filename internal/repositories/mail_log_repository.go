package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MailLogRepository struct {
	pool *pgxpool.Pool
}

func NewMailLogRepository(pool *pgxpool.Pool) *MailLogRepository {
	return &MailLogRepository{pool: pool}
}

func (r *MailLogRepository) Log(ctx context.Context, recipients []string, subject, body, status, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO mail_logs (recipients, subject, body, status, error)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
		recipients, subject, body, status, errMsg)
	return err
}
