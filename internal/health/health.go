package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Status struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

type Checker struct {
	pool      *pgxpool.Pool
	startedAt time.Time
}

func NewChecker(pool *pgxpool.Pool) *Checker {
	return &Checker{pool: pool, startedAt: time.Now()}
}

// Check pings the database and reports overall health.
func (c *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Status:   "ok",
		Database: "up",
		Uptime:   time.Since(c.startedAt).Round(time.Second).String(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.pool.Ping(pingCtx); err != nil {
		status.Status = "degraded"
		status.Database = "down"
	}
	return status
}
