package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"procure-backend/internal/cache"
	"procure-backend/internal/models"
)

const (
	statsCacheKey = "dashboard:stats"
	statsCacheTTL = 60 * time.Second
)

// StatsCounter exposes the aggregate counts the dashboard needs.
type StatsCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// RecentLister returns recently created requests.
type RecentLister interface {
	ListRecent(ctx context.Context, days int, status string) ([]*models.Request, error)
}

// PendingCounter counts accounts waiting for approval.
type PendingCounter interface {
	ListPending(ctx context.Context) ([]*models.User, error)
}

type DashboardStats struct {
	Requests     map[string]int `json:"requests"`
	Quotes       map[string]int `json:"quotes"`
	PendingUsers int            `json:"pending_users"`
}

type DashboardService struct {
	requests StatsCounter
	quotes   StatsCounter
	recent   RecentLister
	users    PendingCounter
}

func NewDashboardService(requests StatsCounter, quotes StatsCounter, recent RecentLister, users PendingCounter) *DashboardService {
	return &DashboardService{requests: requests, quotes: quotes, recent: recent, users: users}
}

// Stats aggregates request, quote and pending-user counts. Results are
// cached briefly since the dashboard polls.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if cached, ok := cache.Get(ctx, statsCacheKey); ok {
		stats := &DashboardStats{}
		if err := json.Unmarshal([]byte(cached), stats); err == nil {
			return stats, nil
		}
	}

	requestCounts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to count requests", err)
	}
	quoteCounts, err := s.quotes.CountByStatus(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to count quotes", err)
	}
	pending, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to count pending users", err)
	}

	stats := &DashboardStats{
		Requests:     requestCounts,
		Quotes:       quoteCounts,
		PendingUsers: len(pending),
	}

	if payload, err := json.Marshal(stats); err == nil {
		cache.Set(ctx, statsCacheKey, string(payload), statsCacheTTL)
	} else {
		log.Printf("[Dashboard] stats cache encode failed: %v", err)
	}
	return stats, nil
}

// RecentRequests returns requests created in the last N days. Days defaults
// to 7 and is capped at 90.
func (s *DashboardService) RecentRequests(ctx context.Context, days int, status string) ([]*models.Request, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}
	reqs, err := s.recent.ListRecent(ctx, days, status)
	if err != nil {
		return nil, NewDependencyError("failed to list recent requests", err)
	}
	return reqs, nil
}
