package service

import (
	"context"

	"github.com/careerlift/backend/internal/domain"
)

// StatsService serves the admin dashboard counters.
type StatsService struct {
	stats StatsStore
}

func NewStatsService(stats StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

func (s *StatsService) Dashboard(ctx context.Context) (*domain.AdminStats, error) {
	st, err := s.stats.Collect(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to collect stats", err)
	}
	return st, nil
}
