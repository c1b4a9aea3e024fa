package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type statsRepository interface {
	AdminStats(ctx context.Context) (*models.AdminStats, error)
	TeacherStats(ctx context.Context, matricula string) (*models.TeacherStats, error)
	StudentStats(ctx context.Context, matricula string) (*models.StudentStats, error)
}

// StatsService computes the per-role dashboard aggregates with a short
// cache-aside window. Cache failures degrade to recomputation. The boolean
// result reports whether the payload came from cache.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService constructs a StatsService instance.
func NewStatsService(repo statsRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// AdminStats returns the system-wide aggregates.
func (s *StatsService) AdminStats(ctx context.Context) (*models.AdminStats, bool, error) {
	const key = "stats:admin"
	var cached models.AdminStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.repo.AdminStats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute admin stats")
	}
	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("failed to cache admin stats", zap.Error(err))
	}
	return stats, false, nil
}

// TeacherStats returns the aggregates for one maestro.
func (s *StatsService) TeacherStats(ctx context.Context, matricula string) (*models.TeacherStats, bool, error) {
	key := fmt.Sprintf("stats:teacher:%s", matricula)
	var cached models.TeacherStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.repo.TeacherStats(ctx, matricula)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute teacher stats")
	}
	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("failed to cache teacher stats", zap.Error(err))
	}
	return stats, false, nil
}

// StudentStats returns the aggregates for one estudiante.
func (s *StatsService) StudentStats(ctx context.Context, matricula string) (*models.StudentStats, bool, error) {
	key := fmt.Sprintf("stats:student:%s", matricula)
	var cached models.StudentStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.repo.StudentStats(ctx, matricula)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute student stats")
	}
	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Warn("failed to cache student stats", zap.Error(err))
	}
	return stats, false, nil
}

// Invalidate drops every cached stats payload.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
