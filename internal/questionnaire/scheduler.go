package questionnaire

import (
	"context"
	"log"
	"time"
)

// Scheduler keeps the complete-profiles gauge in step with the database
// and sweeps stale score-cache entries.
type Scheduler struct {
	repo  Repository
	cache *ScoreCache
}

func NewScheduler(repo Repository, cache *ScoreCache) *Scheduler {
	return &Scheduler{repo: repo, cache: cache}
}

func (s *Scheduler) Start(ctx context.Context) {
	// Seed the gauge immediately, then keep it fresh every hour.
	if err := s.refreshCompleteProfiles(ctx); err != nil {
		log.Printf("Initial complete-profiles count failed: %v", err)
	}
	go s.runHourly(ctx, s.refreshCompleteProfiles)

	// Nightly cache sweep at 4 AM
	go s.runDaily(ctx, 4, 0, s.sweepScoreCache)
}

func (s *Scheduler) refreshCompleteProfiles(ctx context.Context) error {
	count, err := s.repo.CountComplete(ctx)
	if err != nil {
		return err
	}
	SetCompleteProfiles(count)
	return nil
}

func (s *Scheduler) sweepScoreCache(ctx context.Context) error {
	removed, err := s.cache.SweepStale(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("Score cache sweep removed %d stale entries", removed)
	}
	return nil
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context) error) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				log.Printf("Scheduled task failed: %v", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) runHourly(ctx context.Context, task func(context.Context) error) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := task(ctx); err != nil {
				log.Printf("Hourly task failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
