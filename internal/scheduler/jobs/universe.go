package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// UniverseRefreshJob re-resolves a universe so its stored copy stays current.
// For sp500_live this re-reads the Wikipedia constituents table.
// ⭐ SSOT: 유니버스 갱신 스케줄은 이 Job에서만
type UniverseRefreshJob struct {
	loader   contracts.UniverseLoader
	universe string
	schedule string
	logger   *logger.Logger
}

// NewUniverseRefreshJob creates a new universe refresh job
func NewUniverseRefreshJob(loader contracts.UniverseLoader, universe, schedule string, log *logger.Logger) *UniverseRefreshJob {
	return &UniverseRefreshJob{
		loader:   loader,
		universe: universe,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *UniverseRefreshJob) Name() string {
	return "universe_" + j.universe
}

// Schedule returns the cron schedule
func (j *UniverseRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the universe refresh
func (j *UniverseRefreshJob) Run(ctx context.Context) error {
	members, err := j.loader.GetUniverse(ctx, j.universe)
	if err != nil {
		return fmt.Errorf("refresh universe %s: %w", j.universe, err)
	}

	j.logger.Ctx(ctx).WithFields(map[string]interface{}{
		"universe": j.universe,
		"members":  len(members),
	}).Info("Universe refreshed")

	return nil
}
