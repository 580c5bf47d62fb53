package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantsnap/internal/brain"
	"github.com/wonny/quantsnap/pkg/logger"
)

// Runner runs one ranking pass
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// RankingJob refreshes the ranking of one universe
// ⭐ SSOT: 랭킹 갱신 스케줄은 이 Job에서만
type RankingJob struct {
	runner   Runner
	universe string
	schedule string
	logger   *logger.Logger
}

// NewRankingJob creates a ranking refresh job for universe
func NewRankingJob(runner Runner, universe, schedule string, log *logger.Logger) *RankingJob {
	return &RankingJob{
		runner:   runner,
		universe: universe,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "ranking_" + j.universe
}

// Schedule returns the cron schedule
func (j *RankingJob) Schedule() string {
	return j.schedule
}

// Run executes the ranking refresh
func (j *RankingJob) Run(ctx context.Context) error {
	j.logger.Ctx(ctx).WithUniverse(j.universe).Info("Starting scheduled ranking refresh")

	res, err := j.runner.Run(ctx, brain.RunConfig{Universe: j.universe})
	if err != nil {
		return fmt.Errorf("rank %s: %w", j.universe, err)
	}

	top := ""
	if res.Ranking.Len() > 0 {
		top = res.Ranking.Scores[0].Ticker
	}
	j.logger.Ctx(ctx).WithFields(map[string]interface{}{
		"universe": j.universe,
		"run_id":   res.Ranking.RunID,
		"ranked":   res.Ranking.Len(),
		"top":      top,
	}).Info("Scheduled ranking refresh completed")

	return nil
}
