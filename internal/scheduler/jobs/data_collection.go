package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DataCollectionJob pre-fetches prices and fundamentals of a universe so the
// provider cache and store are warm before the ranking job runs
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	loader    contracts.UniverseLoader
	collector *collector.Collector
	config    collector.Config
	universe  string
	schedule  string
	logger    *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(loader contracts.UniverseLoader, col *collector.Collector, cfg collector.Config, universe, schedule string, log *logger.Logger) *DataCollectionJob {
	return &DataCollectionJob{
		loader:    loader,
		collector: col,
		config:    cfg,
		universe:  universe,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "collect_" + j.universe
}

// Schedule returns the cron schedule
func (j *DataCollectionJob) Schedule() string {
	return j.schedule
}

// Run executes the data collection
func (j *DataCollectionJob) Run(ctx context.Context) error {
	members, err := j.loader.GetUniverse(ctx, j.universe)
	if err != nil {
		return fmt.Errorf("load universe %s: %w", j.universe, err)
	}

	results, err := j.collector.Collect(ctx, members, j.config)
	if err != nil {
		return fmt.Errorf("collect %s: %w", j.universe, err)
	}

	priced := 0
	for _, r := range results {
		if r.Priced() {
			priced++
		}
	}
	// 한 종목도 가격을 못 받으면 재시도 대상
	if len(results) > 0 && priced == 0 {
		return fmt.Errorf("collect %s: no ticker priced", j.universe)
	}

	j.logger.Ctx(ctx).WithFields(map[string]interface{}{
		"universe": j.universe,
		"tickers":  len(results),
		"priced":   priced,
	}).Info("Scheduled data collection completed")

	return nil
}
