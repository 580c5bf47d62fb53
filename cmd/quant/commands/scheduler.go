package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wonny/quantsnap/internal/s1_universe"
	"github.com/wonny/quantsnap/internal/scheduler"
	"github.com/wonny/quantsnap/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 랭킹 작업을 실행하거나 조회합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run ranking_sp500`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `SCHEDULER_UNIVERSES의 각 유니버스에 대해 SCHEDULER_CRON 주기로 랭킹을 실행합니다.

등록되는 작업:
- ranking_<universe>: SCHEDULER_CRON (기본값 평일 21:30 UTC, 미국 장 마감 후)
- universe_sp500_live: 랭킹 30분 전 구성 종목 갱신 (sp500_live 사용 시)
- collect_<universe>: --collect-cron 지정 시 데이터 선수집

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var schedulerCollectCron string

// universeRefreshCron runs 30 minutes ahead of the default ranking schedule
const universeRefreshCron = "0 0 21 * * 1-5"

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerCollectCron, "collect-cron", "", "데이터 선수집 cron (비어 있으면 등록 안 함)")
}

// buildScheduler registers the jobs for every configured universe
func buildScheduler(a *app, collectCron string) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log).WithTimeout(a.cfg.Ranking.RunTimeout)

	for _, universe := range a.cfg.Scheduler.Universes {
		if universe == s1_universe.SP500Live {
			if err := sched.AddJob(jobs.NewUniverseRefreshJob(a.loader, universe, universeRefreshCron, a.log)); err != nil {
				return nil, err
			}
		}
		if collectCron != "" {
			job := jobs.NewDataCollectionJob(a.loader, a.collector, a.collectConfig(false), universe, collectCron, a.log)
			if err := sched.AddJob(job); err != nil {
				return nil, err
			}
		}
		if err := sched.AddJob(jobs.NewRankingJob(a.orchestrator, universe, a.cfg.Scheduler.Cron, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a, schedulerCollectCron)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", jobName)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nStopping scheduler...")
	sched.Stop()
	PrintSuccess(out, "Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a, schedulerCollectCron)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start populates next-run times
	sched.Start()
	defer sched.Stop()

	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()
	widths := []int{28, 20, 24}
	PrintTableHeader(out, []string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		s := stats[name]
		next := "-"
		if s.NextRun != nil {
			next = humanize.Time(*s.NextRun)
		}
		PrintTableRow(out, []string{name, s.Schedule, next}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := buildScheduler(a, schedulerCollectCron)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer sched.Stop()

	result, err := sched.RunJobSync(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintKeyValue(out, "Job", result.JobName, 10)
	PrintKeyValue(out, "Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	PrintKeyValue(out, "Duration", result.Duration.Round(time.Millisecond).String(), 10)
	if !result.Success {
		PrintWarning(out, result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	PrintSuccess(out, "Job completed")
	return nil
}
