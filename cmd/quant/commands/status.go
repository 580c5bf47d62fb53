package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wonny/quantsnap/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 조회",
	Long: `저장소 연결 상태, API 쿼터, 유니버스별 최신 랭킹을 출력합니다.

Example:
  go run ./cmd/quant status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()
	PrintDoubleSeparator(out)
	fmt.Fprintln(out, "quantsnap status")
	PrintDoubleSeparator(out)

	printStorageStatus(ctx, out, a)
	fmt.Fprintln(out)
	printRankingStatus(ctx, out, a)
	return nil
}

func printStorageStatus(ctx context.Context, out io.Writer, a *app) {
	const width = 16

	PrintKeyValue(out, "Environment", a.cfg.Env, width)
	PrintKeyValue(out, "Strategy", a.orchestrator.StrategyHash(), width)

	if a.db == nil {
		PrintKeyValue(out, "Database", "disabled", width)
	} else {
		health, err := a.db.HealthCheck(ctx)
		switch {
		case err != nil:
			PrintKeyValue(out, "Database", "error: "+err.Error(), width)
		case !health.Healthy:
			PrintKeyValue(out, "Database", "unhealthy: "+health.Error, width)
		default:
			PrintKeyValue(out, "Database", fmt.Sprintf("ok (%s, %d/%d conns)",
				health.ResponseTime.Round(time.Millisecond), health.TotalConns, health.MaxConns), width)
		}
	}

	if a.redis.Enabled() {
		health, err := a.redis.Health(ctx)
		if err != nil {
			PrintKeyValue(out, "Redis", "error: "+err.Error(), width)
		} else {
			PrintKeyValue(out, "Redis", fmt.Sprintf("ok (%s, %d idle/%d conns)",
				health.Latency.Round(time.Millisecond), health.IdleConns, health.TotalConns), width)
		}
	} else {
		PrintKeyValue(out, "Redis", "disabled (in-memory)", width)
	}

	if a.quota == nil {
		PrintKeyValue(out, "Alpha Vantage", "disabled", width)
	} else {
		remaining, err := a.quota.Remaining(ctx)
		if err != nil {
			PrintKeyValue(out, "Alpha Vantage", "error: "+err.Error(), width)
		} else {
			PrintKeyValue(out, "Alpha Vantage", fmt.Sprintf("%s/%s calls left today",
				humanize.Comma(int64(remaining)), humanize.Comma(int64(a.cfg.AlphaVantage.DailyLimit))), width)
		}
	}
}

func printRankingStatus(ctx context.Context, out io.Writer, a *app) {
	widths := []int{18, 8, 12, 20, 10}
	PrintTableHeader(out, []string{"UNIVERSE", "RANKED", "AS OF", "CREATED", "TOP"}, widths)

	for _, name := range a.orchestrator.Universes() {
		ranking, err := a.orchestrator.LatestRanking(ctx, name)
		if errors.Is(err, contracts.ErrNotFound) {
			PrintTableRow(out, []string{name, "-", "-", "never", "-"}, widths)
			continue
		}
		if err != nil {
			PrintTableRow(out, []string{name, "-", "-", "error", "-"}, widths)
			a.log.WithError(err).WithUniverse(name).Warn("Failed to load latest ranking")
			continue
		}

		top := "-"
		if ranking.Len() > 0 {
			top = ranking.Scores[0].Ticker
		}
		PrintTableRow(out, []string{
			name,
			formatCount(ranking.Len()),
			ranking.AsOf.Format("2006-01-02"),
			humanize.Time(ranking.CreatedAt),
			top,
		}, widths)
	}
}
