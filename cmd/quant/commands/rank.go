package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantsnap/internal/brain"
)

var rankCmd = &cobra.Command{
	Use:   "rank <universe>",
	Short: "유니버스 랭킹 실행",
	Long: `유니버스 전체를 수집·계산·정규화하여 랭킹을 만듭니다.
DATABASE_URL이 설정되어 있으면 결과가 저장됩니다.

Example:
  go run ./cmd/quant rank popular_stocks
  go run ./cmd/quant rank sp500 --top 20 --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

var (
	rankTop    int
	rankAsOf   string
	rankFormat string
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntVar(&rankTop, "top", 0, "상위 N개만 출력 (0 = 전략 top_n)")
	rankCmd.Flags().StringVar(&rankAsOf, "as-of", "", "기준일 (YYYY-MM-DD, 기본값 오늘)")
	rankCmd.Flags().StringVarP(&rankFormat, "format", "f", FormatTable, "출력 형식 (table|json|csv)")
}

func runRank(cmd *cobra.Command, args []string) error {
	if err := checkFormat(rankFormat); err != nil {
		return err
	}

	var asOf time.Time
	if rankAsOf != "" {
		t, err := time.Parse("2006-01-02", rankAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", rankAsOf, err)
		}
		asOf = t
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.runContext(cmd.Context())
	defer cancel()

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{
		Universe: args[0],
		AsOf:     asOf,
		TopN:     rankTop,
	})
	if err != nil {
		return fmt.Errorf("rank %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if rankFormat != FormatTable {
		return writeScores(out, rankFormat, result.Top, result.Ranking.Columns)
	}

	r := result.Ranking
	PrintDoubleSeparator(out)
	fmt.Fprintf(out, "Ranking: %s (as of %s)\n", r.Universe, r.AsOf.Format("2006-01-02"))
	PrintDoubleSeparator(out)
	PrintKeyValue(out, "Run ID", r.RunID, 14)
	PrintKeyValue(out, "Ranked", formatCount(r.Len()), 14)
	PrintKeyValue(out, "Strategy", r.StrategyHash, 14)
	PrintKeyValue(out, "Duration", result.Duration.Round(time.Millisecond).String(), 14)
	if result.Quality != nil {
		PrintKeyValue(out, "Quality", fmt.Sprintf("%.2f (passed=%t)", result.Quality.QualityScore, result.Quality.Passed), 14)
	}
	fmt.Fprintln(out)

	if err := writeScores(out, FormatTable, result.Top, r.Columns); err != nil {
		return err
	}

	if len(r.Degenerate) > 0 {
		PrintWarning(out, "degenerate factors (zero contribution): "+strings.Join(r.Degenerate, ", "))
	}
	if len(result.Dropped) > 0 {
		PrintWarning(out, fmt.Sprintf("%d tickers dropped", len(result.Dropped)))
		tickers := make([]string, 0, len(result.Dropped))
		for t := range result.Dropped {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		for _, t := range tickers {
			fmt.Fprintf(out, "  %-8s %s\n", t, result.Dropped[t])
		}
	}

	if result.Quality != nil && !result.Quality.Passed {
		PrintWarning(cmd.ErrOrStderr(), "quality gate failed; ranking was produced from partial data")
	}
	return nil
}
