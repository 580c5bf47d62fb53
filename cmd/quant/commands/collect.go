package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect <universe>",
	Short: "유니버스 데이터 수집 (랭킹 없이)",
	Long: `유니버스 종목의 가격/재무 데이터를 수집하여 캐시와 DB를 채웁니다.
품질 게이트 결과를 출력합니다.

Example:
  go run ./cmd/quant collect sp500
  go run ./cmd/quant collect popular_stocks --skip-fundamentals`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

var collectSkipFundamentals bool

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().BoolVar(&collectSkipFundamentals, "skip-fundamentals", false, "가격 데이터만 수집")
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.runContext(cmd.Context())
	defer cancel()

	universe := args[0]
	members, err := a.loader.GetUniverse(ctx, universe)
	if err != nil {
		return fmt.Errorf("load universe %s: %w", universe, err)
	}

	start := time.Now()
	results, err := a.collector.Collect(ctx, members, a.collectConfig(collectSkipFundamentals))
	if err != nil {
		return fmt.Errorf("collect %s: %w", universe, err)
	}

	if a.dataRepo != nil {
		if err := a.dataRepo.UpsertCompanies(ctx, members); err != nil {
			a.log.WithError(err).Warn("Failed to save company names")
		}
	}

	priced, withFundamentals := 0, 0
	for _, r := range results {
		if r.Priced() {
			priced++
		}
		if r.Fundamentals != nil {
			withFundamentals++
		}
	}

	snapshot := a.gate.Check(universe, time.Now().UTC(), results)
	if a.qualityRepo != nil {
		if err := a.qualityRepo.SaveSnapshot(ctx, snapshot); err != nil {
			a.log.WithError(err).Warn("Failed to save quality snapshot")
		}
	}

	out := cmd.OutOrStdout()
	PrintDoubleSeparator(out)
	fmt.Fprintf(out, "Collect: %s\n", universe)
	PrintDoubleSeparator(out)
	PrintKeyValue(out, "Members", formatCount(len(members)), 16)
	PrintKeyValue(out, "Priced", formatCount(priced), 16)
	PrintKeyValue(out, "Fundamentals", formatCount(withFundamentals), 16)
	PrintKeyValue(out, "Quality score", fmt.Sprintf("%.2f", snapshot.QualityScore), 16)
	PrintKeyValue(out, "Duration", time.Since(start).Round(time.Millisecond).String(), 16)

	if !snapshot.Passed {
		PrintWarning(out, "quality gate failed")
		return nil
	}
	PrintSuccess(out, "quality gate passed")
	return nil
}
