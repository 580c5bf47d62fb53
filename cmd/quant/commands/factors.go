package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantsnap/internal/s1_universe"
	"github.com/wonny/quantsnap/internal/s2_signals"
)

var factorsCmd = &cobra.Command{
	Use:   "factors <ticker>...",
	Short: "개별 종목 팩터 계산",
	Long: `지정한 종목들의 원시 팩터 값을 계산합니다 (정규화 전).

Example:
  go run ./cmd/quant factors AAPL MSFT NVDA
  go run ./cmd/quant factors BRK.B --period 2y --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFactors,
}

var (
	factorsPeriod string
	factorsFormat string
)

func init() {
	rootCmd.AddCommand(factorsCmd)

	factorsCmd.Flags().StringVar(&factorsPeriod, "period", "", "가격 조회 기간 (기본값 RANKING_PERIOD)")
	factorsCmd.Flags().StringVarP(&factorsFormat, "format", "f", FormatTable, "출력 형식 (table|json|csv)")
}

func runFactors(cmd *cobra.Command, args []string) error {
	if err := checkFormat(factorsFormat); err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	period := factorsPeriod
	if period == "" {
		period = a.cfg.Ranking.Period
	}

	ctx, cancel := a.runContext(cmd.Context())
	defer cancel()

	seen := make(map[string]bool, len(args))
	inputs := make([]s2_signals.TickerData, 0, len(args))
	failed := make(map[string]string)
	for _, arg := range args {
		ticker := s1_universe.NormalizeTicker(arg)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true

		history, err := a.provider.GetPriceHistory(ctx, ticker, period)
		if err != nil {
			failed[ticker] = err.Error()
			continue
		}
		in := s2_signals.TickerData{Ticker: ticker, History: history}
		if a.provider.HasFundamentals() {
			f, err := a.provider.GetFundamentals(ctx, ticker)
			if err != nil {
				a.log.WithError(err).WithTicker(ticker).Warn("Fundamentals unavailable, using neutral scores")
			} else {
				in.Fundamentals = f
			}
		}
		inputs = append(inputs, in)
	}

	builder := s2_signals.NewBuilder(
		s2_signals.NewFactorCalculator(a.strategy.Factors, a.log),
		s2_signals.NewReputationAggregator(a.log),
		a.cfg.Ranking.Workers,
		a.log,
	)
	result, err := builder.Build(ctx, inputs)
	if err != nil {
		return fmt.Errorf("compute factors: %w", err)
	}
	for t, reason := range result.Dropped {
		failed[t] = reason
	}

	out := cmd.OutOrStdout()
	if len(result.Table) > 0 {
		if err := writeFactors(out, factorsFormat, result.Table); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		tickers := make([]string, 0, len(failed))
		for t := range failed {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		errOut := cmd.ErrOrStderr()
		for _, t := range tickers {
			PrintWarning(errOut, fmt.Sprintf("%s: %s", t, failed[t]))
		}
		if len(result.Table) == 0 {
			return fmt.Errorf("no factors computed for %s", strings.Join(tickers, ", "))
		}
	}
	return nil
}
