package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "quantsnap - 팩터 기반 종목 랭킹 백엔드",
	Long: `quantsnap Unified CLI

유니버스 구성 → 데이터 수집 → 팩터 계산 → 정규화 → 랭킹.
결과는 REST API와 CLI에서 조회합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant rank popular_stocks --top 10
  go run ./cmd/quant factors AAPL MSFT
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("env") {
			return os.Setenv("ENV", env)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
