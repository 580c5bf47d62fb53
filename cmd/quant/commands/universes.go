package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var universesCmd = &cobra.Command{
	Use:   "universes",
	Short: "유니버스 조회",
	Long: `사용 가능한 유니버스와 구성 종목을 조회합니다.

Example:
  go run ./cmd/quant universes list
  go run ./cmd/quant universes show sp500_live`,
}

var (
	universesListCmd = &cobra.Command{
		Use:   "list",
		Short: "유니버스 목록",
		RunE:  listUniverses,
	}

	universesShowCmd = &cobra.Command{
		Use:   "show <universe>",
		Short: "유니버스 구성 종목",
		Args:  cobra.ExactArgs(1),
		RunE:  showUniverse,
	}
)

var universesJSON bool

func init() {
	rootCmd.AddCommand(universesCmd)
	universesCmd.AddCommand(universesListCmd)
	universesCmd.AddCommand(universesShowCmd)

	universesShowCmd.Flags().BoolVar(&universesJSON, "json", false, "JSON 출력")
}

func listUniverses(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	for _, name := range a.loader.ListUniverses() {
		fmt.Fprintln(out, name)
	}
	return nil
}

func showUniverse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	members, err := a.loader.GetUniverse(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load universe %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if universesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(members)
	}

	widths := []int{10, 36, 24}
	PrintTableHeader(out, []string{"TICKER", "NAME", "SECTOR"}, widths)
	for _, m := range members {
		PrintTableRow(out, []string{m.Ticker, m.Name, m.Sector}, widths)
	}
	fmt.Fprintf(out, "\n%s members\n", formatCount(len(members)))
	return nil
}
