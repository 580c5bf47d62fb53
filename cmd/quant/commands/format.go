package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wonny/quantsnap/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// checkFormat rejects unknown --format values before any work is done
func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatCSV:
		return nil
	}
	return fmt.Errorf("unknown format %q (table|json|csv)", format)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		if i == len(values)-1 {
			fmt.Fprint(w, val)
			break
		}
		fmt.Fprintf(w, "%-*s  ", widths[i], val)
	}
	fmt.Fprintln(w)
}

// moneyColumns are printed with SI prefixes in tables
var moneyColumns = map[string]bool{
	contracts.FactorDollarVol20D:    true,
	contracts.MetricMarketCap:       true,
	contracts.MetricEnterpriseValue: true,
	contracts.MetricRnD:             true,
	contracts.MetricVolumeAvg:       true,
}

// formatFactor renders a factor value for humans; NaN is "-"
func formatFactor(name string, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	if moneyColumns[name] {
		return humanize.SIWithDigits(v, 1, "")
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// csvFactor renders a factor value for machines; NaN is empty
func csvFactor(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeScores renders ranked scores with the given factor columns
func writeScores(w io.Writer, format string, scores []contracts.CompositeScore, columns []string) error {
	switch format {
	case FormatJSON:
		rows := (&contracts.Ranking{Scores: scores}).Rows()
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)

	case FormatCSV:
		cw := csv.NewWriter(w)
		header := append([]string{"rank", "ticker", "name", "score"}, columns...)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, s := range scores {
			record := []string{strconv.Itoa(s.Rank), s.Ticker, s.Name, csvFactor(s.Score)}
			for _, c := range columns {
				record = append(record, csvFactor(s.Breakdown.Get(c)))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		header := append([]string{"#", "TICKER", "NAME", "SCORE"}, columns...)
		widths := []int{4, 8, 24, 8}
		for _, c := range columns {
			widths = append(widths, max(len(c), 10))
		}
		PrintTableHeader(w, header, widths)
		for _, s := range scores {
			name := s.Name
			if len(name) > 24 {
				name = name[:21] + "..."
			}
			row := []string{strconv.Itoa(s.Rank), s.Ticker, name, strconv.FormatFloat(s.Score, 'f', 3, 64)}
			for _, c := range columns {
				row = append(row, formatFactor(c, s.Breakdown.Get(c)))
			}
			PrintTableRow(w, row, widths)
		}
		return nil
	}
}

// writeFactors renders raw factor vectors (no ranking) per ticker
func writeFactors(w io.Writer, format string, table contracts.FactorTable) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)

	case FormatCSV:
		cw := csv.NewWriter(w)
		columns := table.Columns()
		if err := cw.Write(append([]string{"ticker"}, columns...)); err != nil {
			return err
		}
		for _, ticker := range table.Tickers() {
			record := []string{ticker}
			for _, c := range columns {
				record = append(record, csvFactor(table[ticker].Get(c)))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		// 컬럼이 많아 종목별 세로 출력
		for _, ticker := range table.Tickers() {
			PrintDoubleSeparator(w)
			fmt.Fprintf(w, "  %s\n", ticker)
			PrintSeparator(w)
			vec := table[ticker]
			for _, c := range table.Columns() {
				PrintKeyValue(w, c, formatFactor(c, vec.Get(c)), 20)
			}
		}
		return nil
	}
}

// formatCount renders an integer with thousands separators
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}
