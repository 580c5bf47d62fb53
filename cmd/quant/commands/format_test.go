package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantsnap/internal/contracts"
)

func sampleScores() []contracts.CompositeScore {
	return []contracts.CompositeScore{
		{
			Ticker: "AAPL", Name: "Apple Inc.", Rank: 1, Score: 1.25,
			Breakdown: contracts.FactorVector{
				contracts.FactorMomentum1M:   0.05,
				contracts.FactorDollarVol20D: 2.5e9,
			},
		},
		{
			Ticker: "GONE", Rank: 2, Score: -0.5,
			Breakdown: contracts.FactorVector{
				contracts.FactorMomentum1M: math.NaN(),
			},
		},
	}
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{FormatTable, FormatJSON, FormatCSV} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("xml"))
}

func TestFormatFactor(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  float64
		want   string
	}{
		{"nan", contracts.FactorMomentum1M, math.NaN(), "-"},
		{"inf", contracts.FactorMomentum1M, math.Inf(1), "-"},
		{"plain", contracts.FactorMomentum1M, 0.123456, "0.1235"},
		{"money", contracts.FactorDollarVol20D, 2.5e9, "2.5 G"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFactor(tt.column, tt.value))
		})
	}
}

func TestWriteScores_CSV(t *testing.T) {
	var buf bytes.Buffer
	columns := []string{contracts.FactorDollarVol20D, contracts.FactorMomentum1M}
	require.NoError(t, writeScores(&buf, FormatCSV, sampleScores(), columns))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"rank", "ticker", "name", "score", "DollarVol_20d", "MOM_1M"}, records[0])
	assert.Equal(t, []string{"1", "AAPL", "Apple Inc.", "1.25", "2.5e+09", "0.05"}, records[1])
	// missing and NaN factors are empty cells
	assert.Equal(t, []string{"2", "GONE", "", "-0.5", "", ""}, records[2])
}

func TestWriteScores_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, FormatJSON, sampleScores(), nil))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0]["ticker"])

	factors, ok := rows[1]["factors"].(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, factors[contracts.FactorMomentum1M], "NaN encodes as null")
}

func TestWriteScores_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, FormatTable, sampleScores(), []string{contracts.FactorDollarVol20D}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TICKER")
	assert.Contains(t, lines[2], "AAPL")
	assert.Contains(t, lines[2], "2.5 G")
	assert.True(t, strings.HasSuffix(lines[3], "-"))
}

func TestWriteFactors_CSV(t *testing.T) {
	table := contracts.FactorTable{
		"MSFT": {contracts.FactorMomentum1M: 0.02},
		"AAPL": {contracts.FactorMomentum1M: 0.01},
	}

	var buf bytes.Buffer
	require.NoError(t, writeFactors(&buf, FormatCSV, table))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ticker", "MOM_1M"},
		{"AAPL", "0.01"},
		{"MSFT", "0.02"},
	}, records)
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "503", formatCount(503))
	assert.Equal(t, "12,345", formatCount(12345))
}
