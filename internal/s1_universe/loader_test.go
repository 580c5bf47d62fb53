package s1_universe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
)

const constituentsHTML = `<html><body>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td><a href="#">MMM</a></td><td><a href="#">3M</a></td><td>Industrials</td><td>Industrial Conglomerates</td></tr>
<tr><td><a href="#">AOS</a></td><td>A. O. Smith</td><td>Industrials</td><td>Building Products</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td><td>Multi-Sector Holdings</td></tr>
</tbody>
</table>
<table class="wikitable"><tr><th>Date</th></tr></table>
</body></html>`

type memMemberStore struct {
	saved map[string][]contracts.UniverseMember
}

func (m *memMemberStore) SaveMembers(ctx context.Context, universe string, members []contracts.UniverseMember) error {
	m.saved[universe] = members
	return nil
}

func (m *memMemberStore) LoadMembers(ctx context.Context, universe string) ([]contracts.UniverseMember, error) {
	members, ok := m.saved[universe]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return members, nil
}

func tickers(members []contracts.UniverseMember) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Ticker
	}
	return out
}

func TestLoader_BuiltinLists(t *testing.T) {
	l := NewLoader("", nil, logger.Nop())

	members, err := l.GetUniverse(context.Background(), PopularStocks)
	require.NoError(t, err)
	assert.Len(t, members, 10)
	assert.Equal(t, "TSLA", members[0].Ticker)

	// callers cannot mutate the built-in list
	members[0].Ticker = "XXX"
	again, err := l.GetUniverse(context.Background(), PopularStocks)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", again[0].Ticker)

	assert.Equal(t, []string{PopularStocks, SP500, TopETFs, WorldTopStocks}, l.ListUniverses())
}

func TestLoader_UnknownUniverse(t *testing.T) {
	_, err := NewLoader("", nil, logger.Nop()).GetUniverse(context.Background(), "nasdaq_moon")
	assert.True(t, errors.Is(err, contracts.ErrUnknownUniverse))
}

func TestLoader_CSVOverride(t *testing.T) {
	dir := t.TempDir()
	csvData := "Ticker,Name,Sector\naapl,Apple Inc,Technology\nXOM,Exxon Mobil,Energy\nAAPL,Apple again,Technology\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sp500.csv"), []byte(csvData), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my_watchlist.csv"), []byte("symbol\nIBM\n"), 0o644))

	l := NewLoader(dir, NewBuilder(Config{ExcludeSectors: []string{"energy"}}), logger.Nop())

	members, err := l.GetUniverse(context.Background(), SP500)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, tickers(members))
	assert.Equal(t, "Apple Inc", members[0].Name)

	custom, err := l.GetUniverse(context.Background(), "my_watchlist")
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM"}, tickers(custom))

	assert.Contains(t, l.ListUniverses(), "my_watchlist")

	_, err = l.GetUniverse(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, contracts.ErrUnknownUniverse)
}

func TestLoader_EmptyAfterFiltering(t *testing.T) {
	l := NewLoader("", NewBuilder(Config{ExcludeTickers: []string{"SPY", "QQQ", "IWM", "VTI", "VOO", "VEA", "VWO", "BND"}}), logger.Nop())
	_, err := l.GetUniverse(context.Background(), TopETFs)
	assert.ErrorIs(t, err, contracts.ErrEmptyUniverse)
}

func TestLoader_Live(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(constituentsHTML))
	}))
	defer srv.Close()

	httpClient := httputil.New(logger.Nop(), 5*time.Second).DisableRetry()
	store := &memMemberStore{saved: make(map[string][]contracts.UniverseMember)}
	l := NewLoader("", nil, logger.Nop()).
		WithWikipedia(NewWikipediaSource(httpClient, srv.URL, logger.Nop())).
		WithStore(store)

	members, err := l.GetUniverse(context.Background(), SP500Live)
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AOS", "BRK.B"}, tickers(members))
	assert.Equal(t, "Industrials", members[0].Sector)
	assert.Len(t, store.saved[SP500Live], 3)
	assert.Contains(t, l.ListUniverses(), SP500Live)

	// upstream down: stored copy
	fail.Store(true)
	members, err = l.GetUniverse(context.Background(), SP500Live)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	// nothing stored either: built-in sp500
	delete(store.saved, SP500Live)
	members, err = l.GetUniverse(context.Background(), SP500Live)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", members[0].Ticker)
}

func TestParseConstituents(t *testing.T) {
	members, err := parseConstituents(strings.NewReader(constituentsHTML))
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, contracts.UniverseMember{Ticker: "MMM", Name: "3M", Sector: "Industrials"}, members[0])

	_, err = parseConstituents(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"lowercase header", "ticker,name\nAAPL,Apple\nMSFT,Microsoft\n", []string{"AAPL", "MSFT"}, false},
		{"symbol header with BOM", "\ufeffSymbol,Security\nNVDA,NVIDIA\n", []string{"NVDA"}, false},
		{"blank rows skipped", "Ticker\nAAPL\n\n,\nMSFT\n", []string{"AAPL", "MSFT"}, false},
		{"no ticker column", "name,sector\nApple,Tech\n", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members, err := ParseCSV(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tickers(members))
		})
	}
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(Config{ExcludeTickers: []string{"tsla"}, MaxSize: 2})

	kept, excluded := b.Build([]contracts.UniverseMember{
		{Ticker: " aapl "},
		{Ticker: "TSLA"},
		{Ticker: "AAPL"},
		{Ticker: "MSFT"},
		{Ticker: "NVDA"},
		{Ticker: ""},
	})

	assert.Equal(t, []string{"AAPL", "MSFT"}, tickers(kept))
	assert.Equal(t, "excluded ticker", excluded["TSLA"])
	assert.Equal(t, "duplicate", excluded["AAPL"])
	assert.Contains(t, excluded["NVDA"], "max size")
}
