package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/config"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
	"github.com/wonny/quantsnap/pkg/redis"
)

const sampleOverview = `{
  "Symbol": "IBM",
  "Name": "International Business Machines",
  "Sector": "TECHNOLOGY",
  "MarketCapitalization": "170000000000",
  "EPS": "8.00",
  "DividendPerShare": "6.64",
  "DividendYield": "0.0367",
  "ProfitMargin": "0.121",
  "ReturnOnAssetsTTM": "0.0446",
  "ReturnOnEquityTTM": "0.331",
  "RevenueTTM": "62000000000",
  "QuarterlyEarningsGrowthYOY": "None",
  "QuarterlyRevenueGrowthYOY": "0.041",
  "PriceToBookRatio": "7.5",
  "PriceToSalesRatioTTM": "2.7",
  "EVToRevenue": "3.5",
  "Beta": "0.71"
}`

const sampleBalanceSheet = `{
  "symbol": "IBM",
  "annualReports": [
    {
      "totalLiabilities": "110000000000",
      "totalShareholderEquity": "22000000000",
      "totalCurrentAssets": "32000000000",
      "totalCurrentLiabilities": "34000000000",
      "inventory": "1200000000"
    },
    {
      "totalLiabilities": "1",
      "totalShareholderEquity": "1"
    }
  ]
}`

func newTestServer(t *testing.T, bodies map[string]string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		body, ok := bodies[r.URL.Query().Get("function")]
		if !ok {
			body = `{}`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(srv *httptest.Server, quota *redis.QuotaCounter) *Client {
	httpClient := httputil.New(logger.Nop(), 5*time.Second).DisableRetry()
	c := NewClient(httpClient, quota, srv.URL, "test-key", logger.Nop())
	c.now = func() time.Time { return time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_GetFundamentals_Overview(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{"OVERVIEW": sampleOverview})

	f, err := newTestClient(srv, nil).GetFundamentals(context.Background(), "ibm")
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)

	assert.Equal(t, "IBM", f.Ticker)
	assert.Equal(t, "International Business Machines", f.Name)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.AsOf)

	assert.Equal(t, contracts.Some(0.331), f.ROE)
	assert.Equal(t, contracts.Some(0.71), f.Beta)
	assert.False(t, f.EarningsGrowth.Valid)
	assert.InDelta(t, 0.83, f.PayoutRatio.Value, 1e-9)
	assert.InDelta(t, 217e9, f.EnterpriseValue.Value, 1)

	// no balance sheet requested
	assert.False(t, f.DebtToEquity.Valid)
	assert.False(t, f.ESGTotal.Valid)
}

func TestClient_GetFundamentals_BalanceSheet(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{
		"OVERVIEW":      sampleOverview,
		"BALANCE_SHEET": sampleBalanceSheet,
	})

	f, err := newTestClient(srv, nil).WithBalanceSheet(true).GetFundamentals(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)

	assert.InDelta(t, 5.0, f.DebtToEquity.Value, 1e-9)
	assert.InDelta(t, 32.0/34.0, f.CurrentRatio.Value, 1e-9)
	assert.InDelta(t, 30.8/34.0, f.QuickRatio.Value, 1e-9)
}

func TestClient_GetFundamentals_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"empty overview", `{}`, contracts.ErrNotFound},
		{"throttled", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, ErrThrottled},
		{"daily limit message", `{"Information": "We have detected your API key as ... 25 requests per day"}`, ErrThrottled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, map[string]string{"OVERVIEW": tt.body})
			_, err := newTestClient(srv, nil).GetFundamentals(context.Background(), "IBM")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestClient_GetFundamentals_QuotaExhausted(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{"OVERVIEW": sampleOverview})

	rc, err := redis.New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	quota := redis.NewQuotaCounter(rc, "test", "alphavantage", 1)
	c := newTestClient(srv, quota)

	_, err = c.GetFundamentals(context.Background(), "IBM")
	require.NoError(t, err)

	_, err = c.GetFundamentals(context.Background(), "MSFT")
	assert.ErrorIs(t, err, contracts.ErrQuotaExhausted)
	assert.Equal(t, 1, *calls)
}

func TestNum(t *testing.T) {
	m := map[string]interface{}{
		"a": "1.5",
		"b": "None",
		"c": "-",
		"d": "",
		"e": 2.0,
		"f": "abc",
	}

	assert.Equal(t, contracts.Some(1.5), num(m, "a"))
	assert.Equal(t, contracts.Some(2.0), num(m, "e"))
	for _, key := range []string{"b", "c", "d", "f", "missing"} {
		assert.False(t, num(m, key).Valid, key)
	}
}
