package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
	"github.com/wonny/quantsnap/pkg/redis"
)

// DefaultBaseURL is the Alpha Vantage query endpoint
const DefaultBaseURL = "https://www.alphavantage.co/query"

// ErrThrottled is returned when the API answers with a rate-limit note instead of data
var ErrThrottled = errors.New("alpha vantage throttled")

// Client fetches company fundamentals from Alpha Vantage.
// It implements contracts.FundamentalsProvider.
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient   *httputil.Client
	quota        *redis.QuotaCounter
	logger       *logger.Logger
	baseURL      string
	apiKey       string
	balanceSheet bool
	now          func() time.Time
}

// NewClient creates a new Alpha Vantage client. quota may be nil.
func NewClient(httpClient *httputil.Client, quota *redis.QuotaCounter, baseURL, apiKey string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		quota:      quota,
		logger:     log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

// WithBalanceSheet also requests BALANCE_SHEET for liquidity/leverage ratios.
// Costs one extra call per ticker.
func (c *Client) WithBalanceSheet(enabled bool) *Client {
	c.balanceSheet = enabled
	return c
}

// GetFundamentals returns the OVERVIEW snapshot of a ticker, optionally
// completed with balance sheet ratios. An empty overview is contracts.ErrNotFound;
// a spent daily budget is contracts.ErrQuotaExhausted.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	overview, err := c.query(ctx, "OVERVIEW", ticker)
	if err != nil {
		return nil, err
	}
	if len(overview) == 0 || str(overview, "Symbol") == "" {
		return nil, fmt.Errorf("alphavantage overview %s: %w", ticker, contracts.ErrNotFound)
	}

	f := parseOverview(ticker, overview)
	f.AsOf = c.now().UTC().Truncate(24 * time.Hour)

	if c.balanceSheet {
		sheet, err := c.query(ctx, "BALANCE_SHEET", ticker)
		switch {
		case errors.Is(err, contracts.ErrQuotaExhausted):
			return nil, err
		case err != nil:
			// 재무상태표는 선택 항목: 실패해도 overview는 사용
			c.logger.WithError(err).WithTicker(ticker).Warn("Balance sheet unavailable")
		default:
			applyBalanceSheet(f, sheet)
		}
	}

	f.Sanitize()

	c.logger.WithFields(map[string]interface{}{
		"ticker":  ticker,
		"present": f.PresentCount(),
	}).Debug("Fetched fundamentals")

	return f, nil
}

// query performs one API call and returns the decoded JSON object
func (c *Client) query(ctx context.Context, function, ticker string) (map[string]interface{}, error) {
	if c.quota != nil {
		if err := c.quota.Acquire(ctx); err != nil {
			if errors.Is(err, redis.ErrQuotaExhausted) {
				return nil, fmt.Errorf("alphavantage %s %s: %w", function, ticker, contracts.ErrQuotaExhausted)
			}
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", ticker)
	params.Set("apikey", c.apiKey)

	var body map[string]interface{}
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &body); err != nil {
		return nil, fmt.Errorf("alphavantage %s %s: %w", function, ticker, err)
	}

	if msg := str(body, "Error Message"); msg != "" {
		return nil, fmt.Errorf("alphavantage %s %s: %s", function, ticker, msg)
	}
	for _, key := range []string{"Note", "Information"} {
		if msg := str(body, key); msg != "" {
			return nil, fmt.Errorf("alphavantage %s %s: %w: %s", function, ticker, ErrThrottled, msg)
		}
	}

	return body, nil
}

// parseOverview maps OVERVIEW fields onto a snapshot. ESG is not offered by the API.
func parseOverview(ticker string, o map[string]interface{}) *contracts.Fundamentals {
	f := &contracts.Fundamentals{
		Ticker: ticker,
		Name:   str(o, "Name"),
		Sector: titleCase(str(o, "Sector")),

		ROE:            num(o, "ReturnOnEquityTTM"),
		ROA:            num(o, "ReturnOnAssetsTTM"),
		MarketCap:      num(o, "MarketCapitalization"),
		PriceToBook:    num(o, "PriceToBookRatio"),
		PriceToSales:   num(o, "PriceToSalesRatioTTM"),
		RevenueGrowth:  num(o, "QuarterlyRevenueGrowthYOY"),
		EarningsGrowth: num(o, "QuarterlyEarningsGrowthYOY"),
		ProfitMargins:  num(o, "ProfitMargin"),
		DividendYield:  num(o, "DividendYield"),
		Beta:           num(o, "Beta"),
	}

	if evr, ok := num(o, "EVToRevenue").Positive(); ok {
		if rev, ok := num(o, "RevenueTTM").Positive(); ok {
			f.EnterpriseValue = contracts.Some(evr * rev)
		}
	}

	if eps, ok := num(o, "EPS").Positive(); ok {
		if dps := num(o, "DividendPerShare"); dps.Valid {
			f.PayoutRatio = contracts.Some(dps.Value / eps)
		}
	}

	return f
}

// applyBalanceSheet derives leverage and liquidity ratios from the latest annual report
func applyBalanceSheet(f *contracts.Fundamentals, sheet map[string]interface{}) {
	reports, ok := sheet["annualReports"].([]interface{})
	if !ok || len(reports) == 0 {
		return
	}
	latest, ok := reports[0].(map[string]interface{})
	if !ok {
		return
	}

	liabilities := num(latest, "totalLiabilities")
	equity := num(latest, "totalShareholderEquity")
	currentAssets := num(latest, "totalCurrentAssets")
	currentLiabilities := num(latest, "totalCurrentLiabilities")
	inventory := num(latest, "inventory")

	if eq, ok := equity.Positive(); ok && liabilities.Valid {
		f.DebtToEquity = contracts.Some(liabilities.Value / eq)
	}
	if cl, ok := currentLiabilities.Positive(); ok && currentAssets.Valid {
		f.CurrentRatio = contracts.Some(currentAssets.Value / cl)
		f.QuickRatio = contracts.Some((currentAssets.Value - inventory.Or(0)) / cl)
	}
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// num parses a numeric field. "None", "-" and empty strings are absent.
func num(m map[string]interface{}, key string) contracts.Optional {
	switch v := m[key].(type) {
	case float64:
		return contracts.Some(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "-" || strings.EqualFold(s, "None") {
			return contracts.None()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return contracts.None()
		}
		return contracts.Some(f)
	default:
		return contracts.None()
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
