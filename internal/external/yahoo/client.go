package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// validPeriods are the ranges the chart API accepts with a daily interval
var validPeriods = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true,
	"ytd": true, "max": true,
}

// Client fetches daily bars from the Yahoo Finance chart API.
// It implements contracts.PriceProvider.
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	symbolMap  map[string]string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		symbolMap: map[string]string{
			"SPX":   "^GSPC",
			"SP500": "^GSPC",
		},
	}
}

// chartResponse is the body of /v8/finance/chart/{symbol}
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol     string `json:"symbol"`
				GMTOffset  int64  `json:"gmtoffset"`
				LongName   string `json:"longName"`
				ShortName  string `json:"shortName"`
				Currency   string `json:"currency"`
				ExchangeTZ string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if mapped, ok := c.symbolMap[ticker]; ok {
		return mapped
	}
	// BRK.B -> BRK-B
	return strings.ReplaceAll(ticker, ".", "-")
}

// GetPriceHistory returns daily bars for a lookback period such as "1y".
// Unknown tickers and empty responses return contracts.ErrNotFound.
func (c *Client) GetPriceHistory(ctx context.Context, ticker, period string) (*contracts.PriceHistory, error) {
	if !validPeriods[period] {
		return nil, fmt.Errorf("invalid period %q", period)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s&events=div%%2Csplits",
		c.baseURL, url.PathEscape(c.symbol(ticker)), url.QueryEscape(period))

	var chart chartResponse
	if err := c.httpClient.GetJSON(ctx, u, &chart); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("yahoo %s: %w", ticker, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}

	history, err := parseChart(ticker, &chart)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"period": period,
		"bars":   history.Len(),
	}).Debug("Fetched price history")

	return history, nil
}

// parseChart converts a chart response into ascending, de-duplicated daily bars.
// Bars without a close (halts, holidays) are skipped.
func parseChart(ticker string, chart *chartResponse) (*contracts.PriceHistory, error) {
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo %s: %w", ticker, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo api error for %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data: %w", ticker, contracts.ErrNotFound)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	byDate := make(map[time.Time]contracts.PriceBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		last := at(quote.Close, i)
		if last == nil || *last <= 0 {
			continue
		}
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		bar := contracts.PriceBar{
			Date:  date,
			Open:  valueOr(at(quote.Open, i), *last),
			High:  valueOr(at(quote.High, i), *last),
			Low:   valueOr(at(quote.Low, i), *last),
			Close: *last,
		}
		if v := at(quote.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		// 같은 날짜가 두 번 오면 (장중 스냅샷) 마지막 값을 사용
		byDate[date] = bar
	}

	if len(byDate) == 0 {
		return nil, fmt.Errorf("yahoo %s: no valid bars: %w", ticker, contracts.ErrNotFound)
	}

	bars := make([]contracts.PriceBar, 0, len(byDate))
	for _, bar := range byDate {
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return &contracts.PriceHistory{Ticker: strings.ToUpper(ticker), Bars: bars}, nil
}

func at(xs []*float64, i int) *float64 {
	if i >= len(xs) {
		return nil
	}
	return xs[i]
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
