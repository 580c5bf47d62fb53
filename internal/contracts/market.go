package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MinHistoryBars is the minimum number of daily bars a ticker needs to be scored.
// 3개월 모멘텀(63) + 여유 2일
const MinHistoryBars = 65

// PriceBar is one daily OHLCV bar
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceHistory is a ticker's daily bars in ascending date order
// ⭐ SSOT: S0 → S2 가격 데이터 전달
type PriceHistory struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars
func (h *PriceHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Bars)
}

// Validate checks that dates are strictly increasing and prices are finite
func (h *PriceHistory) Validate() error {
	for i, bar := range h.Bars {
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
			return fmt.Errorf("%s: non-finite close at %s: %w", h.Ticker, bar.Date.Format("2006-01-02"), ErrInvalidHistory)
		}
		if i > 0 && !bar.Date.After(h.Bars[i-1].Date) {
			return fmt.Errorf("%s: bars not strictly ascending at %s: %w", h.Ticker, bar.Date.Format("2006-01-02"), ErrInvalidHistory)
		}
	}
	return nil
}

// Closes returns the close series
func (h *PriceHistory) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, bar := range h.Bars {
		out[i] = bar.Close
	}
	return out
}

// Volumes returns the volume series as floats
func (h *PriceHistory) Volumes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, bar := range h.Bars {
		out[i] = float64(bar.Volume)
	}
	return out
}

// Returns returns daily simple returns. The first bar has no return and is dropped,
// as is any return whose previous close is zero.
func (h *PriceHistory) Returns() []float64 {
	if len(h.Bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(h.Bars)-1)
	for i := 1; i < len(h.Bars); i++ {
		prev := h.Bars[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, h.Bars[i].Close/prev-1)
	}
	return out
}

// LastDate returns the date of the most recent bar
func (h *PriceHistory) LastDate() time.Time {
	if len(h.Bars) == 0 {
		return time.Time{}
	}
	return h.Bars[len(h.Bars)-1].Date
}

// Optional is a metric value that may be absent
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a present value; non-finite input is treated as absent
func Some(v float64) Optional {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Optional{}
	}
	return Optional{Value: v, Valid: true}
}

// None returns an absent value
func None() Optional {
	return Optional{}
}

// Or returns the value or def when absent
func (o Optional) Or(def float64) float64 {
	if !o.Valid {
		return def
	}
	return o.Value
}

// Positive returns the value only if it is present and > 0
func (o Optional) Positive() (float64, bool) {
	if !o.Valid || o.Value <= 0 {
		return 0, false
	}
	return o.Value, true
}

// Float returns the value or NaN when absent
func (o Optional) Float() float64 {
	if !o.Valid {
		return math.NaN()
	}
	return o.Value
}

// MarshalJSON encodes an absent value as null
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as absent
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Fundamentals is a company's fundamentals/ESG snapshot.
// Every metric may be absent; consumers pick an explicit default per field.
// ⭐ SSOT: S0 → S2 재무/평판 데이터 전달
type Fundamentals struct {
	Ticker string    `json:"ticker"`
	Name   string    `json:"name,omitempty"`
	Sector string    `json:"sector,omitempty"`
	AsOf   time.Time `json:"as_of"`

	// Financial health
	DebtToEquity Optional `json:"debt_to_equity"`
	CurrentRatio Optional `json:"current_ratio"`
	QuickRatio   Optional `json:"quick_ratio"`
	ROE          Optional `json:"roe"`
	ROA          Optional `json:"roa"`

	// Market position
	MarketCap              Optional `json:"market_cap"`
	EnterpriseValue        Optional `json:"enterprise_value"`
	PriceToBook            Optional `json:"price_to_book"`
	PriceToSales           Optional `json:"price_to_sales"`
	ResearchAndDevelopment Optional `json:"research_and_development"`

	// Growth & stability
	RevenueGrowth  Optional `json:"revenue_growth"`
	EarningsGrowth Optional `json:"earnings_growth"`
	ProfitMargins  Optional `json:"profit_margins"`
	DividendYield  Optional `json:"dividend_yield"`
	PayoutRatio    Optional `json:"payout_ratio"`
	Beta           Optional `json:"beta"`

	// ESG (0..1)
	ESGTotal         Optional `json:"esg_total"`
	ESGEnvironmental Optional `json:"esg_environmental"`
	ESGSocial        Optional `json:"esg_social"`
	ESGGovernance    Optional `json:"esg_governance"`
}

// Sanitize drops non-finite values. Providers call it once at ingestion.
func (f *Fundamentals) Sanitize() {
	for _, field := range f.fields() {
		if field.Valid {
			*field = Some(field.Value)
		}
	}
}

// PresentCount returns how many metrics are present
func (f *Fundamentals) PresentCount() int {
	n := 0
	for _, field := range f.fields() {
		if field.Valid {
			n++
		}
	}
	return n
}

func (f *Fundamentals) fields() []*Optional {
	return []*Optional{
		&f.DebtToEquity, &f.CurrentRatio, &f.QuickRatio, &f.ROE, &f.ROA,
		&f.MarketCap, &f.EnterpriseValue, &f.PriceToBook, &f.PriceToSales, &f.ResearchAndDevelopment,
		&f.RevenueGrowth, &f.EarningsGrowth, &f.ProfitMargins, &f.DividendYield, &f.PayoutRatio, &f.Beta,
		&f.ESGTotal, &f.ESGEnvironmental, &f.ESGSocial, &f.ESGGovernance,
	}
}

// UniverseMember is one ticker of a named universe
type UniverseMember struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector,omitempty"`
}
