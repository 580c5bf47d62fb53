package s1_universe

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultWikipediaURL lists the current S&P 500 constituents
const DefaultWikipediaURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// WikipediaSource scrapes the S&P 500 constituents table
// ⭐ SSOT: Wikipedia 스크래핑은 여기서만
type WikipediaSource struct {
	httpClient *httputil.Client
	url        string
	logger     *logger.Logger
}

// NewWikipediaSource creates a new Wikipedia constituents source
func NewWikipediaSource(httpClient *httputil.Client, url string, log *logger.Logger) *WikipediaSource {
	if url == "" {
		url = DefaultWikipediaURL
	}
	return &WikipediaSource{httpClient: httpClient, url: url, logger: log}
}

// Fetch downloads and parses the constituents table
func (w *WikipediaSource) Fetch(ctx context.Context) ([]contracts.UniverseMember, error) {
	resp, err := w.httpClient.Get(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	members, err := parseConstituents(resp.Body)
	if err != nil {
		return nil, err
	}

	w.logger.WithField("count", len(members)).Debug("Fetched S&P 500 constituents")
	return members, nil
}

// parseConstituents reads the first table with a Symbol column (id="constituents" on the live page)
func parseConstituents(r io.Reader) ([]contracts.UniverseMember, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	// 헤더에서 컬럼 위치 찾기
	symbolCol, nameCol, sectorCol := -1, -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch strings.ToLower(strings.TrimSpace(th.Text())) {
		case "symbol", "ticker", "ticker symbol":
			symbolCol = i
		case "security", "company":
			nameCol = i
		case "gics sector", "sector":
			sectorCol = i
		}
	})
	if symbolCol < 0 {
		return nil, fmt.Errorf("symbol column not found")
	}

	var members []contracts.UniverseMember
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= symbolCol {
			return
		}

		cell := func(col int) string {
			if col < 0 || col >= cells.Length() {
				return ""
			}
			return strings.TrimSpace(cells.Eq(col).Text())
		}

		ticker := cell(symbolCol)
		if ticker == "" {
			return
		}
		members = append(members, contracts.UniverseMember{
			Ticker: ticker,
			Name:   cell(nameCol),
			Sector: cell(sectorCol),
		})
	})

	if len(members) == 0 {
		return nil, fmt.Errorf("constituents table is empty")
	}
	return members, nil
}
