package s1_universe

import (
	"fmt"
	"strings"

	"github.com/wonny/quantsnap/internal/contracts"
)

// Config holds universe filter criteria
type Config struct {
	ExcludeTickers []string `yaml:"exclude_tickers"` // 제외 종목
	ExcludeSectors []string `yaml:"exclude_sectors"` // 제외 섹터
	MaxSize        int      `yaml:"max_size"`        // 0 = 제한 없음
}

// Builder cleans a raw member list into the rankable universe
type Builder struct {
	config Config
}

// NewBuilder creates a new Universe Builder
func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// Build normalizes tickers and applies the filters in order. The excluded map
// holds ticker -> reason. Member order is kept.
// ⭐ SSOT: S1 유니버스 필터링
func (b *Builder) Build(members []contracts.UniverseMember) ([]contracts.UniverseMember, map[string]string) {
	kept := make([]contracts.UniverseMember, 0, len(members))
	excluded := make(map[string]string)
	seen := make(map[string]bool, len(members))

	for _, m := range members {
		m.Ticker = NormalizeTicker(m.Ticker)
		m.Name = strings.TrimSpace(m.Name)
		m.Sector = strings.TrimSpace(m.Sector)

		if m.Ticker == "" {
			continue
		}
		if seen[m.Ticker] {
			excluded[m.Ticker] = "duplicate"
			continue
		}
		seen[m.Ticker] = true

		if reason := b.checkExclusion(m); reason != "" {
			excluded[m.Ticker] = reason
			continue
		}
		if b.config.MaxSize > 0 && len(kept) >= b.config.MaxSize {
			excluded[m.Ticker] = fmt.Sprintf("beyond max size %d", b.config.MaxSize)
			continue
		}
		kept = append(kept, m)
	}

	return kept, excluded
}

// checkExclusion checks if a member should be excluded and returns the reason
func (b *Builder) checkExclusion(m contracts.UniverseMember) string {
	for _, t := range b.config.ExcludeTickers {
		if NormalizeTicker(t) == m.Ticker {
			return "excluded ticker"
		}
	}
	for _, sector := range b.config.ExcludeSectors {
		if m.Sector != "" && strings.EqualFold(m.Sector, sector) {
			return fmt.Sprintf("excluded sector (%s)", m.Sector)
		}
	}
	return ""
}

// NormalizeTicker upper-cases and trims a ticker symbol
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
