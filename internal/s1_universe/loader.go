package s1_universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// MemberStore keeps the last resolved membership of live universes.
// *Repository implements it.
type MemberStore interface {
	SaveMembers(ctx context.Context, universe string, members []contracts.UniverseMember) error
	LoadMembers(ctx context.Context, universe string) ([]contracts.UniverseMember, error)
}

// Loader resolves universe names to member lists.
// Resolution order: <dir>/<name>.csv, then the built-in list. sp500_live is
// scraped from Wikipedia, falling back to its stored copy and then to sp500.
// It implements contracts.UniverseLoader.
// ⭐ SSOT: 유니버스 조회는 여기서만
type Loader struct {
	dir       string
	wikipedia *WikipediaSource
	store     MemberStore
	builder   *Builder
	logger    *logger.Logger
}

// NewLoader creates a loader over a CSV override directory (may be empty)
func NewLoader(dir string, builder *Builder, log *logger.Logger) *Loader {
	if builder == nil {
		builder = NewBuilder(Config{})
	}
	return &Loader{
		dir:     dir,
		builder: builder,
		logger:  log,
	}
}

// WithWikipedia enables the sp500_live universe
func (l *Loader) WithWikipedia(source *WikipediaSource) *Loader {
	l.wikipedia = source
	return l
}

// WithStore persists live universes for offline fallback
func (l *Loader) WithStore(store MemberStore) *Loader {
	l.store = store
	return l
}

// ListUniverses returns every resolvable universe name, sorted
func (l *Loader) ListUniverses() []string {
	seen := make(map[string]bool)
	for name := range builtinLists {
		seen[name] = true
	}
	if l.wikipedia != nil {
		seen[SP500Live] = true
	}

	if l.dir != "" {
		files, _ := filepath.Glob(filepath.Join(l.dir, "*.csv"))
		for _, f := range files {
			seen[strings.TrimSuffix(filepath.Base(f), ".csv")] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetUniverse returns the filtered members of a universe.
// Unknown names are contracts.ErrUnknownUniverse; nothing left after
// filtering is contracts.ErrEmptyUniverse.
func (l *Loader) GetUniverse(ctx context.Context, name string) ([]contracts.UniverseMember, error) {
	raw, err := l.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	members, excluded := l.builder.Build(raw)

	l.logger.WithFields(map[string]interface{}{
		"universe": name,
		"members":  len(members),
		"excluded": len(excluded),
	}).Debug("Universe resolved")

	if len(members) == 0 {
		return nil, fmt.Errorf("universe %s: %w", name, contracts.ErrEmptyUniverse)
	}
	return members, nil
}

func (l *Loader) resolve(ctx context.Context, name string) ([]contracts.UniverseMember, error) {
	if name == SP500Live && l.wikipedia != nil {
		return l.resolveLive(ctx)
	}

	if members, err := l.loadCSV(name); err == nil {
		return members, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.WithError(err).WithUniverse(name).Warn("Invalid universe file, using built-in list")
	}

	if members, ok := builtinLists[name]; ok {
		out := make([]contracts.UniverseMember, len(members))
		copy(out, members)
		return out, nil
	}

	return nil, fmt.Errorf("%q: %w", name, contracts.ErrUnknownUniverse)
}

func (l *Loader) resolveLive(ctx context.Context) ([]contracts.UniverseMember, error) {
	members, err := l.wikipedia.Fetch(ctx)
	if err == nil {
		if l.store != nil {
			if err := l.store.SaveMembers(ctx, SP500Live, members); err != nil {
				l.logger.WithError(err).Warn("Failed to store live universe")
			}
		}
		return members, nil
	}

	l.logger.WithError(err).Warn("Live S&P 500 list unavailable")
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if l.store != nil {
		if stored, serr := l.store.LoadMembers(ctx, SP500Live); serr == nil {
			return stored, nil
		}
	}
	return l.resolve(ctx, SP500)
}

// loadCSV reads <dir>/<name>.csv. os.ErrNotExist means no override.
func (l *Loader) loadCSV(name string) ([]contracts.UniverseMember, error) {
	if l.dir == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, os.ErrNotExist
	}

	f, err := os.Open(filepath.Join(l.dir, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseCSV(f)
}

// ParseCSV reads a member list with a header row. The ticker column may be
// named ticker or symbol; name and sector are optional. Headers are case-insensitive.
func ParseCSV(r io.Reader) ([]contracts.UniverseMember, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	tickerCol, nameCol, sectorCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "ticker", "symbol":
			tickerCol = i
		case "name", "company", "security":
			nameCol = i
		case "sector", "gics sector":
			sectorCol = i
		}
	}
	if tickerCol < 0 {
		return nil, fmt.Errorf("no ticker column in header %v", header)
	}

	field := func(rec []string, col int) string {
		if col < 0 || col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	var members []contracts.UniverseMember
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if field(rec, tickerCol) == "" {
			continue
		}
		members = append(members, contracts.UniverseMember{
			Ticker: field(rec, tickerCol),
			Name:   field(rec, nameCol),
			Sector: field(rec, sectorCol),
		})
	}

	return members, nil
}
