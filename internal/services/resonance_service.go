package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gematria-field/api/internal/cipher"
	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/platform/pagination"
	"github.com/gematria-field/api/internal/platform/requestctx"
	"github.com/gematria-field/api/internal/repositories"
)

const (
	defaultPerCipherLimit = 50
	maxConcurrentLookups  = 8
	degradedMessage       = "match lookup failed"
	resonanceMeterName    = "github.com/gematria-field/api/internal/services/resonance"
)

// ResonanceServiceDeps bundles collaborators required to construct a resonance service.
// A nil Phrases repository runs the service store-less.
type ResonanceServiceDeps struct {
	Phrases        repositories.PhraseRepository
	Registry       *cipher.Registry
	DefaultActive  []string
	MaxActive      int
	PerCipherLimit int
	Page           pagination.Options
	Meter          metric.Meter
}

type resonanceService struct {
	phrases  repositories.PhraseRepository
	registry *cipher.Registry
	active   activeSet
	limit    int
	page     pagination.Options

	lookups      metric.Int64Counter
	lookupErrors metric.Int64Counter
}

var _ ResonanceService = (*resonanceService)(nil)

// NewResonanceService constructs the multi-cipher query layer.
func NewResonanceService(deps ResonanceServiceDeps) (ResonanceService, error) {
	if deps.Registry == nil {
		return nil, errors.New("resonance service: registry is required")
	}
	limit := deps.PerCipherLimit
	if limit <= 0 {
		limit = defaultPerCipherLimit
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(resonanceMeterName)
	}
	lookups, err := meter.Int64Counter("resonance.lookups",
		metric.WithDescription("Per-cipher equality lookups issued against the phrase store"))
	if err != nil {
		return nil, fmt.Errorf("resonance service: register lookup counter: %w", err)
	}
	lookupErrors, err := meter.Int64Counter("resonance.lookup.errors",
		metric.WithDescription("Per-cipher lookups that failed"))
	if err != nil {
		return nil, fmt.Errorf("resonance service: register error counter: %w", err)
	}
	return &resonanceService{
		phrases:      deps.Phrases,
		registry:     deps.Registry,
		active:       newActiveSet(deps.Registry, deps.DefaultActive, deps.MaxActive),
		limit:        limit,
		page:         deps.Page,
		lookups:      lookups,
		lookupErrors: lookupErrors,
	}, nil
}

// lookup is one (cipher, value) equality query of a round.
type lookup struct {
	cipher string
	value  int64
}

type round struct {
	active  []string
	values  map[string]int64
	exclude string
	filters numprops.Filters
	params  pagination.Params
	bump    bool
}

func (s *resonanceService) FindMatches(ctx context.Context, query MatchQuery) (MatchSet, error) {
	if ctx == nil {
		return MatchSet{}, errors.New("resonance service: context is required")
	}
	active, err := s.active.resolve(query.Active)
	if err != nil {
		return MatchSet{}, err
	}
	params, err := pagination.New(query.PageSize, query.PageToken, s.page)
	if err != nil {
		return MatchSet{}, err
	}
	values := make(map[string]int64, len(query.Values))
	for name, v := range query.Values {
		if canonical, err := s.registry.Canonical(name); err == nil {
			values[canonical] = v
		}
	}
	return s.run(ctx, round{
		active:  active,
		values:  values,
		exclude: cipher.PhraseKey(query.Phrase),
		filters: query.Filters,
		params:  params,
		bump:    strings.TrimSpace(query.Phrase) != "" && params.Cursor.Offset == 0,
	})
}

func (s *resonanceService) SearchByNumber(ctx context.Context, query NumberQuery) (MatchSet, error) {
	if ctx == nil {
		return MatchSet{}, errors.New("resonance service: context is required")
	}
	if query.Value < 0 {
		return MatchSet{}, fmt.Errorf("%w: %d", ErrInvalidNumber, query.Value)
	}
	active, err := s.active.resolve(query.Active)
	if err != nil {
		return MatchSet{}, err
	}
	params, err := pagination.New(query.PageSize, query.PageToken, s.page)
	if err != nil {
		return MatchSet{}, err
	}
	values := make(map[string]int64, len(active))
	for _, name := range active {
		values[name] = query.Value
	}
	return s.run(ctx, round{
		active:  active,
		values:  values,
		filters: query.Filters,
		params:  params,
	})
}

// SearchByNumbers matches every number against every active table cipher and merges the hits.
// The merged list is not paginated.
func (s *resonanceService) SearchByNumbers(ctx context.Context, active []string, numbers []int64) (MatchSet, error) {
	if ctx == nil {
		return MatchSet{}, errors.New("resonance service: context is required")
	}
	resolved, err := s.active.resolve(active)
	if err != nil {
		return MatchSet{}, err
	}
	set := MatchSet{Ciphers: resolved, ByCipher: map[string][]PhraseEntry{}}
	if s.phrases == nil {
		return set, ErrStoreUnavailable
	}

	var lookups []lookup
	for _, name := range resolved {
		if !s.registry.IsTable(name) {
			continue
		}
		for _, n := range numbers {
			if n > 0 {
				lookups = append(lookups, lookup{cipher: name, value: n})
			}
		}
	}
	results, err := s.fanOut(ctx, lookups)
	if err != nil {
		return degrade(ctx, set, err), nil
	}

	seen := make(map[string]map[string]struct{}, len(resolved))
	for i, l := range lookups {
		ids := seen[l.cipher]
		if ids == nil {
			ids = map[string]struct{}{}
			seen[l.cipher] = ids
		}
		for _, entry := range results[i] {
			if _, dup := ids[entry.ID]; dup {
				continue
			}
			ids[entry.ID] = struct{}{}
			set.ByCipher[l.cipher] = append(set.ByCipher[l.cipher], entry)
		}
	}
	set.Merged = merge(resolved, set.ByCipher)
	return set, nil
}

func (s *resonanceService) run(ctx context.Context, r round) (MatchSet, error) {
	set := MatchSet{
		Ciphers:  r.active,
		Values:   make(map[string]int64, len(r.active)),
		ByCipher: map[string][]PhraseEntry{},
	}

	var lookups []lookup
	for _, name := range r.active {
		v := r.values[name]
		set.Values[name] = v
		if r.filters.Any() && !r.filters.Accept(v) {
			set.Hidden = append(set.Hidden, name)
			continue
		}
		if v == 0 || !s.registry.IsTable(name) {
			continue
		}
		lookups = append(lookups, lookup{cipher: name, value: v})
	}
	if s.phrases == nil {
		return set, ErrStoreUnavailable
	}

	results, err := s.fanOut(ctx, lookups)
	if err != nil {
		return degrade(ctx, set, err), nil
	}

	bumped := map[string]struct{}{}
	for i, l := range lookups {
		for _, entry := range results[i] {
			if r.exclude != "" && entryKey(entry) == r.exclude {
				if r.bump {
					bumped[entry.ID] = struct{}{}
				}
				continue
			}
			set.ByCipher[l.cipher] = append(set.ByCipher[l.cipher], entry)
		}
	}
	s.bumpSearchCounts(ctx, bumped)

	page, next, err := pagination.Slice(merge(r.active, set.ByCipher), r.params, s.scope(r))
	if err != nil {
		return MatchSet{}, err
	}
	set.Merged = page
	set.NextPageToken = next
	return set, nil
}

// fanOut runs every lookup of a round concurrently; results[i] belongs to lookups[i].
func (s *resonanceService) fanOut(ctx context.Context, lookups []lookup) ([][]PhraseEntry, error) {
	results := make([][]PhraseEntry, len(lookups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, l := range lookups {
		g.Go(func() error {
			attrs := metric.WithAttributes(attribute.String("cipher", l.cipher))
			s.lookups.Add(gctx, 1, attrs)
			entries, err := s.phrases.FindByValue(gctx, l.cipher, l.value, s.limit)
			if err != nil {
				s.lookupErrors.Add(gctx, 1, attrs)
				return fmt.Errorf("lookup %s=%d: %w", l.cipher, l.value, err)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *resonanceService) bumpSearchCounts(ctx context.Context, ids map[string]struct{}) {
	for id := range ids {
		if err := s.phrases.IncrementSearchCount(ctx, id, 1); err != nil {
			requestctx.Logger(ctx).Warn("resonance: search count increment failed", zap.String("phraseId", id), zap.Error(err))
		}
	}
}

func (s *resonanceService) scope(r round) string {
	parts := make([]string, 0, len(r.active)*2+2)
	for _, name := range r.active {
		parts = append(parts, name, strconv.FormatInt(r.values[name], 10))
	}
	parts = append(parts, r.exclude, fmt.Sprintf("%+v", r.filters))
	return pagination.Scope(parts...)
}

func degrade(ctx context.Context, set MatchSet, err error) MatchSet {
	requestctx.Logger(ctx).Warn("resonance: lookup round failed", zap.Error(err))
	set.ByCipher = map[string][]PhraseEntry{}
	set.Merged = nil
	set.Degraded = true
	set.Error = degradedMessage
	return set
}

// merge de-duplicates entries by ID across ciphers. Entries shared by more ciphers sort first;
// ties keep first appearance in active-cipher then store order.
func merge(active []string, byCipher map[string][]PhraseEntry) []MergedMatch {
	index := map[string]int{}
	var merged []MergedMatch
	for _, name := range active {
		for _, entry := range byCipher[name] {
			if i, ok := index[entry.ID]; ok {
				merged[i].Ciphers = append(merged[i].Ciphers, name)
				continue
			}
			index[entry.ID] = len(merged)
			merged = append(merged, domain.MergedMatch{Entry: entry, Ciphers: []string{name}})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return len(merged[i].Ciphers) > len(merged[j].Ciphers)
	})
	return merged
}

func entryKey(entry PhraseEntry) string {
	if entry.PhraseKey != "" {
		return entry.PhraseKey
	}
	return cipher.PhraseKey(entry.Phrase)
}
