package handlers

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/services"
	"github.com/gematria-field/api/internal/unfold"
)

// phraseHTML renders stored phrases for embedding in markup; the stored text is never rewritten.
var phraseHTML = bluemonday.StrictPolicy()

type phrasePayload struct {
	ID          string           `json:"id"`
	Phrase      string           `json:"phrase"`
	PhraseHTML  string           `json:"phrase_html"`
	Values      map[string]int64 `json:"values"`
	SearchCount int64            `json:"search_count"`
	CreatedAt   string           `json:"created_at,omitempty"`
}

type contributionPayload struct {
	Char  string `json:"char"`
	Value int64  `json:"value"`
}

type breakdownPayload struct {
	Cipher    string                `json:"cipher"`
	Kind      string                `json:"kind"`
	Total     int64                 `json:"total"`
	Breakdown []contributionPayload `json:"breakdown"`
}

type mergedPayload struct {
	Entry   phrasePayload `json:"entry"`
	Ciphers []string      `json:"ciphers"`
}

type matchSetPayload struct {
	Ciphers       []string                   `json:"ciphers"`
	Values        map[string]int64           `json:"values,omitempty"`
	Hidden        []string                   `json:"hidden"`
	ByCipher      map[string][]phrasePayload `json:"by_cipher"`
	Matches       []mergedPayload            `json:"matches"`
	NextPageToken string                     `json:"nextPageToken,omitempty"`
	Degraded      bool                       `json:"degraded"`
	Error         string                     `json:"error,omitempty"`
}

type analysisPayload struct {
	Clean            string   `json:"clean"`
	Values           []int    `json:"values"`
	LinearDiff       []int    `json:"linear_diff"`
	CircularDiff     []int    `json:"circular_diff"`
	ToneMap          []int    `json:"tone_map"`
	ToneMapB36       string   `json:"tone_map_b36"`
	AggregateCiphers []string `json:"aggregate_ciphers"`
	AggregateTotals  []int64  `json:"aggregate_totals"`
	Aggregate        string   `json:"aggregate,omitempty"`
	FactorChain      []int64  `json:"factor_chain"`
	ChainB36         []string `json:"chain_b36"`
	Resonance        []int64  `json:"resonance"`
	TooLarge         bool     `json:"too_large"`
	Empty            bool     `json:"empty"`
}

func buildPhrasePayload(entry services.PhraseEntry) phrasePayload {
	values := entry.Values
	if values == nil {
		values = map[string]int64{}
	}
	return phrasePayload{
		ID:          entry.ID,
		Phrase:      entry.Phrase,
		PhraseHTML:  phraseHTML.Sanitize(entry.Phrase),
		Values:      values,
		SearchCount: entry.SearchCount,
		CreatedAt:   formatTime(entry.CreatedAt),
	}
}

func buildPhrasePayloads(entries []services.PhraseEntry) []phrasePayload {
	out := make([]phrasePayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, buildPhrasePayload(entry))
	}
	return out
}

func buildBreakdownPayloads(results []cipher.Result) []breakdownPayload {
	out := make([]breakdownPayload, 0, len(results))
	for _, res := range results {
		items := make([]contributionPayload, 0, len(res.Breakdown))
		for _, c := range res.Breakdown {
			items = append(items, contributionPayload{Char: string(c.Char), Value: c.Value})
		}
		out = append(out, breakdownPayload{Cipher: res.Cipher, Kind: res.Kind.String(), Total: res.Total, Breakdown: items})
	}
	return out
}

func buildMatchSetPayload(set services.MatchSet) matchSetPayload {
	payload := matchSetPayload{
		Ciphers:       nonNil(set.Ciphers),
		Values:        set.Values,
		Hidden:        nonNil(set.Hidden),
		ByCipher:      make(map[string][]phrasePayload, len(set.ByCipher)),
		Matches:       make([]mergedPayload, 0, len(set.Merged)),
		NextPageToken: set.NextPageToken,
		Degraded:      set.Degraded,
		Error:         set.Error,
	}
	for name, entries := range set.ByCipher {
		payload.ByCipher[name] = buildPhrasePayloads(entries)
	}
	for _, m := range set.Merged {
		payload.Matches = append(payload.Matches, mergedPayload{Entry: buildPhrasePayload(m.Entry), Ciphers: nonNil(m.Ciphers)})
	}
	return payload
}

func buildAnalysisPayload(a unfold.Analysis) analysisPayload {
	payload := analysisPayload{
		Clean:            a.Clean,
		Values:           nonNil(a.Values),
		LinearDiff:       nonNil(a.LinearDiff),
		CircularDiff:     nonNil(a.CircularDiff),
		ToneMap:          nonNil(a.ToneMap),
		ToneMapB36:       a.ToneMapB36,
		AggregateCiphers: nonNil(a.AggregateCiphers),
		AggregateTotals:  nonNil(a.AggregateTotals),
		FactorChain:      nonNil(a.FactorChain),
		ChainB36:         nonNil(a.ChainB36),
		Resonance:        nonNil(a.Resonance),
		TooLarge:         a.TooLarge,
		Empty:            a.Empty,
	}
	if a.Aggregate != nil {
		payload.Aggregate = a.Aggregate.String()
	}
	return payload
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

