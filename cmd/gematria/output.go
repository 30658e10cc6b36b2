package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/services"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// textWriter renders the human-readable form of a command result.
type textWriter interface {
	writeText(w io.Writer)
}

func emit(c *cli.Context, v textWriter) error {
	w := c.App.Writer
	switch format := strings.ToLower(strings.TrimSpace(c.String("format"))); format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		v.writeText(w)
		return nil
	default:
		return cli.Exit(fmt.Sprintf("[invalid_format] unknown format %q (text|json|yaml)", format), 2)
	}
}

type letterView struct {
	Char  string `json:"char" yaml:"char"`
	Value int64  `json:"value" yaml:"value"`
}

type breakdownView struct {
	Cipher  string       `json:"cipher" yaml:"cipher"`
	Kind    string       `json:"kind" yaml:"kind"`
	Total   int64        `json:"total" yaml:"total"`
	Letters []letterView `json:"letters,omitempty" yaml:"letters,omitempty"`
}

type evalView struct {
	Mode       string           `json:"mode" yaml:"mode"`
	Number     *int64           `json:"number,omitempty" yaml:"number,omitempty"`
	Text       string           `json:"text,omitempty" yaml:"text,omitempty"`
	Ciphers    []string         `json:"ciphers" yaml:"ciphers"`
	Values     map[string]int64 `json:"values,omitempty" yaml:"values,omitempty"`
	Breakdowns []breakdownView  `json:"breakdowns,omitempty" yaml:"breakdowns,omitempty"`
}

func newEvalView(out services.CalculationOutcome) evalView {
	v := evalView{Mode: out.Mode, Ciphers: out.Ciphers}
	if out.Mode == services.ModeNumber {
		n := out.Number
		v.Number = &n
		return v
	}
	v.Text = out.Result.SourceText
	v.Values = out.Result.Values
	v.Breakdowns = newBreakdownViews(out.Breakdowns)
	return v
}

func newBreakdownViews(results []cipher.Result) []breakdownView {
	views := make([]breakdownView, 0, len(results))
	for _, res := range results {
		bv := breakdownView{Cipher: res.Cipher, Kind: res.Kind.String(), Total: res.Total}
		for _, c := range res.Breakdown {
			bv.Letters = append(bv.Letters, letterView{Char: string(c.Char), Value: c.Value})
		}
		views = append(views, bv)
	}
	return views
}

func (v evalView) writeText(w io.Writer) {
	if v.Mode == services.ModeNumber && v.Number != nil {
		fmt.Fprintf(w, "%d (number)\n", *v.Number)
		return
	}
	fmt.Fprintf(w, "%s\n", v.Text)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range v.Breakdowns {
		parts := make([]string, 0, len(b.Letters))
		for _, l := range b.Letters {
			parts = append(parts, fmt.Sprintf("%s=%d", l.Char, l.Value))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Cipher, b.Total, strings.Join(parts, " "))
	}
	_ = tw.Flush()
}

type phraseView struct {
	ID          string           `json:"id" yaml:"id"`
	Phrase      string           `json:"phrase" yaml:"phrase"`
	Values      map[string]int64 `json:"values" yaml:"values"`
	SearchCount int64            `json:"search_count" yaml:"search_count"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
}

func newPhraseView(e services.PhraseEntry) phraseView {
	return phraseView{
		ID:          e.ID,
		Phrase:      e.Phrase,
		Values:      e.Values,
		SearchCount: e.SearchCount,
		CreatedAt:   e.CreatedAt,
	}
}

type mergedView struct {
	Phrase  phraseView `json:"phrase" yaml:"phrase"`
	Ciphers []string   `json:"ciphers" yaml:"ciphers"`
}

type matchView struct {
	Mode          string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	Number        *int64           `json:"number,omitempty" yaml:"number,omitempty"`
	Ciphers       []string         `json:"ciphers" yaml:"ciphers"`
	Values        map[string]int64 `json:"values" yaml:"values"`
	Hidden        []string         `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Matches       []mergedView     `json:"matches" yaml:"matches"`
	NextPageToken string           `json:"nextPageToken,omitempty" yaml:"next_page_token,omitempty"`
	Degraded      bool             `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Error         string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func newMatchView(set services.MatchSet) matchView {
	v := matchView{
		Ciphers:       set.Ciphers,
		Values:        set.Values,
		Hidden:        set.Hidden,
		Matches:       make([]mergedView, 0, len(set.Merged)),
		NextPageToken: set.NextPageToken,
		Degraded:      set.Degraded,
		Error:         set.Error,
	}
	for _, m := range set.Merged {
		v.Matches = append(v.Matches, mergedView{Phrase: newPhraseView(m.Entry), Ciphers: m.Ciphers})
	}
	return v
}

func (v matchView) writeText(w io.Writer) {
	if v.Number != nil {
		fmt.Fprintf(w, "number %d\n", *v.Number)
	}
	values := make([]string, 0, len(v.Ciphers))
	for _, name := range v.Ciphers {
		if val, ok := v.Values[name]; ok {
			values = append(values, fmt.Sprintf("%s=%d", name, val))
		}
	}
	if len(values) > 0 {
		fmt.Fprintln(w, strings.Join(values, "  "))
	}
	if len(v.Hidden) > 0 {
		fmt.Fprintf(w, "filtered: %s\n", strings.Join(v.Hidden, ", "))
	}
	if v.Degraded {
		fmt.Fprintf(w, "degraded: %s\n", v.Error)
	}
	if len(v.Matches) == 0 {
		fmt.Fprintln(w, "no matches")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range v.Matches {
		fmt.Fprintf(tw, "%s\t%s\n", m.Phrase.Phrase, strings.Join(m.Ciphers, ", "))
	}
	_ = tw.Flush()
	if v.NextPageToken != "" {
		fmt.Fprintf(w, "more: --page-token %s\n", v.NextPageToken)
	}
}

type saveView struct {
	Phrase       phraseView `json:"phrase" yaml:"phrase"`
	AlreadySaved bool       `json:"already_saved" yaml:"already_saved"`
}

func (v saveView) writeText(w io.Writer) {
	if v.AlreadySaved {
		fmt.Fprintf(w, "already saved: %s\n", v.Phrase.Phrase)
		return
	}
	fmt.Fprintf(w, "saved: %s (%s)\n", v.Phrase.Phrase, v.Phrase.ID)
}

type listView struct {
	Phrases []phraseView `json:"phrases" yaml:"phrases"`
}

func newListView(entries []services.PhraseEntry) listView {
	v := listView{Phrases: make([]phraseView, 0, len(entries))}
	for _, e := range entries {
		v.Phrases = append(v.Phrases, newPhraseView(e))
	}
	return v
}

func (v listView) writeText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range v.Phrases {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Phrase, p.SearchCount, p.CreatedAt.Format(time.DateOnly))
	}
	_ = tw.Flush()
}

type unfoldView struct {
	Clean            string     `json:"clean" yaml:"clean"`
	Empty            bool       `json:"empty,omitempty" yaml:"empty,omitempty"`
	Values           []int      `json:"values" yaml:"values"`
	LinearDiff       []int      `json:"linear_diff" yaml:"linear_diff"`
	CircularDiff     []int      `json:"circular_diff" yaml:"circular_diff"`
	ToneMap          []int      `json:"tone_map" yaml:"tone_map"`
	ToneMapB36       string     `json:"tone_map_b36" yaml:"tone_map_b36"`
	AggregateCiphers []string   `json:"aggregate_ciphers" yaml:"aggregate_ciphers"`
	AggregateTotals  []int64    `json:"aggregate_totals" yaml:"aggregate_totals"`
	Aggregate        string     `json:"aggregate" yaml:"aggregate"`
	TooLarge         bool       `json:"too_large,omitempty" yaml:"too_large,omitempty"`
	FactorChain      []int64    `json:"factor_chain" yaml:"factor_chain"`
	ChainB36         []string   `json:"chain_b36" yaml:"chain_b36"`
	Resonance        []int64    `json:"resonance" yaml:"resonance"`
	Matches          *matchView `json:"matches,omitempty" yaml:"matches,omitempty"`
}

func newUnfoldView(out services.UnfoldOutcome) unfoldView {
	a := out.Analysis
	v := unfoldView{
		Clean:            a.Clean,
		Empty:            a.Empty,
		Values:           a.Values,
		LinearDiff:       a.LinearDiff,
		CircularDiff:     a.CircularDiff,
		ToneMap:          a.ToneMap,
		ToneMapB36:       a.ToneMapB36,
		AggregateCiphers: a.AggregateCiphers,
		AggregateTotals:  a.AggregateTotals,
		TooLarge:         a.TooLarge,
		FactorChain:      a.FactorChain,
		ChainB36:         a.ChainB36,
		Resonance:        a.Resonance,
	}
	if a.Aggregate != nil {
		v.Aggregate = a.Aggregate.String()
	}
	if out.Matches != nil {
		mv := newMatchView(*out.Matches)
		v.Matches = &mv
	}
	return v
}

func (v unfoldView) writeText(w io.Writer) {
	if v.Empty {
		fmt.Fprintln(w, "nothing to unfold")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "clean\t%s\n", v.Clean)
	fmt.Fprintf(tw, "values\t%s\n", joinNumbers(v.Values))
	fmt.Fprintf(tw, "linear\t%s\n", joinNumbers(v.LinearDiff))
	fmt.Fprintf(tw, "circular\t%s\n", joinNumbers(v.CircularDiff))
	fmt.Fprintf(tw, "tones\t%s (%s)\n", joinNumbers(v.ToneMap), v.ToneMapB36)
	fmt.Fprintf(tw, "aggregate\t%s [%s]\n", v.Aggregate, strings.Join(v.AggregateCiphers, "+"))
	if v.TooLarge {
		fmt.Fprintf(tw, "chain\ttoo large to factor\n")
	} else {
		fmt.Fprintf(tw, "chain\t%s (%s)\n", joinNumbers(v.FactorChain), strings.Join(v.ChainB36, " "))
	}
	fmt.Fprintf(tw, "resonance\t%s\n", joinNumbers(v.Resonance))
	_ = tw.Flush()
	if v.Matches != nil {
		fmt.Fprintln(w)
		v.Matches.writeText(w)
	}
}

func joinNumbers[T int | int64](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
