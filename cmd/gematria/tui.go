package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gematria-field/api/internal/debounce"
	"github.com/gematria-field/api/internal/di"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/services"
)

const tuiMatchRows = 12

type tuiOptions struct {
	Ciphers  []string
	Interval time.Duration
}

// roundMsg carries the match set of one debounced resonance round, tagged with its generation.
type roundMsg struct {
	gen     uint64
	matches services.MatchSet
	err     error
}

type sidebarMsg struct {
	recent  []services.PhraseEntry
	popular []services.PhraseEntry
	err     error
}

type savedMsg struct {
	result services.SaveResult
	err    error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	filterOn     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86")).Padding(0, 1)
	filterOff    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(28)
	mainStyle = lipgloss.NewStyle().Padding(0, 1)
)

type tuiModel struct {
	ctx     context.Context
	svc     di.Services
	ciphers []string

	input     textinput.Model
	debouncer *debounce.Debouncer
	results   chan roundMsg

	// shown is the generation whose matches are on screen.
	shown   uint64
	filters numprops.Filters

	// outcome is evaluated on every edit; its Matches arrive with the next current round.
	outcome   *lookupResult
	searching bool
	err       error
	status    string

	recent  []services.PhraseEntry
	popular []services.PhraseEntry
	width   int
}

func newTUIModel(ctx context.Context, svc di.Services, opts tuiOptions) tuiModel {
	input := textinput.New()
	input.Placeholder = "type a phrase or a number"
	input.CharLimit = 256
	input.Width = 48
	input.Focus()

	return tuiModel{
		ctx:       ctx,
		svc:       svc,
		ciphers:   opts.Ciphers,
		input:     input,
		debouncer: debounce.New(opts.Interval),
		results:   make(chan roundMsg, 1),
	}
}

func runTUI(ctx context.Context, container *di.Container, opts tuiOptions) error {
	m := newTUIModel(ctx, container.Services, opts)
	defer m.debouncer.Stop()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForResult(), m.loadSidebars())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.debouncer.Stop()
			return m, tea.Quit
		case "enter":
			return m, m.save()
		case "f1":
			m.filters.Prime = !m.filters.Prime
			return m.schedule(), nil
		case "f2":
			m.filters.PerfectSquare = !m.filters.PerfectSquare
			return m.schedule(), nil
		case "f3":
			m.filters.Palindrome = !m.filters.Palindrome
			return m.schedule(), nil
		case "f4":
			m.filters.Composite = !m.filters.Composite
			return m.schedule(), nil
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m = m.schedule()
		}
		return m, cmd

	case roundMsg:
		if msg.gen <= m.shown || !m.debouncer.IsCurrent(msg.gen) || m.outcome == nil {
			return m, m.waitForResult()
		}
		m.shown = msg.gen
		m.searching = false
		res := *m.outcome
		res.Matches = msg.matches
		if msg.err != nil {
			res.Matches.Degraded = true
			res.Matches.Error = msg.err.Error()
		}
		m.outcome = &res
		return m, tea.Batch(m.waitForResult(), m.loadSidebars())

	case sidebarMsg:
		if msg.err == nil {
			m.recent, m.popular = msg.recent, msg.popular
		}
		return m, nil

	case savedMsg:
		switch {
		case msg.err != nil:
			m.status = errorStyle.Render("save failed: " + msg.err.Error())
		case msg.result.AlreadySaved:
			m.status = "already saved: " + msg.result.Entry.Phrase
		default:
			m.status = "saved: " + msg.result.Entry.Phrase
		}
		return m.schedule(), m.loadSidebars()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// schedule evaluates the current input at once and restarts the quiet period for its resonance
// round. Emptying the input, or input that cannot be evaluated, cancels the pending round.
func (m tuiModel) schedule() tuiModel {
	m.searching = false
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		m.debouncer.Trigger(nil)
		m.outcome = nil
		m.err = nil
		return m
	}

	req := lookupRequest{Text: text, Ciphers: m.ciphers, Filters: m.filters}
	out, err := m.svc.Calculator.Calculate(m.ctx, services.CalculateCommand{Text: req.Text, Ciphers: req.Ciphers})
	if err != nil {
		m.debouncer.Trigger(nil)
		m.outcome = nil
		m.err = err
		return m
	}
	m.err = nil
	m.outcome = &lookupResult{Outcome: out}
	m.searching = true

	ctx, svc, results := m.ctx, m.svc, m.results
	m.debouncer.Trigger(func(gen uint64) {
		set, err := resonate(ctx, svc, out, req)
		select {
		case results <- roundMsg{gen: gen, matches: set, err: err}:
		case <-ctx.Done():
		}
	})
	return m
}

func (m tuiModel) waitForResult() tea.Cmd {
	ctx, results := m.ctx, m.results
	return func() tea.Msg {
		select {
		case msg := <-results:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func (m tuiModel) loadSidebars() tea.Cmd {
	ctx, phrases := m.ctx, m.svc.Phrases
	return func() tea.Msg {
		recent, err := phrases.Recent(ctx, 0)
		if err != nil {
			return sidebarMsg{err: err}
		}
		popular, err := phrases.Popular(ctx, 0)
		return sidebarMsg{recent: recent, popular: popular, err: err}
	}
}

func (m tuiModel) save() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	ctx, phrases := m.ctx, m.svc.Phrases
	return func() tea.Msg {
		res, err := phrases.Save(ctx, services.SaveCommand{Phrase: text})
		return savedMsg{result: res, err: err}
	}
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gematria"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.filterBar())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.outcome != nil:
		b.WriteString(m.resultView())
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("enter save · f1-f4 filters · esc quit"))

	body := mainStyle.Render(b.String())
	sidebars := lipgloss.JoinVertical(lipgloss.Left,
		sidebarStyle.Render(sidebarView("Recent", m.recent)),
		sidebarStyle.Render(sidebarView("Popular", m.popular)),
	)
	if m.width > 0 && m.width < lipgloss.Width(body)+lipgloss.Width(sidebars) {
		return lipgloss.JoinVertical(lipgloss.Left, body, sidebars)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, sidebars)
}

func (m tuiModel) filterBar() string {
	toggle := func(key, name string, on bool) string {
		if on {
			return filterOn.Render(key + " " + name)
		}
		return filterOff.Render(key + " " + name)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		toggle("f1", "prime", m.filters.Prime),
		toggle("f2", "square", m.filters.PerfectSquare),
		toggle("f3", "palindrome", m.filters.Palindrome),
		toggle("f4", "composite", m.filters.Composite),
	)
}

func (m tuiModel) resultView() string {
	var b strings.Builder
	out := m.outcome.Outcome
	set := m.outcome.Matches

	if out.Mode == services.ModeNumber {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("number"), valueStyle.Render(fmt.Sprint(out.Number)))
	} else {
		for _, name := range out.Ciphers {
			val, ok := out.Result.Values[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%-22s %s\n", labelStyle.Render(name), valueStyle.Render(fmt.Sprint(val)))
		}
	}
	if m.searching {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("searching…"))
		b.WriteString("\n")
		return b.String()
	}
	if len(set.Hidden) > 0 {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("filtered"), strings.Join(set.Hidden, ", "))
	}
	if set.Degraded {
		b.WriteString(errorStyle.Render("matches unavailable: " + set.Error))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	if len(set.Merged) == 0 {
		b.WriteString(labelStyle.Render("no matches"))
		b.WriteString("\n")
		return b.String()
	}
	for i, match := range set.Merged {
		if i == tuiMatchRows {
			fmt.Fprintf(&b, "%s\n", labelStyle.Render(fmt.Sprintf("… %d more", len(set.Merged)-i)))
			break
		}
		fmt.Fprintf(&b, "%s  %s\n", match.Entry.Phrase, labelStyle.Render(strings.Join(match.Ciphers, ", ")))
	}
	return b.String()
}

func sidebarView(title string, entries []services.PhraseEntry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	if len(entries) == 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("nothing yet"))
		return b.String()
	}
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(e.Phrase)
	}
	return b.String()
}
