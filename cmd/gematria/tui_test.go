package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/di"
	"github.com/gematria-field/api/internal/platform/config"
	"github.com/gematria-field/api/internal/services"
)

func newTestTUI(t *testing.T) tuiModel {
	t.Helper()
	return newTestTUIWithDriver(t, config.StoreMemory)
}

// newTestTUIWithDriver builds the model over the given store driver; an unknown driver runs
// store-less.
func newTestTUIWithDriver(t *testing.T, driver string) tuiModel {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg, err := config.Load(ctx,
		config.WithEnvMap(map[string]string{"API_STORE_DRIVER": "memory"}),
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
	)
	require.NoError(t, err)
	cfg.Store.Driver = driver
	ciphers := cipher.MustBuildRegistry()
	reg, err := di.OpenRegistry(ctx, cfg, ciphers)
	require.NoError(t, err)
	container, err := di.NewContainer(ctx, cfg, ciphers, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	m := newTUIModel(ctx, container.Services, tuiOptions{Ciphers: []string{"Simple"}, Interval: 10 * time.Millisecond})
	t.Cleanup(m.debouncer.Stop)
	return m
}

func update(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(tuiModel)
	require.True(t, ok)
	return model, cmd
}

func receiveRound(t *testing.T, m tuiModel) roundMsg {
	t.Helper()
	select {
	case msg := <-m.results:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced round")
		return roundMsg{}
	}
}

func TestTUIDebouncedRoundUpdatesResults(t *testing.T) {
	m := newTestTUI(t)

	_, err := m.svc.Phrases.Save(m.ctx, services.SaveCommand{Phrase: "Vole"})
	require.NoError(t, err)

	m.input.SetValue("Love")
	m = m.schedule()
	require.NotNil(t, m.outcome)
	require.True(t, m.searching)
	require.Equal(t, int64(54), m.outcome.Outcome.Result.Values["Simple"])

	m, _ = update(t, m, receiveRound(t, m))
	require.NoError(t, m.err)
	require.False(t, m.searching)
	require.Len(t, m.outcome.Matches.Merged, 1)
	require.Equal(t, "Vole", m.outcome.Matches.Merged[0].Entry.Phrase)
	require.Contains(t, m.View(), "Vole")
}

func TestTUIEvaluatesOnEveryEdit(t *testing.T) {
	m := newTestTUI(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Lo")})
	require.NotNil(t, m.outcome)
	require.Equal(t, int64(27), m.outcome.Outcome.Result.Values["Simple"])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ve")})
	require.Equal(t, int64(54), m.outcome.Outcome.Result.Values["Simple"])
	require.Contains(t, m.View(), "54")
}

func TestTUIDiscardsSupersededRound(t *testing.T) {
	m := newTestTUI(t)

	m.input.SetValue("Lo")
	m = m.schedule()
	superseded := m.debouncer.Latest()
	m.input.SetValue("Love")
	m = m.schedule()

	m, cmd := update(t, m, roundMsg{gen: superseded, matches: services.MatchSet{Merged: []services.MergedMatch{{Entry: services.PhraseEntry{Phrase: "Ol"}}}}})
	require.NotNil(t, cmd)
	require.True(t, m.searching)
	require.Empty(t, m.outcome.Matches.Merged)
	require.Equal(t, int64(54), m.outcome.Outcome.Result.Values["Simple"])

	m, _ = update(t, m, receiveRound(t, m))
	require.False(t, m.searching)
	require.Equal(t, m.debouncer.Latest(), m.shown)
}

func TestTUIClearingInputCancelsPendingRound(t *testing.T) {
	m := newTestTUI(t)

	m.input.SetValue("Love")
	m = m.schedule()
	inflight := m.debouncer.Latest()

	m.input.SetValue("")
	m = m.schedule()
	require.Nil(t, m.outcome)
	require.False(t, m.debouncer.IsCurrent(inflight))

	m, _ = update(t, m, roundMsg{gen: inflight})
	require.Nil(t, m.outcome)

	select {
	case msg := <-m.results:
		t.Fatalf("cleared input should not run a round, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTUIShowsValuesWithoutStore(t *testing.T) {
	m := newTestTUIWithDriver(t, "cassette")

	m.input.SetValue("LOVE")
	m = m.schedule()
	require.NoError(t, m.err)
	require.NotNil(t, m.outcome)
	require.Equal(t, int64(54), m.outcome.Outcome.Result.Values["Simple"])

	m, _ = update(t, m, receiveRound(t, m))
	require.NoError(t, m.err)
	require.NotNil(t, m.outcome)
	require.True(t, m.outcome.Matches.Degraded)
	require.Equal(t, int64(54), m.outcome.Outcome.Result.Values["Simple"])

	view := m.View()
	require.Contains(t, view, "54")
	require.Contains(t, view, storeUnavailableMessage)
}

func TestTUIInvalidInputShowsError(t *testing.T) {
	m := newTestTUI(t)

	m.input.SetValue("!?")
	m = m.schedule()
	require.ErrorIs(t, m.err, services.ErrEmptyInput)
	require.Nil(t, m.outcome)
	require.False(t, m.searching)
}

func TestTUIFilterToggleReschedules(t *testing.T) {
	m := newTestTUI(t)
	m.input.SetValue("Love")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	require.True(t, m.filters.Prime)

	m, _ = update(t, m, receiveRound(t, m))
	require.NotNil(t, m.outcome)
	require.Equal(t, []string{"Simple"}, m.outcome.Matches.Hidden)
	require.True(t, strings.Contains(m.View(), "filtered"))
}

func TestTUIEnterSavesPhrase(t *testing.T) {
	m := newTestTUI(t)
	m.input.SetValue("Seven Seals")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(savedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.False(t, msg.result.AlreadySaved)

	m, cmd = update(t, m, msg)
	require.Contains(t, m.status, "saved: Seven Seals")
	require.NotNil(t, cmd)

	recent, err := m.svc.Phrases.Recent(m.ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}
