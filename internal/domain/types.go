package domain

import (
	"time"
)

// PhraseEntry is a saved phrase with the cipher totals computed when it was stored.
// Values is keyed by canonical cipher name.
type PhraseEntry struct {
	ID          string
	Phrase      string
	PhraseKey   string
	Values      map[string]int64
	SearchCount int64
	CreatedAt   time.Time
}

// Value returns the stored total for a cipher and whether it was recorded at save time.
func (p PhraseEntry) Value(cipher string) (int64, bool) {
	v, ok := p.Values[cipher]
	return v, ok
}

// CalculationResult holds the totals of one evaluation round.
type CalculationResult struct {
	SourceText string
	Values     map[string]int64
}

// MergedMatch is one stored phrase matched under one or more ciphers.
type MergedMatch struct {
	Entry   PhraseEntry
	Ciphers []string
}

// MatchSet groups lookup results per cipher and merged across ciphers.
type MatchSet struct {
	// Ciphers lists the queried ciphers in request order.
	Ciphers  []string
	Values   map[string]int64
	ByCipher map[string][]PhraseEntry
	// Hidden lists ciphers whose value failed an enabled numeric filter.
	Hidden        []string
	Merged        []MergedMatch
	NextPageToken string
	Degraded      bool
	Error         string
}

// Empty reports whether no cipher produced any match.
func (m MatchSet) Empty() bool {
	for _, entries := range m.ByCipher {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
