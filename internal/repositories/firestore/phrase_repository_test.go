package firestore

import (
	"context"
	"testing"
	"time"

	"github.com/gematria-field/api/internal/cipher"
	domain "github.com/gematria-field/api/internal/domain"
	pconfig "github.com/gematria-field/api/internal/platform/config"
	pfirestore "github.com/gematria-field/api/internal/platform/firestore"
)

func TestEncodePhraseFlattensCipherFields(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))
	payload, err := encodePhrase(context.Background(), domain.PhraseEntry{
		Phrase:      "Love",
		PhraseKey:   "love",
		SearchCount: 2,
		CreatedAt:   created,
		Values: map[string]int64{
			cipher.Simple:        54,
			cipher.ReverseSimple: 54,
			cipher.ALW:           40,
		},
	})
	if err != nil {
		t.Fatalf("encodePhrase: %v", err)
	}
	doc := payload.(map[string]any)

	want := map[string]any{
		"phrase":        "Love",
		"phraseKey":     "love",
		"searchCount":   int64(2),
		"simple":        int64(54),
		"reverseSimple": int64(54),
		"alw":           int64(40),
	}
	for key, value := range want {
		if doc[key] != value {
			t.Errorf("field %s = %v, want %v", key, doc[key], value)
		}
	}
	if ts := doc["createdAt"].(time.Time); ts.Location() != time.UTC || !ts.Equal(created) {
		t.Errorf("expected UTC createdAt, got %v", ts)
	}
}

func TestNewPhraseRepositoryMapsFields(t *testing.T) {
	if _, err := NewPhraseRepository(nil, cipher.MustBuildRegistry()); err == nil {
		t.Fatal("expected error without provider")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "p", Collection: "gematria"})
	if _, err := NewPhraseRepository(provider, nil); err == nil {
		t.Fatal("expected error without registry")
	}

	repo, err := NewPhraseRepository(provider, cipher.MustBuildRegistry())
	if err != nil {
		t.Fatalf("NewPhraseRepository: %v", err)
	}
	if repo.fields["lawOf6"] != cipher.LawOf6 || repo.fields["simple"] != cipher.Simple {
		t.Fatalf("unexpected field map %v", repo.fields)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{int64(5), 5},
		{7, 7},
		{float64(9), 9},
		{"x", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := toInt64(tc.in); got != tc.want {
			t.Errorf("toInt64(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
