package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/gematria-field/api/internal/cipher"
	domain "github.com/gematria-field/api/internal/domain"
	pfirestore "github.com/gematria-field/api/internal/platform/firestore"
	"github.com/gematria-field/api/internal/repositories"
)

const (
	fieldPhrase      = "phrase"
	fieldPhraseKey   = "phraseKey"
	fieldCreatedAt   = "createdAt"
	fieldSearchCount = "searchCount"
)

// PhraseRepository stores one document per phrase with a flat numeric field per cipher,
// e.g. {phrase: "Love", simple: 54, jewish: 495, searchCount: 0, createdAt: ...}.
type PhraseRepository struct {
	provider *pfirestore.Provider
	phrases  *pfirestore.BaseRepository[domain.PhraseEntry]
	// fields maps persisted field names back to canonical cipher names.
	fields map[string]string
}

var _ repositories.PhraseRepository = (*PhraseRepository)(nil)

// NewPhraseRepository constructs a Firestore-backed phrase repository over the provider's collection.
func NewPhraseRepository(provider *pfirestore.Provider, registry *cipher.Registry) (*PhraseRepository, error) {
	if provider == nil {
		return nil, errors.New("phrase repository requires firestore provider")
	}
	if registry == nil {
		return nil, errors.New("phrase repository requires cipher registry")
	}
	fields := make(map[string]string)
	for _, def := range registry.Definitions() {
		fields[def.Field()] = def.Name
	}
	repo := &PhraseRepository{provider: provider, fields: fields}
	repo.phrases = pfirestore.NewBaseRepository[domain.PhraseEntry](provider, "", encodePhrase, repo.decodePhrase)
	return repo, nil
}

func (r *PhraseRepository) Insert(ctx context.Context, entry domain.PhraseEntry) (domain.PhraseEntry, bool, error) {
	if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.PhraseKey) == "" {
		return domain.PhraseEntry{}, false, errors.New("phrase repository: id and phrase key are required")
	}

	var (
		stored  domain.PhraseEntry
		created bool
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := r.phrases.QueryInTx(ctx, tx, byPhraseKey(entry.PhraseKey))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			stored, created = existing[0].Data, false
			return nil
		}
		if err := r.phrases.CreateInTx(ctx, tx, entry.ID, entry); err != nil {
			return err
		}
		stored, created = entry, true
		return nil
	})
	if err != nil {
		return domain.PhraseEntry{}, false, pfirestore.WrapError("phrases.insert", err)
	}
	return stored, created, nil
}

func (r *PhraseRepository) FindByPhrase(ctx context.Context, phraseKey string) (domain.PhraseEntry, error) {
	docs, err := r.phrases.Query(ctx, byPhraseKey(phraseKey))
	if err != nil {
		return domain.PhraseEntry{}, err
	}
	if len(docs) == 0 {
		return domain.PhraseEntry{}, repositories.NewStoreError("phrases.findByPhrase", repositories.StoreErrorNotFound, nil)
	}
	return docs[0].Data, nil
}

func (r *PhraseRepository) FindByValue(ctx context.Context, cipherName string, value int64, limit int) ([]domain.PhraseEntry, error) {
	field := cipher.FieldName(cipherName)
	return r.list(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where(field, "==", value)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
}

func (r *PhraseRepository) IncrementSearchCount(ctx context.Context, id string, delta int64) error {
	return r.phrases.Update(ctx, id, []firestore.Update{
		{Path: fieldSearchCount, Value: firestore.Increment(delta)},
	})
}

func (r *PhraseRepository) ListRecent(ctx context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.list(ctx, ordered(fieldCreatedAt, limit))
}

func (r *PhraseRepository) ListPopular(ctx context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.list(ctx, ordered(fieldSearchCount, limit))
}

func (r *PhraseRepository) list(ctx context.Context, build pfirestore.QueryBuilder) ([]domain.PhraseEntry, error) {
	docs, err := r.phrases.Query(ctx, build)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PhraseEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Data)
	}
	return out, nil
}

func byPhraseKey(key string) pfirestore.QueryBuilder {
	return func(q firestore.Query) firestore.Query {
		return q.Where(fieldPhraseKey, "==", key).Limit(1)
	}
}

func ordered(field string, limit int) pfirestore.QueryBuilder {
	return func(q firestore.Query) firestore.Query {
		q = q.OrderBy(field, firestore.Desc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	}
}

func encodePhrase(_ context.Context, entry domain.PhraseEntry) (any, error) {
	doc := map[string]any{
		fieldPhrase:      entry.Phrase,
		fieldPhraseKey:   entry.PhraseKey,
		fieldSearchCount: entry.SearchCount,
		fieldCreatedAt:   entry.CreatedAt.UTC(),
	}
	for name, value := range entry.Values {
		doc[cipher.FieldName(name)] = value
	}
	return doc, nil
}

func (r *PhraseRepository) decodePhrase(_ context.Context, snap *firestore.DocumentSnapshot) (domain.PhraseEntry, error) {
	data := snap.Data()
	entry := domain.PhraseEntry{
		ID:     snap.Ref.ID,
		Values: make(map[string]int64),
	}
	for key, raw := range data {
		switch key {
		case fieldPhrase:
			entry.Phrase, _ = raw.(string)
		case fieldPhraseKey:
			entry.PhraseKey, _ = raw.(string)
		case fieldCreatedAt:
			if ts, ok := raw.(time.Time); ok {
				entry.CreatedAt = ts
			}
		case fieldSearchCount:
			entry.SearchCount = toInt64(raw)
		default:
			if name, ok := r.fields[key]; ok {
				entry.Values[name] = toInt64(raw)
			}
		}
	}
	if entry.PhraseKey == "" {
		entry.PhraseKey = cipher.PhraseKey(entry.Phrase)
	}
	return entry, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
