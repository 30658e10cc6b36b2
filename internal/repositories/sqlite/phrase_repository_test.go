package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/repositories"
)

func openRepo(t *testing.T) *PhraseRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "gematria.db"))
	require.NoError(t, err)
	repo, err := NewPhraseRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func phrase(id, text string, simple, jewish int64, created time.Time) domain.PhraseEntry {
	return domain.PhraseEntry{
		ID:        id,
		Phrase:    text,
		PhraseKey: text,
		Values:    map[string]int64{"Simple": simple, "Jewish": jewish},
		CreatedAt: created,
	}
}

func TestOpenCreatesSchemaInWALMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "gematria.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	require.Equal(t, "wal", mode)

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)

	for _, table := range []string{"phrases", "phrase_values"} {
		var name string
		require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gematria.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestNewPhraseRepositoryRequiresDB(t *testing.T) {
	_, err := NewPhraseRepository(nil)
	require.Error(t, err)
}

func TestInsertDeduplicatesByPhraseKey(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	stored, created, err := repo.Insert(ctx, phrase("01", "love", 54, 495, now))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "01", stored.ID)

	again, created, err := repo.Insert(ctx, phrase("02", "love", 54, 495, now.Add(time.Hour)))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "01", again.ID)
	require.True(t, again.CreatedAt.Equal(now))
	require.Equal(t, int64(495), again.Values["Jewish"])

	_, _, err = repo.Insert(ctx, phrase("01", "evol", 54, 495, now))
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	_, _, err = repo.Insert(ctx, domain.PhraseEntry{ID: "x"})
	require.Error(t, err)
}

func TestFindByValueUsesInsertionOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	// created_at deliberately runs backwards to show order is by insertion
	for i, text := range []string{"love", "evol", "vole", "other"} {
		simple := int64(54)
		if text == "other" {
			simple = 10
		}
		_, _, err := repo.Insert(ctx, phrase(text, text, simple, int64(i), base.Add(-time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	found, err := repo.FindByValue(ctx, "Simple", 54, 2)
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "love", found[0].Phrase)
	require.Equal(t, "evol", found[1].Phrase)
	require.Equal(t, int64(1), found[1].Values["Jewish"])

	all, err := repo.FindByValue(ctx, "Simple", 54, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	none, err := repo.FindByValue(ctx, "Jewish", 54, 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSearchCountAndListings(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	for i, text := range []string{"alpha", "beta", "gamma"} {
		_, _, err := repo.Insert(ctx, phrase(text, text, int64(i), int64(i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	require.NoError(t, repo.IncrementSearchCount(ctx, "alpha", 3))
	require.NoError(t, repo.IncrementSearchCount(ctx, "beta", 1))
	err := repo.IncrementSearchCount(ctx, "missing", 1)
	require.True(t, repositories.IsNotFound(err))

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"gamma", "beta"}, ids(recent))

	popular, err := repo.ListPopular(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, ids(popular))
	require.Equal(t, int64(3), popular[0].SearchCount)

	found, err := repo.FindByPhrase(ctx, "beta")
	require.NoError(t, err)
	require.Equal(t, int64(1), found.SearchCount)

	_, err = repo.FindByPhrase(ctx, "delta")
	require.True(t, repositories.IsNotFound(err))
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "gematria.db"))
	require.NoError(t, err)
	repo, err := NewPhraseRepository(db)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(context.Background()))
	require.NoError(t, repo.Close())

	_, err = repo.ListRecent(context.Background(), 5)
	require.True(t, repositories.IsUnavailable(err))
}

func ids(entries []domain.PhraseEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
