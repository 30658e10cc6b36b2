package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/gematria-field/api/internal/domain"
	"github.com/gematria-field/api/internal/repositories"
)

const phraseColumns = "p.id, p.phrase, p.phrase_key, p.search_count, p.created_at"

// PhraseRepository stores phrases in one row each with cipher totals in phrase_values.
// Natural order is insertion order (rowid).
type PhraseRepository struct {
	db *sql.DB
}

var _ repositories.PhraseRepository = (*PhraseRepository)(nil)

// NewPhraseRepository wraps an opened database. See Open.
func NewPhraseRepository(db *sql.DB) (*PhraseRepository, error) {
	if db == nil {
		return nil, errors.New("sqlite phrase repository requires a database")
	}
	return &PhraseRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *PhraseRepository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *PhraseRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return wrap("sqlite.ping", err)
	}
	return nil
}

func (r *PhraseRepository) Insert(ctx context.Context, entry domain.PhraseEntry) (domain.PhraseEntry, bool, error) {
	const op = "sqlite.insert"
	if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.PhraseKey) == "" {
		return domain.PhraseEntry{}, false, repositories.NewStoreError(op, repositories.StoreErrorUnknown, errors.New("id and phrase key are required"))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PhraseEntry{}, false, wrap(op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO phrases (id, phrase, phrase_key, search_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Phrase, entry.PhraseKey, entry.SearchCount, entry.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "phrase_key") {
			_ = tx.Rollback()
			existing, findErr := r.FindByPhrase(ctx, entry.PhraseKey)
			if findErr != nil {
				return domain.PhraseEntry{}, false, findErr
			}
			return existing, false, nil
		}
		return domain.PhraseEntry{}, false, wrap(op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO phrase_values (phrase_id, cipher, value) VALUES (?, ?, ?)`)
	if err != nil {
		return domain.PhraseEntry{}, false, wrap(op, err)
	}
	defer stmt.Close()
	for name, value := range entry.Values {
		if _, err := stmt.ExecContext(ctx, entry.ID, name, value); err != nil {
			return domain.PhraseEntry{}, false, wrap(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.PhraseEntry{}, false, wrap(op, err)
	}
	return entry, true, nil
}

func (r *PhraseRepository) FindByPhrase(ctx context.Context, phraseKey string) (domain.PhraseEntry, error) {
	const op = "sqlite.findByPhrase"
	entries, err := r.query(ctx, op,
		`SELECT `+phraseColumns+` FROM phrases p WHERE p.phrase_key = ? LIMIT 1`, phraseKey)
	if err != nil {
		return domain.PhraseEntry{}, err
	}
	if len(entries) == 0 {
		return domain.PhraseEntry{}, repositories.NewStoreError(op, repositories.StoreErrorNotFound, nil)
	}
	return entries[0], nil
}

func (r *PhraseRepository) FindByValue(ctx context.Context, cipher string, value int64, limit int) ([]domain.PhraseEntry, error) {
	q := `SELECT ` + phraseColumns + ` FROM phrase_values v
		JOIN phrases p ON p.id = v.phrase_id
		WHERE v.cipher = ? AND v.value = ?
		ORDER BY p.rowid`
	args := []any{cipher, value}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, "sqlite.findByValue", q, args...)
}

func (r *PhraseRepository) IncrementSearchCount(ctx context.Context, id string, delta int64) error {
	const op = "sqlite.incrementSearchCount"
	res, err := r.db.ExecContext(ctx, `UPDATE phrases SET search_count = search_count + ? WHERE id = ?`, delta, id)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return repositories.NewStoreError(op, repositories.StoreErrorNotFound, nil)
	}
	return nil
}

func (r *PhraseRepository) ListRecent(ctx context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.list(ctx, "sqlite.listRecent", `p.created_at DESC, p.rowid DESC`, limit)
}

func (r *PhraseRepository) ListPopular(ctx context.Context, limit int) ([]domain.PhraseEntry, error) {
	return r.list(ctx, "sqlite.listPopular", `p.search_count DESC, p.created_at DESC`, limit)
}

func (r *PhraseRepository) list(ctx context.Context, op, orderBy string, limit int) ([]domain.PhraseEntry, error) {
	q := `SELECT ` + phraseColumns + ` FROM phrases p ORDER BY ` + orderBy
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, op, q, args...)
}

// query scans phrase rows then attaches their cipher totals with a second lookup.
func (r *PhraseRepository) query(ctx context.Context, op, q string, args ...any) ([]domain.PhraseEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var entries []domain.PhraseEntry
	index := make(map[string]int)
	for rows.Next() {
		var (
			entry   domain.PhraseEntry
			created int64
		)
		if err := rows.Scan(&entry.ID, &entry.Phrase, &entry.PhraseKey, &entry.SearchCount, &created); err != nil {
			return nil, wrap(op, err)
		}
		entry.CreatedAt = time.Unix(0, created).UTC()
		entry.Values = make(map[string]int64)
		index[entry.ID] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := r.attachValues(ctx, op, entries, index); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PhraseRepository) attachValues(ctx context.Context, op string, entries []domain.PhraseEntry, index map[string]int) error {
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries))
	for _, entry := range entries {
		placeholders = append(placeholders, "?")
		args = append(args, entry.ID)
	}
	q := fmt.Sprintf(`SELECT phrase_id, cipher, value FROM phrase_values WHERE phrase_id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return wrap(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, name string
			value    int64
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return wrap(op, err)
		}
		if i, ok := index[id]; ok {
			entries[i].Values[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return wrap(op, err)
	}
	return nil
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return repositories.NewStoreError(op, repositories.StoreErrorUnavailable, err)
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "database is closed"),
		strings.Contains(err.Error(), "database is locked"):
		return repositories.NewStoreError(op, repositories.StoreErrorUnavailable, err)
	case isUniqueConstraintError(err):
		return repositories.NewStoreError(op, repositories.StoreErrorConflict, err)
	default:
		return repositories.NewStoreError(op, repositories.StoreErrorUnknown, err)
	}
}

// isUniqueConstraintError checks if an error is a UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
