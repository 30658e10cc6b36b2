package pagination

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 25
	// DefaultMaxPageSize caps pageSize.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Params is a validated page request.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
}

// Options bound page sizes for one endpoint.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (o Options) normalized() Options {
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = DefaultPageSize
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	return o
}

// New validates a page size and token. A zero size selects the default; sizes above the
// maximum are clamped.
func New(pageSize int, pageToken string, opts Options) (Params, error) {
	opts = opts.normalized()
	switch {
	case pageSize < 0:
		return Params{}, fmt.Errorf("%w: must be positive", ErrInvalidPageSize)
	case pageSize == 0:
		pageSize = opts.DefaultPageSize
	case pageSize > opts.MaxPageSize:
		pageSize = opts.MaxPageSize
	}
	cursor, err := DecodeToken(pageToken)
	if err != nil {
		return Params{}, err
	}
	return Params{PageSize: pageSize, PageToken: strings.TrimSpace(pageToken), Cursor: cursor}, nil
}

// Parse reads pageSize and pageToken from query values.
func Parse(values url.Values, opts Options) (Params, error) {
	size := 0
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		size = n
	}
	return New(size, values.Get("pageToken"), opts)
}

// Scope derives a short stable fingerprint of the query parts a token must be replayed with.
func Scope(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}

// Slice returns the page of items selected by params and the token for the next page.
// The cursor's scope must equal scope.
func Slice[T any](items []T, params Params, scope string) ([]T, string, error) {
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	if params.Cursor.Offset > 0 && params.Cursor.Scope != scope {
		return nil, "", fmt.Errorf("%w: token does not match query", ErrInvalidPageToken)
	}
	start := min(params.Cursor.Offset, len(items))
	end := min(start+params.PageSize, len(items))

	next := ""
	if end < len(items) {
		token, err := EncodeToken(Cursor{Offset: end, Scope: scope})
		if err != nil {
			return nil, "", err
		}
		next = token
	}
	return items[start:end], next, nil
}
