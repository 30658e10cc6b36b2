package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gematria-field/api/internal/platform/httpx"
	"github.com/gematria-field/api/internal/platform/requestctx"
	"github.com/gematria-field/api/internal/services"
)

const maxPhraseRequestBody = 8 * 1024

// PhraseHandlers exposes phrase saving and the recent/popular sidebars.
type PhraseHandlers struct {
	phrases        services.PhraseService
	saveMiddleware []func(http.Handler) http.Handler
	limiter        rateLimiter
}

// PhraseOption customises PhraseHandlers.
type PhraseOption func(*PhraseHandlers)

// WithSaveMiddlewares wraps POST /phrases, e.g. with idempotency handling.
func WithSaveMiddlewares(mw ...func(http.Handler) http.Handler) PhraseOption {
	return func(h *PhraseHandlers) {
		h.saveMiddleware = append(h.saveMiddleware, mw...)
	}
}

// WithSaveRateLimit caps saves per client session (or remote address) within window.
func WithSaveRateLimit(limit int, window time.Duration, clock func() time.Time) PhraseOption {
	return func(h *PhraseHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, clock)
	}
}

// NewPhraseHandlers constructs the phrase handler set.
func NewPhraseHandlers(phrases services.PhraseService, opts ...PhraseOption) *PhraseHandlers {
	h := &PhraseHandlers{phrases: phrases}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the phrase endpoints.
func (h *PhraseHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	save := r
	if len(h.saveMiddleware) > 0 {
		save = r.With(h.saveMiddleware...)
	}
	save.Post("/phrases", h.save)
	r.Get("/phrases:recent", h.recent)
	r.Get("/phrases:popular", h.popular)
}

type savePhraseRequest struct {
	Phrase string `json:"phrase"`
}

type savePhraseResponse struct {
	Phrase       phrasePayload `json:"phrase"`
	AlreadySaved bool          `json:"already_saved"`
}

type phraseListResponse struct {
	Phrases []phrasePayload `json:"phrases"`
}

func (h *PhraseHandlers) save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.phrases == nil {
		serviceUnavailable(ctx, w, "phrase")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many saves; slow down", http.StatusTooManyRequests))
		return
	}

	var req savePhraseRequest
	if err := httpx.DecodeJSON(r, maxPhraseRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err))
		return
	}

	res, err := h.phrases.Save(ctx, services.SaveCommand{Phrase: req.Phrase})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadySaved {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, savePhraseResponse{Phrase: buildPhrasePayload(res.Entry), AlreadySaved: res.AlreadySaved})
}

func (h *PhraseHandlers) recent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(limit int) ([]services.PhraseEntry, error) {
		return h.phrases.Recent(r.Context(), limit)
	})
}

func (h *PhraseHandlers) popular(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(limit int) ([]services.PhraseEntry, error) {
		return h.phrases.Popular(r.Context(), limit)
	})
}

func (h *PhraseHandlers) list(w http.ResponseWriter, r *http.Request, fetch func(limit int) ([]services.PhraseEntry, error)) {
	ctx := r.Context()
	if h.phrases == nil {
		serviceUnavailable(ctx, w, "phrase")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		limit = n
	}

	entries, err := fetch(limit)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, phraseListResponse{Phrases: buildPhrasePayloads(entries)})
}

func clientKey(r *http.Request) string {
	if session := requestctx.Session(r.Context()); session != "" {
		return "session:" + session
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
