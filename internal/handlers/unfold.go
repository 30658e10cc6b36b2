package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gematria-field/api/internal/platform/httpx"
	"github.com/gematria-field/api/internal/services"
)

const maxUnfoldRequestBody = 16 * 1024

// UnfoldHandlers exposes the derived-number analysis.
type UnfoldHandlers struct {
	unfold services.UnfoldService
}

// NewUnfoldHandlers constructs the unfold handler set.
func NewUnfoldHandlers(svc services.UnfoldService) *UnfoldHandlers {
	return &UnfoldHandlers{unfold: svc}
}

// Routes registers /unfold.
func (h *UnfoldHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/unfold", h.analyze)
}

type unfoldRequest struct {
	Text             string   `json:"text"`
	AggregateCiphers []string `json:"aggregate_ciphers"`
	Ciphers          []string `json:"ciphers"`
}

type unfoldResponse struct {
	Analysis analysisPayload  `json:"analysis"`
	Matches  *matchSetPayload `json:"matches,omitempty"`
}

func (h *UnfoldHandlers) analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.unfold == nil {
		serviceUnavailable(ctx, w, "unfold")
		return
	}
	var req unfoldRequest
	if err := httpx.DecodeJSON(r, maxUnfoldRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err))
		return
	}

	out, err := h.unfold.Unfold(ctx, services.UnfoldCommand{
		Text:             req.Text,
		AggregateCiphers: req.AggregateCiphers,
		Ciphers:          req.Ciphers,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := unfoldResponse{Analysis: buildAnalysisPayload(out.Analysis)}
	if out.Matches != nil {
		matches := buildMatchSetPayload(*out.Matches)
		resp.Matches = &matches
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
