package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/platform/httpx"
	"github.com/gematria-field/api/internal/services"
)

const maxCalculationRequestBody = 16 * 1024

// CalculationHandlers exposes cipher evaluation and the resonance query.
type CalculationHandlers struct {
	calculator services.CalculatorService
	resonance  services.ResonanceService
}

// NewCalculationHandlers constructs the calculation handler set. A nil resonance service answers
// /matches with 503.
func NewCalculationHandlers(calculator services.CalculatorService, resonance services.ResonanceService) *CalculationHandlers {
	return &CalculationHandlers{calculator: calculator, resonance: resonance}
}

// Routes registers /calculations and /matches.
func (h *CalculationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/calculations", h.calculate)
	r.Post("/matches", h.matches)
}

type calculateRequest struct {
	Text    string   `json:"text"`
	Ciphers []string `json:"ciphers"`
}

type calculateResponse struct {
	Mode       string             `json:"mode"`
	Number     *int64             `json:"number,omitempty"`
	Text       string             `json:"text,omitempty"`
	Ciphers    []string           `json:"ciphers"`
	Values     map[string]int64   `json:"values,omitempty"`
	Breakdowns []breakdownPayload `json:"breakdowns,omitempty"`
}

type matchRequest struct {
	Text      string           `json:"text"`
	Ciphers   []string         `json:"ciphers"`
	Filters   numprops.Filters `json:"filters"`
	PageSize  int              `json:"pageSize"`
	PageToken string           `json:"pageToken"`
}

type matchResponse struct {
	Mode   string `json:"mode"`
	Number *int64 `json:"number,omitempty"`
	matchSetPayload
}

func (h *CalculationHandlers) calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil {
		serviceUnavailable(ctx, w, "calculator")
		return
	}
	var req calculateRequest
	if err := httpx.DecodeJSON(r, maxCalculationRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err))
		return
	}

	out, err := h.calculator.Calculate(ctx, services.CalculateCommand{Text: req.Text, Ciphers: req.Ciphers})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := calculateResponse{Mode: out.Mode, Ciphers: out.Ciphers}
	if out.Mode == services.ModeNumber {
		resp.Number = &out.Number
	} else {
		resp.Text = out.Result.SourceText
		resp.Values = out.Result.Values
		resp.Breakdowns = buildBreakdownPayloads(out.Breakdowns)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// matches evaluates the text and looks up stored phrases sharing a value. A bare number is
// searched as-is without evaluation.
func (h *CalculationHandlers) matches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.calculator == nil || h.resonance == nil {
		serviceUnavailable(ctx, w, "match")
		return
	}
	var req matchRequest
	if err := httpx.DecodeJSON(r, maxCalculationRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err))
		return
	}

	out, err := h.calculator.Calculate(ctx, services.CalculateCommand{Text: req.Text, Ciphers: req.Ciphers})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	var set services.MatchSet
	if out.Mode == services.ModeNumber {
		set, err = h.resonance.SearchByNumber(ctx, services.NumberQuery{
			Active:    out.Ciphers,
			Value:     out.Number,
			Filters:   req.Filters,
			PageSize:  req.PageSize,
			PageToken: req.PageToken,
		})
	} else {
		set, err = h.resonance.FindMatches(ctx, services.MatchQuery{
			Active:    out.Ciphers,
			Values:    out.Result.Values,
			Phrase:    out.Result.SourceText,
			Filters:   req.Filters,
			PageSize:  req.PageSize,
			PageToken: req.PageToken,
		})
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := matchResponse{Mode: out.Mode, matchSetPayload: buildMatchSetPayload(set)}
	if out.Mode == services.ModeNumber {
		resp.Number = &out.Number
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
