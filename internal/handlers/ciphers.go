package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/platform/httpx"
)

// CipherHandlers lists the cipher registry.
type CipherHandlers struct {
	registry *cipher.Registry
	active   []string
}

// NewCipherHandlers constructs the cipher listing handler. active is reported as the default selection.
func NewCipherHandlers(registry *cipher.Registry, active []string) *CipherHandlers {
	return &CipherHandlers{registry: registry, active: active}
}

// Routes registers /ciphers.
func (h *CipherHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/ciphers", h.list)
}

type cipherPayload struct {
	Name        string           `json:"name"`
	Kind        string           `json:"kind"`
	Field       string           `json:"field"`
	Description string           `json:"description,omitempty"`
	Table       map[string]int64 `json:"table,omitempty"`
}

type cipherListResponse struct {
	Ciphers       []cipherPayload `json:"ciphers"`
	DefaultActive []string        `json:"default_active"`
}

func (h *CipherHandlers) list(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		serviceUnavailable(r.Context(), w, "cipher")
		return
	}
	defs := h.registry.Definitions()
	resp := cipherListResponse{
		Ciphers:       make([]cipherPayload, 0, len(defs)),
		DefaultActive: nonNil(h.active),
	}
	for _, def := range defs {
		item := cipherPayload{
			Name:        def.Name,
			Kind:        def.Kind.String(),
			Field:       def.Field(),
			Description: def.Description,
		}
		if def.Kind == cipher.KindTable {
			item.Table = make(map[string]int64, 26)
			for letter := 'A'; letter <= 'Z'; letter++ {
				item.Table[string(letter)] = def.Weight(letter)
			}
		}
		resp.Ciphers = append(resp.Ciphers, item)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
