package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gematria-field/api/internal/platform/httpx"
	"github.com/gematria-field/api/internal/platform/pagination"
	"github.com/gematria-field/api/internal/repositories"
	"github.com/gematria-field/api/internal/services"
)

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrEmptyInput):
		httpx.WriteError(ctx, w, httpx.NewError("empty_input", "text contains no letters", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrUnknownCipher):
		httpx.WriteError(ctx, w, httpx.NewError("unknown_cipher", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrTooManyCiphers):
		httpx.WriteError(ctx, w, httpx.NewError("too_many_ciphers", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrInvalidNumber):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_number", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrInvalidAggregate):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_aggregate", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrPhraseTooLong):
		httpx.WriteError(ctx, w, httpx.NewError("phrase_too_long", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, pagination.ErrInvalidPageSize), errors.Is(err, pagination.ErrInvalidPageToken):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_page", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "phrase store is not configured", http.StatusServiceUnavailable))
		return
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsUnavailable():
			httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "phrase store unavailable", http.StatusServiceUnavailable))
		case repoErr.IsConflict():
			httpx.WriteError(ctx, w, httpx.NewError("phrase_conflict", "phrase was modified concurrently; retry", http.StatusConflict))
		case repoErr.IsNotFound():
			httpx.WriteError(ctx, w, httpx.NewError("phrase_not_found", "phrase not found", http.StatusNotFound))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("store_error", "phrase store request failed", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "request failed", http.StatusInternalServerError))
}

func serviceUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", name+" service not available", http.StatusServiceUnavailable))
}
