package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/app"
	"finitefield.org/retail-console/internal/checkout"
	"finitefield.org/retail-console/internal/platform/observability"
	"finitefield.org/retail-console/internal/session"
	"finitefield.org/retail-console/internal/transport"
)

const maxBodyBytes = 1 << 20

// apiError is the JSON error envelope.
type apiError struct {
	Code    string
	Message string
	Status  int
	Form    string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(ctx context.Context, w http.ResponseWriter, e apiError) {
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if id := middleware.GetReqID(ctx); id != "" {
		payload["request_id"] = id
	}
	if e.Form != "" {
		payload["form"] = e.Form
	}
	writeJSON(w, e.Status, payload)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var formErr *session.FormError
	switch {
	case errors.As(err, &formErr):
		status := http.StatusBadRequest
		if transport.KindOf(formErr.Err) == transport.KindConnectivity {
			status = http.StatusServiceUnavailable
		}
		writeAPIError(ctx, w, apiError{Code: "form_invalid", Message: formErr.Message, Status: status, Form: formErr.Form})
		return
	case errors.Is(err, app.ErrForbidden):
		writeAPIError(ctx, w, apiError{Code: "forbidden", Message: http.StatusText(http.StatusForbidden), Status: http.StatusForbidden})
		return
	case errors.Is(err, app.ErrUnknownPage):
		writeAPIError(ctx, w, apiError{Code: "page_not_found", Message: "unknown page", Status: http.StatusNotFound})
		return
	case errors.Is(err, checkout.ErrInProgress):
		writeAPIError(ctx, w, apiError{Code: "checkout_in_progress", Message: "An order is already being placed", Status: http.StatusConflict})
		return
	}

	kind := transport.KindOf(err)
	if kind == "" {
		observability.FromContext(ctx).Error("unhandled error", zap.Error(err))
		writeAPIError(ctx, w, apiError{Code: "internal_server_error", Message: "internal server error", Status: http.StatusInternalServerError})
		return
	}
	writeAPIError(ctx, w, apiError{Code: string(kind), Message: transport.MessageOf(err), Status: statusForKind(kind)})
}

func statusForKind(kind transport.Kind) int {
	switch kind {
	case transport.KindValidation:
		return http.StatusBadRequest
	case transport.KindConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// listing is the envelope for read endpoints. Available is false when the API returned nothing.
type listing[T any] struct {
	Items     []T  `json:"items"`
	Available bool `json:"available"`
}

func writeListing[T any](w http.ResponseWriter, items []T, ok bool) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listing[T]{Items: items, Available: ok})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeAPIError(r.Context(), w, apiError{Code: "invalid_body", Message: "request body must be valid JSON", Status: http.StatusBadRequest})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(r.Context(), w, apiError{Code: "invalid_id", Message: "id must be a positive integer", Status: http.StatusBadRequest})
		return 0, false
	}
	return id, true
}

func queryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(key)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
