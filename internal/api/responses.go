package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/text/message"

	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorDetail writes a JSON error response with detail.
func WriteErrorDetail(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}

// printer returns the message printer matching the request's Accept-Language.
func printer(msgs *i18n.Catalog, r *http.Request) *message.Printer {
	return msgs.ForAcceptLanguage(r.Header.Get("Accept-Language"))
}

// writeServiceError maps scribe errors to HTTP status codes and localized
// messages. Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, msgs *i18n.Catalog, err error) {
	p := printer(msgs, r)
	switch {
	case errors.Is(err, scribe.ErrInvalidURL):
		WriteError(w, http.StatusUnprocessableEntity, p.Sprintf(i18n.InvalidURL))
	case errors.Is(err, scribe.ErrForbidden):
		WriteError(w, http.StatusForbidden, p.Sprintf(i18n.Forbidden))
	case errors.Is(err, scribe.ErrNotFound):
		WriteError(w, http.StatusNotFound, p.Sprintf(i18n.NotFound))
	case errors.Is(err, scribe.ErrDispatch):
		cause := strings.TrimPrefix(err.Error(), scribe.ErrDispatch.Error()+": ")
		WriteErrorDetail(w, http.StatusBadGateway, p.Sprintf(i18n.DispatchFailed, cause), err.Error())
	case errors.Is(err, scribe.ErrTerminal):
		WriteError(w, http.StatusConflict, p.Sprintf(i18n.AlreadyFinished))
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, p.Sprintf(i18n.InternalError))
	}
}

// QueryString extracts a non-empty, trimmed string query parameter.
func QueryString(r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", false
	}
	return v, true
}

// PathString extracts a non-empty chi URL parameter.
func PathString(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return "", fmt.Errorf("missing path parameter: %s", name)
	}
	return v, nil
}

// DecodeJSON reads and decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
