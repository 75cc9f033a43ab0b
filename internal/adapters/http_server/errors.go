package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/apperr"
)

// problem is an RFC 7807 body. Code is the stable machine-readable kind.
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, code, detail, field string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: http.StatusText(status), Status: status, Code: code, Detail: detail, Field: field}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConstraint:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError renders err as problem+json. Server-side failures never leak
// their message; they were logged where they happened.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("unclassified error")
		e = apperr.Internal("unexpected error", err)
	}
	status := statusOf(e.Kind)

	switch e.Kind {
	case apperr.KindAuthorization, apperr.KindUnauthenticated:
		observability.ObserveDenial(routeOf(r), e.Kind.String())
		log.Warn().Str("route", routeOf(r)).Str("kind", e.Kind.String()).Msg("access denied")
	}

	code, detail, field := e.Kind.String(), e.Msg, e.Field
	if status == http.StatusInternalServerError {
		code, detail, field = "internal", "internal error", ""
	}
	writeProblem(w, status, code, detail, field)
}
