package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/thoth/internal/errs"
)

// statusClientClosed is the non-standard status nginx uses when the client
// went away before the response was ready.
const statusClientClosed = 499

// classify maps an error to an HTTP status and the error type reported in
// the JSON body.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosed, "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}

	kind := errs.KindOf(err)
	switch kind {
	case errs.EmptyInput, errs.EmptyModel, errs.InvalidTemplate:
		return http.StatusBadRequest, kind.String()
	case errs.PromptNotFound, errs.ModelNotFound:
		return http.StatusNotFound, kind.String()
	case errs.DuplicateLabel:
		return http.StatusConflict, kind.String()
	case errs.ImmutableTemplate:
		return http.StatusForbidden, kind.String()
	case errs.ServerUnreachable:
		return http.StatusServiceUnavailable, kind.String()
	case errs.ServerError, errs.ProtocolError:
		return http.StatusBadGateway, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, typ := classify(err)
	httpError(w, code, typ, "%v", err)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
