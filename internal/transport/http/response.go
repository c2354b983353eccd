package httptransport

import (
	"errors"
	"net/http"

	"afyalink/internal/transport/http/json"
	dErrors "afyalink/pkg/domain-errors"
	httpErrors "afyalink/pkg/http-errors"
)

// writeError centralizes domain error translation to HTTP responses.
// It translates transport-agnostic domain errors into HTTP status codes and
// consistent JSON error envelopes.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		json.WriteJSON(w, httpErrors.ToHTTPStatus(domainErr.Code), response)
		return
	}

	json.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// errMissingPrincipal signals a route mounted outside the auth group.
var errMissingPrincipal = dErrors.New(dErrors.CodeUnauthorized, "missing principal")

func writeBadRequest(w http.ResponseWriter, description string) {
	json.WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error":             string(dErrors.CodeBadRequest),
		"error_description": description,
	})
}
