package httpErrors

import (
	"net/http"

	dErrors "afyalink/pkg/domain-errors"
)

// ToHTTPStatus maps a domain error code to an HTTP status so handlers can
// translate errors in one place and stay thin.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeDuplicateRequest, dErrors.CodeAlreadyGranted, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
