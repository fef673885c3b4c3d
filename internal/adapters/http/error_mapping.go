package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrReviewNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// mapFailureToHTTPStatus maps a pipeline rejection to its status. Input
// problems are the caller's to fix; unclassifiable documents are well-formed
// but could not be labelled.
func mapFailureToHTTPStatus(code string) int {
	switch code {
	case domain.CodeMissingFilePart, domain.CodeNoFileSelected, domain.CodeUnsupportedFile, domain.CodeMimeMismatch:
		return http.StatusBadRequest
	case domain.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.CodeUnclassifiable:
		return http.StatusUnprocessableEntity
	case domain.CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeOverloaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
