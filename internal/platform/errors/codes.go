// Package errors provides coded domain errors shared by every service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input validation
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidScoreInput Code = "INVALID_SCORE_INPUT"

	// Pipeline state
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"

	// Interview access
	CodeTokenNotFound    Code = "TOKEN_NOT_FOUND"
	CodeTokenExpired     Code = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed Code = "TOKEN_ALREADY_USED"

	// Collaborators
	CodeDeliveryFailure         Code = "DELIVERY_FAILURE"
	CodeCollaboratorUnavailable Code = "COLLABORATOR_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeInvalidScoreInput:
		return http.StatusBadRequest
	case CodeNotFound, CodeTokenNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeIllegalTransition:
		return http.StatusConflict
	case CodeTokenExpired, CodeTokenAlreadyUsed:
		return http.StatusGone
	case CodeDeliveryFailure, CodeCollaboratorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether an operation failing with c may succeed when
// repeated unchanged.
func (c Code) Retryable() bool {
	return c == CodeDeliveryFailure || c == CodeCollaboratorUnavailable
}
