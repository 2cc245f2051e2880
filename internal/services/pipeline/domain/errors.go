package domain

import apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"

var (
	// ErrInvalidScoreInput indicates a sub-score outside [0,100].
	ErrInvalidScoreInput = apperrors.New(apperrors.CodeInvalidScoreInput, "sub-score out of range")
	// ErrIllegalTransition indicates a stage edge missing from the pipeline graph.
	ErrIllegalTransition = apperrors.New(apperrors.CodeIllegalTransition, "illegal stage transition")
	// ErrTokenNotFound indicates no interview token matches the secret.
	ErrTokenNotFound = apperrors.New(apperrors.CodeTokenNotFound, "interview token not found")
	// ErrTokenExpired indicates the interview token passed its expiry.
	ErrTokenExpired = apperrors.New(apperrors.CodeTokenExpired, "interview token expired")
	// ErrTokenAlreadyUsed indicates the interview token was already redeemed.
	ErrTokenAlreadyUsed = apperrors.New(apperrors.CodeTokenAlreadyUsed, "interview token already used")
	// ErrDeliveryFailure indicates the email collaborator rejected or failed a send.
	ErrDeliveryFailure = apperrors.New(apperrors.CodeDeliveryFailure, "notification delivery failed")
	// ErrCollaboratorUnavailable indicates a scorer or calendar call failed or timed out.
	ErrCollaboratorUnavailable = apperrors.New(apperrors.CodeCollaboratorUnavailable, "collaborator unavailable")
	// ErrCandidateNotFound indicates the candidate record does not exist.
	ErrCandidateNotFound = apperrors.New(apperrors.CodeNotFound, "candidate not found")
	// ErrCandidateExists indicates a candidate with the same id already exists.
	ErrCandidateExists = apperrors.New(apperrors.CodeAlreadyExists, "candidate already exists")
	// ErrInvalidCandidate indicates missing or malformed registration fields.
	ErrInvalidCandidate = apperrors.New(apperrors.CodeInvalidArgument, "invalid candidate")
	// ErrInvalidPayload indicates a notification payload that cannot be rendered.
	ErrInvalidPayload = apperrors.New(apperrors.CodeInvalidArgument, "invalid notification payload")
)
