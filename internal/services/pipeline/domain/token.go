package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
)

// DefaultTokenTTL is how long an interview link stays redeemable.
const DefaultTokenTTL = 48 * time.Hour

const secretBytes = 32

// InterviewToken is a single-use, time-limited interview access credential.
type InterviewToken struct {
	ID                 string
	CandidateID        string
	Secret             string
	IssuedAt           time.Time
	ExpiresAt          time.Time
	RedeemedAt         *time.Time
	InterviewCompleted bool
}

// NewSecret returns an unguessable URL-safe secret.
func NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewInterviewToken builds an unredeemed token expiring ttl after now.
func NewInterviewToken(id, candidateID, secret string, now time.Time, ttl time.Duration) (InterviewToken, error) {
	id = strings.TrimSpace(id)
	candidateID = strings.TrimSpace(candidateID)
	secret = strings.TrimSpace(secret)
	if id == "" || candidateID == "" || secret == "" {
		return InterviewToken{}, apperrors.New(apperrors.CodeInvalidArgument, "token id, candidate id, and secret are required")
	}
	if ttl <= 0 {
		return InterviewToken{}, apperrors.New(apperrors.CodeInvalidArgument, "token ttl must be positive")
	}
	now = now.UTC()
	return InterviewToken{
		ID:          id,
		CandidateID: candidateID,
		Secret:      secret,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// Valid reports whether the token can still be redeemed at now.
func (t InterviewToken) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt) && t.RedeemedAt == nil
}

// RedeemError classifies why the token cannot be redeemed at now, or returns
// nil when it can. A redeemed token reports TokenAlreadyUsed even after
// expiry.
func (t InterviewToken) RedeemError(now time.Time) error {
	if t.RedeemedAt != nil {
		return apperrors.Newf(apperrors.CodeTokenAlreadyUsed, "interview token %s already used", t.ID)
	}
	if !now.Before(t.ExpiresAt) {
		return apperrors.Newf(apperrors.CodeTokenExpired, "interview token %s expired", t.ID)
	}
	return nil
}

// InterviewLink builds the candidate-facing URL for secret.
func InterviewLink(baseURL, secret string) string {
	baseURL = strings.TrimSpace(baseURL)
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "token=" + secret
}
