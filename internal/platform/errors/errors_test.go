package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/louisbranch/hiring.space/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeTokenExpired, "interview token expired")
	wrapped := fmt.Errorf("redeem: %w", Newf(CodeTokenExpired, "token %s expired", "tok-1"))

	if !stderrors.Is(wrapped, sentinel) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(wrapped, New(CodeTokenAlreadyUsed, "used")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := Wrap(CodeCollaboratorUnavailable, "score candidate", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if got, want := err.Error(), "score candidate: dial tcp: timeout"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if CodeOf(fmt.Errorf("outer: %w", err)) != CodeCollaboratorUnavailable {
		t.Fatal("expected CodeOf to find wrapped code")
	}
	if CodeOf(cause) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
}

func TestWithMetadataCopies(t *testing.T) {
	base := New(CodeNotFound, "candidate not found")
	withMeta := base.WithMetadata(map[string]string{"CandidateID": "c-1"})

	if base.Metadata != nil {
		t.Fatal("expected base error to stay unchanged")
	}
	if withMeta.Metadata["CandidateID"] != "c-1" {
		t.Fatalf("metadata = %v", withMeta.Metadata)
	}
	if !stderrors.Is(withMeta, base) {
		t.Fatal("expected copy to match base by code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidScoreInput, http.StatusBadRequest},
		{CodeTokenNotFound, http.StatusNotFound},
		{CodeIllegalTransition, http.StatusConflict},
		{CodeTokenExpired, http.StatusGone},
		{CodeTokenAlreadyUsed, http.StatusGone},
		{CodeCollaboratorUnavailable, http.StatusServiceUnavailable},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !CodeDeliveryFailure.Retryable() {
		t.Fatal("expected delivery failure to be retryable")
	}
	if CodeTokenAlreadyUsed.Retryable() {
		t.Fatal("expected token denial not to be retryable")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(language.English, CodeTokenExpired); got != "This interview link has expired. Please ask for a new one." {
		t.Fatalf("message = %q", got)
	}
	if got := UserMessage(language.German, Code("NOPE")); got != "Something went wrong." {
		t.Fatalf("fallback message = %q", got)
	}
}

func TestUserMessagePortuguese(t *testing.T) {
	if got := UserMessage(language.MustParse("pt-BR"), CodeTokenAlreadyUsed); got != "Este link de entrevista já foi usado." {
		t.Fatalf("message = %q", got)
	}
}

func TestUserMessageKeysExistInCatalog(t *testing.T) {
	for code, key := range userMessageKeys {
		if _, ok := catalog.Default().Message(catalog.BaseLocale, key); !ok {
			t.Errorf("code %s: key %q missing from catalog", code, key)
		}
	}
}
