package errors

import (
	"github.com/louisbranch/hiring.space/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// userMessageKeys holds the catalog key rendered to end users for each code.
var userMessageKeys = map[Code]string{
	CodeInvalidArgument:         "error.invalid_argument",
	CodeInvalidScoreInput:       "error.invalid_score_input",
	CodeNotFound:                "error.not_found",
	CodeAlreadyExists:           "error.already_exists",
	CodeIllegalTransition:       "error.illegal_transition",
	CodeTokenNotFound:           "error.token_not_found",
	CodeTokenExpired:            "error.token_expired",
	CodeTokenAlreadyUsed:        "error.token_already_used",
	CodeDeliveryFailure:         "error.delivery_failure",
	CodeCollaboratorUnavailable: "error.collaborator_unavailable",
	CodeUnknown:                 "error.unknown",
}

// UserMessage renders the end-user message for code in the given language,
// falling back to English.
func UserMessage(tag language.Tag, code Code) string {
	key, ok := userMessageKeys[code]
	if !ok {
		key = userMessageKeys[CodeUnknown]
	}
	return message.NewPrinter(catalog.Default().Match(tag)).Sprintf(key)
}
