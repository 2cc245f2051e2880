// Package render builds localized email copy for pipeline notifications.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/hiring.space/internal/platform/i18n/catalog"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// timeLayout formats timestamps shown to candidates.
const timeLayout = "2006-01-02 15:04 UTC"

const (
	defaultSelectionSubject = "Next steps for the %s role"
	defaultSelectionBody    = "Hi %s,\n\nCongratulations! You have been selected for an interview for the %s role.\n\nOpen your interview here: %s\n\nThis link works once and is valid until %s."
	defaultRejectionSubject = "Update on your %s application"
	defaultRejectionBody    = "Hi %s,\n\nThank you for applying for the %s role. After reviewing your application we will not be moving forward.\n\nWe wish you the best in your search."
	defaultScheduledSubject = "Your %s interview is open"
	defaultScheduledBody    = "Hi %s,\n\nYour interview session for the %s role opened at %s. Good luck!"
	defaultScheduledLink    = "Interview link: %s"
	defaultCompletedSubject = "Thanks for interviewing for %s"
	defaultCompletedBody    = "Hi %s,\n\nThank you for completing your interview for the %s role at %s. We will be in touch soon."
)

// Email is rendered copy ready for a sender.
type Email struct {
	To      domain.Recipient
	Subject string
	Text    string
}

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Printer returns a Localizer for tag, matched against the registered
// catalog languages with English as the fallback.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(catalog.Default().Match(tag))
}

// Render returns localized copy for one notification payload.
func Render(loc Localizer, payload domain.Payload) (Email, error) {
	switch p := payload.(type) {
	case *domain.SelectionPayload:
		return renderSelection(loc, *p), nil
	case domain.SelectionPayload:
		return renderSelection(loc, p), nil
	case *domain.RejectionPayload:
		return renderRejection(loc, *p), nil
	case domain.RejectionPayload:
		return renderRejection(loc, p), nil
	case *domain.ScheduledPayload:
		return renderScheduled(loc, *p), nil
	case domain.ScheduledPayload:
		return renderScheduled(loc, p), nil
	case *domain.CompletedPayload:
		return renderCompleted(loc, *p), nil
	case domain.CompletedPayload:
		return renderCompleted(loc, p), nil
	default:
		return Email{}, fmt.Errorf("%w: no template for %T", domain.ErrInvalidPayload, payload)
	}
}

func renderSelection(loc Localizer, p domain.SelectionPayload) Email {
	return Email{
		To:      p.Recipient,
		Subject: localize(loc, "notification.selection.subject", defaultSelectionSubject, p.JobTitle),
		Text: localize(loc, "notification.selection.body", defaultSelectionBody,
			p.Recipient.Name, p.JobTitle, p.InterviewLink, formatTime(p.TokenExpiresAt)),
	}
}

func renderRejection(loc Localizer, p domain.RejectionPayload) Email {
	return Email{
		To:      p.Recipient,
		Subject: localize(loc, "notification.rejection.subject", defaultRejectionSubject, p.JobTitle),
		Text:    localize(loc, "notification.rejection.body", defaultRejectionBody, p.Recipient.Name, p.JobTitle),
	}
}

func renderScheduled(loc Localizer, p domain.ScheduledPayload) Email {
	text := localize(loc, "notification.scheduled.body", defaultScheduledBody,
		p.Recipient.Name, p.JobTitle, formatTime(p.ScheduledAt))
	if link := strings.TrimSpace(p.InterviewLink); link != "" {
		text += "\n\n" + localize(loc, "notification.scheduled.link", defaultScheduledLink, link)
	}
	return Email{
		To:      p.Recipient,
		Subject: localize(loc, "notification.scheduled.subject", defaultScheduledSubject, p.JobTitle),
		Text:    text,
	}
}

func renderCompleted(loc Localizer, p domain.CompletedPayload) Email {
	return Email{
		To:      p.Recipient,
		Subject: localize(loc, "notification.completed.subject", defaultCompletedSubject, p.JobTitle),
		Text: localize(loc, "notification.completed.body", defaultCompletedBody,
			p.Recipient.Name, p.JobTitle, formatTime(p.CompletedAt)),
	}
}

// localize prints key through loc, falling back to the English template
// when loc is nil or has no entry for key.
func localize(loc Localizer, key string, fallback string, args ...any) string {
	if loc != nil {
		value := strings.TrimSpace(loc.Sprintf(key, args...))
		if value != "" && !strings.HasPrefix(value, key) {
			return value
		}
	}
	return fmt.Sprintf(fallback, args...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
