// Package domain turns queued notification tasks into sent emails.
package domain

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
	"github.com/louisbranch/hiring.space/internal/services/notifications/email"
	"github.com/louisbranch/hiring.space/internal/services/notifications/render"
	pipelinedomain "github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

// Dispatcher sends one notification task through the email channel.
type Dispatcher struct {
	sender email.Sender
	loc    render.Localizer
}

// NewDispatcher builds a dispatcher. A nil localizer renders English copy.
func NewDispatcher(sender email.Sender, loc render.Localizer) *Dispatcher {
	return &Dispatcher{sender: sender, loc: loc}
}

// Dispatch decodes, renders and sends task. Payloads that cannot be decoded
// or rendered fail permanently; sender errors are permanent only when the
// sender says so.
func (d *Dispatcher) Dispatch(ctx context.Context, task pipelinedomain.NotificationTask) error {
	if d == nil || d.sender == nil {
		return errors.New("email sender is not configured")
	}
	payload, err := pipelinedomain.DecodePayload(task.Kind, task.Payload)
	if err != nil {
		return Permanent(err)
	}
	msg, err := render.Render(d.loc, payload)
	if err != nil {
		return Permanent(err)
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		wrapped := apperrors.Wrap(apperrors.CodeDeliveryFailure, "send "+string(task.Kind)+" email", err)
		if IsPermanent(err) {
			return Permanent(wrapped)
		}
		return wrapped
	}
	return nil
}
