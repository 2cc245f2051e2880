// Package app drains the pipeline notification queue.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/hiring.space/internal/platform/id"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	platformotel "github.com/louisbranch/hiring.space/internal/platform/otel"
	"github.com/louisbranch/hiring.space/internal/platform/timeouts"
	pipelinedomain "github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	pipelinestorage "github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
	workerdomain "github.com/louisbranch/hiring.space/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/hiring.space/internal/services/worker/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultMaxBatch     = 50
	defaultMaxRetries   = 3
	defaultLeaseTTL     = 2 * time.Minute
	defaultPollInterval = time.Minute
	defaultOwnerPrefix  = "drain"
	maxErrorText        = 500
)

// Config controls one drain pass and the polling loop.
type Config struct {
	MaxBatch     int
	MaxRetries   int
	LeaseTTL     time.Duration
	SendTimeout  time.Duration
	PollInterval time.Duration
	// OwnerPrefix prefixes the unique lease owner minted for every pass.
	OwnerPrefix string
}

func (c Config) normalized() Config {
	if c.MaxBatch <= 0 {
		c.MaxBatch = defaultMaxBatch
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = timeouts.EmailSend
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	c.OwnerPrefix = strings.TrimSpace(c.OwnerPrefix)
	if c.OwnerPrefix == "" {
		c.OwnerPrefix = defaultOwnerPrefix
	}
	return c
}

// Validate rejects a lease that a single send can outlive: the lease must
// still be held when the send returns.
func (c Config) Validate() error {
	c = c.normalized()
	if c.LeaseTTL <= c.SendTimeout {
		return fmt.Errorf("lease ttl %s must exceed send timeout %s", c.LeaseTTL, c.SendTimeout)
	}
	return nil
}

// Queue is the slice of the pipeline store a drain needs.
type Queue interface {
	ClaimDueNotifications(ctx context.Context, req pipelinestorage.ClaimRequest) ([]pipelinedomain.NotificationTask, error)
	RenewNotificationLease(ctx context.Context, renewal pipelinestorage.LeaseRenewal) error
	CompleteNotificationAttempt(ctx context.Context, result pipelinestorage.AttemptResult) error
}

// Dispatcher sends one task.
type Dispatcher interface {
	Dispatch(ctx context.Context, task pipelinedomain.NotificationTask) error
}

// AttemptRecorder keeps the per-attempt delivery log.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt workerstorage.AttemptRecord) error
}

// Dependencies are the collaborators of a Drainer. Queue and Dispatcher
// are required.
type Dependencies struct {
	Queue      Queue
	Dispatcher Dispatcher
	Attempts   AttemptRecorder
	Logger     *zap.Logger
	Clock      func() time.Time
	NewID      func() (string, error)
}

// DrainResult counts what one pass did.
type DrainResult struct {
	Owner     string `json:"owner"`
	Claimed   int    `json:"claimed"`
	Sent      int    `json:"sent"`
	Retried   int    `json:"retried"`
	Failed    int    `json:"failed"`
	LeaseLost int    `json:"lease_lost"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
}

// Drainer dispatches due notification tasks.
type Drainer struct {
	queue      Queue
	dispatcher Dispatcher
	attempts   AttemptRecorder
	cfg        Config
	log        *zap.Logger
	clock      func() time.Time
	newID      func() (string, error)
}

// NewDrainer builds a drainer.
func NewDrainer(deps Dependencies, cfg Config) *Drainer {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = id.NewID
	}
	return &Drainer{
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		attempts:   deps.Attempts,
		cfg:        cfg.normalized(),
		log:        logger.OrNop(deps.Logger),
		clock:      deps.Clock,
		newID:      deps.NewID,
	}
}

// Drain claims up to MaxBatch due tasks under a fresh lease owner and
// dispatches each one. A failed task never stops the rest of the batch.
func (d *Drainer) Drain(ctx context.Context) (result DrainResult, err error) {
	if d == nil || d.queue == nil || d.dispatcher == nil {
		return DrainResult{}, errors.New("drainer is not configured")
	}
	if err := d.cfg.Validate(); err != nil {
		return DrainResult{}, err
	}
	ctx, span := platformotel.StartSpan(ctx, "notifications.drain")
	defer func() { platformotel.EndSpan(span, err) }()

	suffix, err := d.newID()
	if err != nil {
		return DrainResult{}, fmt.Errorf("mint lease owner: %w", err)
	}
	result.Owner = d.cfg.OwnerPrefix + "-" + suffix

	tasks, err := d.queue.ClaimDueNotifications(ctx, pipelinestorage.ClaimRequest{
		Owner:      result.Owner,
		Limit:      d.cfg.MaxBatch,
		MaxRetries: d.cfg.MaxRetries,
		Now:        d.clock().UTC(),
		LeaseTTL:   d.cfg.LeaseTTL,
	})
	if err != nil {
		return result, fmt.Errorf("claim due notifications: %w", err)
	}
	result.Claimed = len(tasks)
	span.SetAttributes(attribute.Int("claimed", len(tasks)))

	for i, task := range tasks {
		if ctx.Err() != nil {
			// Unprocessed leases expire and the tasks are claimed again.
			result.Skipped = len(tasks) - i
			break
		}
		d.process(ctx, result.Owner, task, &result)
	}

	if result.Claimed > 0 {
		d.log.Info("drain pass finished",
			zap.String("owner", result.Owner),
			zap.Int("claimed", result.Claimed),
			zap.Int("sent", result.Sent),
			zap.Int("retried", result.Retried),
			zap.Int("failed", result.Failed),
			zap.Int("lease_lost", result.LeaseLost),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", result.Errors),
		)
	}
	return result, nil
}

func (d *Drainer) process(ctx context.Context, owner string, task pipelinedomain.NotificationTask, result *DrainResult) {
	log := d.log.With(
		zap.String(logger.FieldTaskID, task.ID),
		zap.String(logger.FieldCandidateID, task.CandidateID),
		zap.String(logger.FieldKind, string(task.Kind)),
	)

	// A batch can outlive its claim lease; only a task still held is sent.
	if err := d.queue.RenewNotificationLease(ctx, pipelinestorage.LeaseRenewal{
		TaskID:   task.ID,
		Owner:    owner,
		Now:      d.clock().UTC(),
		LeaseTTL: d.cfg.LeaseTTL,
	}); err != nil {
		if errors.Is(err, pipelinestorage.ErrLeaseLost) {
			result.LeaseLost++
			log.Warn("notification lease expired before dispatch", zap.Error(err))
			return
		}
		result.Errors++
		log.Error("renew notification lease", zap.Error(err))
		return
	}

	sendErr := d.dispatch(ctx, task)
	var next pipelinedomain.Transition
	if sendErr == nil {
		next = task.AfterSuccess()
	} else {
		next = task.AfterFailure(d.cfg.MaxRetries, logger.Truncate(sendErr.Error(), maxErrorText), workerdomain.IsPermanent(sendErr))
	}

	// The outcome is recorded even when the pass is being cancelled.
	ctx = context.WithoutCancel(ctx)
	at := d.clock().UTC()
	if err := d.queue.CompleteNotificationAttempt(ctx, pipelinestorage.AttemptResult{
		TaskID:     task.ID,
		Owner:      owner,
		Transition: next,
		At:         at,
	}); err != nil {
		if errors.Is(err, pipelinestorage.ErrLeaseLost) {
			result.LeaseLost++
			log.Warn("notification lease lost before completion", zap.Error(err))
			return
		}
		// The lease expires and another pass retries the task.
		result.Errors++
		log.Error("record notification attempt", zap.Error(err))
		return
	}

	switch next.Outcome {
	case pipelinedomain.OutcomeSent:
		result.Sent++
		log.Debug("notification sent")
	case pipelinedomain.OutcomeRetry:
		result.Retried++
		log.Warn("notification delivery failed; will retry",
			zap.Int("retry_count", next.RetryCount),
			zap.Error(sendErr),
		)
	case pipelinedomain.OutcomeFailed:
		result.Failed++
		log.Error("notification delivery failed permanently",
			zap.Int("retry_count", next.RetryCount),
			zap.Error(sendErr),
		)
	}

	if d.attempts == nil {
		return
	}
	if err := d.attempts.RecordAttempt(ctx, workerstorage.AttemptRecord{
		TaskID:     task.ID,
		Kind:       string(task.Kind),
		Owner:      owner,
		Outcome:    string(next.Outcome),
		RetryCount: next.RetryCount,
		LastError:  next.LastError,
		CreatedAt:  at,
	}); err != nil {
		log.Warn("record delivery attempt", zap.Error(err))
	}
}

// dispatch sends task under the per-task timeout and turns a panicking
// dispatcher into an ordinary failure.
func (d *Drainer) dispatch(ctx context.Context, task pipelinedomain.NotificationTask) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	ctx, span := platformotel.StartSpan(ctx, "notifications.dispatch",
		attribute.String(logger.FieldTaskID, task.ID),
		attribute.String(logger.FieldKind, string(task.Kind)),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
		platformotel.EndSpan(span, err)
	}()
	return d.dispatcher.Dispatch(ctx, task)
}
