// Package app orchestrates the recruitment pipeline's operational actions.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/louisbranch/hiring.space/internal/platform/id"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/platform/timeouts"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/scoring"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
	"go.uber.org/zap"
)

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("pipeline store is not configured")

const defaultAuditPageSize = 100

// Config holds pipeline policy that may vary per deployment.
type Config struct {
	// TokenTTL is the interview link lifetime.
	TokenTTL time.Duration
	// InterviewBaseURL prefixes interview links sent to candidates.
	InterviewBaseURL string
	// ScoreTimeout bounds one scorer call.
	ScoreTimeout time.Duration
	// SelectionDelay and RejectionDelay postpone the gate notifications.
	SelectionDelay time.Duration
	RejectionDelay time.Duration
	// AuditPageSize is how many audit entries AuditTrail reads per query.
	AuditPageSize int
}

func (c Config) normalized() Config {
	if c.TokenTTL <= 0 {
		c.TokenTTL = domain.DefaultTokenTTL
	}
	if strings.TrimSpace(c.InterviewBaseURL) == "" {
		c.InterviewBaseURL = "http://localhost:8080/interview/login"
	}
	if c.ScoreTimeout <= 0 {
		c.ScoreTimeout = timeouts.ScoreRequest
	}
	if c.SelectionDelay < 0 {
		c.SelectionDelay = 0
	}
	if c.RejectionDelay < 0 {
		c.RejectionDelay = 0
	}
	if c.AuditPageSize <= 0 {
		c.AuditPageSize = defaultAuditPageSize
	}
	return c
}

// Dependencies are the collaborators of Service. Only Store is required.
type Dependencies struct {
	Store     storage.Store
	Scorer    scoring.Scorer
	Logger    *zap.Logger
	Clock     func() time.Time
	NewID     func() (string, error)
	NewSecret func() (string, error)
}

// Service implements the pipeline actions on top of a Store.
type Service struct {
	store     storage.Store
	scorer    scoring.Scorer
	cfg       Config
	log       *zap.Logger
	clock     func() time.Time
	newID     func() (string, error)
	newSecret func() (string, error)
}

// NewService builds a pipeline service.
func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = id.NewID
	}
	if deps.NewSecret == nil {
		deps.NewSecret = domain.NewSecret
	}
	return &Service{
		store:     deps.Store,
		scorer:    deps.Scorer,
		cfg:       cfg.normalized(),
		log:       logger.OrNop(deps.Logger),
		clock:     deps.Clock,
		newID:     deps.NewID,
		newSecret: deps.NewSecret,
	}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	return nil
}

func (s *Service) nowUTC() time.Time {
	return s.clock().UTC()
}

// RegisterCandidate creates a screening-stage candidate.
func (s *Service) RegisterCandidate(ctx context.Context, reg domain.Registration) (candidate domain.Candidate, err error) {
	if err := s.ready(); err != nil {
		return domain.Candidate{}, err
	}
	ctx, span := startSpan(ctx, "register_candidate", "")
	defer func() { endSpan(span, err) }()

	candidateID, err := s.newID()
	if err != nil {
		return domain.Candidate{}, err
	}
	candidate, err = domain.NewCandidate(candidateID, reg, s.nowUTC())
	if err != nil {
		return domain.Candidate{}, err
	}
	if err := s.store.CreateCandidate(ctx, candidate); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Candidate{}, domain.ErrCandidateExists
		}
		return domain.Candidate{}, err
	}
	s.log.Info("candidate registered",
		zap.String(logger.FieldCandidateID, candidate.ID),
		zap.String("source", string(candidate.Source)),
		zap.Bool("automation_enabled", candidate.AutomationEnabled),
	)
	return candidate, nil
}

// GetCandidate loads one candidate.
func (s *Service) GetCandidate(ctx context.Context, candidateID string) (domain.Candidate, error) {
	if err := s.ready(); err != nil {
		return domain.Candidate{}, err
	}
	return s.getCandidate(ctx, candidateID)
}

func (s *Service) getCandidate(ctx context.Context, candidateID string) (domain.Candidate, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return domain.Candidate{}, domain.ErrInvalidCandidate
	}
	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Candidate{}, domain.ErrCandidateNotFound
		}
		return domain.Candidate{}, err
	}
	return candidate, nil
}

// ListNotifications returns the candidate's queued and delivered tasks.
func (s *Service) ListNotifications(ctx context.Context, candidateID string) ([]domain.NotificationTask, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	candidate, err := s.getCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return s.store.ListNotificationsByCandidate(ctx, candidate.ID)
}
