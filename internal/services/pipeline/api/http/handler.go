// Package httpapi exposes the pipeline actions as a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	maxBodyBytes = 1 << 20
	redeemPath   = "/v1/interview/redeem"
)

// Pipeline is the subset of the pipeline service the API serves.
type Pipeline interface {
	RegisterCandidate(ctx context.Context, reg domain.Registration) (domain.Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (domain.Candidate, error)
	ScoreAndGate(ctx context.Context, input app.ScoreInput) (app.GateOutcome, error)
	Transition(ctx context.Context, input app.TransitionInput) (app.TransitionResult, error)
	IssueInterviewAccess(ctx context.Context, candidateID string) (app.AccessGrant, error)
	CheckInterviewAccess(ctx context.Context, secret string) (app.AccessCheck, error)
	RedeemInterviewAccess(ctx context.Context, secret string) (app.Redemption, error)
	MarkInterviewCompleted(ctx context.Context, candidateID string) error
	CompleteInterview(ctx context.Context, candidateID, notes string) (app.TransitionResult, error)
	ListNotifications(ctx context.Context, candidateID string) ([]domain.NotificationTask, error)
	AuditTrail(ctx context.Context, candidateID string) iter.Seq2[domain.AuditEntry, error]
}

// Handler routes pipeline requests.
type Handler struct {
	pipeline Pipeline
	log      *zap.Logger
	mux      *http.ServeMux
}

// NewHandler builds the API handler.
func NewHandler(pipeline Pipeline, log *zap.Logger) *Handler {
	h := &Handler{pipeline: pipeline, log: logger.OrNop(log), mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /v1/candidates", h.handleRegister)
	h.mux.HandleFunc("GET /v1/candidates/{id}", h.handleGetCandidate)
	h.mux.HandleFunc("POST /v1/candidates/{id}/score", h.handleScore)
	h.mux.HandleFunc("POST /v1/candidates/{id}/transitions", h.handleTransition)
	h.mux.HandleFunc("POST /v1/candidates/{id}/interview-access", h.handleIssueAccess)
	h.mux.HandleFunc("POST /v1/candidates/{id}/interview/completed", h.handleCompleteInterview)
	h.mux.HandleFunc("POST /v1/candidates/{id}/interview/token-completed", h.handleMarkCompleted)
	h.mux.HandleFunc("GET /v1/candidates/{id}/audit", h.handleAudit)
	h.mux.HandleFunc("GET /v1/candidates/{id}/notifications", h.handleNotifications)
	h.mux.HandleFunc("POST "+redeemPath, h.handleRedeem)
	h.mux.HandleFunc("GET /interview/login", h.handleCheckLink)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	JobTitle   string `json:"job_title"`
	ResumeText string `json:"resume_text"`
	Source     string `json:"source"`
	Automation *bool  `json:"automation_enabled"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	candidate, err := h.pipeline.RegisterCandidate(r.Context(), domain.Registration{
		Name:       req.Name,
		Email:      req.Email,
		JobTitle:   req.JobTitle,
		ResumeText: req.ResumeText,
		Source:     req.Source,
		Automation: req.Automation,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCandidateView(candidate))
}

func (h *Handler) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	candidate, err := h.pipeline.GetCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateView(candidate))
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var scores *domain.SubScores
	var body domain.SubScores
	present, ok := h.decodeOptional(w, r, &body)
	if !ok {
		return
	}
	if present {
		scores = &body
	}
	outcome, err := h.pipeline.ScoreAndGate(r.Context(), app.ScoreInput{CandidateID: r.PathValue("id"), Scores: scores})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gateView{
		Candidate:      toCandidateView(outcome.Candidate),
		Scores:         outcome.Scores,
		CompositeScore: outcome.Gate.Composite,
		Decision:       string(outcome.Gate.Decision),
		Fallback:       outcome.Fallback,
		Applied:        outcome.Applied,
	})
}

type transitionRequest struct {
	ToStage             string `json:"to_stage"`
	AutomationTriggered bool   `json:"automation_triggered"`
	Notes               string `json:"notes"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, err := domain.ParseStage(req.ToStage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.pipeline.Transition(r.Context(), app.TransitionInput{
		CandidateID:         r.PathValue("id"),
		To:                  to,
		AutomationTriggered: req.AutomationTriggered,
		Notes:               req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionView(result))
}

func (h *Handler) handleIssueAccess(w http.ResponseWriter, r *http.Request) {
	grant, err := h.pipeline.IssueInterviewAccess(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accessView{
		CandidateID:   grant.Token.CandidateID,
		InterviewLink: grant.InterviewLink,
		ExpiresAt:     grant.Token.ExpiresAt,
	})
}

type completeRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if _, ok := h.decodeOptional(w, r, &req); !ok {
		return
	}
	result, err := h.pipeline.CompleteInterview(r.Context(), r.PathValue("id"), req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionView(result))
}

func (h *Handler) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.MarkInterviewCompleted(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries := []auditView{}
	for entry, err := range h.pipeline.AuditTrail(r.Context(), r.PathValue("id")) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		entries = append(entries, toAuditView(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.pipeline.ListNotifications(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]notificationView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, toNotificationView(task))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": views})
}

type redeemRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.redeem(w, r, req.Token)
}

// handleCheckLink never consumes the token: link scanners and previews
// fetch it too. Redemption is POST /v1/interview/redeem.
func (h *Handler) handleCheckLink(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("token")
	if strings.TrimSpace(secret) == "" {
		h.writeError(w, r, domain.ErrTokenNotFound)
		return
	}
	check, err := h.pipeline.CheckInterviewAccess(r.Context(), secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessCheckView{
		CandidateID: check.CandidateID,
		Valid:       true,
		ExpiresAt:   check.ExpiresAt,
		RedeemPath:  redeemPath,
	})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request, secret string) {
	if strings.TrimSpace(secret) == "" {
		h.writeError(w, r, domain.ErrTokenNotFound)
		return
	}
	redemption, err := h.pipeline.RedeemInterviewAccess(r.Context(), secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionView{
		CandidateID: redemption.CandidateID,
		Stage:       string(redemption.Candidate.Stage),
		Scheduled:   redemption.Scheduled,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	present, ok := h.decodeOptional(w, r, target)
	if ok && !present {
		h.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "request body is required"))
		return false
	}
	return ok
}

// decodeOptional reports present=false for an empty body, chunked or not.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, target any) (present, ok bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, true
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return false, true
		}
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "decode request body", err))
		return false, false
	}
	return true, true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.String("code", string(code)), zap.Error(err))
	} else {
		h.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("code", string(code)), zap.Error(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: apperrors.UserMessage(requestLanguage(r), code)})
}

func requestLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type candidateView struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	JobTitle          string            `json:"job_title"`
	Source            string            `json:"source"`
	AutomationEnabled bool              `json:"automation_enabled"`
	Stage             string            `json:"stage"`
	Scores            *domain.SubScores `json:"scores,omitempty"`
	CompositeScore    *int              `json:"composite_score,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func toCandidateView(c domain.Candidate) candidateView {
	return candidateView{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		JobTitle:          c.JobTitle,
		Source:            string(c.Source),
		AutomationEnabled: c.AutomationEnabled,
		Stage:             string(c.Stage),
		Scores:            c.Scores,
		CompositeScore:    c.CompositeScore,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type gateView struct {
	Candidate      candidateView    `json:"candidate"`
	Scores         domain.SubScores `json:"scores"`
	CompositeScore int              `json:"composite_score"`
	Decision       string           `json:"decision"`
	Fallback       bool             `json:"fallback"`
	Applied        bool             `json:"applied"`
}

type transitionView struct {
	Candidate candidateView `json:"candidate"`
	Applied   bool          `json:"applied"`
	Audit     *auditView    `json:"audit,omitempty"`
}

func toTransitionView(result app.TransitionResult) transitionView {
	view := transitionView{Candidate: toCandidateView(result.Candidate), Applied: result.Applied}
	if result.Audit != nil {
		audit := toAuditView(*result.Audit)
		view.Audit = &audit
	}
	return view
}

type accessView struct {
	CandidateID   string    `json:"candidate_id"`
	InterviewLink string    `json:"interview_link"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type accessCheckView struct {
	CandidateID string    `json:"candidate_id"`
	Valid       bool      `json:"valid"`
	ExpiresAt   time.Time `json:"expires_at"`
	RedeemPath  string    `json:"redeem_path"`
}

type redemptionView struct {
	CandidateID string `json:"candidate_id"`
	Stage       string `json:"stage"`
	Scheduled   bool   `json:"scheduled"`
}

type auditView struct {
	ID                  int64     `json:"id"`
	FromStage           string    `json:"from_stage"`
	ToStage             string    `json:"to_stage"`
	AutomationTriggered bool      `json:"automation_triggered"`
	Timestamp           time.Time `json:"timestamp"`
	Notes               string    `json:"notes,omitempty"`
}

func toAuditView(entry domain.AuditEntry) auditView {
	return auditView{
		ID:                  entry.ID,
		FromStage:           string(entry.FromStage),
		ToStage:             string(entry.ToStage),
		AutomationTriggered: entry.AutomationTriggered,
		Timestamp:           entry.Timestamp,
		Notes:               entry.Notes,
	}
}

type notificationView struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	RetryCount   int        `json:"retry_count"`
	LastError    string     `json:"last_error,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}

func toNotificationView(task domain.NotificationTask) notificationView {
	return notificationView{
		ID:           task.ID,
		Kind:         string(task.Kind),
		Status:       string(task.Status),
		ScheduledFor: task.ScheduledFor,
		RetryCount:   task.RetryCount,
		LastError:    task.LastError,
		SentAt:       task.SentAt,
	}
}
