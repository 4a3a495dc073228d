package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/http/response"
	"github.com/yungbote/checkin-engine/internal/jobs/scheduler"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/apierr"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

// CheckinTrigger is satisfied by checkin.Orchestrator.
type CheckinTrigger interface {
	Trigger(ctx context.Context, req checkin.TriggerRequest) (checkin.RunSummary, error)
	CurrentWeekStart() string
}

// SchedulerState reports what the background poller is doing.
type SchedulerState interface {
	State() scheduler.State
	Running() bool
}

type CheckinHandler struct {
	log        *logger.Logger
	trigger    CheckinTrigger
	scheduler  SchedulerState
	windowOpen func() bool
}

// NewCheckinHandler wires the admin surface. windowOpen may be nil.
func NewCheckinHandler(log *logger.Logger, trigger CheckinTrigger, scheduler SchedulerState, windowOpen func() bool) *CheckinHandler {
	return &CheckinHandler{
		log:        log.With("handler", "CheckinHandler"),
		trigger:    trigger,
		scheduler:  scheduler,
		windowOpen: windowOpen,
	}
}

type triggerBody struct {
	ClientID string `json:"client_id"`
	CoachID  string `json:"coach_id"`
	Force    bool   `json:"force"`
}

type triggerResult struct {
	ClientID  string `json:"client_id"`
	Status    string `json:"status"`
	Stage     string `json:"stage,omitempty"`
	Summary   string `json:"summary"`
	MessageID string `json:"message_id,omitempty"`
}

// POST /api/admin/checkins/trigger
func (h *CheckinHandler) Trigger(c *gin.Context) {
	var body triggerBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	req := checkin.TriggerRequest{Force: body.Force}
	if s := strings.TrimSpace(body.ClientID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_client_id", err)
			return
		}
		req.ClientID = &id
	}
	if s := strings.TrimSpace(body.CoachID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_coach_id", err)
			return
		}
		req.CoachID = &id
	}

	sum, err := h.trigger.Trigger(c.Request.Context(), req)
	if err != nil {
		apiErr := classifyTriggerError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			h.log.Error("manual trigger failed", "error", err)
		}
		response.RespondAPIError(c, apiErr)
		return
	}

	results := make([]triggerResult, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		r := triggerResult{
			ClientID: o.ClientID.String(),
			Status:   o.Status,
			Stage:    o.Stage,
			Summary:  o.Summary,
		}
		if o.MessageID != nil {
			r.MessageID = o.MessageID.String()
		}
		results = append(results, r)
	}
	response.RespondOK(c, gin.H{
		"week_start": sum.WeekStart,
		"counts":     sum.Counts(),
		"results":    results,
	})
}

func classifyTriggerError(err error) *apierr.Error {
	var cfgErr *checkin.ConfigError
	switch {
	case errors.Is(err, checkin.ErrClientNotFound):
		return apierr.New(http.StatusNotFound, "client_not_found", err)
	case errors.As(err, &cfgErr):
		return apierr.New(http.StatusInternalServerError, "misconfigured", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierr.New(http.StatusGatewayTimeout, "trigger_timeout", err)
	default:
		return apierr.New(http.StatusInternalServerError, "trigger_failed", err)
	}
}

// GET /api/admin/checkins/status
func (h *CheckinHandler) Status(c *gin.Context) {
	out := gin.H{"week_start": h.trigger.CurrentWeekStart()}
	if h.windowOpen != nil {
		out["window_open"] = h.windowOpen()
	}
	if h.scheduler != nil {
		out["scheduler_state"] = string(h.scheduler.State())
		out["scheduler_running"] = h.scheduler.Running()
	}
	response.RespondOK(c, out)
}
