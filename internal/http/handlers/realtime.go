package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/http/response"
	"github.com/yungbote/checkin-engine/internal/platform/ctxutil"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/realtime"
	"github.com/yungbote/checkin-engine/internal/services"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{Log: log.With("handler", "RealtimeHandler"), Hub: hub}
}

// GET /api/sse/stream?channel=coach:<id>&channel=...
// Without a channel the caller gets the default channel for their role.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	channels := c.QueryArray("channel")
	if len(channels) == 0 {
		if def := defaultChannel(rd); def != "" {
			channels = []string{def}
		}
	}
	if len(channels) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_channel", nil)
		return
	}
	for _, ch := range channels {
		if !canSubscribe(rd, ch) {
			response.RespondError(c, http.StatusForbidden, "forbidden_channel", nil)
			return
		}
	}

	client := h.Hub.NewSSEClient(rd.UserID)
	client.Logger = h.Log.With("sse_client_id", client.ID, "user_id", rd.UserID)
	for _, ch := range channels {
		h.Hub.AddChannel(client, ch)
	}
	h.Log.Debug("SSEStream open", "user_id", rd.UserID, "channels", strings.Join(channels, ","))

	h.Hub.ServeHTTP(c.Writer, c.Request, client)
	h.Hub.CloseClient(client)
}

func defaultChannel(rd *ctxutil.RequestData) string {
	switch rd.Role {
	case services.RoleAdmin:
		return realtime.AdminChannel
	case services.RoleCoach:
		if rd.CoachID != nil {
			return realtime.CoachChannel(*rd.CoachID)
		}
		return realtime.CoachChannel(rd.UserID)
	case services.RoleClient:
		return realtime.ClientChannel(rd.UserID)
	}
	return ""
}

// Admins may listen anywhere. Coaches get their own coach channel, clients
// their own client channel.
func canSubscribe(rd *ctxutil.RequestData, channel string) bool {
	switch rd.Role {
	case services.RoleAdmin:
		return true
	case services.RoleCoach:
		if rd.CoachID != nil && channel == realtime.CoachChannel(*rd.CoachID) {
			return true
		}
		return channel == realtime.CoachChannel(rd.UserID)
	case services.RoleClient:
		return channel == realtime.ClientChannel(rd.UserID)
	}
	return false
}
