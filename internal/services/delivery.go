package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/checkin-engine/internal/data/repos"
	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/dbctx"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/realtime"
	"github.com/yungbote/checkin-engine/internal/realtime/bus"
)

type checkinMetadata struct {
	WeekStart   string                   `json:"week_start"`
	ArtifactKey string                   `json:"artifact_key,omitempty"`
	ArtifactURL string                   `json:"artifact_url,omitempty"`
	Metrics     checkin.AdherenceMetrics `json:"metrics"`
	Forced      bool                     `json:"forced,omitempty"`
}

// CheckinDeliveredEvent is the payload of a CheckinDelivered SSE message.
type CheckinDeliveredEvent struct {
	MessageID   string `json:"message_id"`
	ClientID    string `json:"client_id"`
	CoachID     string `json:"coach_id"`
	WeekStart   string `json:"week_start"`
	Content     string `json:"content"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

// DeliveryService writes the check-in into the coach/client chat and pushes
// it to connected dashboards.
type DeliveryService struct {
	log  *logger.Logger
	chat repos.ChatMessageRepo
	hub  *realtime.SSEHub
	bus  bus.Bus
}

// NewDeliveryService accepts a nil bus for single-replica deployments.
func NewDeliveryService(baseLog *logger.Logger, chat repos.ChatMessageRepo, hub *realtime.SSEHub, b bus.Bus) *DeliveryService {
	return &DeliveryService{
		log:  baseLog.With("service", "DeliveryService"),
		chat: chat,
		hub:  hub,
		bus:  b,
	}
}

func (s *DeliveryService) PersistChatMessage(dbc dbctx.Context, client *types.Client, msg checkin.FilteredMessage) (*types.ChatMessage, error) {
	if client == nil {
		return nil, fmt.Errorf("client required")
	}
	meta, err := json.Marshal(checkinMetadata{
		WeekStart:   msg.WeekStart,
		ArtifactKey: msg.ArtifactKey,
		ArtifactURL: msg.ArtifactURL,
		Metrics:     msg.Metrics,
		Forced:      msg.Forced,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message metadata: %w", err)
	}
	messageType := msg.MessageType
	if messageType == "" {
		messageType = types.MessageTypeWeeklyCheckin
	}
	rows, err := s.chat.Create(dbc, []*types.ChatMessage{{
		ClientID:    client.ID,
		CoachID:     client.CoachID,
		Sender:      types.SenderAI,
		MessageType: messageType,
		Content:     msg.Text,
		Metadata:    datatypes.JSON(meta),
	}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chat message not created")
	}
	return rows[0], nil
}

func (s *DeliveryService) Broadcast(ctx context.Context, client *types.Client, msg *types.ChatMessage) error {
	if client == nil || msg == nil {
		return nil
	}
	var meta checkinMetadata
	_ = json.Unmarshal(msg.Metadata, &meta)
	event := CheckinDeliveredEvent{
		MessageID:   msg.ID.String(),
		ClientID:    client.ID.String(),
		CoachID:     client.CoachID.String(),
		WeekStart:   meta.WeekStart,
		Content:     msg.Content,
		ArtifactURL: meta.ArtifactURL,
	}

	var errs []error
	for _, channel := range []string{
		realtime.CoachChannel(client.CoachID),
		realtime.ClientChannel(client.ID),
		realtime.AdminChannel,
	} {
		out := realtime.SSEMessage{Channel: channel, Event: realtime.SSEEventCheckinDelivered, Data: event}
		if s.hub != nil {
			s.hub.Broadcast(out)
		}
		if s.bus != nil {
			if err := s.bus.Publish(ctx, out); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", channel, err))
			}
		}
	}
	return errors.Join(errs...)
}

// BroadcastRunSummary tells admin dashboards that a run finished.
func (s *DeliveryService) BroadcastRunSummary(ctx context.Context, sum checkin.RunSummary) {
	out := realtime.SSEMessage{
		Channel: realtime.AdminChannel,
		Event:   realtime.SSEEventCheckinRunFinished,
		Data: map[string]any{
			"trigger":    sum.Trigger,
			"week_start": sum.WeekStart,
			"counts":     sum.Counts(),
		},
	}
	if s.hub != nil {
		s.hub.Broadcast(out)
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, out); err != nil {
			s.log.Warn("Run summary publish failed", "error", err)
		}
	}
}
