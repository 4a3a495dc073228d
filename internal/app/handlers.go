package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/checkin-engine/internal/http/handlers"
	httpMW "github.com/yungbote/checkin-engine/internal/http/middleware"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/realtime"
)

type Handlers struct {
	Realtime *httpH.RealtimeHandler
	Checkin  *httpH.CheckinHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, serviceset Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	orch := serviceset.Orchestrator
	return Handlers{
		Realtime: httpH.NewRealtimeHandler(log, hub),
		Checkin:  httpH.NewCheckinHandler(log, orch, serviceset.Scheduler, orch.WindowOpenNow),
		Health:   httpH.NewHealthHandler(checks),
	}
}

func wireMiddleware(log *logger.Logger, serviceset Services) *httpMW.AuthMiddleware {
	log.Info("Wiring middleware...")
	return httpMW.NewAuthMiddleware(log, serviceset.Auth)
}
