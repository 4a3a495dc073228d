package app

import (
	"context"
	"fmt"

	"github.com/facebookgo/clock"
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/jobs/scheduler"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/lease"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/realtime"
	"github.com/yungbote/checkin-engine/internal/services"
)

type Services struct {
	Auth      *services.AuthService
	Delivery  *services.DeliveryService
	Filter    *services.FilterSettingsService
	Report    *services.ReportService
	Artifacts checkin.ArtifactStore
	Narrative checkin.NarrativeGenerator
	Lease     checkin.Lease

	Pipeline     *checkin.Pipeline
	Orchestrator *checkin.Orchestrator
	Scheduler    *scheduler.Handle
}

func wireServices(db *gorm.DB, log *logger.Logger, clk clock.Clock, cfg Config, reposet Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	loc, err := cfg.Location()
	if err != nil {
		return Services{}, err
	}
	window, err := cfg.Window()
	if err != nil {
		return Services{}, err
	}

	authService := services.NewAuthService(log, clk, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	deliveryService := services.NewDeliveryService(log, reposet.ChatMessage, hub, clients.SSEBus)

	defaults, err := services.LoadDefaultFilterConfig(cfg.FilterRulesPath)
	if err != nil {
		return Services{}, err
	}
	filterService := services.NewFilterSettingsService(log, reposet.CoachSettings, defaults)

	reportService, err := services.NewReportService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init report service: %w", err)
	}

	var artifacts checkin.ArtifactStore
	if clients.Bucket != nil {
		artifacts = services.NewBucketArtifactStore(log, clients.Bucket)
	} else {
		local, err := services.NewLocalArtifactStore(log, cfg.ArtifactDir, cfg.ArtifactPublicBaseURL)
		if err != nil {
			return Services{}, fmt.Errorf("init local artifact store: %w", err)
		}
		artifacts = local
	}

	var narrative checkin.NarrativeGenerator
	if clients.OpenAI != nil {
		narrative = services.NewNarrativeService(log, clients.OpenAI)
	} else {
		narrative = services.TemplateNarrator{}
	}

	var inflight checkin.Lease
	if clients.Redis != nil {
		rl, err := lease.NewRedis(log, clients.Redis, "checkin:lease:")
		if err != nil {
			return Services{}, fmt.Errorf("init redis lease: %w", err)
		}
		inflight = rl
	} else {
		inflight = lease.NewLocal(clk)
	}

	pipeline, err := checkin.NewPipeline(checkin.PipelineDeps{
		Log:        log,
		Clock:      clk,
		Location:   loc,
		Window:     window,
		Aggregator: checkin.NewAggregator(checkin.NewRepoActivitySource(reposet.MacroLog, reposet.WeightEntry, reposet.ChatMessage), cfg.ChatHistoryLimit),
		Settings:   filterService,
		Narrative:  narrative,
		Guard:      checkin.NewGuard(db, reposet.CheckinRecord, log),
		Delivery:   deliveryService,
		Renderer:   reportService,
		Artifacts:  artifacts,
		Lease:      inflight,
		LeaseTTL:   cfg.LeaseTTL,
		Timeouts:   cfg.StageTimeouts(),
	})
	if err != nil {
		return Services{}, err
	}

	orchestrator, err := checkin.NewOrchestrator(checkin.OrchestratorDeps{
		Log:      log,
		Clock:    clk,
		Location: loc,
		Window:   window,
		Roster:   checkin.NewRepoRoster(reposet.Client),
		Pipeline: pipeline,
		Workers:  cfg.Workers,
	})
	if err != nil {
		return Services{}, err
	}

	sched, err := scheduler.New(log, clk, cfg.PollInterval, orchestrator)
	if err != nil {
		return Services{}, err
	}
	sched.OnSummary = func(sum checkin.RunSummary) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StageTimeouts().Broadcast)
		defer cancel()
		deliveryService.BroadcastRunSummary(ctx, sum)
	}

	return Services{
		Auth:         authService,
		Delivery:     deliveryService,
		Filter:       filterService,
		Report:       reportService,
		Artifacts:    artifacts,
		Narrative:    narrative,
		Lease:        inflight,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Scheduler:    sched,
	}, nil
}
