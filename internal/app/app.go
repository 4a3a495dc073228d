package app

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"gorm.io/gorm"

	"github.com/yungbote/checkin-engine/internal/db"
	apphttp "github.com/yungbote/checkin-engine/internal/http"
	"github.com/yungbote/checkin-engine/internal/observability"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Clock    clock.Clock
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService    *db.Service
	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdownOTel := observability.InitOTel(ctx, log, cfg.OtelConfig())
	metrics := observability.Init(log)

	dbService, err := db.Open(log, cfg.DBConfig())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	clk := clock.New()
	ssehub := realtime.NewSSEHub(log)

	clientset, err := wireClients(ctx, log)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, clk, cfg, reposet, clientset, ssehub)
	if err != nil {
		clientset.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, clientset, serviceset, ssehub)
	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  wireMiddleware(log, serviceset),
		RealtimeHandler: handlerset.Realtime,
		CheckinHandler:  handlerset.Checkin,
		HealthHandler:   handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Clock:        clk,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		SSEHub:       ssehub,
		Metrics:      metrics,
		dbService:    dbService,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Start launches background work: the cross-replica forwarder, metric
// collectors and, when enabled, the weekly scheduler.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}

	if a.Cfg.DBConfig().Driver == "postgres" {
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	}
	if a.Clients.RedisAddr != "" {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.RedisAddr)
	}
	a.Metrics.StartLedgerCollector(ctx, a.Log, a.DB, a.Services.Orchestrator.CurrentWeekStart)

	if a.Cfg.SchedulerEnabled {
		if err := a.Services.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.Log.Info("Checkin scheduler started",
			"timezone", a.Cfg.SchedulerTimezone,
			"weekday", a.Cfg.TriggerWeekday,
			"hour", a.Cfg.TriggerHour,
			"poll_interval", a.Cfg.PollInterval.String(),
		)
	} else {
		a.Log.Warn("Checkin scheduler disabled; only manual triggers will run")
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
