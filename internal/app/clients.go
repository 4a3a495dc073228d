package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/checkin-engine/internal/platform/envutil"
	"github.com/yungbote/checkin-engine/internal/platform/gcp"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/platform/openai"
	"github.com/yungbote/checkin-engine/internal/realtime/bus"
)

// Clients holds external connections. Each is optional; a nil field means
// the local fallback is used instead.
type Clients struct {
	Redis     goredis.UniversalClient
	RedisAddr string
	SSEBus    bus.Bus
	Bucket    gcp.BucketService
	OpenAI    openai.Client
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        addr,
			Password:    envutil.String("REDIS_PASSWORD", ""),
			DB:          envutil.Int("REDIS_DB", 0),
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, envutil.String("REDIS_CHANNEL", bus.DefaultChannel))
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.Redis = rdb
		out.RedisAddr = addr
		out.SSEBus = b
	} else {
		log.Info("REDIS_ADDR not set; using in-process lease and no cross-replica fan-out")
	}

	// Gcs
	if envutil.String("REPORT_GCS_BUCKET_NAME", "") != "" {
		bucket, err := gcp.NewBucketService(log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		out.Bucket = bucket
	}

	// Openai
	if cfg := openai.ConfigFromEnv(); cfg.APIKey != "" {
		c, err := openai.NewClient(log, cfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = c
	} else {
		log.Warn("OPENAI_API_KEY not set; narratives use the template generator")
	}

	return out, nil
}

func (c Clients) Close() {
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
