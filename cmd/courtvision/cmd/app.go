package cmd

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/agents"
	"github.com/courtvision/prediction-api/internal/config"
	"github.com/courtvision/prediction-api/internal/llm"
	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
	"github.com/courtvision/prediction-api/internal/realtime"
	"github.com/courtvision/prediction-api/internal/worker"
)

// app holds the connections and services shared by serve and analyze
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pg    *pgxpool.Pool
	ch    driver.Conn
	redis *redis.Client

	store        *logic.Store
	catalog      *agents.Catalog
	status       logic.StatusStore
	counters     *worker.RedisStatStore
	pool         *worker.Pool
	hub          *realtime.Hub
	relay        *realtime.RedisRelay
	kafka        *realtime.KafkaPublisher
	orchestrator *logic.Orchestrator
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func connectClickHouse(ctx context.Context, url string) (driver.Conn, error) {
	opts, err := clickhouse.ParseDSN(url)
	if err != nil {
		return nil, fmt.Errorf("clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return conn, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// newApp connects every configured backend and wires the analysis pipeline.
// Redis, ClickHouse and Kafka are optional.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, catalog: agents.DefaultCatalog()}
	sugar := logger.Sugar()

	var err error
	if a.pg, err = connectPostgres(ctx, cfg.PostgresURL); err != nil {
		return nil, err
	}
	a.store = logic.NewStore(a.pg)

	if cfg.ClickHouseURL != "" {
		if a.ch, err = connectClickHouse(ctx, cfg.ClickHouseURL); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		sugar.Infow("ClickHouse not configured, agent analytics limited to counters")
	}

	var lock logic.RunLock = logic.NewMemoryRunLock()
	a.status = logic.NewMemoryStatusStore()
	if cfg.RedisURL != "" {
		if a.redis, err = connectRedis(ctx, cfg.RedisURL); err != nil {
			a.Close()
			return nil, err
		}
		a.status = logic.NewRedisStatusStore(a.redis, cfg.StatusTTL)
		lock = logic.NewRedisRunLock(a.redis, cfg.RunLockTTL, logger)
		a.counters = worker.NewRedisStatStore(a.redis)
	} else {
		sugar.Infow("Redis not configured, using in-process status store and run lock")
	}

	var events logic.EventSink
	if a.ch != nil || a.counters != nil {
		poolCfg := worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			ClickHouse:    a.ch,
			Logger:        logger,
		}
		if a.counters != nil {
			poolCfg.Stats = a.counters
		}
		a.pool = worker.NewPool(poolCfg)
		events = a.pool
	}

	if cfg.LLMAPIKey == "" {
		sugar.Warnw("LLM_API_KEY is empty, completion calls will fail and predictions use the fallback consensus")
	}
	completer := llm.NewClient(llm.ClientConfig{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		DefaultModel: cfg.LLMModel,
		MaxTokens:    cfg.LLMMaxTokens,
		Timeout:      cfg.LLMTimeout,
		Logger:       logger,
	})
	synthesisModel := cfg.SynthesisModel
	if synthesisModel == "" {
		synthesisModel = cfg.LLMModel
	}

	a.hub = realtime.NewHub(realtime.HubConfig{
		Statuses:       statusFunc(a.status.List),
		Interval:       cfg.StatusBroadcast,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	var broadcaster realtime.Fanout
	if a.redis != nil {
		a.relay = realtime.NewRedisRelay(a.redis, a.hub, logger)
		broadcaster = append(broadcaster, a.relay)
	} else {
		broadcaster = append(broadcaster, a.hub)
	}
	if len(cfg.KafkaBrokers) > 0 {
		a.kafka = realtime.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		broadcaster = append(broadcaster, a.kafka)
	}

	orchCfg := logic.OrchestratorConfig{
		Store:       a.store,
		Runner:      agents.NewAnalyzer(completer, a.store, cfg.LLMModel, logger),
		Catalog:     a.catalog,
		Synthesizer: logic.NewSynthesizer(completer, synthesisModel, logger),
		Status:      a.status,
		Lock:        lock,
		Broadcaster: broadcaster,
		Events:      events,
		Timeout:     cfg.AnalysisTimeout,
		MaxParallel: cfg.AnalysisMaxParallel,
		Logger:      logger,
	}
	a.orchestrator = logic.NewOrchestrator(orchCfg)

	if err := a.status.Init(ctx, logic.AgentRefs(a.catalog)); err != nil {
		a.Close()
		return nil, fmt.Errorf("reset agent status: %w", err)
	}
	return a, nil
}

// start launches the background workers; they stop when ctx is cancelled
func (a *app) start(ctx context.Context) {
	if a.pool != nil {
		a.pool.Start(ctx)
	}
	go a.hub.Run(ctx)
	if a.relay != nil {
		go a.relay.Run(ctx)
	}
}

// Close flushes the analytics pool and releases every connection
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Sugar().Warnw("Failed to close Kafka writer", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.ch != nil {
		a.ch.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}

// statusFunc adapts StatusStore.List to realtime.StatusSource
type statusFunc func(ctx context.Context) ([]models.AgentStatus, error)

func (f statusFunc) AgentStatuses(ctx context.Context) ([]models.AgentStatus, error) { return f(ctx) }
