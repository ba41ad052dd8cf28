package handlers

import (
	"context"
	"io/fs"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// DataStore is the read/write surface the API needs from PostgreSQL
type DataStore interface {
	ListPlayers(ctx context.Context, limit int) ([]models.Player, error)
	TopPlayers(ctx context.Context, limit int) ([]models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	UpsertPlayer(ctx context.Context, p *models.Player) error
	UpcomingMatches(ctx context.Context, limit int) ([]models.MatchDetail, error)
	GetMatchDetail(ctx context.Context, id string) (*models.MatchDetail, error)
	UpsertMatch(ctx context.Context, m *models.Match) error
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	RecentPredictions(ctx context.Context, limit int) ([]models.Prediction, error)
	GetPredictionByMatch(ctx context.Context, matchID string) (*models.Prediction, error)
}

// Analyzer runs match analyses and reports task status
type Analyzer interface {
	AnalyzeByID(ctx context.Context, matchID string, forceRefresh bool) (*models.Prediction, error)
	AgentStatuses(ctx context.Context) ([]models.AgentStatus, error)
}

// SyncTrigger starts a background pull from the data feed
type SyncTrigger interface {
	Trigger(kind string) (string, error)
}

// UsageReporter aggregates task executions from the analytics store
type UsageReporter interface {
	AgentUsage(ctx context.Context, since time.Time) ([]models.AgentUsage, error)
	Breakdown(ctx context.Context, req logic.UsageQuery) ([]models.UsageBucket, error)
}

// UsageCounters is the Redis-backed fallback when ClickHouse is not configured
type UsageCounters interface {
	Usage(ctx context.Context, agents []string) ([]models.AgentUsage, error)
}

// Migrator installs the embedded schema files
type Migrator interface {
	Postgres(ctx context.Context, fsys fs.FS, dir string) ([]string, error)
	ClickHouse(ctx context.Context, fsys fs.FS, dir string) ([]string, error)
}

// EventQueue exposes the analytics pool backlog for readiness checks
type EventQueue interface {
	QueueDepth() int
}

type Config struct {
	Store         DataStore
	Analyzer      Analyzer
	Sync          SyncTrigger
	Usage         UsageReporter
	UsageCounters UsageCounters
	Migrator      Migrator
	Schemas       fs.FS
	EventQueue    EventQueue
	Postgres      *pgxpool.Pool
	ClickHouse    driver.Conn
	Redis         *redis.Client
	Logger        *zap.Logger
}

type Handler struct {
	store         DataStore
	analyzer      Analyzer
	sync          SyncTrigger
	usage         UsageReporter
	usageCounters UsageCounters
	migrator      Migrator
	schemas       fs.FS
	queue         EventQueue
	pg            *pgxpool.Pool
	ch            driver.Conn
	redis         *redis.Client
	logger        *zap.SugaredLogger
	validator     *validator.Validate
}

func New(cfg Config) *Handler {
	return &Handler{
		store:         cfg.Store,
		analyzer:      cfg.Analyzer,
		sync:          cfg.Sync,
		usage:         cfg.Usage,
		usageCounters: cfg.UsageCounters,
		migrator:      cfg.Migrator,
		schemas:       cfg.Schemas,
		queue:         cfg.EventQueue,
		pg:            cfg.Postgres,
		ch:            cfg.ClickHouse,
		redis:         cfg.Redis,
		logger:        cfg.Logger.Sugar(),
		validator:     validator.New(),
	}
}
