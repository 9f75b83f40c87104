package bootstrap

import (
	"hash/fnv"
	"strings"
	"time"

	"handyman_server/adapter/out/messaging"
	"handyman_server/adapter/out/notification"
	"handyman_server/adapter/out/persistence"
	"handyman_server/config"
	"handyman_server/core/domain"
	"handyman_server/core/port/out"
	"handyman_server/core/service/automation"
	"handyman_server/core/service/catalog"
	"handyman_server/core/service/inbox"
	"handyman_server/core/service/rules"
	"handyman_server/infra/database"
	"handyman_server/pkg/cache"
	"handyman_server/pkg/logger"
	"handyman_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Repositories
	EmailRepo   domain.EmailRepository
	RuleRepo    domain.RuleRepository
	ServiceRepo domain.ServiceRepository
	QuoteRepo   domain.PendingQuoteRepository

	// Outbound adapters
	Producer out.EventProducer
	Cache    out.Cache
	Notifier out.NotificationDispatcher

	// Services
	AutomationService *automation.Service
	RuleService       *rules.Service
	CatalogService    *catalog.Service
	InboxService      *inbox.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Snowflake IDs for rules, services, emails and quotes
	if err := snowflake.Init(snowflakeNodeID(cfg.WorkerID)); err != nil {
		return nil, nil, err
	}

	// Database (pgxpool, health checks and pool stats)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the persistence adapters)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		for _, fn := range cleanups {
			fn()
		}
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis (streams, dedup locks, catalog cache). Optional: automation
	// still works without it, only the async paths degrade.
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
		deps.Cache = cache.NewRedisCache(redisClient)
		deps.Producer = messaging.NewRedisProducer(redisClient)
	}

	// Repositories
	deps.EmailRepo = persistence.NewEmailRepository(sqlDB)
	deps.RuleRepo = persistence.NewRuleRepository(sqlDB)
	deps.ServiceRepo = persistence.NewServiceRepository(sqlDB)
	deps.QuoteRepo = persistence.NewPendingQuoteRepository(sqlDB)

	// Manager webhook (worker process dispatches it off the streams)
	if notifier := notification.NewWebhookNotifier(&notification.WebhookConfig{
		URL:        cfg.WebhookURL,
		Timeout:    time.Duration(cfg.WebhookTimeoutSec) * time.Second,
		MaxRetries: cfg.WebhookMaxRetries,
		RetryDelay: time.Duration(cfg.WebhookRetryDelaySec) * time.Second,
	}); notifier != nil {
		deps.Notifier = notifier
	}

	// Services. The automation service publishes alerts to the streams; the
	// worker's notification processor owns webhook delivery, so no inline
	// notifier is wired here.
	orchestrator := automation.NewOrchestrator(time.Now, snowflake.ID)
	approval := automation.NewApprovalService(deps.QuoteRepo, time.Now)
	deps.AutomationService = automation.NewService(
		deps.EmailRepo,
		deps.RuleRepo,
		deps.ServiceRepo,
		deps.QuoteRepo,
		orchestrator,
		approval,
		deps.Producer,
		nil,
		deps.Cache,
	)
	deps.RuleService = rules.NewService(deps.RuleRepo, deps.ServiceRepo, snowflake.ID, time.Now)
	deps.CatalogService = catalog.NewService(deps.ServiceRepo, deps.Cache, snowflake.ID, time.Now)
	deps.InboxService = inbox.NewService(deps.EmailRepo, deps.Producer, snowflake.ID, time.Now)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// snowflakeNodeID maps the worker ID string onto the generator's node range.
func snowflakeNodeID(workerID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(workerID))
	return int64(h.Sum32() % 1024)
}
