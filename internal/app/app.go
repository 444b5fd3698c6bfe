// Package app connects the stores and external clients and assembles the
// services the transports serve.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/config"
	"github.com/andrewy1n/platypus-academy/internal/events"
	"github.com/andrewy1n/platypus-academy/internal/grader"
	"github.com/andrewy1n/platypus-academy/internal/health"
	"github.com/andrewy1n/platypus-academy/internal/ingest"
	"github.com/andrewy1n/platypus-academy/internal/llm"
	"github.com/andrewy1n/platypus-academy/internal/metrics"
	"github.com/andrewy1n/platypus-academy/internal/pipeline"
	"github.com/andrewy1n/platypus-academy/internal/repository"
	"github.com/andrewy1n/platypus-academy/internal/search"
	"github.com/andrewy1n/platypus-academy/internal/service"
	"github.com/andrewy1n/platypus-academy/internal/transport/rest"
	"github.com/andrewy1n/platypus-academy/internal/transport/ws"
)

// App owns every long-lived connection of the server
type App struct {
	Mongo     *mongo.Client
	Redis     *redis.Client
	Postgres  *sql.DB
	Index     *ingest.Index
	LLM       llm.Completer
	Publisher events.Publisher
	Container *rest.Container

	logger *slog.Logger
}

// New connects to the stores named in cfg and builds the service graph.
// Postgres and Kafka are optional; Mongo and Redis are required.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Publisher: events.Nop{},
		logger:    slog.Default().With("component", "app"),
	}
	if err := a.connect(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.build(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config) error {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	a.Mongo = mongoClient

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	a.logger.Info("connected to mongo", "database", cfg.Mongo.Database)

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := a.Redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	a.logger.Info("connected to redis", "addr", cfg.Redis.Addr)

	if cfg.Postgres.DSN != "" {
		db, err := openPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		a.Postgres = db
		a.logger.Info("attempt ledger enabled")
	}

	if cfg.Kafka.Enabled() {
		a.Publisher = events.NewProducer(cfg.Kafka)
		a.logger.Info("event publishing enabled", "topic", cfg.Kafka.Topic)
	}

	if dir := filepath.Dir(cfg.Ingest.IndexPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}
	index, err := ingest.OpenIndex(cfg.Ingest.IndexPath)
	if err != nil {
		return err
	}
	a.Index = index

	completer, err := llm.New(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	a.LLM = completer
	if completer == nil {
		a.logger.Warn("AI provider not configured, using mock evaluator")
	} else {
		a.logger.Info("AI provider configured", "provider", cfg.AI.Provider)
	}
	return nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := repository.EnsureAttemptSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("attempt schema: %w", err)
	}
	return db, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	db := a.Mongo.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	m := metrics.New(nil)

	// Repositories
	sessionRepo := repository.NewSessionRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	userRepo := repository.NewUserRepo(db)
	conversationRepo := repository.NewConversationRepo(db)

	// Caches
	sessionCache := cache.NewSessionCache(a.Redis)
	statsCache := cache.NewStatsCache(a.Redis)
	historyStore := cache.NewHistoryStore(a.Redis)
	runStore := cache.NewRunStore(a.Redis, cfg.Ticket.TTL)

	// Pipeline
	evaluator := service.NewEvaluatorService(&cfg.AI, a.LLM)

	searcher := search.NewCached(
		search.NewBrave(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Count),
		cache.NewSearchCache(a.Redis, cfg.Search.CacheTTL),
	)
	searcher.SetRecorder(m)

	ingester := ingest.NewIngester(ingest.NewFetcher(cfg.Ingest.MaxPageBytes), a.Index, evaluator, ingest.Options{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		MaxChunks:    cfg.Ingest.MaxChunks,
	})

	pool := pipeline.NewPool(pipeline.PoolConfig{
		MinWorkers:  cfg.Pipeline.MinWorkers,
		MaxWorkers:  cfg.Pipeline.MaxWorkers,
		ItemTimeout: cfg.Pipeline.ItemTimeout,
	})
	orchestrator := pipeline.NewOrchestrator(searcher, ingester, evaluator, pool, pipeline.Config{
		SearchTimeout:   cfg.Pipeline.SearchTimeout,
		ValidateTimeout: cfg.Pipeline.ValidateTimeout,
		EventBuffer:     cfg.Pipeline.EventBuffer,
		Concurrency:     cfg.Pipeline.Concurrency,
	})
	orchestrator.SetObserver(m)

	// Services
	sessionSvc := service.NewSessionService(orchestrator, sessionRepo, questionRepo, userRepo, sessionCache)
	sessionSvc.SetPublisher(a.Publisher)

	engine := grader.NewEngine(grader.Options{
		NumericTolerance:    cfg.Grading.NumericTolerance,
		ExactNumeric:        cfg.Grading.ExactNumeric,
		SimilarityThreshold: cfg.Grading.SimilarityThreshold,
	})
	gradeSvc := service.NewGradeService(engine, evaluator, questionRepo, sessionRepo, sessionCache)
	gradeSvc.SetStats(statsCache)
	gradeSvc.SetPublisher(a.Publisher)
	gradeSvc.SetRecorder(m)
	gradeSvc.SetThresholds(cfg.Grading.WeakTypeThreshold, cfg.Pipeline.JudgeTimeout)
	if a.Postgres != nil {
		gradeSvc.SetLedger(repository.NewAttemptRepo(a.Postgres))
	}

	assistantSvc := service.NewAssistantService(evaluator, historyStore, conversationRepo, questionRepo, sessionRepo)
	assistantSvc.SetChunkLookup(a.Index)

	tickets := service.NewTicketService(cfg.Ticket.Secret, cfg.Ticket.TTL)

	a.Container = &rest.Container{
		SessionService:   sessionSvc,
		QuestionService:  service.NewQuestionService(questionRepo),
		GradeService:     gradeSvc,
		UserService:      service.NewUserService(userRepo, sessionRepo, statsCache),
		AssistantService: assistantSvc,
		RunService:       service.NewRunService(runStore, tickets),
		Health:           a.healthChecks(),
		Metrics:          m,
		WSHub:            ws.NewHub(),
	}
	return nil
}

func (a *App) healthChecks() *health.Checker {
	checker := health.NewChecker()
	checker.Register("mongo", health.PingCheck(func(ctx context.Context) error {
		return a.Mongo.Ping(ctx, nil)
	}))
	checker.Register("redis", health.PingCheck(func(ctx context.Context) error {
		return a.Redis.Ping(ctx).Err()
	}))
	checker.Register("chunk_index", health.PingCheck(a.Index.Ping))
	if a.Postgres != nil {
		checker.Register("postgres", health.PingCheck(a.Postgres.PingContext))
	}
	return checker
}

// Close releases every connection that was opened
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Postgres != nil {
		errs = append(errs, a.Postgres.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
