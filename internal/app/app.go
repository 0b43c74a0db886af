package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/db"
	config "github.com/voyager-tech/go-backend/internal/cfg"
	v1Http "github.com/voyager-tech/go-backend/internal/delivery/v1/http"
	"github.com/voyager-tech/go-backend/internal/infrastructure/kafka"
	"github.com/voyager-tech/go-backend/internal/ledger"
	"github.com/voyager-tech/go-backend/pkg/clients"
	"github.com/voyager-tech/go-backend/pkg/closer"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	topicTimeout    = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv *v1Http.Server
	worker  *kafka.OutboxWorker
}

// NewApp подключает зависимости, применяет миграции (если включено) и собирает HTTP-сервер.
// Ресурсы регистрируются в closer по мере создания; при ошибке уже открытые закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: log, closer: closer.NewCloser(0)}
	defer func() {
		if err != nil {
			_ = a.closer.Close(context.Background())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pg, err := a.initPGDB(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	checks := map[string]v1Http.Pinger{"postgres": pg}

	var redisClient *clients.RedisClient
	if cfg.Redis.Enabled {
		redisClient = clients.NewRedisClient(cfg.Redis)
		a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
		if err := redisClient.Ping(ctx); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		checks["redis"] = redisClient
	} else {
		log.Infof("Redis is not configured, product cache disabled")
	}

	services := NewServices(pg, redisClient, cfg, log)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(log, cfg.Kafka)
		a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })
		topicCtx, cancelTopic := context.WithTimeout(ctx, topicTimeout)
		err := producer.EnsureTopic(topicCtx)
		cancelTopic()
		if err != nil {
			// событие дождётся брокера в outbox
			log.Warnf("ensure kafka topic failed: %v", err)
		}

		a.worker = kafka.NewOutboxWorker(services.OutboxRepo, log, producer, cfg.Kafka, cfg.Db.DSN())
		a.closer.Add("outbox worker", a.worker.Stop)
	} else {
		log.Infof("Kafka is not configured, ingestion events disabled")
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(services.Ingest, services.Catalog, checks, cfg.Catalog)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return a, nil
}

// Run запускает фоновые воркеры и HTTP-сервер и блокируется до отмены ctx или падения сервера.
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown error")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func (a *App) initPGDB(ctx context.Context) (*postgres.PgDatabase, error) {
	pg, err := postgres.Connect(ctx, a.cfg.Db)
	if err != nil {
		a.logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("postgres", func(context.Context) error {
		pg.Close()
		return nil
	})

	if !a.cfg.Db.AutoMigrate {
		return pg, nil
	}

	l, err := ledger.New(pg.Pool, db.Migrations, db.MigrationsDir, a.logger)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	applied, err := l.Up(ctx)
	if err != nil {
		a.logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.logger.Infof("Migrations applied: %d", len(applied))

	return pg, nil
}
