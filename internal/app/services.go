package app

import (
	config "github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/repository/pgdb"
	pgdbConv "github.com/voyager-tech/go-backend/internal/repository/pgdb/converter"
	"github.com/voyager-tech/go-backend/internal/repository/redis"
	redisConv "github.com/voyager-tech/go-backend/internal/repository/redis/converter"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/clients"
	"github.com/voyager-tech/go-backend/pkg/logger"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

// Services — ядро каталога, общее для HTTP-сервиса и pricectl.
type Services struct {
	Ingest     *usecase.IngestUseCase
	Catalog    *usecase.CatalogUseCase
	OutboxRepo *pgdb.OutboxEventRepo
}

// NewServices собирает репозитории и usecase'ы. redisClient == nil выключает кэш,
// события в outbox пишутся только при настроенной Kafka.
func NewServices(db *postgres.PgDatabase, redisClient *clients.RedisClient, cfg *config.Config, log logger.Logger) *Services {
	storeRepo := pgdb.NewStoreRepo(db.Pool, pgdbConv.StoreConv{})
	categoryRepo := pgdb.NewCategoryRepo(db.Pool, pgdbConv.CategoryConv{})
	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConv{})
	priceRepo := pgdb.NewPriceRepo(db.Pool, pgdbConv.PriceConv{})
	statsRepo := pgdb.NewStatsRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConv{})

	var cacheRepo usecase.CacheRepository
	if redisClient != nil {
		cacheRepo = redis.NewCacheRepo(redisClient, redisConv.ProductInfoConv{}, cfg.Redis, log)
	}

	var events usecase.OutboxRepository
	if cfg.Kafka.Enabled {
		events = outboxRepo
	}

	resolver := usecase.NewResolver(storeRepo, productRepo, categoryRepo, cfg.Catalog)
	priceLog := usecase.NewPriceLog(priceRepo)

	return &Services{
		Ingest:     usecase.NewIngestUC(resolver, priceLog, productRepo, events, cacheRepo, db.Pool, log, cfg.Catalog),
		Catalog:    usecase.NewCatalogUC(productRepo, storeRepo, statsRepo, cacheRepo, priceLog, log, cfg.Catalog),
		OutboxRepo: outboxRepo,
	}
}
