package usecase

import (
	"context"
	"time"

	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

const cacheWriteTimeout = 500 * time.Millisecond

// CatalogUseCase реализует операции чтения каталога.
// Читатели видят read committed срез и никогда не блокируют запись.
type CatalogUseCase struct {
	productRepo ProductRepository
	storeRepo   StoreRepository
	statsRepo   StatsRepository
	cacheRepo   CacheRepository // nil — кэш выключен
	priceLog    *PriceLog
	logger      logger.Logger
	cfg         *cfg.CatalogCfg
}

func NewCatalogUC(
	productRepo ProductRepository,
	storeRepo StoreRepository,
	statsRepo StatsRepository,
	cacheRepo CacheRepository,
	priceLog *PriceLog,
	logger logger.Logger,
	cfg *cfg.CatalogCfg,
) *CatalogUseCase {
	return &CatalogUseCase{
		productRepo: productRepo,
		storeRepo:   storeRepo,
		statsRepo:   statsRepo,
		cacheRepo:   cacheRepo,
		priceLog:    priceLog,
		logger:      logger,
		cfg:         cfg,
	}
}

// RecentProducts возвращает недавно скрапленные товары с последней ценой.
func (c *CatalogUseCase) RecentProducts(ctx context.Context, limit int) ([]ProductInfo, error) {
	const op = "CatalogUseCase.RecentProducts"

	if limit <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidLimit)
	}

	products, err := c.productRepo.Recent(ctx, limit, c.cfg.IncludeDeleted)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// SearchProducts ищет подстроку в нормализованном названии, свежие скрапы первыми.
// Пустой (после нормализации) запрос возвращает пустой результат, а не весь каталог.
func (c *CatalogUseCase) SearchProducts(ctx context.Context, query string, limit int) ([]ProductInfo, error) {
	const op = "CatalogUseCase.SearchProducts"

	if limit <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidLimit)
	}

	normalized := domain.NormalizeSearchText(query)
	if normalized == "" {
		return []ProductInfo{}, nil
	}

	products, err := c.productRepo.Search(ctx, normalized, limit, c.cfg.IncludeDeleted)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// GetProduct возвращает товар из кэша или из БД; found == false, если товара нет.
func (c *CatalogUseCase) GetProduct(ctx context.Context, id int64) (*ProductInfo, bool, error) {
	const op = "CatalogUseCase.GetProduct"

	if id <= 0 {
		return nil, false, e.Wrap(op, e.ErrInvalidID)
	}

	var (
		generation int64
		cacheable  = c.cacheRepo != nil
	)
	if cacheable {
		cached, gen, ok, err := c.cacheRepo.GetProduct(ctx, id)
		if err != nil {
			// без поколения запись в кэш небезопасна
			c.logger.Warnf("Cache lookup failed: %v", e.Wrap(op, err))
			cacheable = false
		}
		if ok && c.visible(cached) {
			return cached, true, nil
		}
		generation = gen
	}

	product, found, err := c.productRepo.GetInfo(ctx, id, c.cfg.IncludeDeleted)
	if err != nil {
		return nil, false, e.Wrap(op, err)
	}
	if !found {
		return nil, false, nil
	}

	if cacheable {
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		err := c.cacheRepo.SetProduct(setCtx, *product, generation)
		cancel()
		if err != nil {
			c.logger.Warnf("Failed to cache product: %v", e.Wrap(op, err))
		}
	}

	return product, true, nil
}

// PriceHistory возвращает историю цен товара от новых к старым; found == false, если товара нет.
func (c *CatalogUseCase) PriceHistory(ctx context.Context, productID int64, limit int) ([]domain.Price, bool, error) {
	const op = "CatalogUseCase.PriceHistory"

	if productID <= 0 {
		return nil, false, e.Wrap(op, e.ErrInvalidID)
	}
	if limit <= 0 {
		return nil, false, e.Wrap(op, e.ErrInvalidLimit)
	}

	// История мягко удалённого товара остаётся доступной
	_, found, err := c.productRepo.GetInfo(ctx, productID, true)
	if err != nil {
		return nil, false, e.Wrap(op, err)
	}
	if !found {
		return nil, false, nil
	}

	history, err := c.priceLog.History(ctx, productID, limit)
	if err != nil {
		return nil, false, e.Wrap(op, err)
	}

	return history, true, nil
}

func (c *CatalogUseCase) ListStores(ctx context.Context) ([]domain.Store, error) {
	const op = "CatalogUseCase.ListStores"

	stores, err := c.storeRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return stores, nil
}

func (c *CatalogUseCase) GetStore(ctx context.Context, id int64) (*domain.Store, bool, error) {
	const op = "CatalogUseCase.GetStore"

	if id <= 0 {
		return nil, false, e.Wrap(op, e.ErrInvalidID)
	}

	store, found, err := c.storeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, e.Wrap(op, err)
	}

	return store, found, nil
}

// Stats возвращает число магазинов, товаров и наблюдений цены.
func (c *CatalogUseCase) Stats(ctx context.Context) (*Stats, error) {
	const op = "CatalogUseCase.Stats"

	stats, err := c.statsRepo.Counts(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return stats, nil
}

// visible применяет политику показа мягко удалённых товаров к записи из кэша.
func (c *CatalogUseCase) visible(p *ProductInfo) bool {
	return p != nil && (c.cfg.IncludeDeleted || !p.IsDeleted)
}
